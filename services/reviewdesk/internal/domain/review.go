package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// AnonymousName replaces the display name of an anonymized review.
const AnonymousName = "Anonymous"

// ReviewID is an opaque review identifier. The review service sends it as a
// string, older fallback data as a number; both decode to the same form.
type ReviewID string

// UnmarshalJSON accepts a JSON string or number.
func (id *ReviewID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ReviewID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("review id must be a string or number: %w", err)
	}
	*id = ReviewID(n.String())
	return nil
}

// Timestamp decodes RFC 3339 timestamps and the zone-less ISO-8601 form the
// review service emits. Zone-less values are taken as UTC.
type Timestamp struct {
	time.Time
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses s in any of the accepted layouts.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	parsed, err := ParseTimestamp(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// Review is a single user review.
type Review struct {
	ID ReviewID `json:"_id"`
	// UserID is nil only for entries written before identity tracking.
	UserID      *string   `json:"user_id"`
	DisplayName string    `json:"name"`
	Rating      int       `json:"rating"`
	Comment     string    `json:"comment"`
	AvatarURL   *string   `json:"avatar"`
	CreatedAt   Timestamp `json:"createdAt"`
}

// BelongsTo reports whether the review carries userID. Anonymous legacy
// entries and empty ids never match.
func (r Review) BelongsTo(userID string) bool {
	return userID != "" && r.UserID != nil && *r.UserID == userID
}

// Anonymous reports whether the review was posted anonymously. Used to
// pre-fill the edit form.
func (r Review) Anonymous() bool {
	return r.DisplayName == AnonymousName
}

// UnmarshalJSON decodes a review, taking "_id" or, failing that, "id".
func (r *Review) UnmarshalJSON(data []byte) error {
	type plain Review
	var w struct {
		plain
		AltID *ReviewID `json:"id"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = Review(w.plain)
	if r.ID == "" && w.AltID != nil {
		r.ID = *w.AltID
	}
	return nil
}

// StringPtr returns nil for "" and &s otherwise.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
