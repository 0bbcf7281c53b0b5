package domain

import (
	"strings"

	"github.com/owaisoptics/reviewdesk/pkg/validator"
)

// Inline form messages.
const (
	MsgSelectRating  = "Please select a rating"
	MsgCommentLength = "Please write at least 10 characters"
)

var inputMessages = validator.Messages{
	"rating":  MsgSelectRating,
	"comment": MsgCommentLength,
}

// ReviewInput is what the user fills in on the review form.
type ReviewInput struct {
	Rating    int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment   string `json:"comment" validate:"required,min=10"`
	Anonymous bool   `json:"anonymous"`
}

// Normalize trims the comment.
func (in ReviewInput) Normalize() ReviewInput {
	in.Comment = strings.TrimSpace(in.Comment)
	return in
}

// Validate checks the trimmed input and returns a *validator.ValidationError
// carrying the inline form messages.
func (in ReviewInput) Validate() error {
	return validator.ValidateWithMessages(in.Normalize(), inputMessages)
}

// Submission is the body sent to the review service on create and update.
type Submission struct {
	Rating  int     `json:"rating"`
	Comment string  `json:"comment"`
	Name    string  `json:"name"`
	Avatar  *string `json:"avatar"`
	UserID  *string `json:"user_id"`
}

// NewSubmission builds the wire body for in on behalf of s. A nil session
// yields a null user id; anonymity drops the avatar and replaces the name.
func NewSubmission(in ReviewInput, s *Session) Submission {
	in = in.Normalize()
	sub := Submission{Rating: in.Rating, Comment: in.Comment}

	var name, avatar string
	if s != nil {
		sub.UserID = StringPtr(s.SubjectID)
		name, avatar = s.DisplayName, s.AvatarURL
	}

	if in.Anonymous {
		sub.Name = AnonymousName
		return sub
	}

	sub.Name = name
	if sub.Name == "" {
		sub.Name = DefaultRestoredName
	}
	sub.Avatar = StringPtr(avatar)
	return sub
}

// InputFrom recovers the form state from an existing review for editing.
func InputFrom(r Review) ReviewInput {
	return ReviewInput{Rating: r.Rating, Comment: r.Comment, Anonymous: r.Anonymous()}
}
