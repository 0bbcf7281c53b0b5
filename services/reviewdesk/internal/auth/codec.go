// Package auth decodes bearer tokens for display purposes. Nothing here
// verifies a signature: the claims it yields identify a user to the UI only.
package auth

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/owaisoptics/reviewdesk/pkg/errors"
)

// UntrustedClaims is the decoded payload of a bearer token. It is kept a
// distinct type from domain.Session so it cannot be mistaken for an
// authenticated identity.
type UntrustedClaims struct {
	jwt.RegisteredClaims
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Picture string `json:"picture,omitempty"`
}

var parser = jwt.NewParser(jwt.WithPaddingAllowed())

// Decode returns the unverified claims carried by token. Only the payload
// segment is read; the header and signature may hold anything. Any
// structural problem yields an error wrapping apperrors.ErrMalformedToken;
// callers treat that as "no usable claims".
func Decode(token string) (*UntrustedClaims, error) {
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) != 3 {
		return nil, apperrors.MalformedToken(fmt.Errorf("%w: want 3 segments, got %d", jwt.ErrTokenMalformed, len(parts)))
	}

	payload, err := parser.DecodeSegment(parts[1])
	if err != nil {
		return nil, apperrors.MalformedToken(fmt.Errorf("%w: payload: %v", jwt.ErrTokenMalformed, err))
	}

	claims := &UntrustedClaims{}
	if err := json.Unmarshal(payload, claims); err != nil {
		return nil, apperrors.MalformedToken(fmt.Errorf("%w: claims: %v", jwt.ErrTokenMalformed, err))
	}
	return claims, nil
}

// Codec adapts Decode for injection.
type Codec struct{}

// Decode implements the session package's decoder contract.
func (Codec) Decode(token string) (*UntrustedClaims, error) {
	return Decode(token)
}
