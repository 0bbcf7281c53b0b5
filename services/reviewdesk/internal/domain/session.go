package domain

// Provider identifies the identity provider a session came from.
type Provider string

const ProviderGoogle Provider = "google"

// Session is the display-only identity of the current user. It is derived
// from an unverified token and must never be used for authorization.
type Session struct {
	SubjectID   string   `json:"_id"`
	DisplayName string   `json:"name"`
	Email       string   `json:"email"`
	AvatarURL   string   `json:"avatar,omitempty"`
	Provider    Provider `json:"provider,omitempty"`
}

// Default display values used when neither the redirect nor the token
// supply them.
const (
	DefaultSubjectID    = "user"
	DefaultRedirectName = "Google User"
	DefaultRestoredName = "User"
)
