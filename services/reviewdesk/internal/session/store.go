package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/owaisoptics/reviewdesk/pkg/logger"
	"github.com/owaisoptics/reviewdesk/services/reviewdesk/internal/auth"
	"github.com/owaisoptics/reviewdesk/services/reviewdesk/internal/domain"
	"github.com/owaisoptics/reviewdesk/services/reviewdesk/internal/repository"
)

// Keys under which the token and the session are persisted.
const (
	TokenKey = "authToken"
	UserKey  = "user"
)

// Query parameters delivered by the OAuth redirect.
const (
	ParamToken  = "token"
	ParamName   = "name"
	ParamAvatar = "avatar"
)

// Decoder extracts display claims from a token.
type Decoder interface {
	Decode(token string) (*auth.UntrustedClaims, error)
}

// Store owns the current session. One Store is created at startup and
// handed to everything that needs the current identity.
type Store struct {
	kv      repository.KeyValueStore
	decoder Decoder
	logger  *slog.Logger

	mu      sync.RWMutex
	current *domain.Session
	token   string
}

// NewStore creates a session store with no current session. Call Restore to
// pick up a persisted one.
func NewStore(kv repository.KeyValueStore, decoder Decoder, logger *slog.Logger) *Store {
	return &Store{
		kv:      kv,
		decoder: decoder,
		logger:  logger,
	}
}

// BootstrapFromRedirect consumes the token, name and avatar parameters of an
// OAuth redirect. When u carries a token, the session is built, persisted and
// returned together with u minus those parameters. Without a token it
// returns a nil session and u unchanged.
func (s *Store) BootstrapFromRedirect(ctx context.Context, u *url.URL) (*domain.Session, *url.URL, error) {
	q := u.Query()
	token := q.Get(ParamToken)
	if token == "" {
		return nil, u, nil
	}

	claims := s.decode(ctx, token)

	sess := domain.Session{
		SubjectID:   domain.DefaultSubjectID,
		DisplayName: domain.DefaultRedirectName,
		AvatarURL:   q.Get(ParamAvatar),
		Provider:    domain.ProviderGoogle,
	}
	if claims != nil {
		if claims.Subject != "" {
			sess.SubjectID = claims.Subject
		}
		if claims.Name != "" {
			sess.DisplayName = claims.Name
		}
		if sess.AvatarURL == "" {
			sess.AvatarURL = claims.Picture
		}
		sess.Email = claims.Email
	}
	if name := q.Get(ParamName); name != "" {
		sess.DisplayName = name
	}

	if err := s.Login(ctx, sess, token); err != nil {
		return nil, u, err
	}

	return &sess, sanitize(u), nil
}

// sanitize returns a copy of u without the redirect parameters.
func sanitize(u *url.URL) *url.URL {
	clean := *u
	q := clean.Query()
	q.Del(ParamToken)
	q.Del(ParamName)
	q.Del(ParamAvatar)
	clean.RawQuery = q.Encode()
	clean.ForceQuery = false
	return &clean
}

// Restore loads the persisted session. A persisted session is taken as is.
// A token without a session yields a minimal session built from the token's
// subject, which is then persisted. A token whose claims cannot be read
// restores nothing, though the token stays persisted.
func (s *Store) Restore(ctx context.Context) (*domain.Session, error) {
	token, ok, err := s.kv.Get(ctx, TokenKey)
	if err != nil {
		return nil, fmt.Errorf("read persisted token: %w", err)
	}
	if !ok || token == "" {
		s.set(nil, "")
		return nil, nil
	}

	raw, ok, err := s.kv.Get(ctx, UserKey)
	if err != nil {
		return nil, fmt.Errorf("read persisted session: %w", err)
	}

	if ok {
		var sess domain.Session
		if err := json.Unmarshal([]byte(raw), &sess); err != nil {
			logger.WithContext(ctx, s.logger).Warn("discarding unreadable persisted session",
				slog.String("error", err.Error()),
			)
			if err := s.kv.Delete(ctx, UserKey); err != nil {
				return nil, fmt.Errorf("delete persisted session: %w", err)
			}
			s.set(nil, token)
			return nil, nil
		}
		s.set(&sess, token)
		return &sess, nil
	}

	claims := s.decode(ctx, token)
	if claims == nil || claims.Subject == "" {
		logger.WithContext(ctx, s.logger).Warn("persisted token carries no subject, no session restored")
		s.set(nil, token)
		return nil, nil
	}

	sess := domain.Session{SubjectID: claims.Subject, DisplayName: domain.DefaultRestoredName}
	if err := s.persistSession(ctx, sess); err != nil {
		return nil, err
	}
	s.set(&sess, token)
	return &sess, nil
}

// Login persists sess and token and makes sess current, replacing whatever
// was there.
func (s *Store) Login(ctx context.Context, sess domain.Session, token string) error {
	if err := s.kv.Set(ctx, TokenKey, token); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	if err := s.persistSession(ctx, sess); err != nil {
		return err
	}
	s.set(&sess, token)
	return nil
}

// Logout forgets the token and session. A failed delete leaves the current
// session in place.
func (s *Store) Logout(ctx context.Context) error {
	if err := s.kv.Delete(ctx, TokenKey, UserKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.set(nil, "")
	return nil
}

// Current returns a copy of the current session, or nil.
func (s *Store) Current() *domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	cpy := *s.current
	return &cpy
}

// IsLoggedIn reports whether there is a current session.
func (s *Store) IsLoggedIn() bool {
	return s.Current() != nil
}

// SubjectID returns the current subject, or "".
func (s *Store) SubjectID() string {
	if sess := s.Current(); sess != nil {
		return sess.SubjectID
	}
	return ""
}

// Token returns the persisted bearer token, or "". It satisfies
// httpclient.TokenSource.
func (s *Store) Token(context.Context) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Store) set(sess *domain.Session, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = sess
	s.token = token
}

func (s *Store) persistSession(ctx context.Context, sess domain.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.kv.Set(ctx, UserKey, string(data)); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

// decode returns nil when the token has no readable claims. The token itself
// is never logged.
func (s *Store) decode(ctx context.Context, token string) *auth.UntrustedClaims {
	claims, err := s.decoder.Decode(token)
	if err != nil {
		logger.WithContext(ctx, s.logger).Debug("token payload not decodable",
			slog.String("error", err.Error()),
		)
		return nil
	}
	return claims
}
