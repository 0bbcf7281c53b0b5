package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/owaisoptics/reviewdesk/pkg/httpclient"
	"github.com/owaisoptics/reviewdesk/services/reviewdesk/internal/auth"
	"github.com/owaisoptics/reviewdesk/services/reviewdesk/internal/domain"
	"github.com/owaisoptics/reviewdesk/services/reviewdesk/internal/repository/memory"
)

var _ httpclient.TokenSource = (*Store)(nil)

func newTestStore() (*Store, *memory.Store) {
	kv := memory.New()
	return NewStore(kv, auth.Codec{}, slog.New(slog.NewTextHandler(io.Discard, nil))), kv
}

func tokenFor(t *testing.T, claims auth.UntrustedClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("irrelevant"))
	require.NoError(t, err)
	return s
}

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestBootstrapFromRedirect_UsesRedirectParams(t *testing.T) {
	store, kv := newTestStore()
	ctx := context.Background()
	token := tokenFor(t, auth.UntrustedClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "U1"}, Name: "From Claims"})

	u := mustParse(t, "https://reviews.example.com/?sort=highest&token="+token+"&name=Ahmed%20Khan&avatar=https%3A%2F%2Fimg.example.com%2Fa.png")
	sess, clean, err := store.BootstrapFromRedirect(ctx, u)
	require.NoError(t, err)
	require.NotNil(t, sess)

	assert.Equal(t, "U1", sess.SubjectID)
	assert.Equal(t, "Ahmed Khan", sess.DisplayName)
	assert.Equal(t, "https://img.example.com/a.png", sess.AvatarURL)
	assert.Equal(t, domain.ProviderGoogle, sess.Provider)

	assert.Equal(t, "https://reviews.example.com/?sort=highest", clean.String())
	assert.Contains(t, u.RawQuery, "token=", "input url must not be modified")

	persisted, ok, _ := kv.Get(ctx, TokenKey)
	assert.True(t, ok)
	assert.Equal(t, token, persisted)
	assert.True(t, store.IsLoggedIn())
	assert.Equal(t, token, store.Token(ctx))
}

func TestBootstrapFromRedirect_FallsBackToClaimsThenDefaults(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	token := tokenFor(t, auth.UntrustedClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "U2"},
		Name:             "Sara Ali",
		Email:            "sara@example.com",
		Picture:          "https://img.example.com/s.png",
	})
	sess, clean, err := store.BootstrapFromRedirect(ctx, mustParse(t, "/?token="+token))
	require.NoError(t, err)
	assert.Equal(t, "Sara Ali", sess.DisplayName)
	assert.Equal(t, "https://img.example.com/s.png", sess.AvatarURL)
	assert.Equal(t, "sara@example.com", sess.Email)
	assert.Equal(t, "/", clean.String())

	sess, _, err = store.BootstrapFromRedirect(ctx, mustParse(t, "/?token=abc"))
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSubjectID, sess.SubjectID)
	assert.Equal(t, domain.DefaultRedirectName, sess.DisplayName)
	assert.Empty(t, sess.AvatarURL)
	assert.Equal(t, "abc", store.Token(ctx), "undecodable tokens are still persisted")
}

func TestBootstrapFromRedirect_NoToken(t *testing.T) {
	store, _ := newTestStore()
	u := mustParse(t, "/?name=Someone")

	sess, clean, err := store.BootstrapFromRedirect(context.Background(), u)
	require.NoError(t, err)
	assert.Nil(t, sess)
	assert.Same(t, u, clean)
	assert.False(t, store.IsLoggedIn())
}

func TestRestore_PersistedSessionVerbatim(t *testing.T) {
	store, kv := newTestStore()
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, TokenKey, "opaque"))
	require.NoError(t, kv.Set(ctx, UserKey, `{"_id":"U3","name":"Hassan Raza","email":"","avatar":"https://img.example.com/h.png","provider":"google"}`))

	sess, err := store.Restore(ctx)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, domain.Session{
		SubjectID:   "U3",
		DisplayName: "Hassan Raza",
		AvatarURL:   "https://img.example.com/h.png",
		Provider:    domain.ProviderGoogle,
	}, *sess)
	assert.Equal(t, "opaque", store.Token(ctx))
}

func TestRestore_TokenOnlyDerivesMinimalSession(t *testing.T) {
	store, kv := newTestStore()
	ctx := context.Background()
	token := tokenFor(t, auth.UntrustedClaims{RegisteredClaims: jwt.RegisteredClaims{Subject: "U4"}, Name: "Ignored"})
	require.NoError(t, kv.Set(ctx, TokenKey, token))

	sess, err := store.Restore(ctx)
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, "U4", sess.SubjectID)
	assert.Equal(t, domain.DefaultRestoredName, sess.DisplayName)

	raw, ok, _ := kv.Get(ctx, UserKey)
	assert.True(t, ok)
	assert.JSONEq(t, `{"_id":"U4","name":"User","email":""}`, raw)
}

func TestRestore_UndecodableTokenRestoresNothing(t *testing.T) {
	store, kv := newTestStore()
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, TokenKey, "abc"))

	sess, err := store.Restore(ctx)
	require.NoError(t, err)
	assert.Nil(t, sess)
	assert.False(t, store.IsLoggedIn())
	assert.Equal(t, "abc", store.Token(ctx))

	_, ok, _ := kv.Get(ctx, TokenKey)
	assert.True(t, ok, "token stays persisted")
}

func TestRestore_CorruptSessionIsDiscarded(t *testing.T) {
	store, kv := newTestStore()
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, TokenKey, "opaque"))
	require.NoError(t, kv.Set(ctx, UserKey, `{not json`))

	sess, err := store.Restore(ctx)
	require.NoError(t, err)
	assert.Nil(t, sess)

	_, ok, _ := kv.Get(ctx, UserKey)
	assert.False(t, ok)
}

func TestRestore_NothingPersisted(t *testing.T) {
	store, _ := newTestStore()

	sess, err := store.Restore(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess)
	assert.Empty(t, store.Token(context.Background()))
}

func TestLoginLogout(t *testing.T) {
	store, kv := newTestStore()
	ctx := context.Background()

	require.NoError(t, store.Login(ctx, domain.Session{SubjectID: "U1", DisplayName: "First"}, "t1"))
	require.NoError(t, store.Login(ctx, domain.Session{SubjectID: "U5"}, "t2"))

	cur := store.Current()
	require.NotNil(t, cur)
	assert.Equal(t, domain.Session{SubjectID: "U5"}, *cur, "login replaces without merging")
	assert.Equal(t, "U5", store.SubjectID())

	cur.DisplayName = "mutated"
	assert.Empty(t, store.Current().DisplayName)

	require.NoError(t, store.Logout(ctx))
	assert.False(t, store.IsLoggedIn())
	assert.Nil(t, store.Current())
	assert.Empty(t, store.SubjectID())
	assert.Empty(t, store.Token(ctx))

	_, ok, _ := kv.Get(ctx, TokenKey)
	assert.False(t, ok)
	_, ok, _ = kv.Get(ctx, UserKey)
	assert.False(t, ok)
}

type failingKV struct{ err error }

func (f failingKV) Get(context.Context, string) (string, bool, error) { return "", false, f.err }
func (f failingKV) Set(context.Context, string, string) error { return f.err }
func (f failingKV) Delete(context.Context, ...string) error { return f.err }

func TestStore_PersistenceErrors(t *testing.T) {
	boom := errors.New("connection reset")
	store := NewStore(failingKV{err: boom}, auth.Codec{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	_, err := store.Restore(ctx)
	assert.ErrorIs(t, err, boom)

	err = store.Login(ctx, domain.Session{SubjectID: "U1"}, "t")
	assert.ErrorIs(t, err, boom)
	assert.False(t, store.IsLoggedIn())

	_, _, err = store.BootstrapFromRedirect(ctx, mustParse(t, "/?token=abc"))
	assert.ErrorIs(t, err, boom)
}

// stuckDeleteKV persists normally but cannot delete.
type stuckDeleteKV struct {
	*memory.Store
	err error
}

func (s stuckDeleteKV) Delete(context.Context, ...string) error { return s.err }

func TestStore_LogoutFailureKeepsSession(t *testing.T) {
	boom := errors.New("connection reset")
	kv := stuckDeleteKV{Store: memory.New(), err: boom}
	store := NewStore(kv, auth.Codec{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	require.NoError(t, store.Login(ctx, domain.Session{SubjectID: "U1", DisplayName: "Ahmed Khan"}, "tok-1"))

	err := store.Logout(ctx)
	assert.ErrorIs(t, err, boom)
	assert.True(t, store.IsLoggedIn())
	assert.Equal(t, "tok-1", store.Token(ctx))

	persisted, ok, _ := kv.Get(ctx, TokenKey)
	assert.True(t, ok)
	assert.Equal(t, "tok-1", persisted)
}
