package httpclient

import (
	"context"
	"net/http"
)

// TokenSource yields the bearer token to attach to outbound requests.
// An empty token means the request goes out unauthenticated.
type TokenSource interface {
	Token(ctx context.Context) string
}

// TokenFunc adapts a plain function to TokenSource.
type TokenFunc func(ctx context.Context) string

// Token implements TokenSource.
func (f TokenFunc) Token(ctx context.Context) string { return f(ctx) }

// BearerClient sets the Authorization header from a TokenSource before
// handing the request to the next Doer.
type BearerClient struct {
	next   Doer
	tokens TokenSource
}

// WithBearer wraps next so that every request carries the current token.
func WithBearer(next Doer, tokens TokenSource) *BearerClient {
	return &BearerClient{next: next, tokens: tokens}
}

// Do implements Doer.
func (b *BearerClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if token := b.tokens.Token(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	} else {
		req.Header.Del("Authorization")
	}
	return b.next.Do(ctx, req)
}
