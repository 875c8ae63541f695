package backend

import "context"

// TokenSource supplies the bearer token for a request. It returns "" when
// the user is not logged in.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken always returns itself.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }

// TokenFunc adapts a function to TokenSource.
type TokenFunc func(ctx context.Context) (string, error)

func (f TokenFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// Resolver finds the backend base URL, e.g. through service discovery.
type Resolver interface {
	BaseURL(ctx context.Context) (string, error)
}
