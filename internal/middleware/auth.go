// Package middleware holds Connect interceptors and net/http middleware.
package middleware

import (
	"context"

	"connectrpc.com/connect"

	"github.com/yuv5120/SplitPay/internal/auth"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// UserIDKey is the context key for storing the authenticated user ID.
	UserIDKey contextKey = "user_id"
	// EmailKey is the context key for storing the authenticated user's email.
	EmailKey contextKey = "email"
)

// GetUserID extracts the user ID from the context.
// Returns empty string if not found.
func GetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(UserIDKey).(string)
	return userID
}

// GetEmail extracts the user email from the context.
// Returns empty string if not found.
func GetEmail(ctx context.Context) string {
	email, _ := ctx.Value(EmailKey).(string)
	return email
}

// WithUser returns a copy of ctx carrying the authenticated user.
func WithUser(ctx context.Context, userID, email string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	return context.WithValue(ctx, EmailKey, email)
}

// Authenticate validates the Authorization header value and returns a context
// carrying the token's user.
func Authenticate(ctx context.Context, jwtManager *auth.JWTManager, header string) (context.Context, error) {
	token, err := auth.BearerToken(header)
	if err != nil {
		return ctx, err
	}
	claims, err := jwtManager.Validate(token)
	if err != nil {
		return ctx, err
	}
	return WithUser(ctx, claims.UserID(), claims.Email), nil
}

// RequireAuth returns an interceptor that rejects requests without a valid
// bearer token and adds the user ID and email to the request context.
// Procedures listed in public also run anonymously; a token sent to them is
// still applied when it validates and ignored otherwise.
func RequireAuth(jwtManager *auth.JWTManager, public ...string) connect.UnaryInterceptorFunc {
	anonymous := make(map[string]bool, len(public))
	for _, p := range public {
		anonymous[p] = true
	}

	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			header := req.Header().Get("Authorization")
			authed, err := Authenticate(ctx, jwtManager, header)
			switch {
			case err == nil:
				return next(authed, req)
			case anonymous[req.Spec().Procedure]:
				return next(ctx, req)
			default:
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}
		}
	}
}
