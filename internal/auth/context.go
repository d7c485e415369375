package auth

import (
	"context"
	"errors"
)

type ctxKey int

const (
	ctxUserID ctxKey = iota
	ctxEmail
	ctxRole
	ctxToken
)

func WithIdentity(ctx context.Context, userID, email, role string) context.Context {
	ctx = context.WithValue(ctx, ctxUserID, userID)
	ctx = context.WithValue(ctx, ctxEmail, email)
	ctx = context.WithValue(ctx, ctxRole, role)
	return ctx
}

// WithPrincipal stores a verified principal.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return WithIdentity(ctx, p.UserID, p.Email, p.Role)
}

// PrincipalFrom returns the principal stored by RequireAccessToken.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	uid, err := UserID(ctx)
	if err != nil {
		return Principal{}, false
	}
	email, _ := Email(ctx)
	role, _ := Role(ctx)
	return Principal{UserID: uid, Email: email, Role: role}, true
}

// WithToken keeps the raw bearer token so handlers can hand it to the Session.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, ctxToken, token)
}

func UserID(ctx context.Context) (string, error) {
	v := ctx.Value(ctxUserID)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("user_id not in context")
}

func Email(ctx context.Context) (string, error) {
	v := ctx.Value(ctxEmail)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("email not in context")
}

func Role(ctx context.Context) (string, error) {
	v := ctx.Value(ctxRole)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("role not in context")
}

func Token(ctx context.Context) (string, error) {
	v := ctx.Value(ctxToken)
	if s, ok := v.(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("token not in context")
}
