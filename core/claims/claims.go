package claims

import (
	"context"
	"errors"
)

const (
	RoleInstructor = "instructor"
	RoleStudent    = "student"
)

// Claims identify the account logged in through the local API.
type Claims struct {
	StudentID string `json:"studentId"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

type ctxKey int

const (
	claimsKey ctxKey = iota + 1
	watchKey
)

func Set(ctx context.Context, claims Claims) context.Context {
	if w, ok := ctx.Value(watchKey).(*Claims); ok {
		*w = claims
	}
	return context.WithValue(ctx, claimsKey, claims)
}

// Watch returns a context under which claims set further down the handler
// chain can be read back with Seen.
func Watch(ctx context.Context) context.Context {
	return context.WithValue(ctx, watchKey, new(Claims))
}

// Seen returns the claims last set under a context made by Watch.
func Seen(ctx context.Context) (Claims, bool) {
	w, ok := ctx.Value(watchKey).(*Claims)
	if !ok || w.StudentID == "" {
		return Claims{}, false
	}
	return *w, true
}

func Get(ctx context.Context) (Claims, error) {
	v, ok := ctx.Value(claimsKey).(Claims)
	if !ok {
		return Claims{}, errors.New("claim value missing from context")
	}
	return v, nil
}

func IsInstructor(ctx context.Context) bool {
	c, err := Get(ctx)
	if err != nil {
		return false
	}

	return c.Role == RoleInstructor
}

func IsStudent(ctx context.Context, id string) bool {
	c, err := Get(ctx)
	if err != nil {
		return false
	}

	return c.StudentID == id
}
