package domain

import "context"

type ctxKey int

const (
	tenantKey ctxKey = iota
	userKey
)

// WithTenant returns a copy of ctx scoped to the given tenant (company).
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantKey, tenantID)
}

// TenantFromContext returns the tenant the request is scoped to.
func TenantFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(tenantKey).(string)
	return id, ok && id != ""
}

// MustTenant is TenantFromContext for repository code: a missing tenant is an error, never a wildcard.
func MustTenant(ctx context.Context) (string, error) {
	id, ok := TenantFromContext(ctx)
	if !ok {
		return "", ErrMissingTenant
	}
	return id, nil
}

// WithUser attaches the authenticated user to ctx.
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the authenticated user, if any.
func UserFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(userKey).(*User)
	return u, ok && u != nil
}

// ActorFromContext returns the id of the acting user, or "system" for scheduled work.
func ActorFromContext(ctx context.Context) string {
	if u, ok := UserFromContext(ctx); ok {
		return u.ID
	}
	return "system"
}
