package services

import "context"

// PermissionInvalidator drops cached permission sets after identity changes.
type PermissionInvalidator interface {
	Invalidate(userIDs ...uint)
	InvalidateAll()
}

type nopInvalidator struct{}

func (nopInvalidator) Invalidate(...uint) {}
func (nopInvalidator) InvalidateAll()     {}

func invalidatorOrNop(inv PermissionInvalidator) PermissionInvalidator {
	if inv == nil {
		return nopInvalidator{}
	}
	return inv
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func clampLimit(limit, fallback, max int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > max {
		return max
	}
	return limit
}
