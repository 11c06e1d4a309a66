package auditctx

import "context"

// Actor captures the authenticated caller behind a request. Service layers read it when
// writing audit entries.
type Actor struct {
	UserID    uint
	Username  string
	IPAddress string
	UserAgent string
}

type actorContextKey struct{}

// WithActor returns a derived context carrying the actor.
func WithActor(ctx context.Context, actor Actor) context.Context {
	if ctx == nil {
		return context.WithValue(context.Background(), actorContextKey{}, actor)
	}
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// FromContext extracts previously stored actor metadata from the context.
func FromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}

// ActorUserID returns the actor's user id, or nil when the context carries no authenticated actor.
func ActorUserID(ctx context.Context) *uint {
	actor, ok := FromContext(ctx)
	if !ok || actor.UserID == 0 {
		return nil
	}
	id := actor.UserID
	return &id
}
