package auditctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestActorRoundTrip(t *testing.T) {
	ctx := WithActor(context.Background(), Actor{UserID: 7, Username: "lead"})

	actor, ok := FromContext(ctx)
	require.True(t, ok)
	require.Equal(t, uint(7), actor.UserID)
	require.Equal(t, "lead", actor.Username)

	id := ActorUserID(ctx)
	require.NotNil(t, id)
	require.Equal(t, uint(7), *id)
}

func TestActorUserIDWithoutActor(t *testing.T) {
	require.Nil(t, ActorUserID(context.Background()))
	require.Nil(t, ActorUserID(WithActor(context.Background(), Actor{Username: "anon"})))

	_, ok := FromContext(nil) //nolint:staticcheck
	require.False(t, ok)
}
