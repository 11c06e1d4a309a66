package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPermissionAuditBeforeCreateGeneratesID(t *testing.T) {
	var entry PermissionAudit
	require.NoError(t, entry.BeforeCreate(nil))
	require.Len(t, entry.ID, 36)

	preset := PermissionAudit{ID: "fixed"}
	require.NoError(t, preset.BeforeCreate(nil))
	require.Equal(t, "fixed", preset.ID)
}

func TestPermissionAuditRejectsMutation(t *testing.T) {
	entry := PermissionAudit{ID: "a"}
	require.ErrorIs(t, entry.BeforeUpdate(nil), ErrAuditImmutable)
	require.ErrorIs(t, entry.BeforeDelete(nil), ErrAuditImmutable)
}

func TestPermissionBeforeCreateDefaultsConditions(t *testing.T) {
	var perm Permission
	require.NoError(t, perm.BeforeCreate(nil))
	require.JSONEq(t, "{}", string(perm.Conditions))

	custom := Permission{Conditions: []byte(`{"max":3}`)}
	require.NoError(t, custom.BeforeCreate(nil))
	require.JSONEq(t, `{"max":3}`, string(custom.Conditions))
}
