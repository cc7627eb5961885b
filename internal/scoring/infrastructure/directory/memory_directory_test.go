package directory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentforge/hirespark/internal/scoring/domain"
)

func TestMemoryDirectory(t *testing.T) {
	ctx := context.Background()

	t.Run("registered owners resolve by email and id", func(t *testing.T) {
		d := NewMemoryDirectory()
		registered := d.Register("Dev@Example.com", domain.RoleRecruiter)

		byEmail, err := d.FindByEmail(ctx, "dev@example.com")
		require.NoError(t, err)
		assert.Equal(t, registered.ID, byEmail.ID)
		assert.Equal(t, "dev@example.com", byEmail.Email, "emails are normalized")
		assert.Equal(t, domain.RoleRecruiter, byEmail.Role)

		byID, err := d.FindByID(ctx, registered.ID)
		require.NoError(t, err)
		assert.Equal(t, registered.Email, byID.Email)
	})

	t.Run("re-registering changes the role but keeps the id", func(t *testing.T) {
		d := NewMemoryDirectory()
		first := d.Register("ops@example.com", domain.RoleCandidate)
		second := d.Register("ops@example.com", domain.RoleAdmin)

		assert.Equal(t, first.ID, second.ID)

		owner, err := d.FindByEmail(ctx, "ops@example.com")
		require.NoError(t, err)
		assert.Equal(t, domain.RoleAdmin, owner.Role)
	})

	t.Run("unknown emails fail without auto-registration", func(t *testing.T) {
		d := NewMemoryDirectory()
		_, err := d.FindByEmail(ctx, "ghost@example.com")
		assert.ErrorIs(t, err, domain.ErrOwnerNotFound)
	})

	t.Run("auto-registration creates candidates on first sight", func(t *testing.T) {
		d := NewMemoryDirectory(WithAutoRegister())

		owner, err := d.FindByEmail(ctx, "new@example.com")
		require.NoError(t, err)
		assert.Equal(t, domain.RoleCandidate, owner.Role)
		assert.NotEqual(t, uuid.Nil, owner.ID)

		again, err := d.FindByEmail(ctx, "new@example.com")
		require.NoError(t, err)
		assert.Equal(t, owner.ID, again.ID, "the same email resolves to the same owner")
	})

	t.Run("blank emails are rejected even with auto-registration", func(t *testing.T) {
		d := NewMemoryDirectory(WithAutoRegister())
		_, err := d.FindByEmail(ctx, "   ")
		assert.ErrorIs(t, err, domain.ErrMissingOwner)
	})

	t.Run("unknown ids fail", func(t *testing.T) {
		d := NewMemoryDirectory()
		_, err := d.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, domain.ErrOwnerNotFound)
	})
}
