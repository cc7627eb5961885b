package queries

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/talentforge/hirespark/internal/scoring/domain"
)

type mockHistoryRepo struct {
	mock.Mock
}

func (m *mockHistoryRepo) Append(ctx context.Context, entry *domain.ScoreHistoryEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *mockHistoryRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]*domain.ScoreHistoryEntry, error) {
	args := m.Called(ctx, ownerID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.ScoreHistoryEntry), args.Error(1)
}

func TestListHistoryHandler_Handle(t *testing.T) {
	ctx := context.Background()
	owner := domain.Owner{ID: uuid.New(), Email: "dev@example.com", Role: domain.RoleCandidate}

	t.Run("maps entries including the task link", func(t *testing.T) {
		taskID := uuid.New()
		linked, err := domain.NewScoreHistoryEntry(owner.ID, &taskID, domain.ScoreResult{
			Score:            64,
			Reason:           "decent",
			MatchingKeywords: "go, sql",
			Source:           "hirespark-ai",
		}, "resume.pdf", "Backend Engineer")
		require.NoError(t, err)

		synchronous, err := domain.NewScoreHistoryEntry(owner.ID, nil, domain.ScoreResult{
			Score:  20,
			Source: "keyword-fallback",
		}, "cv.txt", "")
		require.NoError(t, err)

		history := new(mockHistoryRepo)
		directory := new(mockDirectory)
		directory.On("FindByEmail", mock.Anything, "dev@example.com").Return(owner, nil)
		history.On("ListByOwner", mock.Anything, owner.ID, maxHistoryPage).
			Return([]*domain.ScoreHistoryEntry{linked, synchronous}, nil)

		handler := NewListHistoryHandler(history, directory)
		dtos, err := handler.Handle(ctx, ListHistoryQuery{OwnerEmail: "dev@example.com"})

		require.NoError(t, err)
		require.Len(t, dtos, 2)

		require.NotNil(t, dtos[0].TaskID)
		assert.Equal(t, taskID, *dtos[0].TaskID)
		assert.Equal(t, 64.0, dtos[0].Score)
		assert.Equal(t, "go, sql", dtos[0].MatchingKeywords)

		assert.Nil(t, dtos[1].TaskID)
		assert.Equal(t, "keyword-fallback", dtos[1].Source)
	})

	t.Run("requires an owner email", func(t *testing.T) {
		handler := NewListHistoryHandler(new(mockHistoryRepo), new(mockDirectory))
		_, err := handler.Handle(ctx, ListHistoryQuery{})
		assert.ErrorIs(t, err, domain.ErrMissingOwner)
	})

	t.Run("propagates unknown owners", func(t *testing.T) {
		directory := new(mockDirectory)
		directory.On("FindByEmail", mock.Anything, mock.Anything).
			Return(domain.Owner{}, domain.ErrOwnerNotFound)

		handler := NewListHistoryHandler(new(mockHistoryRepo), directory)
		_, err := handler.Handle(ctx, ListHistoryQuery{OwnerEmail: "ghost@example.com"})
		assert.ErrorIs(t, err, domain.ErrOwnerNotFound)
	})
}
