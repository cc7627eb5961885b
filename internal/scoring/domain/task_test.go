package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScoreTask(t *testing.T) {
	t.Run("creates a queued task with an initial log entry", func(t *testing.T) {
		ownerID := uuid.New()
		task, err := NewScoreTask(ownerID, "resume.pdf", "application/pdf", "Backend Engineer")

		require.NoError(t, err)
		assert.Equal(t, TaskQueued, task.Status())
		assert.Equal(t, ownerID, task.OwnerID())
		assert.Equal(t, "resume.pdf", task.FileName())
		assert.Nil(t, task.Result())
		assert.Nil(t, task.StartedAt())

		logs := task.Logs()
		require.Len(t, logs, 1)
		assert.Contains(t, logs[0], "| QUEUED |")
	})

	t.Run("rejects a missing owner", func(t *testing.T) {
		_, err := NewScoreTask(uuid.Nil, "resume.pdf", "", "")
		assert.ErrorIs(t, err, ErrMissingOwner)
	})

	t.Run("caps oversized file metadata", func(t *testing.T) {
		longName := strings.Repeat("x", 400)
		task, err := NewScoreTask(uuid.New(), longName, "", strings.Repeat("r", 200))

		require.NoError(t, err)
		assert.Len(t, task.FileName(), 255)
		assert.Len(t, task.TargetRole(), 140)
	})
}

func TestScoreTask_Transitions(t *testing.T) {
	newTask := func(t *testing.T) *ScoreTask {
		t.Helper()
		task, err := NewScoreTask(uuid.New(), "resume.txt", "text/plain", "")
		require.NoError(t, err)
		return task
	}

	t.Run("queued to processing records the start time", func(t *testing.T) {
		task := newTask(t)
		require.NoError(t, task.Start())

		assert.Equal(t, TaskProcessing, task.Status())
		require.NotNil(t, task.StartedAt())
		assert.Contains(t, task.Logs()[len(task.Logs())-1], "| PROCESSING_STARTED |")
	})

	t.Run("completing records the result and raises an event", func(t *testing.T) {
		task := newTask(t)
		require.NoError(t, task.Start())

		result := ScoreResult{Score: 72.5, Reason: "solid match", Source: "hirespark-ai"}
		require.NoError(t, task.Complete(result))

		assert.Equal(t, TaskCompleted, task.Status())
		require.NotNil(t, task.Result())
		assert.Equal(t, 72.5, task.Result().Score)
		assert.Empty(t, task.ErrorMessage())
		require.NotNil(t, task.CompletedAt())

		events := task.DomainEvents()
		require.Len(t, events, 1)
		completed, ok := events[0].(*ScoreTaskCompleted)
		require.True(t, ok)
		assert.Equal(t, task.OwnerID(), completed.OwnerID)
		assert.Equal(t, 72.5, completed.Score)
		assert.Equal(t, "scoring.task.completed", completed.RoutingKey())
	})

	t.Run("failing keeps the accumulated log and truncates the message", func(t *testing.T) {
		task := newTask(t)
		require.NoError(t, task.Start())
		logCountBefore := len(task.Logs())

		require.NoError(t, task.Fail(strings.Repeat("e", 3000)))

		assert.Equal(t, TaskFailed, task.Status())
		assert.Len(t, task.ErrorMessage(), 2000)
		assert.Greater(t, len(task.Logs()), logCountBefore)

		events := task.DomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, "scoring.task.failed", events[0].RoutingKey())
	})

	t.Run("cannot complete without starting", func(t *testing.T) {
		task := newTask(t)
		assert.ErrorIs(t, task.Complete(ScoreResult{}), ErrInvalidTransition)
	})

	t.Run("terminal tasks reject further transitions", func(t *testing.T) {
		task := newTask(t)
		require.NoError(t, task.Start())
		require.NoError(t, task.Complete(ScoreResult{Score: 10}))

		assert.ErrorIs(t, task.Start(), ErrTaskTerminal)
		assert.ErrorIs(t, task.Fail("late failure"), ErrTaskTerminal)
		assert.ErrorIs(t, task.Complete(ScoreResult{}), ErrTaskTerminal)
	})

	t.Run("failing clears nothing already completed", func(t *testing.T) {
		task := newTask(t)
		require.NoError(t, task.Start())
		require.NoError(t, task.Fail(""))
		assert.NotEmpty(t, task.ErrorMessage())
	})
}

func TestScoreTask_LogOrdering(t *testing.T) {
	task, err := NewScoreTask(uuid.New(), "resume.txt", "text/plain", "")
	require.NoError(t, err)

	task.AppendLog("TEXT_EXTRACTED", "extracted 120 characters")
	task.AppendLog("AI_SCORED", "model returned score 81.0 on attempt 1")

	logs := task.Logs()
	require.Len(t, logs, 3)
	assert.Contains(t, logs[0], "| QUEUED |")
	assert.Contains(t, logs[1], "| TEXT_EXTRACTED |")
	assert.Contains(t, logs[2], "| AI_SCORED |")

	for _, line := range logs {
		parts := strings.SplitN(line, " | ", 3)
		require.Len(t, parts, 3, "log line %q must be timestamp | stage | detail", line)
	}
}

func TestRehydrateScoreTask(t *testing.T) {
	original, err := NewScoreTask(uuid.New(), "cv.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", "SRE")
	require.NoError(t, err)
	require.NoError(t, original.Start())
	require.NoError(t, original.Complete(ScoreResult{Score: 55, Reason: "ok"}))

	restored := RehydrateScoreTask(
		original.ID(),
		original.OwnerID(),
		original.Status(),
		original.FileName(),
		original.ContentType(),
		original.TargetRole(),
		original.Result(),
		original.Logs(),
		original.ErrorMessage(),
		original.StartedAt(),
		original.CompletedAt(),
		original.CreatedAt(),
		original.UpdatedAt(),
	)

	assert.Equal(t, original.ID(), restored.ID())
	assert.Equal(t, TaskCompleted, restored.Status())
	assert.Equal(t, original.Logs(), restored.Logs())
	assert.Empty(t, restored.DomainEvents(), "rehydration must not replay events")
}

func TestOwnerRoles(t *testing.T) {
	assert.True(t, Owner{Role: RoleAdmin}.IsAdmin())
	assert.False(t, Owner{Role: RoleRecruiter}.IsAdmin())

	assert.True(t, Owner{Role: RoleCandidate}.IsQuotaGated())
	assert.False(t, Owner{Role: RoleRecruiter}.IsQuotaGated())
	assert.False(t, Owner{Role: RoleAdmin}.IsQuotaGated())
}

func TestNewScoreHistoryEntry(t *testing.T) {
	t.Run("copies the task link", func(t *testing.T) {
		taskID := uuid.New()
		entry, err := NewScoreHistoryEntry(uuid.New(), &taskID, ScoreResult{Score: 42}, "resume.pdf", "Analyst")

		require.NoError(t, err)
		require.NotNil(t, entry.TaskID())
		assert.Equal(t, taskID, *entry.TaskID())

		taskID = uuid.New() // mutating the source must not affect the entry
		assert.NotEqual(t, taskID, *entry.TaskID())
	})

	t.Run("synchronous entries carry no task link", func(t *testing.T) {
		entry, err := NewScoreHistoryEntry(uuid.New(), nil, ScoreResult{Score: 42}, "", "")
		require.NoError(t, err)
		assert.Nil(t, entry.TaskID())
	})

	t.Run("rejects a missing owner", func(t *testing.T) {
		_, err := NewScoreHistoryEntry(uuid.Nil, nil, ScoreResult{}, "", "")
		assert.ErrorIs(t, err, ErrMissingOwner)
	})
}
