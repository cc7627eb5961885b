package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentforge/hirespark/internal/scoring/domain"
)

type captureBus struct {
	routingKey string
	payload    []byte
}

func (b *captureBus) Publish(_ context.Context, routingKey string, payload []byte) error {
	b.routingKey = routingKey
	b.payload = payload
	return nil
}

func (b *captureBus) Close() error { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func completedTask(t *testing.T) *domain.ScoreTask {
	t.Helper()
	task, err := domain.NewScoreTask(uuid.New(), "resume.pdf", "application/pdf", "Backend Engineer")
	require.NoError(t, err)
	require.NoError(t, task.Start())
	require.NoError(t, task.Complete(domain.ScoreResult{Score: 87.5, Source: "hirespark-ai"}))
	return task
}

func TestBusNotifier_Publish(t *testing.T) {
	t.Run("completion carries score and a task deep link", func(t *testing.T) {
		task := completedTask(t)
		bus := &captureBus{}
		notifier := NewBusNotifier(bus, discardLogger())

		require.NoError(t, notifier.Publish(context.Background(), domain.NewScoreTaskCompleted(task)))
		assert.Equal(t, "scoring.task.completed", bus.routingKey)

		var envelope map[string]any
		require.NoError(t, json.Unmarshal(bus.payload, &envelope))
		assert.Equal(t, task.ID().String(), envelope["aggregateId"])
		assert.Equal(t, task.OwnerID().String(), envelope["ownerId"])
		assert.Equal(t, 87.5, envelope["score"])
		assert.Equal(t, "RESUME_PARSED_SUCCESS", envelope["type"])
		assert.Equal(t, "Resume scoring completed", envelope["title"])
		assert.Contains(t, envelope["body"], "87.5")
		assert.Equal(t, "/candidate/resume-ai?taskId="+task.ID().String(), envelope["link"])
	})

	t.Run("failure carries the reason and the same deep link", func(t *testing.T) {
		task, err := domain.NewScoreTask(uuid.New(), "resume.pdf", "", "")
		require.NoError(t, err)
		require.NoError(t, task.Start())
		require.NoError(t, task.Fail("model backend unreachable"))

		bus := &captureBus{}
		notifier := NewBusNotifier(bus, discardLogger())
		require.NoError(t, notifier.Publish(context.Background(), domain.NewScoreTaskFailed(task)))
		assert.Equal(t, "scoring.task.failed", bus.routingKey)

		var envelope map[string]any
		require.NoError(t, json.Unmarshal(bus.payload, &envelope))
		assert.Equal(t, "model backend unreachable", envelope["reason"])
		assert.Equal(t, "SYSTEM", envelope["type"])
		assert.Equal(t, "Resume scoring failed", envelope["title"])
		assert.Equal(t, "/candidate/resume-ai?taskId="+task.ID().String(), envelope["link"])
	})
}

func TestResumeAiLink(t *testing.T) {
	assert.Equal(t, "/candidate/resume-ai", ResumeAiLink(""))
	assert.Equal(t, "/candidate/resume-ai?taskId=abc", ResumeAiLink("abc"))
}
