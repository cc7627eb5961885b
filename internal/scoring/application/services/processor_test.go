package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/talentforge/hirespark/internal/scoring/application/extract"
	"github.com/talentforge/hirespark/internal/scoring/domain"
	sharedDomain "github.com/talentforge/hirespark/internal/shared/domain"
)

type memTaskRepo struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*domain.ScoreTask
}

func newMemTaskRepo() *memTaskRepo {
	return &memTaskRepo{tasks: make(map[uuid.UUID]*domain.ScoreTask)}
}

func (r *memTaskRepo) Save(_ context.Context, task *domain.ScoreTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[task.ID()] = task
	return nil
}

func (r *memTaskRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.ScoreTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tasks[id], nil
}

func (r *memTaskRepo) FindByIDAndOwner(_ context.Context, id, ownerID uuid.UUID) (*domain.ScoreTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task := r.tasks[id]
	if task == nil || task.OwnerID() != ownerID {
		return nil, nil
	}
	return task, nil
}

func (r *memTaskRepo) ListByOwner(_ context.Context, ownerID uuid.UUID, limit int) ([]*domain.ScoreTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.ScoreTask, 0)
	for _, task := range r.tasks {
		if task.OwnerID() == ownerID && len(out) < limit {
			out = append(out, task)
		}
	}
	return out, nil
}

func (r *memTaskRepo) CountInFlightByOwner(_ context.Context, ownerID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, task := range r.tasks {
		if task.OwnerID() == ownerID && !task.Status().IsTerminal() {
			n++
		}
	}
	return n, nil
}

type memHistoryRepo struct {
	mu      sync.Mutex
	entries []*domain.ScoreHistoryEntry
}

func (r *memHistoryRepo) Append(_ context.Context, entry *domain.ScoreHistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry)
	return nil
}

func (r *memHistoryRepo) ListByOwner(_ context.Context, ownerID uuid.UUID, limit int) ([]*domain.ScoreHistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.ScoreHistoryEntry, 0)
	for _, e := range r.entries {
		if e.OwnerID() == ownerID && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

type staticDirectory struct {
	owners map[uuid.UUID]domain.Owner
}

func (d *staticDirectory) FindByEmail(_ context.Context, email string) (domain.Owner, error) {
	for _, o := range d.owners {
		if o.Email == email {
			return o, nil
		}
	}
	return domain.Owner{}, domain.ErrOwnerNotFound
}

func (d *staticDirectory) FindByID(_ context.Context, id uuid.UUID) (domain.Owner, error) {
	o, ok := d.owners[id]
	if !ok {
		return domain.Owner{}, domain.ErrOwnerNotFound
	}
	return o, nil
}

type mockLimiter struct {
	mock.Mock
}

func (m *mockLimiter) CheckAllowance(ctx context.Context, owner domain.Owner) error {
	return m.Called(ctx, owner).Error(0)
}

func (m *mockLimiter) RecordScore(ctx context.Context, owner domain.Owner) error {
	return m.Called(ctx, owner).Error(0)
}

type capturePublisher struct {
	mu     sync.Mutex
	events []sharedDomain.DomainEvent
}

func (p *capturePublisher) Publish(_ context.Context, event sharedDomain.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) routingKeys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys := make([]string, 0, len(p.events))
	for _, e := range p.events {
		keys = append(keys, e.RoutingKey())
	}
	return keys
}

type processorFixture struct {
	tasks     *memTaskRepo
	history   *memHistoryRepo
	limiter   *mockLimiter
	publisher *capturePublisher
	processor *TaskProcessor
	owner     domain.Owner
}

func newProcessorFixture(t *testing.T, scorer Scorer) *processorFixture {
	t.Helper()

	ownerID := uuid.New()
	owner := domain.Owner{ID: ownerID, Email: "dev@example.com", Role: domain.RoleCandidate}

	tasks := newMemTaskRepo()
	history := &memHistoryRepo{}
	limiter := new(mockLimiter)
	publisher := &capturePublisher{}
	directory := &staticDirectory{owners: map[uuid.UUID]domain.Owner{ownerID: owner}}

	logger := testLogger()
	orch := NewOrchestrator(scorer, nil, logger, time.Second, 1)
	processor := NewTaskProcessor(
		tasks, history, directory,
		extract.NewExtractor(logger), orch,
		limiter, publisher, logger,
	)

	return &processorFixture{
		tasks:     tasks,
		history:   history,
		limiter:   limiter,
		publisher: publisher,
		processor: processor,
		owner:     owner,
	}
}

func (f *processorFixture) queueTask(t *testing.T) (*domain.ScoreTask, TaskJob) {
	t.Helper()
	task, err := domain.NewScoreTask(f.owner.ID, "resume.txt", "text/plain", "Backend Engineer")
	require.NoError(t, err)
	require.NoError(t, f.tasks.Save(context.Background(), task))

	job := TaskJob{
		TaskID:      task.ID(),
		OwnerID:     f.owner.ID,
		Request:     Request{TargetRole: "Backend Engineer", JobDescription: "Golang services with PostgreSQL."},
		FileName:    "resume.txt",
		ContentType: "text/plain",
		Data:        []byte("Golang engineer, five years building services on PostgreSQL."),
	}
	return task, job
}

func TestTaskProcessor_Process(t *testing.T) {
	ctx := context.Background()

	t.Run("completes the task and records history", func(t *testing.T) {
		scorer := new(mockScorer)
		scorer.On("ScoreResume", mock.Anything, mock.Anything, mock.Anything).
			Return(`{"score": 77, "reasoning": "good", "skills": ["golang"]}`, nil)

		f := newProcessorFixture(t, scorer)
		f.limiter.On("CheckAllowance", mock.Anything, f.owner).Return(nil)
		f.limiter.On("RecordScore", mock.Anything, f.owner).Return(nil)

		task, job := f.queueTask(t)
		f.processor.Process(ctx, job)

		stored, err := f.tasks.FindByID(ctx, task.ID())
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, domain.TaskCompleted, stored.Status())
		require.NotNil(t, stored.Result())
		assert.Equal(t, 77.0, stored.Result().Score)

		entries, err := f.history.ListByOwner(ctx, f.owner.ID, 10)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		require.NotNil(t, entries[0].TaskID())
		assert.Equal(t, task.ID(), *entries[0].TaskID())

		assert.Equal(t, []string{"scoring.task.completed"}, f.publisher.routingKeys())
		assert.Empty(t, stored.DomainEvents(), "events are cleared after publishing")
		f.limiter.AssertExpectations(t)
	})

	t.Run("exhausted allowance fails the task without history", func(t *testing.T) {
		f := newProcessorFixture(t, new(mockScorer))
		f.limiter.On("CheckAllowance", mock.Anything, f.owner).Return(domain.ErrScoreLimitReached)

		task, job := f.queueTask(t)
		f.processor.Process(ctx, job)

		stored, err := f.tasks.FindByID(ctx, task.ID())
		require.NoError(t, err)
		assert.Equal(t, domain.TaskFailed, stored.Status())
		assert.NotEmpty(t, stored.ErrorMessage())

		assert.Empty(t, f.history.entries)
		assert.Equal(t, []string{"scoring.task.failed"}, f.publisher.routingKeys())
		f.limiter.AssertNotCalled(t, "RecordScore", mock.Anything, mock.Anything)
	})

	t.Run("model failure still completes via fallback", func(t *testing.T) {
		scorer := new(mockScorer)
		scorer.On("ScoreResume", mock.Anything, mock.Anything, mock.Anything).
			Return("", errors.New("model down"))

		f := newProcessorFixture(t, scorer)
		f.limiter.On("CheckAllowance", mock.Anything, f.owner).Return(nil)
		f.limiter.On("RecordScore", mock.Anything, f.owner).Return(nil)

		task, job := f.queueTask(t)
		f.processor.Process(ctx, job)

		stored, err := f.tasks.FindByID(ctx, task.ID())
		require.NoError(t, err)
		assert.Equal(t, domain.TaskCompleted, stored.Status())
		require.NotNil(t, stored.Result())
		assert.Equal(t, "keyword-fallback", stored.Result().Source)
	})

	t.Run("unknown task is skipped silently", func(t *testing.T) {
		f := newProcessorFixture(t, new(mockScorer))
		f.processor.Process(ctx, TaskJob{TaskID: uuid.New(), OwnerID: f.owner.ID})

		assert.Empty(t, f.history.entries)
		assert.Empty(t, f.publisher.routingKeys())
	})

	t.Run("vanished owner is skipped without state changes", func(t *testing.T) {
		f := newProcessorFixture(t, new(mockScorer))
		task, job := f.queueTask(t)
		job.OwnerID = uuid.New()

		f.processor.Process(ctx, job)

		stored, err := f.tasks.FindByID(ctx, task.ID())
		require.NoError(t, err)
		assert.Equal(t, domain.TaskQueued, stored.Status())
	})

	t.Run("unreadable upload scores file metadata instead of failing", func(t *testing.T) {
		scorer := new(mockScorer)
		scorer.On("ScoreResume", mock.Anything, mock.Anything, mock.Anything).
			Return(`{"score": 15, "reasoning": "no resume text"}`, nil)

		f := newProcessorFixture(t, scorer)
		f.limiter.On("CheckAllowance", mock.Anything, f.owner).Return(nil)
		f.limiter.On("RecordScore", mock.Anything, f.owner).Return(nil)

		task, job := f.queueTask(t)
		job.FileName = "resume.bin"
		job.ContentType = "application/octet-stream"
		job.Data = []byte{0x00, 0x00, 0x00, 0x00}

		f.processor.Process(ctx, job)

		stored, err := f.tasks.FindByID(ctx, task.ID())
		require.NoError(t, err)
		assert.Equal(t, domain.TaskCompleted, stored.Status())

		var fallbackLogged bool
		for _, line := range stored.Logs() {
			if containsStage(line, "EXTRACTION_FALLBACK") {
				fallbackLogged = true
			}
		}
		assert.True(t, fallbackLogged, "the extraction fallback must be visible in the task log")
	})

	t.Run("recruiters bypass the subscription limiter", func(t *testing.T) {
		scorer := new(mockScorer)
		scorer.On("ScoreResume", mock.Anything, mock.Anything, mock.Anything).
			Return(`{"score": 60}`, nil)

		f := newProcessorFixture(t, scorer)
		recruiterID := uuid.New()
		recruiter := domain.Owner{ID: recruiterID, Email: "hr@example.com", Role: domain.RoleRecruiter}
		f.processor.directory.(*staticDirectory).owners[recruiterID] = recruiter

		task, err := domain.NewScoreTask(recruiterID, "resume.txt", "text/plain", "")
		require.NoError(t, err)
		require.NoError(t, f.tasks.Save(ctx, task))

		f.processor.Process(ctx, TaskJob{
			TaskID:  task.ID(),
			OwnerID: recruiterID,
			Data:    []byte("candidate resume"),
		})

		stored, findErr := f.tasks.FindByID(ctx, task.ID())
		require.NoError(t, findErr)
		assert.Equal(t, domain.TaskCompleted, stored.Status())
		f.limiter.AssertNotCalled(t, "CheckAllowance", mock.Anything, mock.Anything)
		f.limiter.AssertNotCalled(t, "RecordScore", mock.Anything, mock.Anything)
	})
}

func containsStage(line, stage string) bool {
	return strings.Contains(line, "| "+stage+" |")
}
