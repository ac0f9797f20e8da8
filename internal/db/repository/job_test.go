package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/cozy-creator/influencer-studio/internal/db/dbtest"
	"github.com/cozy-creator/influencer-studio/internal/db/models"
	"github.com/cozy-creator/influencer-studio/internal/db/repository"
	"github.com/cozy-creator/influencer-studio/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedCharacter(t *testing.T, store *repository.Store, owner string) *models.Character {
	t.Helper()
	c, err := store.Characters.Create(context.Background(), &models.Character{
		ID:        "char-" + owner,
		OwnerID:   owner,
		Name:      "Mika",
		ImagePath: "https://cdn.example.com/mika.png",
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	return c
}

func seedJob(t *testing.T, store *repository.Store, id, owner string) *models.Job {
	t.Helper()
	job, err := store.Jobs.Create(context.Background(), models.NewJob(id, owner, "char-"+owner, models.JobKindVideoMotion, map[string]any{
		"prompt":            "dance",
		"driving_video_url": "https://cdn.example.com/drive.mp4",
	}))
	require.NoError(t, err)
	return job
}

func backdate(t *testing.T, store *repository.Store, id string, age time.Duration) {
	t.Helper()
	_, err := store.DB().NewUpdate().
		Model((*models.Job)(nil)).
		Set("updated_at = ?", time.Now().UTC().Add(-age)).
		Where("id = ?", id).
		Exec(context.Background())
	require.NoError(t, err)
}

func TestJobCreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := dbtest.NewStore(t)
	seedJob(t, store, "job_1", "alice")

	job, err := store.Jobs.GetByID(ctx, "job_1", "alice")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, job.Status)
	assert.Equal(t, models.JobKindVideoMotion, job.Kind)
	assert.Equal(t, "dance", job.InputString("prompt"))
	assert.Equal(t, "https://cdn.example.com/drive.mp4", job.InputString("driving_video_url"))
	assert.Empty(t, job.ProviderCorrelationID)
	assert.Nil(t, job.Result)
}

func TestJobGetIsOwnerScoped(t *testing.T) {
	store := dbtest.NewStore(t)
	seedJob(t, store, "job_1", "alice")

	_, err := store.Jobs.GetByID(context.Background(), "job_1", "bob")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestFindIgnoresOwner(t *testing.T) {
	store := dbtest.NewStore(t)
	seedJob(t, store, "job_1", "alice")

	job, err := store.Jobs.Find(context.Background(), "job_1")
	require.NoError(t, err)
	assert.Equal(t, "alice", job.OwnerID)

	_, err = store.Jobs.Find(context.Background(), "job_missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestTransitionGuard(t *testing.T) {
	ctx := context.Background()
	store := dbtest.NewStore(t)
	seedJob(t, store, "job_1", "alice")

	ok, err := store.Jobs.Transition(ctx, "job_1", "alice", []models.JobStatus{models.JobStatusPending}, repository.StatusUpdate{
		Status:        models.JobStatusProcessing,
		CorrelationID: "req-1",
	})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Jobs.Transition(ctx, "job_1", "alice", models.ActiveStatuses, repository.StatusUpdate{
		Status: models.JobStatusCompleted,
		Result: map[string]any{"media_id": "m1", "video_path": "https://cdn/v.mp4"},
	})
	require.NoError(t, err)
	assert.True(t, ok)

	// The second completion loses the compare-and-swap.
	ok, err = store.Jobs.Transition(ctx, "job_1", "alice", models.ActiveStatuses, repository.StatusUpdate{
		Status: models.JobStatusCompleted,
		Result: map[string]any{"media_id": "m2"},
	})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.Jobs.Transition(ctx, "job_1", "alice", models.ActiveStatuses, repository.StatusUpdate{
		Status:       models.JobStatusFailed,
		ErrorMessage: "late failure",
	})
	require.NoError(t, err)
	assert.False(t, ok)

	job, err := store.Jobs.GetByID(ctx, "job_1", "alice")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.Equal(t, "m1", job.Result["media_id"])
	assert.Equal(t, "req-1", job.ProviderCorrelationID)
	assert.Empty(t, job.ErrorMessage)
}

func TestTransitionIsOwnerScoped(t *testing.T) {
	store := dbtest.NewStore(t)
	seedJob(t, store, "job_1", "alice")

	ok, err := store.Jobs.Transition(context.Background(), "job_1", "bob", nil, repository.StatusUpdate{
		Status: models.JobStatusFailed,
	})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetByCorrelationID(t *testing.T) {
	ctx := context.Background()
	store := dbtest.NewStore(t)
	seedJob(t, store, "job_1", "alice")

	_, err := store.Jobs.GetByCorrelationID(ctx, "req-1")
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = store.Jobs.Transition(ctx, "job_1", "alice", nil, repository.StatusUpdate{
		Status:        models.JobStatusProcessing,
		CorrelationID: "req-1",
	})
	require.NoError(t, err)

	job, err := store.Jobs.GetByCorrelationID(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, "job_1", job.ID)

	_, err = store.Jobs.GetByCorrelationID(ctx, "")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestSweepStale(t *testing.T) {
	ctx := context.Background()
	store := dbtest.NewStore(t)

	seedJob(t, store, "old_processing", "alice")
	seedJob(t, store, "fresh_processing", "alice")
	seedJob(t, store, "old_pending", "alice")
	seedJob(t, store, "other_owner", "bob")

	for _, id := range []string{"old_processing", "fresh_processing"} {
		_, err := store.Jobs.Transition(ctx, id, "alice", nil, repository.StatusUpdate{
			Status:        models.JobStatusProcessing,
			CorrelationID: "req-" + id,
		})
		require.NoError(t, err)
	}
	backdate(t, store, "old_processing", 2*time.Hour)
	backdate(t, store, "old_pending", 2*time.Hour)
	backdate(t, store, "other_owner", 2*time.Hour)

	res, err := store.Jobs.SweepStale(ctx, "alice", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Stale)
	assert.Equal(t, 1, res.NeverSubmitted)
	assert.Equal(t, 2, res.Total())

	job, err := store.Jobs.GetByID(ctx, "old_processing", "alice")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Equal(t, repository.StaleProcessingMessage, job.ErrorMessage)

	job, err = store.Jobs.GetByID(ctx, "old_pending", "alice")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Equal(t, repository.StaleNeverSubmittedMessage, job.ErrorMessage)

	job, err = store.Jobs.GetByID(ctx, "fresh_processing", "alice")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusProcessing, job.Status)

	job, err = store.Jobs.GetByID(ctx, "other_owner", "bob")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, job.Status)

	res, err = store.Jobs.SweepStale(ctx, "", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, res.NeverSubmitted)
}

func TestListActiveIncludesSubject(t *testing.T) {
	ctx := context.Background()
	store := dbtest.NewStore(t)
	seedCharacter(t, store, "alice")
	seedJob(t, store, "job_active", "alice")
	seedJob(t, store, "job_done", "alice")
	seedJob(t, store, "job_bob", "bob")

	_, err := store.Jobs.Transition(ctx, "job_done", "alice", nil, repository.StatusUpdate{Status: models.JobStatusFailed, ErrorMessage: "x"})
	require.NoError(t, err)

	jobs, err := store.Jobs.ListActive(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "job_active", jobs[0].ID)
	require.NotNil(t, jobs[0].Subject)
	assert.Equal(t, "Mika", jobs[0].Subject.Name)
}
