package session_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/novelforge/novelforge/pkg/database"
	"github.com/novelforge/novelforge/pkg/model"
	"github.com/novelforge/novelforge/pkg/services"
	"github.com/novelforge/novelforge/pkg/session"
)

// newTestStore spins up a throwaway Postgres via testcontainers, runs
// migrations, and returns a ready Store. Grounded on the teacher's
// test/database pattern, simplified since this package does not need a
// cross-replica shared schema.
func newTestStore(t *testing.T) *session.Store {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("novelforge_test"),
		tcpostgres.WithUsername("novelforge"),
		tcpostgres.WithPassword("novelforge"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	cfg := database.Config{
		Host:         host,
		Port:         port.Int(),
		User:         "novelforge",
		Password:     "novelforge",
		Database:     "novelforge_test",
		SSLMode:      "disable",
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	client, err := database.NewClient(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return session.New(client)
}

func newSession(t *testing.T, store *session.Store) string {
	t.Helper()
	id := session.NewSessionID()
	_, err := store.Create(context.Background(), id, model.FormData{LLMModel: "gemini-3-pro", Plot: "a detective in Trieste"}, nil, nil)
	require.NoError(t, err)
	return id
}

func TestCreateAndGet(t *testing.T) {
	store := newTestStore(t)
	id := newSession(t, store)

	got, err := store.Get(context.Background(), id, nil)
	require.NoError(t, err)
	require.Equal(t, "a detective in Trieste", got.FormData.Plot)
	require.Equal(t, model.StatusDraft, got.DerivedStatus())
}

func TestUpdateDraftMonotonicVersion(t *testing.T) {
	store := newTestStore(t)
	id := newSession(t, store)
	ctx := context.Background()

	require.NoError(t, store.UpdateDraft(ctx, id, "once upon a time", "The Beginning", nil))
	got, err := store.Get(ctx, id, nil)
	require.NoError(t, err)
	require.Equal(t, 1, got.Draft.CurrentVersion)

	require.NoError(t, store.UpdateDraft(ctx, id, "once upon a darker time", "The Beginning, Revised", nil))
	got, err = store.Get(ctx, id, nil)
	require.NoError(t, err)
	require.Equal(t, 2, got.Draft.CurrentVersion)
	require.Len(t, got.Draft.DraftHistory, 1)
	require.Equal(t, "once upon a time", got.Draft.DraftHistory[0].Text)
}

func TestOutlineFreezeInvariant(t *testing.T) {
	store := newTestStore(t)
	id := newSession(t, store)
	ctx := context.Background()

	require.NoError(t, store.UpdateOutline(ctx, id, "# Book\n## Chapter One", false))

	require.NoError(t, store.UpdateWritingProgress(ctx, id, model.WritingProgressPatch{
		CurrentStep: 0, TotalSteps: 1, IsComplete: false, IsPaused: false,
	}))

	err := store.UpdateOutline(ctx, id, "# Book\n## A Different Chapter", false)
	require.ErrorIs(t, err, services.ErrOutlineFrozen)

	err = store.UpdateOutline(ctx, id, "# Book\n## A Different Chapter", true)
	require.NoError(t, err)

	got, err := store.Get(ctx, id, nil)
	require.NoError(t, err)
	require.Equal(t, 2, got.Outline.OutlineVersion)
}

// TestMergeSafeWritingProgress is spec.md §8's "Merge-safety of
// writing_progress": a field not named by the patch (here, total_pages
// written by an earlier patch, as the library backfill does) survives a
// later UpdateWritingProgress call; real_cost_eur, which
// SetEstimatedCost keeps in its own column, is left untouched too.
func TestMergeSafeWritingProgress(t *testing.T) {
	store := newTestStore(t)
	id := newSession(t, store)
	ctx := context.Background()

	require.NoError(t, store.UpdateWritingProgress(ctx, id, model.WritingProgressPatch{
		CurrentStep: 0, TotalSteps: 3,
	}))
	require.NoError(t, store.SetEstimatedCost(ctx, id, 1.23))

	// Simulate the library backfill writing TotalPages via the jsonb
	// column directly through another WritingProgress patch.
	pages := 42
	require.NoError(t, store.UpdateWritingProgress(ctx, id, model.WritingProgressPatch{
		CurrentStep: 1, TotalSteps: 3, TotalPages: &pages,
	}))

	// A later patch that does not name TotalPages leaves it in place.
	require.NoError(t, store.UpdateWritingProgress(ctx, id, model.WritingProgressPatch{
		CurrentStep: 1, TotalSteps: 3,
	}))

	got, err := store.Get(ctx, id, nil)
	require.NoError(t, err)
	require.NotNil(t, got.RealCostEUR)
	require.InDelta(t, 1.23, *got.RealCostEUR, 0.001)
	require.NotNil(t, got.WritingProgress.TotalPages)
	require.Equal(t, 42, *got.WritingProgress.TotalPages)
	require.Equal(t, 1, got.WritingProgress.CurrentStep)
}

func TestPauseResumeInvariant(t *testing.T) {
	store := newTestStore(t)
	id := newSession(t, store)
	ctx := context.Background()

	require.NoError(t, store.UpdateWritingProgress(ctx, id, model.WritingProgressPatch{CurrentStep: 0, TotalSteps: 3}))
	require.NoError(t, store.UpdateBookChapter(ctx, id, "Ch1", "text", 0))
	require.NoError(t, store.PauseWriting(ctx, id, 1, "Chapter Two", "llm timeout"))

	got, err := store.Get(ctx, id, nil)
	require.NoError(t, err)
	require.True(t, got.WritingProgress.IsPaused)
	require.Equal(t, model.StatusPaused, got.DerivedStatus())

	require.NoError(t, store.ResumeWriting(ctx, id))
	require.NoError(t, store.UpdateBookChapter(ctx, id, "Ch2", "text2", 1))
	require.NoError(t, store.UpdateBookChapter(ctx, id, "Ch3", "text3", 2))
	require.NoError(t, store.UpdateWritingProgress(ctx, id, model.WritingProgressPatch{CurrentStep: 3, TotalSteps: 3, IsComplete: true}))

	got, err = store.Get(ctx, id, nil)
	require.NoError(t, err)
	require.False(t, got.WritingProgress.IsPaused)
	require.Nil(t, got.WritingProgress.Error)
	require.Len(t, got.BookChapters, 3)
	require.True(t, got.WritingProgress.IsComplete)
}

func TestBookChaptersSortedNoDuplicates(t *testing.T) {
	store := newTestStore(t)
	id := newSession(t, store)
	ctx := context.Background()

	require.NoError(t, store.UpdateBookChapter(ctx, id, "Ch3", "c", 2))
	require.NoError(t, store.UpdateBookChapter(ctx, id, "Ch1", "a", 0))
	require.NoError(t, store.UpdateBookChapter(ctx, id, "Ch2", "b", 1))
	require.NoError(t, store.UpdateBookChapter(ctx, id, "Ch1-replaced", "a2", 0))

	got, err := store.Get(ctx, id, nil)
	require.NoError(t, err)
	require.Len(t, got.BookChapters, 3)
	require.Equal(t, "Ch1-replaced", got.BookChapters[0].Title)
	require.Equal(t, 0, got.BookChapters[0].SectionIndex)
	require.Equal(t, 1, got.BookChapters[1].SectionIndex)
	require.Equal(t, 2, got.BookChapters[2].SectionIndex)
}

func TestOwnershipCheck(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	owner := "user-123"
	id := session.NewSessionID()
	_, err := store.Create(ctx, id, model.FormData{LLMModel: "gemini-3-flash", Plot: "a heist"}, nil, &owner)
	require.NoError(t, err)

	other := "user-456"
	_, err = store.Get(ctx, id, &other)
	require.ErrorIs(t, err, services.ErrUnauthorized)

	_, err = store.Get(ctx, id, &owner)
	require.NoError(t, err)
}

func TestDeleteSession(t *testing.T) {
	store := newTestStore(t)
	id := newSession(t, store)
	ctx := context.Background()

	ok, err := store.Delete(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = store.Get(ctx, id, nil)
	require.ErrorIs(t, err, services.ErrNotFound)
}
