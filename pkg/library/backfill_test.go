package library

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novelforge/novelforge/pkg/model"
)

type fakeBackfillStore struct {
	mu       sync.Mutex
	sess     *model.Session
	patches  []model.WritingProgressPatch
	costs    []float64
}

func (f *fakeBackfillStore) GetSystem(ctx context.Context, sessionID string) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sess, nil
}

func (f *fakeBackfillStore) UpdateWritingProgress(ctx context.Context, sessionID string, patch model.WritingProgressPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches = append(f.patches, patch)
	// Mirror the real Store.UpdateWritingProgress's unconditional
	// overwrite of CurrentStep/TotalSteps/IsComplete/IsPaused, so a test
	// bug that forgets to carry those forward would actually surface.
	f.sess.WritingProgress.CurrentStep = patch.CurrentStep
	f.sess.WritingProgress.TotalSteps = patch.TotalSteps
	f.sess.WritingProgress.IsComplete = patch.IsComplete
	f.sess.WritingProgress.IsPaused = patch.IsPaused
	if patch.TotalPages != nil {
		f.sess.WritingProgress.TotalPages = patch.TotalPages
	}
	return nil
}

func (f *fakeBackfillStore) SetEstimatedCost(ctx context.Context, sessionID string, costEUR float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.costs = append(f.costs, costEUR)
	return nil
}

type fixedCostEstimator struct{ cost float64 }

func (f fixedCostEstimator) EstimateCost(sess *model.Session) (float64, bool) {
	return f.cost, true
}

func TestBackfillPatchesTotalPagesAndCostForCompleteSession(t *testing.T) {
	store := &fakeBackfillStore{
		sess: &model.Session{
			SessionID: "sess-1",
			BookChapters: []model.BookChapter{
				{Content: "word word word"},
			},
			WritingProgress: &model.WritingProgress{CurrentStep: 1, TotalSteps: 1, IsComplete: true},
		},
	}
	cache := NewStatsCache()
	cache.Set("global", Stats{TotalBooks: 1})

	b := NewBackfiller(store, fixedCostEstimator{cost: 1.5}, cache, DefaultConfig())
	err := b.Backfill(context.Background(), "sess-1")
	require.NoError(t, err)

	require.Len(t, store.patches, 1)
	require.NotNil(t, store.patches[0].TotalPages)
	assert.Greater(t, *store.patches[0].TotalPages, 0)
	require.Len(t, store.costs, 1)
	assert.Equal(t, 1.5, store.costs[0])

	_, ok := cache.Get("global")
	assert.False(t, ok, "backfill must invalidate the stats cache")

	assert.True(t, store.sess.WritingProgress.IsComplete, "backfill must not reset IsComplete")
	assert.Equal(t, 1, store.sess.WritingProgress.TotalSteps, "backfill must not reset TotalSteps")
}

func TestBackfillSkipsIncompleteSessions(t *testing.T) {
	store := &fakeBackfillStore{
		sess: &model.Session{
			SessionID:       "sess-2",
			WritingProgress: &model.WritingProgress{CurrentStep: 1, TotalSteps: 5},
		},
	}
	b := NewBackfiller(store, nil, nil, DefaultConfig())
	err := b.Backfill(context.Background(), "sess-2")
	require.NoError(t, err)
	assert.Empty(t, store.patches)
}
