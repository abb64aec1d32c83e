package badger

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/poiesic/minutes/core"
	"github.com/poiesic/minutes/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeetingBasics(t *testing.T) {
	stores := newTestStores(t, 2)
	repo := stores.Meetings
	ctx := context.Background()

	added, err := repo.AddMeetings(ctx, &core.Meeting{
		Title:      "Quarterly planning",
		Transcript: "Let's go over the budget",
		Summary:    "Budget approved",
		Decisions:  []string{"approve budget"},
		Language:   "en",
	})
	require.NoError(t, err)
	require.Len(t, added, 1)
	require.NotZero(t, added[0].Id)
	assert.False(t, added[0].CreatedAt.IsZero())

	retrieved, err := repo.GetMeeting(ctx, added[0].Id)
	require.NoError(t, err)
	assert.Equal(t, "Quarterly planning", retrieved.Title)
	assert.Equal(t, []string{"approve budget"}, retrieved.Decisions)

	_, err = repo.GetMeeting(ctx, added[0].Id+100)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMeetingReplace(t *testing.T) {
	stores := newTestStores(t, 2)
	repo := stores.Meetings
	ctx := context.Background()

	created := time.Now().UTC().Add(-time.Hour).Truncate(time.Microsecond)
	_, err := repo.AddMeetings(ctx, &core.Meeting{Id: 10, Title: "v1", CreatedAt: created})
	require.NoError(t, err)
	_, err = repo.AddMeetings(ctx, &core.Meeting{Id: 10, Title: "v2", CreatedAt: created})
	require.NoError(t, err)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	inRange, err := repo.GetMeetingsByDateRange(ctx, created.Add(-time.Minute), created.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, inRange, 1, "date index has a single entry after replace")
	assert.Equal(t, "v2", inRange[0].Title)
}

func TestMeetingDateRange(t *testing.T) {
	stores := newTestStores(t, 2)
	repo := stores.Meetings
	ctx := context.Background()

	now := time.Now().UTC()
	_, err := repo.AddMeetings(ctx,
		&core.Meeting{Title: "Meeting 1", CreatedAt: now.Add(-2 * time.Hour)},
		&core.Meeting{Title: "Meeting 2", CreatedAt: now.Add(-1 * time.Hour)},
		&core.Meeting{Title: "Meeting 3", CreatedAt: now},
	)
	require.NoError(t, err)

	results, err := repo.GetMeetingsByDateRange(ctx, now.Add(-90*time.Minute), now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Meeting 2", results[0].Title)
	assert.Equal(t, "Meeting 3", results[1].Title)
}

func TestMeetingDelete(t *testing.T) {
	stores := newTestStores(t, 2)
	repo := stores.Meetings
	ctx := context.Background()

	added, err := repo.AddMeetings(ctx, &core.Meeting{Title: "a"}, &core.Meeting{Title: "b"})
	require.NoError(t, err)

	require.NoError(t, repo.DeleteMeetings(ctx, added[0].Id))
	err = repo.DeleteMeetings(ctx, added[0].Id)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	remaining, err := repo.GetMeetings(ctx, added[0].Id, added[1].Id)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, added[1].Id, remaining[0].Id)
}

func TestMeetingForEach(t *testing.T) {
	stores := newTestStores(t, 2)
	repo := stores.Meetings
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		_, err := repo.AddMeetings(ctx, &core.Meeting{Title: "m"})
		require.NoError(t, err)
	}

	var sizes []int
	var seen []core.ID
	err := repo.ForEach(ctx, 3, func(batch []*core.Meeting) error {
		sizes = append(sizes, len(batch))
		for _, m := range batch {
			seen = append(seen, m.Id)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{3, 3, 1}, sizes)
	assert.Len(t, seen, 7)
	assert.True(t, slices.IsSorted(seen))

	stop := errors.New("stop")
	calls := 0
	err = repo.ForEach(ctx, 3, func(batch []*core.Meeting) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestMeetingForEach_Empty(t *testing.T) {
	stores := newTestStores(t, 2)
	calls := 0
	err := stores.Meetings.ForEach(context.Background(), 10, func(batch []*core.Meeting) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Zero(t, calls)
}
