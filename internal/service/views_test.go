package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videohub/internal/auth"
	"videohub/internal/store"
)

func TestRecordView_AnonymousAlwaysCounts(t *testing.T) {
	video := uuid.New()
	svc := NewViewService(newMemHistory(video))

	for i := 1; i <= 3; i++ {
		n, err := svc.RecordView(context.Background(), auth.Anonymous(), video)
		require.NoError(t, err)
		assert.EqualValues(t, i, n)
	}
}

func TestRecordView_UserCountsOnce(t *testing.T) {
	video := uuid.New()
	h := newMemHistory(video)
	svc := NewViewService(h)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }
	viewer := auth.Authenticated(uuid.New())
	userID, _ := viewer.UserID()

	n, err := svc.RecordView(context.Background(), viewer, video)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	clock = clock.Add(time.Hour)
	n, err = svc.RecordView(context.Background(), viewer, video)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	entries, err := svc.History(context.Background(), userID, store.Page{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, clock, entries[0].WatchedAt)
}

func TestRecordView_ConcurrentFirstViews(t *testing.T) {
	video := uuid.New()
	h := newMemHistory(video)
	svc := NewViewService(h)
	viewer := auth.Authenticated(uuid.New())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := svc.RecordView(context.Background(), viewer, video)
			assert.NoError(t, err)
			assert.EqualValues(t, 1, n)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, h.count(video))
	assert.Equal(t, 1, h.entryCount())
}

func TestRecordView_Errors(t *testing.T) {
	svc := NewViewService(newMemHistory())

	_, err := svc.RecordView(context.Background(), auth.Anonymous(), uuid.Nil)
	assert.ErrorIs(t, err, ErrInvalidID)

	_, err = svc.RecordView(context.Background(), auth.Anonymous(), uuid.New())
	assert.ErrorIs(t, err, ErrVideoNotFound)

	_, err = svc.RecordView(context.Background(), auth.Authenticated(uuid.New()), uuid.New())
	assert.ErrorIs(t, err, ErrVideoNotFound)
}

func TestRecordView_UnpublishedOnlyCountsForOwner(t *testing.T) {
	ctx := context.Background()
	video, owner := uuid.New(), uuid.New()
	h := newMemHistory(video)
	svc := NewViewService(h)

	stranger := auth.Authenticated(uuid.New())
	_, err := svc.RecordView(ctx, stranger, video)
	require.NoError(t, err)

	h.unpublish(video, owner)

	_, err = svc.RecordView(ctx, auth.Anonymous(), video)
	assert.ErrorIs(t, err, ErrVideoNotFound)
	_, err = svc.RecordView(ctx, auth.Authenticated(uuid.New()), video)
	assert.ErrorIs(t, err, ErrVideoNotFound)
	// 已有观看记录的访问者也不能再拿到播放数
	_, err = svc.RecordView(ctx, stranger, video)
	assert.ErrorIs(t, err, ErrVideoNotFound)
	assert.EqualValues(t, 1, h.count(video))

	n, err := svc.RecordView(ctx, auth.Authenticated(owner), video)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}
