package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videohub/internal/apperr"
	"videohub/internal/auth"
	"videohub/internal/store"
)

type videoFixture struct {
	videos   *VideoService
	comments *CommentService
	toggles  *ToggleService
	store    *memVideos
	uploader *fakeUploader
}

func newVideoFixture() *videoFixture {
	vs := newMemVideos()
	up := &fakeUploader{}
	toggles := NewToggleService(newMemRelations())
	videos := NewVideoService(vs, toggles, up)
	return &videoFixture{
		videos:   videos,
		comments: NewCommentService(newMemComments(), videos),
		toggles:  toggles,
		store:    vs,
		uploader: up,
	}
}

func (f *videoFixture) publish(t *testing.T, owner uuid.UUID) uuid.UUID {
	t.Helper()
	v, err := f.videos.Publish(context.Background(), owner, PublishInput{
		Title: "t", Description: "d", Duration: 12.5, VideoFile: testFile("v.mp4"), Thumbnail: testFile("t.png"),
	})
	require.NoError(t, err)
	return v.ID
}

func TestPublish(t *testing.T) {
	f := newVideoFixture()
	owner := uuid.New()

	v, err := f.videos.Publish(context.Background(), owner, PublishInput{
		Title: " My video ", Description: "desc", Duration: 3, VideoFile: testFile("v.mp4"), Thumbnail: testFile("t.png"),
	})
	require.NoError(t, err)
	assert.Equal(t, "My video", v.Title)
	assert.Equal(t, owner, v.OwnerID)
	assert.True(t, v.IsPublished)
	assert.Equal(t, "http://media.local/videos/v.mp4", v.VideoFile)
	assert.Equal(t, "http://media.local/thumbnails/t.png", v.Thumbnail)

	_, err = f.videos.Publish(context.Background(), owner, PublishInput{Title: "t", Description: "d", VideoFile: testFile("v.mp4")})
	assert.ErrorIs(t, err, ErrMediaRequired)
}

func TestPublish_ThumbnailFailureDiscardsVideo(t *testing.T) {
	f := newVideoFixture()
	f.uploader.failPrefix = "thumbnails"

	_, err := f.videos.Publish(context.Background(), uuid.New(), PublishInput{
		Title: "t", Description: "d", VideoFile: testFile("v.mp4"), Thumbnail: testFile("t.png"),
	})
	require.Error(t, err)
	assert.Equal(t, []string{"videos/v.mp4"}, f.uploader.deleted)
	assert.Empty(t, f.store.byID)
}

func TestVideoOwnership(t *testing.T) {
	f := newVideoFixture()
	ctx := context.Background()
	owner, other := uuid.New(), uuid.New()
	id := f.publish(t, owner)

	_, err := f.videos.Update(ctx, other, id, UpdateInput{Title: "x"})
	assert.ErrorIs(t, err, ErrNotOwner)
	assert.Equal(t, apperr.Forbidden, apperr.KindOf(err))
	assert.ErrorIs(t, f.videos.Delete(ctx, other, id), ErrNotOwner)
	_, err = f.videos.TogglePublish(ctx, other, id)
	assert.ErrorIs(t, err, ErrNotOwner)

	v, err := f.videos.Update(ctx, owner, id, UpdateInput{Title: "new"})
	require.NoError(t, err)
	assert.Equal(t, "new", v.Title)

	_, err = f.videos.Update(ctx, owner, id, UpdateInput{})
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))

	require.NoError(t, f.videos.Delete(ctx, owner, id))
	assert.ErrorIs(t, f.videos.Delete(ctx, owner, id), ErrVideoNotFound)
}

func TestUnpublishedVisibleOnlyToOwner(t *testing.T) {
	f := newVideoFixture()
	ctx := context.Background()
	owner := uuid.New()
	id := f.publish(t, owner)

	v, err := f.videos.TogglePublish(ctx, owner, id)
	require.NoError(t, err)
	assert.False(t, v.IsPublished)

	_, err = f.videos.Get(ctx, id, auth.Anonymous())
	assert.ErrorIs(t, err, ErrVideoNotFound)
	_, err = f.videos.Get(ctx, id, auth.Authenticated(uuid.New()))
	assert.ErrorIs(t, err, ErrVideoNotFound)
	_, err = f.videos.Get(ctx, id, auth.Authenticated(owner))
	assert.NoError(t, err)

	list, meta, err := f.videos.List(ctx, ListQuery{})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.EqualValues(t, 0, meta.Total)

	all, total, err := f.videos.DashboardVideos(ctx, owner, store.Page{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.EqualValues(t, 1, total)
}

func TestLikedVideos(t *testing.T) {
	f := newVideoFixture()
	ctx := context.Background()
	owner, fan := uuid.New(), uuid.New()
	a, b := f.publish(t, owner), f.publish(t, owner)

	for _, id := range []uuid.UUID{a, b} {
		_, err := f.toggles.Toggle(ctx, fan, id, KindVideo)
		require.NoError(t, err)
	}
	liked, err := f.videos.LikedVideos(ctx, fan, store.Page{})
	require.NoError(t, err)
	require.Len(t, liked, 2)
	assert.Equal(t, b, liked[0].ID)
}

func TestPageOf(t *testing.T) {
	tests := []struct {
		page, limit int
		wantLimit   int
		wantOffset  int
		wantPage    int
	}{
		{0, 0, 10, 0, 1},
		{2, 20, 20, 20, 2},
		{3, 500, 10, 20, 3},
	}
	for _, tt := range tests {
		p, page, limit := PageOf(tt.page, tt.limit)
		assert.Equal(t, tt.wantLimit, p.Limit)
		assert.Equal(t, tt.wantLimit, limit)
		assert.Equal(t, tt.wantOffset, p.Offset)
		assert.Equal(t, tt.wantPage, page)
	}
	assert.EqualValues(t, 3, newPageMeta(21, 1, 10).TotalPages)
	assert.EqualValues(t, 0, newPageMeta(0, 1, 10).TotalPages)
}
