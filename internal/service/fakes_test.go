package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"videohub/internal/auth"
	"videohub/internal/media"
	"videohub/internal/models"
	"videohub/internal/store"
)

func newTestTokenManager() *auth.TokenManager {
	return auth.NewTokenManager("access-secret", "refresh-secret", 15*time.Minute, 10*24*time.Hour)
}

// memUsers 同时实现 UserStore 与 CredentialStore。
type memUsers struct {
	mu        sync.Mutex
	byID      map[uuid.UUID]*models.User
	createErr error
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[uuid.UUID]*models.User{}}
}

func (m *memUsers) add(username, password string) *models.User {
	hash, err := auth.HashPassword(password)
	if err != nil {
		panic(err)
	}
	u := &models.User{Username: username, Email: username + "@example.com", FullName: username, PasswordHash: hash}
	if err := m.Create(context.Background(), u); err != nil {
		panic(err)
	}
	return u
}

func (m *memUsers) snapshot(id uuid.UUID) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.byID[id]
}

func (m *memUsers) Create(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.byID {
		if existing.Username == u.Username || existing.Email == u.Email {
			return store.ErrConflict
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memUsers) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) FindByIdentifier(_ context.Context, identifier string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Username == strings.ToLower(identifier) || u.Email == strings.ToLower(identifier) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memUsers) FindByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Username == strings.ToLower(username) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memUsers) FindByIDs(_ context.Context, ids []uuid.UUID) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.User{}
	for _, id := range ids {
		if u, ok := m.byID[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *memUsers) ExistsByUsernameOrEmail(_ context.Context, username, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Username == username || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *memUsers) SetRefreshToken(_ context.Context, id uuid.UUID, hash string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	u.Refresh = models.RefreshSession{TokenHash: hash, Version: u.Refresh.Version + 1, ExpiresAt: &expiresAt}
	return nil
}

func (m *memUsers) SwapRefreshToken(_ context.Context, id uuid.UUID, prevHash, nextHash string, expiresAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok || u.Refresh.TokenHash != prevHash {
		return false, nil
	}
	u.Refresh = models.RefreshSession{TokenHash: nextHash, Version: u.Refresh.Version + 1, ExpiresAt: &expiresAt}
	return true, nil
}

func (m *memUsers) ClearRefreshToken(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	u.Refresh = models.RefreshSession{Version: u.Refresh.Version + 1}
	return nil
}

func (m *memUsers) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	u.PasswordHash = hash
	u.Refresh = models.RefreshSession{Version: u.Refresh.Version + 1}
	return nil
}

func (m *memUsers) UpdateProfile(_ context.Context, id uuid.UUID, fields map[string]interface{}) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	for k, v := range fields {
		switch k {
		case "full_name":
			u.FullName = v.(string)
		case "email":
			u.Email = v.(string)
		case "avatar":
			u.Avatar = v.(string)
		case "cover_image":
			u.CoverImage = v.(string)
		default:
			return nil, fmt.Errorf("unexpected column %q", k)
		}
	}
	cp := *u
	return &cp, nil
}

type relationKey struct {
	actor, target uuid.UUID
	kind          string
}

// memRelations 在 (actor, target, kind) 上保证唯一。findBarrier 非空时，
// 每次 Find 返回前都要等所有参与者读完，用于构造"都看到不存在"的交错。
type memRelations struct {
	mu          sync.Mutex
	records     map[relationKey]models.Relation
	seq         int
	findBarrier *sync.WaitGroup
}

func newMemRelations() *memRelations {
	return &memRelations{records: map[relationKey]models.Relation{}}
}

func (m *memRelations) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *memRelations) Find(_ context.Context, actor, target uuid.UUID, kind string) (*models.Relation, error) {
	m.mu.Lock()
	r, ok := m.records[relationKey{actor, target, kind}]
	m.mu.Unlock()
	if m.findBarrier != nil {
		m.findBarrier.Done()
		m.findBarrier.Wait()
	}
	if !ok {
		return nil, store.ErrNotFound
	}
	return &r, nil
}

func (m *memRelations) Insert(_ context.Context, actor, target uuid.UUID, kind string) (*models.Relation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := relationKey{actor, target, kind}
	if _, ok := m.records[key]; ok {
		return nil, store.ErrConflict
	}
	m.seq++
	r := models.Relation{ID: uuid.New(), ActorID: actor, TargetID: target, Kind: kind, CreatedAt: time.Unix(int64(m.seq), 0)}
	m.records[key] = r
	return &r, nil
}

func (m *memRelations) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, r := range m.records {
		if r.ID == id {
			delete(m.records, k)
		}
	}
	return nil
}

func (m *memRelations) Count(_ context.Context, target uuid.UUID, kind string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.records {
		if k.target == target && k.kind == kind {
			n++
		}
	}
	return n, nil
}

func (m *memRelations) CountByActor(_ context.Context, actor uuid.UUID, kind string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.records {
		if k.actor == actor && k.kind == kind {
			n++
		}
	}
	return n, nil
}

func (m *memRelations) Exists(_ context.Context, actor, target uuid.UUID, kind string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.records[relationKey{actor, target, kind}]
	return ok, nil
}

func (m *memRelations) TargetsOf(_ context.Context, actor uuid.UUID, kind string, _ store.Page) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rs []models.Relation
	for k, r := range m.records {
		if k.actor == actor && k.kind == kind {
			rs = append(rs, r)
		}
	}
	sort.Slice(rs, func(i, j int) bool { return rs[i].CreatedAt.After(rs[j].CreatedAt) })
	ids := make([]uuid.UUID, len(rs))
	for i, r := range rs {
		ids[i] = r.TargetID
	}
	return ids, nil
}

type historyKey struct{ user, video uuid.UUID }

// memHistory 中的视频默认已发布，unpublished 记录未发布视频的所有者。
type memHistory struct {
	mu          sync.Mutex
	views       map[uuid.UUID]int64
	entries     map[historyKey]time.Time
	unpublished map[uuid.UUID]uuid.UUID
}

func newMemHistory(videos ...uuid.UUID) *memHistory {
	h := &memHistory{views: map[uuid.UUID]int64{}, entries: map[historyKey]time.Time{}, unpublished: map[uuid.UUID]uuid.UUID{}}
	for _, v := range videos {
		h.views[v] = 0
	}
	return h
}

func (m *memHistory) unpublish(video, owner uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unpublished[video] = owner
}

// visible 需在持锁时调用。
func (m *memHistory) visible(video, viewer uuid.UUID) bool {
	if _, ok := m.views[video]; !ok {
		return false
	}
	owner, hidden := m.unpublished[video]
	return !hidden || (viewer != uuid.Nil && viewer == owner)
}

func (m *memHistory) InsertFirstView(_ context.Context, userID, videoID uuid.UUID, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := historyKey{userID, videoID}
	if _, ok := m.entries[key]; ok {
		return 0, store.ErrConflict
	}
	if !m.visible(videoID, userID) {
		return 0, store.ErrNotFound
	}
	m.entries[key] = at
	m.views[videoID]++
	return m.views[videoID], nil
}

func (m *memHistory) TouchView(_ context.Context, userID, videoID uuid.UUID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[historyKey{userID, videoID}] = at
	return nil
}

func (m *memHistory) IncrementViews(_ context.Context, videoID uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.visible(videoID, uuid.Nil) {
		return 0, store.ErrNotFound
	}
	m.views[videoID]++
	return m.views[videoID], nil
}

func (m *memHistory) Views(_ context.Context, videoID, viewer uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.visible(videoID, viewer) {
		return 0, store.ErrNotFound
	}
	return m.views[videoID], nil
}

func (m *memHistory) count(videoID uuid.UUID) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.views[videoID]
}

func (m *memHistory) List(_ context.Context, userID uuid.UUID, _ store.Page) ([]models.WatchEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.WatchEntry
	for k, at := range m.entries {
		if k.user == userID {
			out = append(out, models.WatchEntry{UserID: k.user, VideoID: k.video, WatchedAt: at})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WatchedAt.After(out[j].WatchedAt) })
	return out, nil
}

func (m *memHistory) entryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

type memVideos struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*models.Video
}

func newMemVideos() *memVideos { return &memVideos{byID: map[uuid.UUID]*models.Video{}} }

func (m *memVideos) Create(_ context.Context, v *models.Video) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	cp := *v
	m.byID[v.ID] = &cp
	return nil
}

func (m *memVideos) Get(_ context.Context, id uuid.UUID) (*models.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (m *memVideos) List(_ context.Context, f store.VideoFilter) ([]models.Video, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Video
	for _, v := range m.byID {
		if f.OwnerID != uuid.Nil && v.OwnerID != f.OwnerID {
			continue
		}
		if f.PublishedOnly && !v.IsPublished {
			continue
		}
		out = append(out, *v)
	}
	return out, int64(len(out)), nil
}

func (m *memVideos) FindByIDs(_ context.Context, ids []uuid.UUID) ([]models.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Video{}
	for _, id := range ids {
		if v, ok := m.byID[id]; ok {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (m *memVideos) Update(_ context.Context, id uuid.UUID, fields map[string]interface{}) (*models.Video, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	for k, val := range fields {
		switch k {
		case "title":
			v.Title = val.(string)
		case "description":
			v.Description = val.(string)
		case "thumbnail":
			v.Thumbnail = val.(string)
		case "is_published":
			v.IsPublished = val.(bool)
		default:
			return nil, fmt.Errorf("unexpected column %q", k)
		}
	}
	cp := *v
	return &cp, nil
}

func (m *memVideos) Delete(_ context.Context, id uuid.UUID, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memVideos) ChannelStats(_ context.Context, owner uuid.UUID, _, _ string) (store.ChannelStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var st store.ChannelStats
	for _, v := range m.byID {
		if v.OwnerID == owner {
			st.TotalVideos++
			st.TotalViews += v.Views
		}
	}
	return st, nil
}

// fakeUploader 记录上传与删除，failPrefix 指定的前缀上传失败。
type fakeUploader struct {
	mu         sync.Mutex
	uploaded   []string
	deleted    []string
	failPrefix string
}

func (f *fakeUploader) Upload(_ context.Context, prefix string, file media.File) (media.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if prefix == f.failPrefix {
		return media.Result{}, fmt.Errorf("upload %s: boom", prefix)
	}
	key := prefix + "/" + file.Name
	f.uploaded = append(f.uploaded, key)
	return media.Result{Key: key, URL: "http://media.local/" + key, Size: file.Size}, nil
}

func (f *fakeUploader) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, key)
	return nil
}

func testFile(name string) *media.File {
	return &media.File{Name: name, ContentType: "application/octet-stream", Size: 3, Body: strings.NewReader("abc")}
}
