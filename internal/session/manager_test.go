package session_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"storyreel/internal/blobstore"
	"storyreel/internal/models"
	"storyreel/internal/session"
	"storyreel/internal/storage"
	"storyreel/internal/storywriter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCreate_UniqueNamesAndUntitled(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, testDeps(storage.NewMemory()))

	_, err := m.Create(ctx, "Harbor")
	require.NoError(t, err)
	_, err = m.Create(ctx, "  HARBOR ")
	assert.True(t, errors.Is(err, models.ErrDuplicateName))

	a, err := m.Create(ctx, "")
	require.NoError(t, err)
	b, err := m.Create(ctx, "   ")
	require.NoError(t, err)
	assert.Equal(t, "Untitled 1", a.Name())
	assert.Equal(t, "Untitled 2", b.Name())
	assert.Len(t, m.List(), 3)
}

func TestRename(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, testDeps(storage.NewMemory()))
	a, err := m.Create(ctx, "Harbor")
	require.NoError(t, err)
	_, err = m.Create(ctx, "Forest")
	require.NoError(t, err)

	assert.True(t, errors.Is(m.Rename(ctx, a.ID(), "forest"), models.ErrDuplicateName))
	assert.True(t, errors.Is(m.Rename(ctx, a.ID(), " "), models.ErrInvalidInput))
	require.NoError(t, m.Rename(ctx, a.ID(), "harbor"))

	assert.Equal(t, "harbor", m.List()[0].Name)
	assert.True(t, errors.Is(m.Rename(ctx, "missing", "x"), models.ErrNotFound))
}

func TestSwitchAndCurrent_Persisted(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	m := newManager(t, testDeps(store))

	_, err := m.Current(ctx)
	assert.True(t, errors.Is(err, models.ErrNotFound))

	a, err := m.Create(ctx, "Harbor")
	require.NoError(t, err)
	b, err := m.Create(ctx, "Forest")
	require.NoError(t, err)

	cur, err := m.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, b.ID(), cur.ID())

	_, err = m.Switch(ctx, a.ID())
	require.NoError(t, err)
	_, err = m.Switch(ctx, "missing")
	assert.True(t, errors.Is(err, models.ErrNotFound))

	reloaded := newManager(t, testDeps(store))
	cur, err = reloaded.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, a.ID(), cur.ID())
	assert.Equal(t, "Harbor", cur.Name())
}

func TestDelete_RemovesDocumentBlobsAndIndexEntry(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	root := t.TempDir()
	blobs, err := blobstore.NewLocal(root, "http://localhost/blobs", zap.NewNop())
	require.NoError(t, err)
	deps := testDeps(store)
	deps.Blobs = blobs
	m := newManager(t, deps)

	s, err := m.Create(ctx, "Harbor")
	require.NoError(t, err)
	_, err = blobs.Put(ctx, s.ID(), []byte("image"), "png")
	require.NoError(t, err)
	require.DirExists(t, filepath.Join(root, s.ID()))

	require.NoError(t, m.Delete(ctx, s.ID()))

	var snap session.Snapshot
	assert.True(t, errors.Is(store.Load(ctx, "projects/"+s.ID(), &snap), models.ErrNotFound))
	assert.NoDirExists(t, filepath.Join(root, s.ID()))
	assert.Empty(t, m.List())

	_, err = m.Get(ctx, s.ID())
	assert.True(t, errors.Is(err, models.ErrNotFound))
	_, err = m.Current(ctx)
	assert.True(t, errors.Is(err, models.ErrNotFound))
	assert.True(t, errors.Is(m.Delete(ctx, s.ID()), models.ErrNotFound))

	reloaded := newManager(t, testDeps(store))
	assert.Empty(t, reloaded.List())
}

func TestWithSession_SerializesAccess(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, testDeps(storage.NewMemory()))
	s, err := m.Create(ctx, "Harbor")
	require.NoError(t, err)

	done := make(chan struct{})
	counter := 0
	for i := 0; i < 10; i++ {
		go func() {
			_ = m.WithSession(ctx, s.ID(), func(*session.Session) error {
				counter++
				return nil
			})
			done <- struct{}{}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
	assert.Equal(t, 10, counter)

	err = m.WithSession(ctx, s.ID(), func(*session.Session) error { return models.ErrInvalidState })
	assert.True(t, errors.Is(err, models.ErrInvalidState))
}

func TestDelete_WaitsForRunningOperation(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	m := newManager(t, testDeps(store))
	s, err := m.Create(ctx, "Harbor")
	require.NoError(t, err)
	id := s.ID()

	started := make(chan struct{})
	release := make(chan struct{})
	opDone := make(chan error, 1)
	go func() {
		opDone <- m.WithSession(ctx, id, func(s *session.Session) error {
			close(started)
			<-release
			_, err := s.GenerateStory(ctx, "a harbor town", storywriter.Options{SceneCount: 2})
			return err
		})
	}()
	<-started

	deleteDone := make(chan error, 1)
	go func() { deleteDone <- m.Delete(ctx, id) }()
	time.Sleep(20 * time.Millisecond)
	close(release)

	require.NoError(t, <-opDone)
	require.NoError(t, <-deleteDone)

	keys, err := store.List(ctx, "projects/")
	require.NoError(t, err)
	assert.NotContains(t, keys, "projects/"+id)
	assert.Empty(t, m.List())
	_, err = m.Get(ctx, id)
	assert.True(t, errors.Is(err, models.ErrNotFound))

	reloaded := newManager(t, testDeps(store))
	assert.Empty(t, reloaded.List())
}

func TestDelete_StaleSessionCannotSave(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	m := newManager(t, testDeps(store))
	s, err := m.Create(ctx, "Harbor")
	require.NoError(t, err)
	id := s.ID()

	require.NoError(t, m.Delete(ctx, id))

	_, err = s.GenerateStory(ctx, "a harbor town", storywriter.Options{SceneCount: 2})
	assert.True(t, errors.Is(err, models.ErrNotFound))
	assert.True(t, errors.Is(s.Save(ctx), models.ErrNotFound))

	var snap session.Snapshot
	assert.True(t, errors.Is(store.Load(ctx, "projects/"+id, &snap), models.ErrNotFound))
	assert.Empty(t, m.List())
}
