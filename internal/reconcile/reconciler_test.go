package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docforest/internal/blob"
	"docforest/internal/domain"
	"docforest/internal/mediatypes"
)

const pngMagic = "\x89PNG\r\n\x1a\n"

type docList []string

func (d docList) ListIDs(_ context.Context, after string, limit int) ([]string, error) {
	ids := append([]string(nil), d...)
	sort.Strings(ids)
	var out []string
	for _, id := range ids {
		if id > after {
			out = append(out, id)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// faultyStore fails selected operations on top of a memory store.
type faultyStore struct {
	*blob.MemoryStore
	listErr error
	headErr map[string]error

	mu     sync.Mutex
	ranged []string
}

func (f *faultyStore) List(ctx context.Context, prefix, cursor string, limit int) (*blob.Page, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.MemoryStore.List(ctx, prefix, cursor, limit)
}

func (f *faultyStore) Head(ctx context.Context, key string) (*blob.ObjectInfo, error) {
	if err := f.headErr[key]; err != nil {
		return nil, err
	}
	return f.MemoryStore.Head(ctx, key)
}

func (f *faultyStore) GetRange(ctx context.Context, key string, start, end int64) ([]byte, error) {
	f.mu.Lock()
	f.ranged = append(f.ranged, key)
	f.mu.Unlock()
	return f.MemoryStore.GetRange(ctx, key, start, end)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newReconciler(t *testing.T, store blob.Store, docs docList, cp Checkpoints) *Reconciler {
	t.Helper()
	reg, err := mediatypes.Load()
	require.NoError(t, err)
	return New(Config{Store: store, Documents: docs, Sniffer: reg, Checkpoints: cp, Logger: testLogger()})
}

func seedPNGs(t *testing.T, store *blob.MemoryStore, doc string, n int) []string {
	t.Helper()
	keys := make([]string, 0, n)
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("%s/attachments/%02d.png", doc, i)
		err := store.Put(context.Background(), key, []byte(pngMagic+strings.Repeat("\x00", 64)), "text/plain", map[string]string{"owner": "None"})
		require.NoError(t, err)
		keys = append(keys, key)
	}
	return keys
}

func TestRun_FixesContentTypeAndIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemoryStore()
	keys := seedPNGs(t, store, "doc-1", 10)
	r := newReconciler(t, store, docList{"doc-1"}, nil)

	report, err := r.Run(ctx, Options{PageSize: 3})
	require.NoError(t, err)
	assert.Equal(t, 10, report.Updated)
	assert.Equal(t, 10, report.Objects)
	assert.Equal(t, 0, report.Errors)
	assert.Equal(t, map[string]int{"doc-1": 10}, report.PerDocument)

	for _, key := range keys {
		info, err := store.Head(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "image/png", info.ContentType)
		assert.Equal(t, map[string]string{"owner": "None"}, info.Metadata)
	}

	second, err := r.Run(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, second.Updated)
	assert.Empty(t, second.PerDocument)
	assert.Equal(t, 10, store.Copies())
}

func TestRun_SkipsDirectoriesAndOtherPrefixes(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemoryStore()
	seedPNGs(t, store, "doc-1", 2)
	require.NoError(t, store.Put(ctx, "doc-1/attachments/", nil, "application/x-directory", nil))
	require.NoError(t, store.Put(ctx, "doc-1/file", []byte(pngMagic), "text/plain", nil))

	report, err := newReconciler(t, store, docList{"doc-1"}, nil).Run(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Objects)
	assert.Equal(t, 2, report.Updated)

	info, err := store.Head(ctx, "doc-1/file")
	require.NoError(t, err)
	assert.Equal(t, "text/plain", info.ContentType)
}

func TestRun_PerObjectErrorsAreCounted(t *testing.T) {
	ctx := context.Background()
	mem := blob.NewMemoryStore()
	keys := seedPNGs(t, mem, "doc-1", 4)
	seedPNGs(t, mem, "doc-2", 2)
	store := &faultyStore{MemoryStore: mem, headErr: map[string]error{keys[1]: errors.New("boom")}}

	report, err := newReconciler(t, store, docList{"doc-1", "doc-2"}, nil).Run(ctx, Options{Concurrency: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, report.Updated)
	assert.Equal(t, 1, report.Errors)
	assert.Equal(t, 2, report.Documents)
	assert.Equal(t, map[string]int{"doc-1": 3, "doc-2": 2}, report.PerDocument)

	info, err := mem.Head(ctx, keys[1])
	require.NoError(t, err)
	assert.Equal(t, "text/plain", info.ContentType)
}

func TestRun_EmptyObjectIsNotRangeRead(t *testing.T) {
	ctx := context.Background()
	mem := blob.NewMemoryStore()
	keys := seedPNGs(t, mem, "doc-1", 1)
	require.NoError(t, mem.Put(ctx, "doc-1/attachments/empty.png", []byte{}, "image/png", nil))
	store := &faultyStore{MemoryStore: mem}

	report, err := newReconciler(t, store, docList{"doc-1"}, nil).Run(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Objects)
	assert.Equal(t, 0, report.Errors)
	assert.Equal(t, keys, store.ranged)
}

func TestRun_UnreachableStoreIsFatal(t *testing.T) {
	store := &faultyStore{MemoryStore: blob.NewMemoryStore(), listErr: errors.New("dial tcp: connection refused")}

	report, err := newReconciler(t, store, docList{"doc-1"}, nil).Run(context.Background(), Options{})
	assert.Nil(t, report)
	assert.True(t, errors.Is(err, domain.ErrServiceUnavailable))
}

func TestRun_DryRunChangesNothing(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemoryStore()
	keys := seedPNGs(t, store, "doc-1", 3)

	report, err := newReconciler(t, store, docList{"doc-1"}, nil).Run(ctx, Options{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Updated)
	assert.Equal(t, 0, store.Copies())

	info, err := store.Head(ctx, keys[0])
	require.NoError(t, err)
	assert.Equal(t, "text/plain", info.ContentType)
}

func TestRun_RestrictedToDocuments(t *testing.T) {
	ctx := context.Background()
	store := blob.NewMemoryStore()
	seedPNGs(t, store, "doc-1", 2)
	seedPNGs(t, store, "doc-2", 2)

	report, err := newReconciler(t, store, docList{"doc-1", "doc-2"}, nil).Run(ctx, Options{DocumentIDs: []string{"doc-2"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"doc-2": 2}, report.PerDocument)
}

func TestRun_Cancelled(t *testing.T) {
	store := blob.NewMemoryStore()
	seedPNGs(t, store, "doc-1", 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newReconciler(t, store, docList{"doc-1"}, nil).Run(ctx, Options{})
	assert.Error(t, err)
	assert.Equal(t, 0, store.Copies())
}

func TestRun_ResumesFromCheckpoint(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	cp, err := NewRedisCheckpoints(ctx, "redis://"+mr.Addr())
	require.NoError(t, err)
	defer cp.Close()

	store := blob.NewMemoryStore()
	for _, doc := range []string{"doc-1", "doc-2", "doc-3"} {
		seedPNGs(t, store, doc, 1)
	}
	require.NoError(t, cp.Save(ctx, "doc-2"))

	report, err := newReconciler(t, store, docList{"doc-1", "doc-2", "doc-3"}, cp).Run(ctx, Options{Resume: true, BatchSize: 1})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"doc-3": 1}, report.PerDocument)

	assert.False(t, mr.Exists(cp.key))
}

func TestRedisCheckpoints(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	cp := NewRedisCheckpointsWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	got, err := cp.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", got)

	require.NoError(t, cp.Save(ctx, "doc-7"))
	got, err = cp.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "doc-7", got)
	assert.Positive(t, mr.TTL(cp.key))

	require.NoError(t, cp.Clear(ctx))
	got, err = cp.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestRunner_OneRunAtATime(t *testing.T) {
	store := blob.NewMemoryStore()
	seedPNGs(t, store, "doc-1", 2)
	runner := NewRunner(newReconciler(t, store, docList{"doc-1"}, nil), testLogger())

	require.NoError(t, runner.Start(context.Background(), Options{}))
	runner.Wait()

	status := runner.Status()
	assert.False(t, status.Running)
	require.NotNil(t, status.Last)
	assert.Equal(t, 2, status.Last.Updated)

	runner.mu.Lock()
	runner.running = true
	runner.mu.Unlock()
	err := runner.Start(context.Background(), Options{})
	assert.True(t, errors.Is(err, domain.ErrConflict))
}
