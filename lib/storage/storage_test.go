package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/joshnies/datadoc/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	fail    error
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func (m *memStore) Name() string { return "mem://test" }

func (m *memStore) Upload(_ context.Context, key string, r io.Reader, size int64) error {
	if m.fail != nil {
		return m.fail
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return errors.New("size mismatch")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memStore) Close() error { return nil }

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestCompressRoundTrip(t *testing.T) {
	input := strings.Repeat(`{"domain":"example.com"},`, 1000)

	var compressed bytes.Buffer
	require.NoError(t, Compress(strings.NewReader(input), &compressed))
	assert.Less(t, compressed.Len(), len(input))

	var out bytes.Buffer
	require.NoError(t, Decompress(&compressed, &out))
	assert.Equal(t, input, out.String())

	assert.Error(t, Decompress(strings.NewReader("not zstd"), io.Discard))
}

func TestPublish(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "dataset.json")
	writeFile(t, manifestPath, "[\n]")
	writeFile(t, filepath.Join(dir, "dataset.sig.json"), `{"version":"1.0.0"}`)

	store := newMemStore()
	keys, err := Publish(context.Background(), store, manifestPath, PublishOptions{
		Prefix:  "datasets/2024",
		Limiter: rate.NewLimiter(rate.Inf, 1),
		Output:  &bytes.Buffer{},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"datasets/2024/dataset.json", "datasets/2024/dataset.sig.json"}, keys)
	assert.Equal(t, "[\n]", string(store.objects["datasets/2024/dataset.json"]))
	assert.Equal(t, `{"version":"1.0.0"}`, string(store.objects["datasets/2024/dataset.sig.json"]))
}

func TestPublishCompressed(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "dataset.json")
	content := strings.Repeat(`{"domain":"example.com"}`, 100)
	writeFile(t, manifestPath, content)

	store := newMemStore()
	keys, err := Publish(context.Background(), store, manifestPath, PublishOptions{Compress: true})
	require.NoError(t, err)
	require.Equal(t, []string{"dataset.json.zst"}, keys)

	var out bytes.Buffer
	require.NoError(t, Decompress(bytes.NewReader(store.objects["dataset.json.zst"]), &out))
	assert.Equal(t, content, out.String())
}

func TestPublishFailures(t *testing.T) {
	_, err := Publish(context.Background(), newMemStore(), filepath.Join(t.TempDir(), "missing.json"), PublishOptions{})
	assert.Error(t, err)

	manifestPath := filepath.Join(t.TempDir(), "dataset.json")
	writeFile(t, manifestPath, "[\n]")

	store := newMemStore()
	store.fail = errors.New("bucket gone")
	keys, err := Publish(context.Background(), store, manifestPath, PublishOptions{Output: &bytes.Buffer{}})
	assert.ErrorContains(t, err, "bucket gone")
	assert.Empty(t, keys)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	limiter := rate.NewLimiter(rate.Limit(0.001), 1)
	limiter.Allow()
	_, err = Publish(ctx, newMemStore(), manifestPath, PublishOptions{Limiter: limiter})
	assert.Error(t, err)
}

func TestNewStoreValidation(t *testing.T) {
	_, err := NewStore(context.Background(), config.StorageConfig{Provider: config.StorageProviderS3})
	assert.ErrorContains(t, err, "bucket")

	_, err = NewStore(context.Background(), config.StorageConfig{Provider: "ftp", Bucket: "b"})
	assert.ErrorContains(t, err, "unsupported")

	_, err = NewStore(context.Background(), config.StorageConfig{Provider: config.StorageProviderStorj, Bucket: "b"})
	assert.ErrorContains(t, err, "access grant")

	_, err = NewStore(context.Background(), config.StorageConfig{Provider: config.StorageProviderStorj, Bucket: "b", StorjAccessGrant: "garbage"})
	assert.Error(t, err)
}

func TestS3StoreName(t *testing.T) {
	store, err := NewS3Store(context.Background(), config.StorageConfig{
		Bucket:          "training-data",
		Region:          "us-east-1",
		Endpoint:        "http://127.0.0.1:9000",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		PartSize:        5 * 1024 * 1024,
		UploadPoolSize:  2,
	})
	require.NoError(t, err)
	assert.Equal(t, "s3://training-data", store.Name())
	assert.NoError(t, store.Close())
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/zstd", contentType("a/dataset.json.zst"))
	assert.Equal(t, "application/json", contentType("a/dataset.sig.json"))
}
