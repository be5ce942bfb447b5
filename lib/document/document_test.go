package document

import (
	"archive/tar"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/joshnies/datadoc/lib/iscc"
	"github.com/joshnies/datadoc/lib/manifest"
	"github.com/joshnies/datadoc/lib/media"
	"github.com/joshnies/datadoc/lib/media/mediatest"
	"github.com/joshnies/datadoc/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var mtime = time.Unix(1650000000, 0)

func noiseJPEG(t *testing.T, seed int64) []byte {
	t.Helper()
	r := rand.New(rand.NewSource(seed))
	img := image.NewRGBA(image.Rect(0, 0, 48, 40))
	for i := range img.Pix {
		img.Pix[i] = uint8(r.Intn(256))
	}
	for y := 0; y < 40; y++ {
		for x := 0; x < 48; x++ {
			c := img.RGBAAt(x, y)
			c.A = 255
			img.SetRGBA(x, y, c)
		}
	}

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

type entry struct {
	name string
	data []byte
}

func sampleJSON(t *testing.T, url, caption string) []byte {
	t.Helper()
	data, err := json.Marshal(map[string]any{"url": url, "caption": caption, "status": "success"})
	require.NoError(t, err)
	return data
}

func buildTar(t *testing.T, entries ...entry) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, e := range entries {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     e.name,
			Mode:     0o644,
			Size:     int64(len(e.data)),
			ModTime:  mtime,
			Typeflag: tar.TypeReg,
		}))
		_, err := tw.Write(e.data)
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

// Shard with n complete samples, keys prefixed by shard number.
func writeShard(t *testing.T, dir string, shard, n int) string {
	t.Helper()
	var entries []entry
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("%05d%04d", shard, i)
		entries = append(entries,
			entry{key + ".jpg", noiseJPEG(t, int64(shard*100+i))},
			entry{key + ".json", sampleJSON(t, "https://img.example.com/"+key+".jpg", "sample "+key)},
			entry{key + ".txt", []byte("sample " + key)},
		)
	}

	path := filepath.Join(dir, fmt.Sprintf("%05d.tar", shard))
	require.NoError(t, os.WriteFile(path, buildTar(t, entries...), 0o644))
	return path
}

func TestProcessImage(t *testing.T) {
	data := noiseJPEG(t, 1)
	item, err := ProcessImage(data, models.Sample{URL: "https://cdn.example.com:8080/a.jpg", Caption: "A red fox"}, 1234)
	require.NoError(t, err)

	assert.Equal(t, "cdn.example.com:8080", item.Domain)
	assert.Equal(t, int64(1234), item.Timestamp)
	assert.Equal(t, int64(len(data)), item.Bytes)
	assert.Equal(t, "image/jpeg", item.MimeType)
	assert.Empty(t, item.Copyright)

	parts, err := iscc.Split(item.ISCC)
	require.NoError(t, err)
	require.Len(t, parts, 4)
	assert.Equal(t, iscc.HeaderMeta, parts[0].Header)
	assert.Equal(t, iscc.HeaderContentImage, parts[1].Header)
	assert.Equal(t, iscc.HeaderData, parts[2].Header)
	assert.Equal(t, iscc.HeaderInstance, parts[3].Header)

	_, checksum := iscc.InstanceID(data)
	assert.Equal(t, checksum, item.Checksum)
}

func TestProcessImageWithoutCaption(t *testing.T) {
	before := time.Now().Unix()
	item, err := ProcessImage(noiseJPEG(t, 2), models.Sample{URL: "not a url\x7f"}, 0)
	require.NoError(t, err)

	parts, err := iscc.Split(item.ISCC)
	require.NoError(t, err)
	assert.Len(t, parts, 3, "meta component is omitted")
	assert.Empty(t, item.Domain)
	assert.GreaterOrEqual(t, item.Timestamp, before)
}

func TestProcessImageCopyrightPassesSchema(t *testing.T) {
	cases := map[string]string{
		"&amp;":           "",
		"Ã©":              "",
		"© Jane":          "© Jane",
		"Tom &amp; Jerry": "Tom & Jerry",
	}

	for notice, want := range cases {
		data := mediatest.WithEXIF(noiseJPEG(t, 5), map[uint16]string{mediatest.TagCopyright: notice})
		item, err := ProcessImage(data, models.Sample{URL: "https://example.com/a.jpg", Caption: "A fox"}, 1)
		require.NoError(t, err, notice)
		assert.Equal(t, want, item.Copyright, notice)

		var buf bytes.Buffer
		require.NoError(t, manifest.Encode(&buf, []models.Item{item}))
		assert.NoError(t, manifest.Validate(buf.Bytes()), notice)
	}
}

func TestProcessImageRejectsNonImages(t *testing.T) {
	_, err := ProcessImage([]byte("<html>not found</html>"), models.Sample{}, 1)
	assert.ErrorIs(t, err, media.ErrNotImage)
}

func TestMemberKey(t *testing.T) {
	cases := map[string][2]string{
		"000001.jpg":        {"000001", ".jpg"},
		"000001.JSON":       {"000001", ".json"},
		"shard/000001.JPEG": {"shard/000001", ".jpeg"},
		"a.b.c.jpg":         {"a.b", ".jpg"},
		"dir.x/key":         {"dir.x/key", ""},
	}
	for name, want := range cases {
		key, ext := memberKey(name)
		assert.Equal(t, want[0], key, name)
		assert.Equal(t, want[1], ext, name)
	}
}

func TestReadShard(t *testing.T) {
	img1, img2, img3 := noiseJPEG(t, 1), noiseJPEG(t, 2), noiseJPEG(t, 3)
	data := buildTar(t,
		entry{"001.jpg", img1},
		entry{"001.json", sampleJSON(t, "https://a.example.com/1.jpg", "first")},
		// Metadata before the image
		entry{"002.json", sampleJSON(t, "https://b.example.com/2.jpg", "second")},
		entry{"002.jpg", img2},
		// Failed download: metadata only
		entry{"003.json", sampleJSON(t, "https://c.example.com/3.jpg", "")},
		// Undecodable image
		entry{"004.jpg", []byte("<html>404</html>")},
		entry{"004.json", sampleJSON(t, "https://d.example.com/4.jpg", "fourth")},
		// Image without metadata
		entry{"005.jpg", img3},
		entry{"006.json", []byte("{broken")},
	)

	res, err := ReadShard(context.Background(), bytes.NewReader(data))
	require.NoError(t, err)

	require.Len(t, res.Items, 2)
	assert.Equal(t, "a.example.com", res.Items[0].Domain)
	assert.Equal(t, "b.example.com", res.Items[1].Domain)
	assert.Equal(t, mtime.Unix(), res.Items[0].Timestamp)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 3, res.Orphans)
}

func TestReadShardCountsEachOrphanOnce(t *testing.T) {
	first, second := noiseJPEG(t, 7), noiseJPEG(t, 8)
	data := buildTar(t,
		// Image, then unreadable metadata
		entry{"007.jpg", noiseJPEG(t, 9)},
		entry{"007.json", []byte("{broken")},
		// Unreadable metadata, then image
		entry{"008.json", []byte("{broken")},
		entry{"008.jpg", noiseJPEG(t, 10)},
		// Duplicate image member; the later one wins
		entry{"009.jpg", first},
		entry{"009.jpg", second},
		entry{"009.json", sampleJSON(t, "https://e.example.com/9.jpg", "ninth")},
	)

	res, err := ReadShard(context.Background(), bytes.NewReader(data))
	require.NoError(t, err)

	require.Len(t, res.Items, 1)
	_, checksum := iscc.InstanceID(second)
	assert.Equal(t, checksum, res.Items[0].Checksum)
	assert.Equal(t, 0, res.Skipped)
	assert.Equal(t, 3, res.Orphans)
}

func TestReadShardCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	data := buildTar(t, entry{"001.jpg", noiseJPEG(t, 1)})
	_, err := ReadShard(ctx, bytes.NewReader(data))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReadShardRejectsGarbage(t *testing.T) {
	_, err := ReadShard(context.Background(), strings.NewReader(strings.Repeat("x", 1024)))
	assert.Error(t, err)
}

func TestProcessTarWritesAndReusesSidecar(t *testing.T) {
	dir := t.TempDir()
	shard := writeShard(t, dir, 1, 3)

	res, err := ProcessTar(context.Background(), shard, false, nil)
	require.NoError(t, err)
	assert.False(t, res.Cached)
	require.Len(t, res.Items, 3)

	sidecar := SidecarPath(shard)
	assert.Equal(t, filepath.Join(dir, "00001_doc.jsonl"), sidecar)

	raw, err := os.ReadFile(sidecar)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(raw), "\n"))

	cached, err := ProcessTar(context.Background(), shard, false, nil)
	require.NoError(t, err)
	assert.True(t, cached.Cached)
	assert.Equal(t, res.Items, cached.Items)

	forced, err := ProcessTar(context.Background(), shard, true, nil)
	require.NoError(t, err)
	assert.False(t, forced.Cached)
}

func TestReadSidecarRejectsInvalidLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x_doc.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"domain\":\"a\"}\n\nnot json\n"), 0o644))

	_, err := ReadSidecar(path)
	assert.ErrorContains(t, err, ":3:")
}

func TestFindShards(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"00002.tar", "00001.tar", "00001_doc.jsonl", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.tar"), 0o755))

	shards, err := FindShards(dir, "*.tar")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "00001.tar"), filepath.Join(dir, "00002.tar")}, shards)

	_, err = FindShards(dir, "[")
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dataset")
	require.NoError(t, os.Mkdir(dir, 0o755))
	writeShard(t, dir, 2, 2)
	writeShard(t, dir, 1, 3)
	writeShard(t, dir, 3, 1)

	var progress bytes.Buffer
	summary, err := Run(context.Background(), dir, Options{PoolSize: 2, Output: &progress})
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Shards)
	assert.Equal(t, 6, summary.Items)
	assert.Zero(t, summary.Cached)
	assert.Empty(t, summary.Duplicates)
	assert.Equal(t, map[string]int{"img.example.com": 6}, summary.Domains)

	out := dir + ".json"
	items, raw, err := manifest.Read(out)
	require.NoError(t, err)
	require.Len(t, items, 6)
	require.NoError(t, manifest.CheckUnique(items))

	// Shard order, then archive order
	first, err := ReadSidecar(SidecarPath(filepath.Join(dir, "00001.tar")))
	require.NoError(t, err)
	assert.Equal(t, first, items[:3])

	// A resumed run produces the same manifest
	summary, err = Run(context.Background(), dir, Options{PoolSize: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Cached)

	again, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, raw, again)
}

func TestRunCustomOutput(t *testing.T) {
	dir := t.TempDir()
	writeShard(t, dir, 1, 1)
	out := filepath.Join(t.TempDir(), "custom.json")

	_, err := Run(context.Background(), dir, Options{PoolSize: 1, Out: out, Pattern: "0000?.tar"})
	require.NoError(t, err)
	assert.FileExists(t, out)
}

func TestRunWithoutShards(t *testing.T) {
	_, err := Run(context.Background(), t.TempDir(), Options{PoolSize: 1})
	assert.ErrorIs(t, err, ErrNoShards)
}

func TestRunFailsOnCorruptShard(t *testing.T) {
	dir := t.TempDir()
	writeShard(t, dir, 1, 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "00002.tar"), []byte(strings.Repeat("x", 1024)), 0o644))

	_, err := Run(context.Background(), dir, Options{PoolSize: 2, Output: &bytes.Buffer{}})
	assert.Error(t, err)
	assert.NoFileExists(t, dir+".json")
}
