package document

import (
	"archive/tar"
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/joshnies/datadoc/constants"
	"github.com/joshnies/datadoc/lib/console"
	"github.com/joshnies/datadoc/lib/manifest"
	"github.com/joshnies/datadoc/lib/media"
	"github.com/joshnies/datadoc/lib/util"
	"github.com/joshnies/datadoc/models"
	"github.com/vbauerster/mpb/v7"
)

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// Outcome of documenting one shard.
type ShardResult struct {
	Path  string
	Items []models.Item
	// Entries that could not be decoded as images.
	Skipped int
	// Image or metadata entries without a counterpart.
	Orphans int
	// Items were loaded from an existing sidecar.
	Cached bool
}

type pendingSample struct {
	sample    models.Sample
	timestamp int64
}

// Returns the sidecar path for a shard: "<shard>_doc.jsonl".
func SidecarPath(shard string) string {
	return strings.TrimSuffix(shard, filepath.Ext(shard)) + constants.SidecarSuffix
}

// Key shared by the image and metadata entries of a sample.
// Up to two extensions are removed from the lower-cased base name.
func memberKey(name string) (key, ext string) {
	name = strings.ToLower(name)
	dir, base := path.Split(name)
	ext = path.Ext(base)
	base = strings.TrimSuffix(base, ext)
	base = strings.TrimSuffix(base, path.Ext(base))
	return dir + base, ext
}

// ReadShard documents every image/metadata pair in a TAR stream.
// Entries of a pair may appear in either order. Items are returned in the
// order their pair completed.
func ReadShard(ctx context.Context, r io.Reader) (res ShardResult, err error) {
	images := map[string][]byte{}
	samples := map[string]pendingSample{}
	// Keys whose metadata was unreadable, already counted as orphans
	broken := map[string]bool{}

	tr := tar.NewReader(r)
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("read tar: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		key, ext := memberKey(hdr.Name)
		switch {
		case imageExts[ext]:
			data, err := io.ReadAll(tr)
			if err != nil {
				return res, fmt.Errorf("read %s: %w", hdr.Name, err)
			}
			if broken[key] {
				continue
			}
			if _, dup := images[key]; dup {
				console.Verbose("Replacing duplicate image %s", hdr.Name)
				res.Orphans++
			}
			images[key] = data

		case ext == ".json":
			var sample models.Sample
			if err := json.NewDecoder(tr).Decode(&sample); err != nil {
				console.Verbose("Ignoring unreadable metadata %s: %v", hdr.Name, err)
				if !broken[key] {
					res.Orphans++
				}
				broken[key] = true
				delete(images, key)
				continue
			}
			if broken[key] {
				continue
			}
			if _, dup := samples[key]; dup {
				console.Verbose("Replacing duplicate metadata %s", hdr.Name)
				res.Orphans++
			}
			samples[key] = pendingSample{sample: sample, timestamp: hdr.ModTime.Unix()}

		default:
			continue
		}

		img, haveImage := images[key]
		meta, haveSample := samples[key]
		if !haveImage || !haveSample {
			continue
		}
		delete(images, key)
		delete(samples, key)

		item, err := ProcessImage(img, meta.sample, meta.timestamp)
		if errors.Is(err, media.ErrNotImage) {
			console.Verbose("Skipping %s: %v", key, err)
			res.Skipped++
			continue
		}
		if err != nil {
			return res, fmt.Errorf("document %s: %w", key, err)
		}
		res.Items = append(res.Items, item)
	}

	res.Orphans += len(images) + len(samples)
	return res, nil
}

// ProcessTar documents a shard file and writes its sidecar.
// An existing sidecar is loaded instead unless force is set. When p is not
// nil a byte progress bar is shown while reading.
func ProcessTar(ctx context.Context, shard string, force bool, p *mpb.Progress) (res ShardResult, err error) {
	sidecar := SidecarPath(shard)
	if !force && util.FileExists(sidecar) {
		items, err := ReadSidecar(sidecar)
		if err != nil {
			return ShardResult{}, err
		}
		console.Verbose("Loaded %d cached item(s) from %s", len(items), sidecar)
		return ShardResult{Path: shard, Items: items, Cached: true}, nil
	}

	file, err := os.Open(shard)
	if err != nil {
		return ShardResult{}, err
	}
	defer file.Close()

	var r io.Reader = file
	if p != nil {
		info, statErr := file.Stat()
		if statErr != nil {
			return ShardResult{}, statErr
		}
		bar := util.AddTransferBar(p, info.Size(), filepath.Base(shard))
		proxy := bar.ProxyReader(file)
		defer proxy.Close()
		r = proxy

		// The tar reader may stop before trailing padding
		defer func() {
			if err != nil {
				bar.Abort(false)
				return
			}
			bar.SetTotal(-1, true)
		}()
	}

	res, err = ReadShard(ctx, r)
	if err != nil {
		return res, fmt.Errorf("%s: %w", shard, err)
	}
	res.Path = shard

	if err = WriteSidecar(sidecar, res.Items); err != nil {
		return res, err
	}
	console.Verbose("Documented %d item(s) in %s (%d skipped, %d orphaned)", len(res.Items), shard, res.Skipped, res.Orphans)
	return res, nil
}

// Write items as JSON Lines.
func WriteSidecar(path string, items []models.Item) error {
	return util.WriteFileAtomic(path, 0o644, func(w io.Writer) error {
		for _, item := range items {
			line, err := manifest.EncodeItem(item)
			if err != nil {
				return err
			}
			if _, err := w.Write(append(line, '\n')); err != nil {
				return err
			}
		}
		return nil
	})
}

// Read items from a JSON Lines sidecar. Blank lines are ignored.
func ReadSidecar(path string) ([]models.Item, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var items []models.Item
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var item models.Item
		if err := json.Unmarshal([]byte(text), &item); err != nil {
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		items = append(items, item)
	}
	return items, scanner.Err()
}
