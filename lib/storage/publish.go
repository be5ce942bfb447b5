package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/joshnies/datadoc/constants"
	"github.com/joshnies/datadoc/lib/console"
	"github.com/joshnies/datadoc/lib/signing"
	"github.com/joshnies/datadoc/lib/util"
	"github.com/vbauerster/mpb/v7"
	"golang.org/x/time/rate"
)

type PublishOptions struct {
	// Key prefix, joined with "/".
	Prefix string
	// Upload the manifest zstd-compressed as "<name>.zst".
	Compress bool
	// Paces object uploads. Nil means unlimited.
	Limiter *rate.Limiter
	// Progress output. Nil discards it.
	Output io.Writer
}

// Publish uploads a manifest and, when present, its signature envelope.
// Returns the keys that were written.
func Publish(ctx context.Context, store Store, manifestPath string, opts PublishOptions) ([]string, error) {
	if !util.FileExists(manifestPath) {
		return nil, fmt.Errorf("manifest %s not found", manifestPath)
	}

	files := []string{manifestPath}
	if sig := signing.SignaturePath(manifestPath); util.FileExists(sig) {
		files = append(files, sig)
	} else {
		console.Warning("Manifest %s is not signed.", manifestPath)
	}

	p := util.NewProgress(context.WithoutCancel(ctx), opts.Output)
	var keys []string
	var err error
	for i, file := range files {
		var key string
		key, err = publishFile(ctx, store, p, file, opts, opts.Compress && i == 0)
		if err != nil {
			break
		}
		keys = append(keys, key)
	}
	p.Wait()

	return keys, err
}

func publishFile(ctx context.Context, store Store, p *mpb.Progress, file string, opts PublishOptions, compress bool) (string, error) {
	name := filepath.Base(file)

	var (
		body io.Reader
		size int64
	)
	if compress {
		tmp, n, err := compressToTemp(file)
		if err != nil {
			return "", err
		}
		defer os.Remove(tmp.Name())
		defer tmp.Close()

		name += constants.CompressedExt
		body, size = tmp, n
	} else {
		f, err := os.Open(file)
		if err != nil {
			return "", err
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return "", err
		}
		body, size = f, info.Size()
	}

	key := name
	if opts.Prefix != "" {
		key = path.Join(opts.Prefix, name)
	}

	if opts.Limiter != nil {
		if err := opts.Limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	bar := util.AddTransferBar(p, size, name)
	proxy := bar.ProxyReader(body)
	defer proxy.Close()

	console.Verbose("Uploading %s to %s/%s (%s)", file, store.Name(), key, util.FormatBytesSize(size))
	if err := store.Upload(ctx, key, proxy, size); err != nil {
		bar.Abort(false)
		console.ErrorPrintV("Failed to upload file \"%s\" with key \"%s\": %+v", file, key, err)
		return "", fmt.Errorf("upload %s: %w", name, err)
	}

	bar.SetTotal(-1, true)
	return key, nil
}
