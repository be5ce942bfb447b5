package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/gobwas/glob"
	"github.com/joshnies/datadoc/constants"
	"github.com/joshnies/datadoc/lib/console"
	"github.com/joshnies/datadoc/lib/manifest"
	"github.com/joshnies/datadoc/lib/util"
	"github.com/joshnies/datadoc/models"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

var ErrNoShards = errors.New("no shards found")

type Options struct {
	// Amount of shards documented in parallel.
	PoolSize int
	// Glob matched against file names in the input directory.
	Pattern string
	// Manifest path. Defaults to "<dir>.json".
	Out string
	// Ignore existing sidecars.
	Force bool
	// Progress output. Nil discards it.
	Output io.Writer
}

// Returns the default manifest path for an input directory.
func ManifestPath(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	return abs + constants.ManifestExt, nil
}

// List shard files in dir matching pattern, sorted by name.
func FindShards(dir, pattern string) ([]string, error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	names := lo.FilterMap(entries, func(e os.DirEntry, _ int) (string, bool) {
		return filepath.Join(dir, e.Name()), e.Type().IsRegular() && g.Match(e.Name())
	})
	sort.Strings(names)
	return names, nil
}

// Run documents every shard in dir and writes the combined manifest.
// Items appear in shard order, then in archive order within a shard.
func Run(ctx context.Context, dir string, opts Options) (models.Summary, error) {
	shards, err := FindShards(dir, util.OrDefault(opts.Pattern, "*"+constants.ShardExt))
	if err != nil {
		return models.Summary{}, err
	}
	if len(shards) == 0 {
		return models.Summary{}, fmt.Errorf("%w in %s", ErrNoShards, dir)
	}

	out := opts.Out
	if out == "" {
		if out, err = ManifestPath(dir); err != nil {
			return models.Summary{}, err
		}
	}

	console.Verbose("Documenting %d shard(s) from %s", len(shards), dir)

	// Outlives cancellation; every bar ends through completion or abort.
	progress := util.NewProgress(context.WithoutCancel(ctx), opts.Output)
	total := util.AddCountBar(progress, len(shards), filepath.Base(filepath.Clean(dir)))

	results := make([]ShardResult, len(shards))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.PoolSize, 1))
	for i, shard := range shards {
		i, shard := i, shard
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := ProcessTar(gctx, shard, opts.Force, progress)
			if err != nil {
				return err
			}
			results[i] = res
			total.Increment()
			return nil
		})
	}

	err = g.Wait()
	if err != nil {
		total.Abort(false)
	}
	progress.Wait()
	if err != nil {
		return models.Summary{}, err
	}

	items := lo.FlatMap(results, func(r ShardResult, _ int) []models.Item {
		return r.Items
	})
	if err := manifest.Write(out, items); err != nil {
		return models.Summary{}, fmt.Errorf("write manifest: %w", err)
	}

	summary := manifest.Summarize(items)
	summary.Shards = len(shards)
	for _, r := range results {
		summary.Skipped += r.Skipped
		summary.Orphans += r.Orphans
		if r.Cached {
			summary.Cached++
		}
	}

	console.Verbose("Wrote %d item(s) to %s", len(items), out)
	return summary, nil
}
