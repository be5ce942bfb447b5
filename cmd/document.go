package cmd

import (
	"errors"
	"strings"

	"github.com/joshnies/datadoc/config"
	"github.com/joshnies/datadoc/constants"
	"github.com/joshnies/datadoc/lib/console"
	"github.com/joshnies/datadoc/lib/document"
	"github.com/joshnies/datadoc/lib/util"
	"github.com/urfave/cli/v2"
)

// Document a directory of shards and write its manifest.
func Document(c *cli.Context) error {
	dir := strings.TrimSpace(c.Args().First())
	if dir == "" {
		return console.Error("Missing directory. Usage: datadoc document <dir>")
	}

	opts := document.Options{
		PoolSize: util.OrDefault(c.Int("pool"), config.I.Document.PoolSize),
		Pattern:  util.OrDefault(c.String("pattern"), config.I.Document.Pattern),
		Out:      c.String("out"),
		Force:    c.Bool("force"),
		Output:   c.App.Writer,
	}
	if opts.Out == "" {
		out, err := document.ManifestPath(dir)
		if err != nil {
			return err
		}
		opts.Out = out
	}

	summary, err := document.Run(c.Context, dir, opts)
	if errors.Is(err, document.ErrNoShards) {
		return console.Error(constants.ErrMsgNoShards, dir)
	}
	if err != nil {
		return console.Error("Failed to document %s: %w", dir, err)
	}

	console.Success("Documented %d item(s) from %d shard(s) into %s", summary.Items, summary.Shards, opts.Out)
	if summary.Cached > 0 {
		console.Info("%d shard(s) loaded from existing sidecars; use --force to recompute.", summary.Cached)
	}
	if summary.Skipped > 0 || summary.Orphans > 0 {
		console.Warning("Skipped %d undecodable image(s) and %d unpaired entries.", summary.Skipped, summary.Orphans)
	}
	if len(summary.Duplicates) > 0 {
		console.Warning("%d image(s) occur more than once.", len(summary.Duplicates))
	}
	return nil
}
