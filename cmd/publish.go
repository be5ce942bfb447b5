package cmd

import (
	"strings"

	"github.com/joshnies/datadoc/config"
	"github.com/joshnies/datadoc/constants"
	"github.com/joshnies/datadoc/lib/console"
	"github.com/joshnies/datadoc/lib/manifest"
	"github.com/joshnies/datadoc/lib/storage"
	"github.com/joshnies/datadoc/lib/util"
	"github.com/urfave/cli/v2"
)

// Upload a manifest and its signature to the configured storage.
func Publish(c *cli.Context) error {
	path := strings.TrimSpace(c.Args().First())
	if path == "" {
		return console.Error(constants.ErrMsgNoManifest, "publish")
	}

	if _, _, err := manifest.Read(path); err != nil {
		return console.Error("Refusing to publish %s: %w", path, err)
	}

	store, err := storage.NewStore(c.Context, config.I.Storage)
	if err != nil {
		return console.Error("Failed to open storage: %w", err)
	}
	defer store.Close()

	keys, err := storage.Publish(c.Context, store, path, storage.PublishOptions{
		Prefix:   util.OrDefault(c.String("prefix"), config.I.Storage.Prefix),
		Compress: compressManifest(c),
		Limiter:  config.I.RateLimiter,
		Output:   c.App.Writer,
	})
	if err != nil {
		return console.Error("Failed to publish %s: %w", path, err)
	}

	for _, key := range keys {
		console.Success("Published %s/%s", store.Name(), key)
	}
	return nil
}

// The --compress flag overrides storage.compress when given.
func compressManifest(c *cli.Context) bool {
	if c.IsSet("compress") {
		return c.Bool("compress")
	}
	return config.I.Storage.Compress
}
