package cmd

import (
	"github.com/joshnies/datadoc/config"
	"github.com/joshnies/datadoc/lib/console"
	"github.com/joshnies/datadoc/lib/signing"
	"github.com/urfave/cli/v2"
)

// Build the CLI app.
func NewApp() *cli.App {
	return &cli.App{
		Name:    "datadoc",
		Usage:   "Document, sign and publish image training data",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Print verbose output",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("verbose") {
				config.I.Verbose = true
				console.SetVerbose(true)
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "document",
				Usage:     "Document every image in a directory of TAR shards and write a manifest",
				Aliases:   []string{"doc", "d"},
				ArgsUsage: "<dir>",
				Action:    Document,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Usage:   "Manifest path (default: <dir>.json)",
					},
					&cli.IntFlag{
						Name:    "pool",
						Aliases: []string{"p"},
						Usage:   "Amount of shards documented in parallel",
					},
					&cli.StringFlag{
						Name:  "pattern",
						Usage: "Glob matched against shard file names",
					},
					&cli.BoolFlag{
						Name:    "force",
						Aliases: []string{"f"},
						Usage:   "Ignore existing sidecar files",
					},
				},
			},
			{
				Name:      "sign",
				Usage:     "Sign a manifest",
				ArgsUsage: "<manifest>",
				Action:    Sign,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "key",
						Aliases: []string{"k"},
						Usage:   "PEM private key (default: signing.key_path)",
					},
					&cli.StringFlag{
						Name:  "cert",
						Usage: "PEM certificate chain embedded into the signature (default: signing.cert_path)",
					},
					&cli.StringFlag{
						Name:  "encoding",
						Usage: "Signature encoding: pem or plain (default: signing.encoding)",
					},
					&cli.StringFlag{
						Name:  "name",
						Usage: "Signature name (default: manifest file name)",
					},
				},
			},
			{
				Name:      "verify",
				Usage:     "Verify a signed manifest",
				ArgsUsage: "<manifest>",
				Action:    Verify,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "public-key",
						Aliases: []string{"k"},
						Usage:   "PEM public key or trusted certificate (default: signing.cert_path)",
					},
				},
			},
			{
				Name:      "inspect",
				Usage:     "Validate a manifest and print a summary",
				Aliases:   []string{"i"},
				ArgsUsage: "<manifest>",
				Action:    Inspect,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "top",
						Value: 10,
						Usage: "Amount of domains listed",
					},
				},
			},
			{
				Name:   "keygen",
				Usage:  "Generate an RSA signing key pair",
				Action: Keygen,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "bits",
						Value: signing.DefaultKeyBits,
						Usage: "Key size in bits",
					},
					&cli.StringFlag{
						Name:  "out",
						Value: ".",
						Usage: "Output directory",
					},
					&cli.StringFlag{
						Name:  "cn",
						Usage: "Also write a self-signed certificate with this common name",
					},
					&cli.IntFlag{
						Name:  "days",
						Value: 365,
						Usage: "Certificate validity in days",
					},
				},
			},
			{
				Name:      "publish",
				Usage:     "Upload a manifest and its signature to the configured storage",
				ArgsUsage: "<manifest>",
				Action:    Publish,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "prefix",
						Usage: "Object key prefix (default: storage.prefix)",
					},
					&cli.BoolFlag{
						Name:  "compress",
						Usage: "Upload the manifest zstd-compressed (default: storage.compress)",
					},
				},
			},
		},
	}
}
