package cmd

import (
	"strings"

	"github.com/joshnies/datadoc/config"
	"github.com/joshnies/datadoc/constants"
	"github.com/joshnies/datadoc/lib/console"
	"github.com/joshnies/datadoc/lib/signing"
	"github.com/joshnies/datadoc/lib/util"
	"github.com/urfave/cli/v2"
)

// Sign a manifest, writing "<name>.sig.json" next to it.
func Sign(c *cli.Context) error {
	path := strings.TrimSpace(c.Args().First())
	if path == "" {
		return console.Error(constants.ErrMsgNoManifest, "sign")
	}

	keyPath := util.OrDefault(c.String("key"), config.I.Signing.KeyPath)
	if keyPath == "" {
		return console.Error("No signing key. Pass --key or set signing.key_path in %s", config.GetConfigPath())
	}
	key, err := signing.LoadPrivateKey(keyPath)
	if err != nil {
		return console.Error("Failed to load signing key: %w", err)
	}

	signer := signing.Signer{
		Key:      key,
		Encoding: util.OrDefault(c.String("encoding"), config.I.Signing.Encoding),
	}
	if certPath := util.OrDefault(c.String("cert"), config.I.Signing.CertPath); certPath != "" {
		chain, err := signing.LoadCertificateChain(certPath)
		if err != nil {
			return console.Error("Failed to load certificate chain: %w", err)
		}
		signer.Chain = chain
	}

	sig, err := signing.SignManifest(path, signer, c.String("name"))
	if err != nil {
		return console.Error("Failed to sign %s: %w", path, err)
	}

	console.Verbose("Digest: %s:%s", sig.Digest.HashAlgorithm, sig.Digest.Value)
	console.Success("Signed %s (%s) -> %s", path, sig.ID, signing.SignaturePath(path))
	return nil
}
