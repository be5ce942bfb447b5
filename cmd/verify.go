package cmd

import (
	"strings"
	"time"

	"github.com/joshnies/datadoc/config"
	"github.com/joshnies/datadoc/constants"
	"github.com/joshnies/datadoc/lib/console"
	"github.com/joshnies/datadoc/lib/signing"
	"github.com/joshnies/datadoc/lib/util"
	"github.com/urfave/cli/v2"
)

// Verify a manifest against its signature envelope.
func Verify(c *cli.Context) error {
	path := strings.TrimSpace(c.Args().First())
	if path == "" {
		return console.Error(constants.ErrMsgNoManifest, "verify")
	}

	var v signing.Verifier
	if keyPath := util.OrDefault(c.String("public-key"), config.I.Signing.CertPath); keyPath != "" {
		key, cert, err := signing.LoadPublicKey(keyPath)
		if err != nil {
			return console.Error("Failed to load public key: %w", err)
		}
		v.PublicKey = key
		v.Anchor = cert
	}

	sig, err := signing.VerifyManifest(path, v)
	if err != nil {
		return console.Error("Verification of %s failed: %w", path, err)
	}

	console.Success("Signature %q on %s is valid", sig.Name, path)
	console.Info("ID:      %s", sig.ID)
	console.Info("Signed:  %s", time.Unix(sig.CreatedAt, 0).Format(constants.TimeFormat))
	if sig.Signature.Issuer != "" {
		console.Info("Issuer:  %s", sig.Signature.Issuer)
	}
	console.Verbose("Digest:  %s:%s", sig.Digest.HashAlgorithm, sig.Digest.Value)
	return nil
}
