package cmd

import (
	"crypto/x509"
	"time"

	"github.com/joshnies/datadoc/config"
	"github.com/joshnies/datadoc/lib/console"
	"github.com/joshnies/datadoc/lib/signing"
	"github.com/urfave/cli/v2"
)

// Generate an RSA key pair for signing, optionally with a self-signed certificate.
func Keygen(c *cli.Context) error {
	bits := c.Int("bits")
	console.Info("Generating %d-bit RSA key...", bits)

	key, err := signing.GenerateKey(bits)
	if err != nil {
		return console.Error("Failed to generate key: %w", err)
	}

	var cert *x509.Certificate
	if cn := c.String("cn"); cn != "" {
		validity := time.Duration(c.Int("days")) * 24 * time.Hour
		cert, err = signing.SelfSignedCertificate(key, cn, validity)
		if err != nil {
			return console.Error("Failed to create certificate: %w", err)
		}
	}

	files, err := signing.WriteKeyPair(c.String("out"), key, cert)
	if err != nil {
		return console.Error("Failed to write keys: %w", err)
	}

	console.Success("Private key: %s", files.PrivateKey)
	console.Success("Public key:  %s", files.PublicKey)
	if files.Certificate != "" {
		console.Success("Certificate: %s", files.Certificate)
	}
	if config.I.Signing.KeyPath == "" {
		console.Info("Set signing.key_path in %s to sign without --key.", config.GetConfigPath())
	}
	return nil
}
