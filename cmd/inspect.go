package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/TwiN/go-color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joshnies/datadoc/constants"
	"github.com/joshnies/datadoc/lib/console"
	"github.com/joshnies/datadoc/lib/manifest"
	"github.com/joshnies/datadoc/lib/signing"
	"github.com/joshnies/datadoc/lib/util"
	"github.com/joshnies/datadoc/models"
	"github.com/urfave/cli/v2"
	"golang.org/x/exp/maps"
)

// Validate a manifest and print a summary of its contents.
func Inspect(c *cli.Context) error {
	path := strings.TrimSpace(c.Args().First())
	if path == "" {
		return console.Error(constants.ErrMsgNoManifest, "inspect")
	}

	items, raw, err := manifest.Read(path)
	if err != nil {
		return console.Error("Failed to read %s: %w", path, err)
	}
	d, err := manifest.Digest(raw)
	if err != nil {
		return err
	}

	w := c.App.Writer
	summary := manifest.Summarize(items)

	fmt.Fprintln(w, color.InBold(path))
	renderSummary(w, summary, d.String())
	renderCounts(w, "MIME type", summary.MimeTypes, 0)
	renderCounts(w, "Domain", summary.Domains, c.Int("top"))
	if err := manifest.CheckUnique(items); err != nil {
		console.Warning("%v", err)
	}

	sigPath := signing.SignaturePath(path)
	if !util.FileExists(sigPath) {
		console.Warning("Not signed.")
		return nil
	}
	sig, err := signing.ReadSignature(sigPath)
	if err != nil {
		console.Warning("Unreadable signature %s: %v", sigPath, err)
		return nil
	}
	fmt.Fprintf(w, "Signed as %s on %s (%s, %s)\n",
		color.InCyan(sig.Name),
		time.Unix(sig.CreatedAt, 0).Format(constants.TimeFormat),
		sig.Signature.Algorithm,
		sig.Signature.MediaType,
	)
	if sig.Digest.Value != d.Encoded() {
		console.Warning("Signature digest does not match the manifest; run `datadoc verify %s`.", path)
	}
	return nil
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	style := table.StyleLight
	style.Options.DrawBorder = false
	t.SetStyle(style)
	return t
}

func renderSummary(w io.Writer, s models.Summary, digest string) {
	t := newTable(w)
	t.AppendRows([]table.Row{
		{"Items", s.Items},
		{"Size", util.FormatBytesSize(s.Bytes)},
		{"With copyright", s.Copyrighted},
		{"Domains", len(s.Domains)},
		{"Duplicates", len(s.Duplicates)},
		{"Digest", digest},
	})
	t.Render()
}

// Render counts sorted by frequency. A positive limit keeps only the top entries.
func renderCounts(w io.Writer, label string, counts map[string]int, limit int) {
	if len(counts) == 0 {
		return
	}

	keys := maps.Keys(counts)
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})

	t := newTable(w)
	t.AppendHeader(table.Row{label, "Items"})
	for i, k := range keys {
		if limit > 0 && i == limit {
			t.AppendFooter(table.Row{fmt.Sprintf("%d more", len(keys)-limit), ""})
			break
		}
		t.AppendRow(table.Row{k, counts[k]})
	}
	t.Render()
}
