package util

import (
	"context"
	"io"

	"github.com/vbauerster/mpb/v7"
	"github.com/vbauerster/mpb/v7/decor"
)

// Create a progress container.
// A nil writer discards all output.
func NewProgress(ctx context.Context, w io.Writer) *mpb.Progress {
	if w == nil {
		w = io.Discard
	}
	return mpb.NewWithContext(ctx, mpb.WithOutput(w), mpb.WithWidth(60))
}

// Add a counting bar. A total <= 0 creates a bar that only completes through `SetTotal(-1, true)`.
func AddCountBar(p *mpb.Progress, total int, name string) *mpb.Bar {
	return p.New(int64(total),
		mpb.BarStyle().Lbound("[").Filler("=").Tip(">").Padding("-").Rbound("]"),
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{W: len(name) + 2, C: decor.DidentRight}),
		),
		mpb.AppendDecorators(
			decor.OnComplete(decor.Percentage(), "done"),
			decor.CountersNoUnit(" (%d/%d)", decor.WCSyncSpace),
		),
	)
}

// Add a byte-counting bar for transfers.
func AddTransferBar(p *mpb.Progress, total int64, name string) *mpb.Bar {
	return p.AddBar(total,
		mpb.PrependDecorators(
			decor.CountersKibiByte("% .2f / % .2f "),
		),
		mpb.AppendDecorators(
			decor.Name(name, decor.WC{W: 20, C: decor.DidentRight}),
			decor.Name(" | "),
			decor.EwmaSpeed(decor.UnitKiB, "% .2f", 60),
		),
	)
}
