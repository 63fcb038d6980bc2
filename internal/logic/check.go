package logic

import (
	"context"
	"errors"
	"log/slog"

	"github.com/schollz/progressbar/v3"

	"torrkit/internal/metainfo"
	"torrkit/internal/verify"
)

// CheckOptions selects the torrent and the content to verify it
// against.
type CheckOptions struct {
	TorrentPath  string
	ContentPath  string
	ShowProgress bool
}

// Checker verifies on-disk content against a torrent file.
type Checker interface {
	// Check loads the torrent and runs the full verification pass. On
	// cancellation the partial report is returned with ctx.Err().
	Check(ctx context.Context, opts CheckOptions) (*metainfo.Metainfo, verify.Report, error)
}

type checker struct {
	log *slog.Logger
}

// NewChecker returns a Checker logging through logger.
func NewChecker(logger *slog.Logger) Checker {
	return &checker{log: logger}
}

func (c *checker) Check(ctx context.Context, opts CheckOptions) (*metainfo.Metainfo, verify.Report, error) {
	c.log.Info("loading torrent", slog.String("path", opts.TorrentPath))
	m, err := metainfo.ReadFile(opts.TorrentPath)
	if err != nil {
		return nil, verify.Report{}, err
	}

	c.log.Info("verifying content",
		slog.String("path", opts.ContentPath),
		slog.Int("pieces", m.PieceCount()),
		slog.String("infohash", m.InfoHashHex()))

	var bar *progressbar.ProgressBar
	if opts.ShowProgress {
		bar = progressbar.Default(int64(m.PieceCount()), "verifying")
	}
	v := verify.NewVerifier(verify.Options{
		Progress: func(done, total int) {
			if bar != nil {
				bar.Set(done)
			}
		},
	})
	report, err := v.Verify(ctx, m, opts.ContentPath)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			c.log.Info("verify cancelled",
				slog.Int("checked", report.Checked()),
				slog.Int("total", report.Total))
			return m, report, err
		}
		return m, report, err
	}

	c.log.Info("verification finished",
		slog.Int("matched", report.Matched),
		slog.Int("total", report.Total))
	return m, report, nil
}
