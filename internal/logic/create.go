// Package logic orchestrates the create, verify, modify and inspect
// operations the CLI exposes, gluing the scanner, hasher, model and
// verifier together.
package logic

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/schollz/progressbar/v3"

	"torrkit/internal/hasher"
	"torrkit/internal/metainfo"
	"torrkit/internal/stream"
)

// CreateOptions carries everything a create run needs. Zero values fall
// back to the package defaults.
type CreateOptions struct {
	// SourcePath is the file or directory to hash.
	SourcePath string
	// OutputPath receives the .torrent. Empty means build the model
	// without writing a file.
	OutputPath string
	// Name overrides the root name derived from SourcePath.
	Name string

	Trackers     []string
	Comment      string
	PieceLength  int64
	Private      bool
	Source       string
	CreatedBy    string
	CreationDate int64
	Encoding     string

	// NoDate and NoCreator suppress the default stamps.
	NoDate    bool
	NoCreator bool

	Workers      int
	Overwrite    bool
	ShowProgress bool
}

// Creator builds torrents from on-disk content.
type Creator interface {
	// Create scans, hashes and assembles the torrent, writing it to
	// OutputPath when set. It returns the model and the path written.
	// A cancelled run returns ctx.Err() and writes nothing.
	Create(ctx context.Context, opts CreateOptions) (*metainfo.Metainfo, string, error)
}

type creator struct {
	log *slog.Logger
}

// NewCreator returns a Creator logging through logger.
func NewCreator(logger *slog.Logger) Creator {
	return &creator{log: logger}
}

func (c *creator) Create(ctx context.Context, opts CreateOptions) (*metainfo.Metainfo, string, error) {
	if opts.PieceLength == 0 {
		opts.PieceLength = metainfo.DefaultPieceLength
	}

	c.log.Info("scanning source", slog.String("path", opts.SourcePath))
	name, spans, err := stream.Scan(opts.SourcePath)
	if err != nil {
		return nil, "", err
	}
	if opts.Name != "" {
		name = opts.Name
	}

	var m *metainfo.Metainfo
	if len(spans) == 1 && spans[0].RelPath == nil {
		m, err = metainfo.NewSingleFile(name, spans[0].Length, opts.PieceLength)
	} else {
		entries := make([]metainfo.FileEntry, len(spans))
		for i, s := range spans {
			entries[i] = metainfo.FileEntry{Length: s.Length, Path: s.RelPath}
		}
		m, err = metainfo.NewMultiFile(name, entries, opts.PieceLength)
	}
	if err != nil {
		return nil, "", err
	}

	m.SetTrackers(opts.Trackers)
	m.SetComment(opts.Comment)
	m.SetPrivate(opts.Private)
	m.SetSource(opts.Source)
	switch {
	case opts.NoCreator:
		m.SetCreatedBy("")
	case opts.CreatedBy != "":
		m.SetCreatedBy(opts.CreatedBy)
	default:
		m.SetCreatedBy(metainfo.DefaultCreatedBy)
	}
	switch {
	case opts.NoDate:
		m.SetCreationDate(0)
	case opts.CreationDate != 0:
		m.SetCreationDate(opts.CreationDate)
	default:
		m.SetCreationDate(time.Now().Unix())
	}
	if opts.Encoding != "" {
		m.SetEncoding(opts.Encoding)
	}

	src := stream.NewAssembler(spans)
	c.log.Info("hashing pieces",
		slog.Int64("total_bytes", src.TotalLength()),
		slog.Int64("piece_length", opts.PieceLength),
		slog.Int("workers", opts.Workers))

	var bar *progressbar.ProgressBar
	if opts.ShowProgress {
		bar = progressbar.DefaultBytes(src.TotalLength(), "hashing")
	}
	totalBytes := src.TotalLength()
	digests, err := hasher.Hash(ctx, src, opts.PieceLength, hasher.Options{
		Workers: opts.Workers,
		Progress: func(done, total int) {
			if bar == nil {
				return
			}
			processed := int64(done) * opts.PieceLength
			if processed > totalBytes {
				processed = totalBytes
			}
			bar.Set64(processed)
		},
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			c.log.Info("create cancelled, no torrent written")
		}
		return nil, "", err
	}

	var pieces bytes.Buffer
	for _, d := range digests {
		pieces.Write(d[:])
	}
	if err := m.SetPieces(pieces.Bytes()); err != nil {
		return nil, "", err
	}

	written := ""
	if opts.OutputPath != "" {
		written, err = metainfo.WriteFile(m, opts.OutputPath, opts.Overwrite)
		if err != nil {
			return nil, "", err
		}
		c.log.Info("torrent written",
			slog.String("path", written),
			slog.String("infohash", m.InfoHashHex()),
			slog.Int("pieces", m.PieceCount()))
	}
	return m, written, nil
}
