package logic

import (
	"errors"
	"log/slog"

	"torrkit/internal/metainfo"
)

// ModifyOptions lists the fields to change. Nil pointers and nil
// slices leave the loaded value untouched; only fields outside info are
// editable here except Source, which deliberately changes the infohash.
type ModifyOptions struct {
	TorrentPath string
	// OutputPath receives the result; empty rewrites TorrentPath in
	// place.
	OutputPath string

	SetTrackers    []string
	AddTrackers    []string
	RemoveTrackers []string

	Comment      *string
	CreatedBy    *string
	CreationDate *int64
	Encoding     *string
	Private      *bool
	Source       *string

	Overwrite bool
}

// Modifier edits existing torrent files.
type Modifier interface {
	// Modify loads, applies the requested edits and writes the result.
	// It returns the edited model and the path written.
	Modify(opts ModifyOptions) (*metainfo.Metainfo, string, error)
}

type modifier struct {
	log *slog.Logger
}

// NewModifier returns a Modifier logging through logger.
func NewModifier(logger *slog.Logger) Modifier {
	return &modifier{log: logger}
}

func (mo *modifier) Modify(opts ModifyOptions) (*metainfo.Metainfo, string, error) {
	mo.log.Info("loading torrent", slog.String("path", opts.TorrentPath))
	m, err := metainfo.ReadFile(opts.TorrentPath)
	if err != nil {
		return nil, "", err
	}
	hashBefore := m.InfoHashHex()

	if opts.SetTrackers != nil {
		m.SetTrackers(opts.SetTrackers)
	}
	if len(opts.AddTrackers) > 0 {
		m.AddTrackers(opts.AddTrackers, true)
	}
	for _, u := range opts.RemoveTrackers {
		if err := m.RemoveTracker(u); err != nil && !errors.Is(err, metainfo.ErrNoChange) {
			return nil, "", err
		}
	}
	if opts.Comment != nil {
		m.SetComment(*opts.Comment)
	}
	if opts.CreatedBy != nil {
		m.SetCreatedBy(*opts.CreatedBy)
	}
	if opts.CreationDate != nil {
		m.SetCreationDate(*opts.CreationDate)
	}
	if opts.Encoding != nil {
		m.SetEncoding(*opts.Encoding)
	}
	if opts.Private != nil {
		m.SetPrivate(*opts.Private)
	}
	if opts.Source != nil {
		m.SetSource(*opts.Source)
	}

	if hashAfter := m.InfoHashHex(); hashAfter != hashBefore {
		mo.log.Warn("edit changed the infohash",
			slog.String("before", hashBefore),
			slog.String("after", hashAfter))
	}

	target := opts.OutputPath
	overwrite := opts.Overwrite
	if target == "" {
		target = opts.TorrentPath
		overwrite = true
	}
	written, err := metainfo.WriteFile(m, target, overwrite)
	if err != nil {
		return nil, "", err
	}
	mo.log.Info("torrent written", slog.String("path", written))
	return m, written, nil
}
