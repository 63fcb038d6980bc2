package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"torrkit/internal/logic"
	"torrkit/internal/metainfo"
)

// Preset holds defaults applied before flag overrides. Nil fields are
// left at their flag or built-in values.
type Preset struct {
	Trackers     []string `json:"trackers"`
	Comment      *string  `json:"comment"`
	PieceSize    *int64   `json:"piece_size"`
	Private      *bool    `json:"private"`
	CreatedBy    *string  `json:"created_by"`
	CreationTime *int64   `json:"creation_time"`
	Source       *string  `json:"source"`
	Encoding     *string  `json:"encoding"`
}

// loadPreset reads defaults from a JSON file, or from a template
// .torrent. A template contributes trackers, comment, creator and
// encoding only; the creation date and the source tag stay untouched so
// the template cannot silently steer the new infohash or timestamps.
func loadPreset(path string) (Preset, error) {
	if strings.HasSuffix(path, ".torrent") {
		m, err := metainfo.ReadFile(path)
		if err != nil {
			return Preset{}, fmt.Errorf("reading preset torrent: %w", err)
		}
		p := Preset{Trackers: m.Trackers()}
		if c := m.Comment(); c != "" {
			p.Comment = &c
		}
		if by := m.CreatedBy(); by != "" {
			p.CreatedBy = &by
		}
		if enc := m.Encoding(); enc != "" {
			p.Encoding = &enc
		}
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Preset{}, err
	}
	var p Preset
	if err := json.Unmarshal(data, &p); err != nil {
		return Preset{}, fmt.Errorf("parsing preset %s: %w", path, err)
	}
	return p, nil
}

// apply copies preset fields into opts, skipping anything the user set
// explicitly on the command line.
func (p Preset) apply(opts *logic.CreateOptions, flagSet map[string]bool) {
	if len(p.Trackers) > 0 && !flagSet["t"] {
		opts.Trackers = p.Trackers
	}
	if p.Comment != nil && !flagSet["c"] {
		opts.Comment = *p.Comment
	}
	if p.PieceSize != nil && !flagSet["s"] {
		opts.PieceLength = *p.PieceSize
	}
	if p.Private != nil && !flagSet["p"] {
		opts.Private = *p.Private
	}
	if p.CreatedBy != nil && !flagSet["by"] {
		opts.CreatedBy = *p.CreatedBy
	}
	if p.CreationTime != nil && !flagSet["time"] {
		opts.CreationDate = *p.CreationTime
	}
	if p.Source != nil && !flagSet["source"] {
		opts.Source = *p.Source
	}
	if p.Encoding != nil && !flagSet["encoding"] {
		opts.Encoding = *p.Encoding
	}
}
