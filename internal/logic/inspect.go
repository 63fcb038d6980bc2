package logic

import (
	"strings"

	"torrkit/internal/metainfo"
)

// FileSummary is one content file for display.
type FileSummary struct {
	Path   string
	Length int64
}

// Summary is the read-only view of a torrent the print mode renders.
type Summary struct {
	Name         string
	InfoHash     string
	Magnet       string
	Comment      string
	CreatedBy    string
	CreationDate int64
	Encoding     string
	Private      bool
	Source       string
	PieceLength  int64
	PieceCount   int
	TotalLength  int64
	TorrentSize  int
	FileCount    int
	Trackers     []string
	Files        []FileSummary
	Problems     []string
}

// Summarize projects a model into display fields.
func Summarize(m *metainfo.Metainfo) Summary {
	s := Summary{
		Name:         m.Name(),
		InfoHash:     m.InfoHashHex(),
		Magnet:       m.Magnet(),
		Comment:      m.Comment(),
		CreatedBy:    m.CreatedBy(),
		CreationDate: m.CreationDate(),
		Encoding:     m.Encoding(),
		Private:      m.Private(),
		Source:       m.Source(),
		PieceLength:  m.PieceLength(),
		PieceCount:   m.PieceCount(),
		TotalLength:  m.TotalLength(),
		TorrentSize:  m.EncodedSize(),
		FileCount:    m.FileCount(),
		Trackers:     m.Trackers(),
	}
	for _, f := range m.FileList() {
		s.Files = append(s.Files, FileSummary{
			Path:   strings.Join(f.Path, "/"),
			Length: f.Length,
		})
	}
	s.Problems = m.Problems()
	return s
}
