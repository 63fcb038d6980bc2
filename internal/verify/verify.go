// Package verify recomputes piece digests from files on disk and
// compares them to the digests a torrent stores, reporting per-piece
// and per-file results. A piece overlapping two files damages both, so
// file-level status is derived from piece overlap, never per file in
// isolation.
package verify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"torrkit/internal/hasher"
	"torrkit/internal/metainfo"
	"torrkit/internal/stream"
)

// PieceStatus classifies one recomputed piece.
type PieceStatus uint8

const (
	// PieceMatch means the recomputed digest equals the stored one.
	PieceMatch PieceStatus = iota
	// PieceMismatch means the bytes were readable but hash differently.
	PieceMismatch
	// PieceUnreadable means some byte range backing the piece could not
	// be read, including missing files.
	PieceUnreadable
)

func (s PieceStatus) String() string {
	switch s {
	case PieceMatch:
		return "match"
	case PieceMismatch:
		return "mismatch"
	case PieceUnreadable:
		return "unreadable"
	}
	return "unknown"
}

// FileStatus classifies one file by the pieces overlapping its bytes.
type FileStatus uint8

const (
	// FileVerified means every overlapping piece matched.
	FileVerified FileStatus = iota
	// FileAffected means some overlapping piece mismatched or was
	// unreadable, even if the damaged byte belongs to a neighbour
	// sharing that piece.
	FileAffected
	// FileIncomplete means some overlapping piece was never checked
	// because the pass was cancelled.
	FileIncomplete
)

func (s FileStatus) String() string {
	switch s {
	case FileVerified:
		return "verified"
	case FileAffected:
		return "affected"
	case FileIncomplete:
		return "incomplete"
	}
	return "unknown"
}

// FileReport is the verdict for one content file.
type FileReport struct {
	Path       []string
	Length     int64
	Missing    bool
	FirstPiece int
	EndPiece   int
	Status     FileStatus
}

// Report is the outcome of a verification pass. Pieces holds the
// completed prefix only: on a cancelled pass it is shorter than Total
// and Complete is false.
type Report struct {
	Pieces   []PieceStatus
	Total    int
	Matched  int
	Complete bool
	Files    []FileReport
}

// Checked returns the number of pieces actually verified.
func (r Report) Checked() int { return len(r.Pieces) }

// AllMatch reports a fully completed pass with every piece matching.
func (r Report) AllMatch() bool { return r.Complete && r.Matched == r.Total }

// Verifier checks on-disk content against a torrent's stored digests.
type Verifier interface {
	// Verify runs the full pass. It never aborts on a missing or
	// damaged file; those become unreadable or mismatched pieces. On
	// ctx cancellation it returns the partial report together with
	// ctx.Err().
	Verify(ctx context.Context, m *metainfo.Metainfo, root string) (Report, error)
}

// Options tunes a verifier.
type Options struct {
	// Progress, when set, is called after every checked piece.
	Progress hasher.Progress
}

type verifier struct {
	opts Options
}

// NewVerifier returns a Verifier with the given options.
func NewVerifier(opts Options) Verifier {
	return &verifier{opts: opts}
}

func (v *verifier) Verify(ctx context.Context, m *metainfo.Metainfo, root string) (Report, error) {
	entries := m.FileList()
	if len(entries) == 0 {
		return Report{}, errors.New("verify: torrent has no files")
	}
	if m.PieceCount() != m.ExpectedPieceCount() {
		return Report{}, fmt.Errorf("verify: torrent stores %d piece digests, content requires %d",
			m.PieceCount(), m.ExpectedPieceCount())
	}

	rootInfo, err := os.Stat(root)
	if err != nil {
		return Report{}, fmt.Errorf("verify: %w", err)
	}

	// Missing files stay in the span list with their recorded lengths:
	// positions are preserved so piece alignment matches creation, and
	// the read failures become unreadable pieces.
	spans := make([]stream.FileSpan, len(entries))
	missing := make([]bool, len(entries))
	for i, entry := range entries {
		var path string
		if m.SingleFile() && !rootInfo.IsDir() {
			path = root
		} else {
			path = filepath.Join(root, filepath.Join(entry.Path...))
		}
		spans[i] = stream.FileSpan{Path: path, RelPath: entry.Path, Length: entry.Length}
		if st, err := os.Stat(path); err != nil || !st.Mode().IsRegular() {
			missing[i] = true
		}
	}

	report := Report{Total: m.PieceCount()}
	src := stream.NewAssembler(spans)
	pieceLength := m.PieceLength()
	cancelled := false
	for i := 0; i < report.Total; i++ {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		status := PieceMatch
		digest, err := hasher.HashPiece(src, pieceLength, i)
		switch {
		case err != nil:
			status = PieceUnreadable
		default:
			stored, _ := m.PieceHash(i)
			if digest != stored {
				status = PieceMismatch
			}
		}
		if status == PieceMatch {
			report.Matched++
		}
		report.Pieces = append(report.Pieces, status)
		if v.opts.Progress != nil {
			v.opts.Progress(i+1, report.Total)
		}
	}
	report.Complete = !cancelled

	report.Files = make([]FileReport, len(entries))
	for i, entry := range entries {
		first, end := m.PieceSpan(i)
		fr := FileReport{
			Path:       entry.Path,
			Length:     entry.Length,
			Missing:    missing[i],
			FirstPiece: first,
			EndPiece:   end,
		}
		fr.Status = fileStatus(report, fr)
		report.Files[i] = fr
	}

	if cancelled {
		return report, ctx.Err()
	}
	return report, nil
}

func fileStatus(report Report, fr FileReport) FileStatus {
	if fr.Missing {
		return FileAffected
	}
	incomplete := false
	for p := fr.FirstPiece; p < fr.EndPiece; p++ {
		if p >= report.Checked() {
			incomplete = true
			continue
		}
		if report.Pieces[p] != PieceMatch {
			return FileAffected
		}
	}
	if incomplete {
		return FileIncomplete
	}
	return FileVerified
}
