// Package stream presents an ordered list of files as one logical
// concatenated byte stream with random range reads, the layout piece
// hashing and verification both run over.
package stream

import (
	"fmt"
	"io"
	"os"
	"sort"
)

// FileSpan is one file of the stream: where it lives on disk, its path
// inside the torrent and how many bytes it contributes.
type FileSpan struct {
	Path    string
	RelPath []string
	Length  int64
}

// ReadError reports a failure scoped to one file of the stream, so a
// caller can attribute the gap to the byte range it backs.
type ReadError struct {
	Path   string
	Offset int64
	Err    error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("stream: reading %q at offset %d: %v", e.Path, e.Offset, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// Assembler maps stream offsets onto the underlying files. It holds no
// open handles; every ReadAt opens exactly the files its range covers
// and closes them before returning, which keeps concurrent readers
// coordination free.
type Assembler struct {
	spans  []FileSpan
	starts []int64
	total  int64
}

// NewAssembler builds an assembler over spans in order. Span order
// defines the byte stream; zero-length spans contribute nothing.
func NewAssembler(spans []FileSpan) *Assembler {
	a := &Assembler{
		spans:  make([]FileSpan, len(spans)),
		starts: make([]int64, len(spans)),
	}
	copy(a.spans, spans)
	for i, s := range spans {
		a.starts[i] = a.total
		a.total += s.Length
	}
	return a
}

// TotalLength returns the length of the logical stream.
func (a *Assembler) TotalLength() int64 { return a.total }

// Spans returns the underlying file spans in stream order.
func (a *Assembler) Spans() []FileSpan {
	out := make([]FileSpan, len(a.spans))
	copy(out, a.spans)
	return out
}

// FileOffset returns the stream offset at which span i starts.
func (a *Assembler) FileOffset(i int) int64 { return a.starts[i] }

// ReadAt implements io.ReaderAt over the logical stream. A range may
// straddle any number of files. A file that is missing, unreadable or
// shorter on disk than its recorded length yields a *ReadError carrying
// that file's path; bytes read before the failure are kept.
func (a *Assembler) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("stream: negative offset %d", off)
	}
	if off >= a.total {
		return 0, io.EOF
	}
	n := 0
	// First span whose end is past off.
	i := sort.Search(len(a.spans), func(i int) bool {
		return a.starts[i]+a.spans[i].Length > off
	})
	for n < len(p) && i < len(a.spans) {
		span := a.spans[i]
		if span.Length == 0 {
			i++
			continue
		}
		inner := off + int64(n) - a.starts[i]
		want := span.Length - inner
		if remaining := int64(len(p) - n); want > remaining {
			want = remaining
		}
		read, err := readFileRange(span.Path, p[n:n+int(want)], inner)
		n += read
		if err != nil {
			return n, &ReadError{Path: span.Path, Offset: inner, Err: err}
		}
		i++
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func readFileRange(path string, p []byte, off int64) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	n, err := io.ReadFull(io.NewSectionReader(f, off, int64(len(p))), p)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		// The on-disk file is shorter than the recorded span length.
		err = fmt.Errorf("file shorter than recorded length: %w", io.ErrUnexpectedEOF)
	}
	return n, err
}
