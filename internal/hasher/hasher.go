// Package hasher turns a logical byte stream into the ordered sequence
// of 20-byte SHA1 piece digests a torrent stores. Each digest depends
// only on its own byte range, so pieces can be hashed sequentially or
// by a pool of workers with byte-identical results.
package hasher

import (
	"context"
	"crypto/sha1"
	"fmt"
	"io"
	"sync"
)

// Source is the logical byte stream to hash. *stream.Assembler
// satisfies it.
type Source interface {
	io.ReaderAt
	TotalLength() int64
}

// Progress is invoked after each completed piece.
type Progress func(done, total int)

// Options tunes a Hash run. The zero value hashes sequentially with no
// progress reporting.
type Options struct {
	// Workers above 1 enables the parallel pool.
	Workers int
	// Progress, when set, is called after every completed piece. Calls
	// may come from worker goroutines but never concurrently.
	Progress Progress
}

// NumPieces returns ceil(total/pieceLength).
func NumPieces(total, pieceLength int64) int {
	if total <= 0 || pieceLength <= 0 {
		return 0
	}
	return int((total + pieceLength - 1) / pieceLength)
}

// HashPiece reads and digests the single piece at index. The bytes of a
// piece straddling several files are read as one contiguous unit.
func HashPiece(src Source, pieceLength int64, index int) ([20]byte, error) {
	var digest [20]byte
	offset := int64(index) * pieceLength
	length := pieceLength
	if remaining := src.TotalLength() - offset; remaining < length {
		length = remaining
	}
	if length <= 0 {
		return digest, fmt.Errorf("hasher: piece %d is out of range", index)
	}
	h := sha1.New()
	n, err := io.Copy(h, io.NewSectionReader(src, offset, length))
	if err != nil {
		return digest, fmt.Errorf("hasher: piece %d: %w", index, err)
	}
	if n != length {
		return digest, fmt.Errorf("hasher: piece %d: short read %d of %d bytes: %w", index, n, length, io.ErrUnexpectedEOF)
	}
	copy(digest[:], h.Sum(nil))
	return digest, nil
}

// Hash digests the whole stream piece by piece. Content is streamed
// through the digest in fixed-size buffers, never held fully in memory.
// A read failure anywhere aborts with that error; ctx cancellation is
// checked between pieces and surfaces as ctx.Err() with no digests
// returned. A zero-length stream yields an empty, non-nil sequence.
func Hash(ctx context.Context, src Source, pieceLength int64, opts Options) ([][20]byte, error) {
	if pieceLength <= 0 {
		return nil, fmt.Errorf("hasher: invalid piece length %d", pieceLength)
	}
	total := NumPieces(src.TotalLength(), pieceLength)
	if total == 0 {
		return [][20]byte{}, nil
	}
	if opts.Workers > 1 {
		return hashParallel(ctx, src, pieceLength, total, opts)
	}
	return hashSequential(ctx, src, pieceLength, total, opts)
}

func hashSequential(ctx context.Context, src Source, pieceLength int64, total int, opts Options) ([][20]byte, error) {
	digests := make([][20]byte, total)
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		digest, err := HashPiece(src, pieceLength, i)
		if err != nil {
			return nil, err
		}
		digests[i] = digest
		if opts.Progress != nil {
			opts.Progress(i+1, total)
		}
	}
	return digests, nil
}

// hashParallel fans piece indexes out to a worker pool. Completion
// order does not matter; each digest lands in its slot by index.
func hashParallel(ctx context.Context, src Source, pieceLength int64, total int, opts Options) ([][20]byte, error) {
	digests := make([][20]byte, total)
	indexes := make(chan int)

	var mu sync.Mutex
	var firstErr error
	done := 0

	var wg sync.WaitGroup
	for w := 0; w < opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				mu.Lock()
				failed := firstErr != nil
				mu.Unlock()
				if failed {
					continue
				}
				digest, err := HashPiece(src, pieceLength, i)
				mu.Lock()
				if err != nil {
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					continue
				}
				digests[i] = digest
				done++
				if opts.Progress != nil {
					opts.Progress(done, total)
				}
				mu.Unlock()
			}
		}()
	}

feed:
	for i := 0; i < total; i++ {
		select {
		case indexes <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(indexes)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return digests, nil
}
