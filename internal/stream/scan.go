package stream

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoFiles reports a scan that found nothing to hash.
var ErrNoFiles = errors.New("stream: no files found")

// Scan resolves root into the ordered file list a torrent is built
// from. A regular file yields a single span with no relative path. A
// directory is walked depth first with entries in lexical byte order,
// so re-creating a torrent from the same tree is reproducible; every
// regular file is included, zero-length ones too.
func Scan(root string) (name string, spans []FileSpan, err error) {
	root = filepath.Clean(root)
	name = filepath.Base(root)

	info, err := os.Stat(root)
	if err != nil {
		return "", nil, fmt.Errorf("stream: scanning %q: %w", root, err)
	}
	if !info.IsDir() {
		if !info.Mode().IsRegular() {
			return "", nil, fmt.Errorf("stream: %q is not a regular file", root)
		}
		return name, []FileSpan{{Path: root, Length: info.Size()}}, nil
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		spans = append(spans, FileSpan{
			Path:    path,
			RelPath: strings.Split(filepath.ToSlash(rel), "/"),
			Length:  fi.Size(),
		})
		return nil
	})
	if err != nil {
		return "", nil, fmt.Errorf("stream: scanning %q: %w", root, err)
	}
	if len(spans) == 0 {
		return "", nil, ErrNoFiles
	}
	return name, spans, nil
}
