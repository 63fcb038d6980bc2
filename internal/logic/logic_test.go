package logic

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"torrkit/internal/metainfo"
	"torrkit/internal/verify"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for path, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(path))
		require.Nil(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.Nil(t, os.WriteFile(full, []byte(content), 0644))
	}
	return dir
}

func TestCreateThenCheckRoundTrip(t *testing.T) {
	src := writeTree(t, map[string]string{
		"docs/readme.txt": "read me first",
		"data/blob.bin":   string(bytes.Repeat([]byte{0xaa}, 3000)),
	})
	out := t.TempDir()

	m, written, err := NewCreator(discardLogger()).Create(context.Background(), CreateOptions{
		SourcePath:   src,
		OutputPath:   out,
		PieceLength:  1024,
		Trackers:     []string{"http://tracker.example.com/announce"},
		Comment:      "round trip",
		Private:      true,
		Source:       "UNIT",
		CreationDate: 1700000000,
	})
	require.Nil(t, err)
	assert.Equal(t, filepath.Join(out, filepath.Base(src)+".torrent"), written)
	assert.Equal(t, metainfo.DefaultCreatedBy, m.CreatedBy())
	assert.True(t, m.Private())
	assert.Equal(t, "UNIT", m.Source())
	assert.Empty(t, m.Problems())

	loaded, report, err := NewChecker(discardLogger()).Check(context.Background(), CheckOptions{
		TorrentPath: written,
		ContentPath: src,
	})
	require.Nil(t, err)
	assert.Equal(t, m.InfoHash(), loaded.InfoHash())
	assert.True(t, report.AllMatch())
}

func TestCreateSingleFileWithParallelHashing(t *testing.T) {
	src := writeTree(t, map[string]string{"sample.bin": string(bytes.Repeat([]byte{3}, 100000))})
	path := filepath.Join(src, "sample.bin")

	sequential, _, err := NewCreator(discardLogger()).Create(context.Background(), CreateOptions{
		SourcePath:  path,
		PieceLength: 4096,
		NoDate:      true,
	})
	require.Nil(t, err)

	parallel, _, err := NewCreator(discardLogger()).Create(context.Background(), CreateOptions{
		SourcePath:  path,
		PieceLength: 4096,
		NoDate:      true,
		Workers:     4,
	})
	require.Nil(t, err)

	assert.Equal(t, sequential.InfoHash(), parallel.InfoHash())
	assert.True(t, sequential.SingleFile())
	assert.Equal(t, metainfo.Write(sequential), metainfo.Write(parallel))
}

func TestCreateStampsAndSuppressions(t *testing.T) {
	src := writeTree(t, map[string]string{"a": "content"})

	m, _, err := NewCreator(discardLogger()).Create(context.Background(), CreateOptions{
		SourcePath:  src,
		PieceLength: 16384,
		NoDate:      true,
		NoCreator:   true,
	})
	require.Nil(t, err)
	assert.Equal(t, int64(0), m.CreationDate())
	assert.Equal(t, "", m.CreatedBy())

	m, _, err = NewCreator(discardLogger()).Create(context.Background(), CreateOptions{
		SourcePath:  src,
		PieceLength: 16384,
	})
	require.Nil(t, err)
	assert.NotZero(t, m.CreationDate())
	assert.Equal(t, metainfo.DefaultCreatedBy, m.CreatedBy())
	assert.Equal(t, metainfo.DefaultEncoding, m.Encoding())
}

func TestCancelledCreateWritesNothing(t *testing.T) {
	src := writeTree(t, map[string]string{"big.bin": string(bytes.Repeat([]byte{1}, 1<<16))})
	out := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := NewCreator(discardLogger()).Create(ctx, CreateOptions{
		SourcePath:  src,
		OutputPath:  out,
		PieceLength: 1024,
	})
	assert.ErrorIs(t, err, context.Canceled)

	entries, err := os.ReadDir(out)
	require.Nil(t, err)
	assert.Empty(t, entries, "a cancelled create must not write a torrent")
}

func TestCreateRefusesExistingOutput(t *testing.T) {
	src := writeTree(t, map[string]string{"a": "content"})
	out := filepath.Join(t.TempDir(), "existing.torrent")
	require.Nil(t, os.WriteFile(out, []byte("old"), 0644))

	_, _, err := NewCreator(discardLogger()).Create(context.Background(), CreateOptions{
		SourcePath:  src,
		OutputPath:  out,
		PieceLength: 16384,
	})
	assert.ErrorIs(t, err, os.ErrExist)

	_, written, err := NewCreator(discardLogger()).Create(context.Background(), CreateOptions{
		SourcePath:  src,
		OutputPath:  out,
		PieceLength: 16384,
		Overwrite:   true,
	})
	require.Nil(t, err)
	assert.Equal(t, out, written)
}

func TestModify(t *testing.T) {
	src := writeTree(t, map[string]string{"a": "content"})
	out := t.TempDir()
	m, written, err := NewCreator(discardLogger()).Create(context.Background(), CreateOptions{
		SourcePath:  src,
		OutputPath:  out,
		PieceLength: 16384,
		Trackers:    []string{"http://old.example/announce"},
		Comment:     "before",
	})
	require.Nil(t, err)
	hashBefore := m.InfoHash()

	comment := "after"
	edited, editedPath, err := NewModifier(discardLogger()).Modify(ModifyOptions{
		TorrentPath: written,
		SetTrackers: []string{"http://new.example/announce"},
		Comment:     &comment,
	})
	require.Nil(t, err)
	assert.Equal(t, written, editedPath)
	assert.Equal(t, "after", edited.Comment())
	assert.Equal(t, []string{"http://new.example/announce"}, edited.Trackers())
	assert.Equal(t, hashBefore, edited.InfoHash(), "non-info edits keep the infohash")

	reloaded, err := metainfo.ReadFile(written)
	require.Nil(t, err)
	assert.Equal(t, "after", reloaded.Comment())
}

func TestModifySourceChangesInfoHash(t *testing.T) {
	src := writeTree(t, map[string]string{"a": "content"})
	out := t.TempDir()
	m, written, err := NewCreator(discardLogger()).Create(context.Background(), CreateOptions{
		SourcePath:  src,
		OutputPath:  out,
		PieceLength: 16384,
	})
	require.Nil(t, err)

	source := "NEWTRACKER"
	edited, _, err := NewModifier(discardLogger()).Modify(ModifyOptions{
		TorrentPath: written,
		Source:      &source,
	})
	require.Nil(t, err)
	assert.NotEqual(t, m.InfoHash(), edited.InfoHash())
}

func TestCheckSurveysDamage(t *testing.T) {
	src := writeTree(t, map[string]string{
		"a": string(bytes.Repeat([]byte{1}, 2048)),
		"b": string(bytes.Repeat([]byte{2}, 2048)),
	})
	out := t.TempDir()
	_, written, err := NewCreator(discardLogger()).Create(context.Background(), CreateOptions{
		SourcePath:  src,
		OutputPath:  out,
		PieceLength: 1024,
	})
	require.Nil(t, err)
	require.Nil(t, os.Remove(filepath.Join(src, "b")))

	_, report, err := NewChecker(discardLogger()).Check(context.Background(), CheckOptions{
		TorrentPath: written,
		ContentPath: src,
	})
	require.Nil(t, err)
	assert.True(t, report.Complete)
	assert.False(t, report.AllMatch())
	assert.Equal(t, verify.FileVerified, report.Files[0].Status)
	assert.Equal(t, verify.FileAffected, report.Files[1].Status)
}

func TestSummarize(t *testing.T) {
	src := writeTree(t, map[string]string{
		"a.txt":     "AAAA",
		"sub/b.txt": "BBBBBB",
	})
	m, _, err := NewCreator(discardLogger()).Create(context.Background(), CreateOptions{
		SourcePath:   src,
		PieceLength:  16384,
		Trackers:     []string{"udp://tracker.example.com:80/announce"},
		Comment:      "summary test",
		CreationDate: 1700000000,
	})
	require.Nil(t, err)

	s := Summarize(m)
	assert.Equal(t, filepath.Base(src), s.Name)
	assert.Len(t, s.InfoHash, 40)
	assert.Contains(t, s.Magnet, "magnet:?xt=urn:btih:"+s.InfoHash)
	assert.Equal(t, "summary test", s.Comment)
	assert.Equal(t, int64(1700000000), s.CreationDate)
	assert.Equal(t, int64(10), s.TotalLength)
	assert.Equal(t, 1, s.PieceCount)
	assert.Equal(t, 2, s.FileCount)
	assert.Equal(t, []FileSummary{
		{Path: "a.txt", Length: 4},
		{Path: "sub/b.txt", Length: 6},
	}, s.Files)
	assert.Greater(t, s.TorrentSize, 0)
	assert.Empty(t, s.Problems)
}
