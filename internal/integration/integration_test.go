package integration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"torrkit/internal/logic"
	"torrkit/internal/metainfo"
	"torrkit/internal/verify"
)

type torrentRoundTrip struct {
	logger *slog.Logger

	workDir     string
	contentDir  string
	torrentPath string

	created *metainfo.Metainfo
	loaded  *metainfo.Metainfo
	report  verify.Report
	checked bool
}

func (tr *torrentRoundTrip) aContentDirectoryContaining(table *godog.Table) error {
	tr.contentDir = filepath.Join(tr.workDir, "content")
	for i, row := range table.Rows {
		if i == 0 {
			continue // header
		}
		rel := row.Cells[0].Value
		size, err := strconv.Atoi(row.Cells[1].Value)
		if err != nil {
			return fmt.Errorf("bad size %q: %w", row.Cells[1].Value, err)
		}
		full := filepath.Join(tr.contentDir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			return err
		}
		content := make([]byte, size)
		for j := range content {
			content[j] = byte(len(rel) + j)
		}
		if err := os.WriteFile(full, content, 0644); err != nil {
			return err
		}
	}
	return nil
}

func (tr *torrentRoundTrip) iCreateATorrentWithPieceSize(pieceSize int64) error {
	m, written, err := logic.NewCreator(tr.logger).Create(context.Background(), logic.CreateOptions{
		SourcePath:  tr.contentDir,
		OutputPath:  filepath.Join(tr.workDir, "content.torrent"),
		PieceLength: pieceSize,
		Trackers:    []string{"http://tracker.example.com/announce"},
	})
	if err != nil {
		return err
	}
	tr.created = m
	tr.torrentPath = written
	return nil
}

func (tr *torrentRoundTrip) iReadTheTorrentFileBack() error {
	m, err := metainfo.ReadFile(tr.torrentPath)
	if err != nil {
		return err
	}
	tr.loaded = m
	return nil
}

func (tr *torrentRoundTrip) theLoadedTorrentHasTheSameInfohash() error {
	if tr.loaded.InfoHash() != tr.created.InfoHash() {
		return fmt.Errorf("infohash changed across write and read: %s vs %s",
			tr.created.InfoHashHex(), tr.loaded.InfoHashHex())
	}
	return nil
}

func (tr *torrentRoundTrip) iFlipOneByteIn(rel string) error {
	full := filepath.Join(tr.contentDir, filepath.FromSlash(rel))
	content, err := os.ReadFile(full)
	if err != nil {
		return err
	}
	content[0] ^= 0xff
	return os.WriteFile(full, content, 0644)
}

func (tr *torrentRoundTrip) iDelete(rel string) error {
	return os.Remove(filepath.Join(tr.contentDir, filepath.FromSlash(rel)))
}

func (tr *torrentRoundTrip) runVerify() error {
	if tr.checked {
		return nil
	}
	_, report, err := logic.NewChecker(tr.logger).Check(context.Background(), logic.CheckOptions{
		TorrentPath: tr.torrentPath,
		ContentPath: tr.contentDir,
	})
	if err != nil {
		return err
	}
	tr.report = report
	tr.checked = true
	return nil
}

func (tr *torrentRoundTrip) verifyingReportsAllPiecesMatching() error {
	if err := tr.runVerify(); err != nil {
		return err
	}
	if !tr.report.AllMatch() {
		return fmt.Errorf("expected a clean pass, got %d/%d pieces matching",
			tr.report.Matched, tr.report.Total)
	}
	return nil
}

func (tr *torrentRoundTrip) verifyingReportsMismatchingPieces() error {
	if err := tr.runVerify(); err != nil {
		return err
	}
	if !tr.report.Complete {
		return errors.New("verification did not finish the pass")
	}
	if tr.report.AllMatch() {
		return errors.New("expected damage to be reported, got a clean pass")
	}
	return nil
}

func (tr *torrentRoundTrip) fileStatus(rel string) (verify.FileStatus, error) {
	// The report carries torrent-relative path segments.
	for _, f := range tr.report.Files {
		if strings.Join(f.Path, "/") == rel {
			return f.Status, nil
		}
	}
	return 0, fmt.Errorf("file %s not in the report", rel)
}

func (tr *torrentRoundTrip) theFileIsReportedAsAffected(rel string) error {
	if err := tr.runVerify(); err != nil {
		return err
	}
	status, err := tr.fileStatus(rel)
	if err != nil {
		return err
	}
	if status != verify.FileAffected {
		return fmt.Errorf("file %s reported %s, want affected", rel, status)
	}
	return nil
}

func (tr *torrentRoundTrip) theFileIsReportedAsVerified(rel string) error {
	if err := tr.runVerify(); err != nil {
		return err
	}
	status, err := tr.fileStatus(rel)
	if err != nil {
		return err
	}
	if status != verify.FileVerified {
		return fmt.Errorf("file %s reported %s, want verified", rel, status)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tr := &torrentRoundTrip{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		dir, err := os.MkdirTemp("", "torrkit-integration")
		if err != nil {
			return c, err
		}
		*tr = torrentRoundTrip{logger: tr.logger, workDir: dir}
		return c, nil
	})
	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		return c, os.RemoveAll(tr.workDir)
	})

	ctx.Step(`^a content directory containing:$`, tr.aContentDirectoryContaining)
	ctx.Step(`^I create a torrent with piece size (\d+)$`, tr.iCreateATorrentWithPieceSize)
	ctx.Step(`^I read the torrent file back$`, tr.iReadTheTorrentFileBack)
	ctx.Step(`^the loaded torrent has the same infohash$`, tr.theLoadedTorrentHasTheSameInfohash)
	ctx.Step(`^verifying the content reports all pieces matching$`, tr.verifyingReportsAllPiecesMatching)
	ctx.Step(`^verifying the content reports mismatching pieces$`, tr.verifyingReportsMismatchingPieces)
	ctx.Step(`^I flip one byte in "([^"]*)"$`, tr.iFlipOneByteIn)
	ctx.Step(`^I delete "([^"]*)"$`, tr.iDelete)
	ctx.Step(`^the file "([^"]*)" is reported as affected$`, tr.theFileIsReportedAsAffected)
	ctx.Step(`^the file "([^"]*)" is reported as verified$`, tr.theFileIsReportedAsVerified)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t, // Testing instance that will run subtests.
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
