// Command torrkit creates, prints, verifies and modifies .torrent
// files. The operation is inferred from the shape of the positional
// paths unless -m forces one.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"torrkit/internal/logic"
	"torrkit/internal/metainfo"
	"torrkit/internal/verify"
)

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func main() {
	var (
		mode        string
		trackers    stringList
		addTrackers stringList
		rmTrackers  stringList
		comment     string
		name        string
		pieceKiB    int64
		private     bool
		createdBy   string
		creation    int64
		encoding    string
		source      string
		preset      string
		workers     int
		noProgress  bool
		noDate      bool
		noCreator   bool
		timeSuffix  bool
		yes         bool
		verbose     bool
	)

	flag.StringVar(&mode, "m", "", "force mode: create, print, verify or modify")
	flag.Var(&trackers, "t", "tracker announce URL, repeatable")
	flag.Var(&addTrackers, "add-tracker", "tracker URL to add when modifying, repeatable")
	flag.Var(&rmTrackers, "rm-tracker", "tracker URL to remove when modifying, repeatable")
	flag.StringVar(&comment, "c", "", "torrent comment")
	flag.StringVar(&name, "n", "", "override the torrent name")
	flag.Int64Var(&pieceKiB, "s", 0, "piece size in KiB, must be a power of two")
	flag.BoolVar(&private, "p", false, "mark the torrent private")
	flag.StringVar(&createdBy, "by", "", "creator string")
	flag.Int64Var(&creation, "time", 0, "creation time as a unix timestamp")
	flag.StringVar(&encoding, "encoding", "", "encoding field")
	flag.StringVar(&source, "source", "", "source tag, changes the infohash")
	flag.StringVar(&preset, "preset", "", "JSON preset file or template .torrent")
	flag.IntVar(&workers, "w", 0, "hashing workers, 0 means sequential")
	flag.BoolVar(&noProgress, "no-progress", false, "disable the progress bar")
	flag.BoolVar(&noDate, "no-date", false, "omit the creation date")
	flag.BoolVar(&noCreator, "no-creator", false, "omit the created by field")
	flag.BoolVar(&timeSuffix, "time-suffix", false, "append a timestamp to the output file name")
	flag.BoolVar(&yes, "y", false, "answer yes to all prompts")
	flag.BoolVar(&verbose, "v", false, "verbose logging")
	flag.Parse()

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	flagSet := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { flagSet[f.Name] = true })

	paths := make([]PathInfo, flag.NArg())
	for i, arg := range flag.Args() {
		paths[i] = classifyPath(arg)
	}
	plan, err := inferPlan(mode, paths)
	if err != nil {
		fatal(logger, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch plan.Mode {
	case ModeCreate:
		opts := logic.CreateOptions{
			SourcePath:   plan.Source,
			Name:         name,
			Trackers:     trackers,
			Comment:      comment,
			PieceLength:  pieceKiB * 1024,
			Private:      private,
			Source:       source,
			CreatedBy:    createdBy,
			CreationDate: creation,
			Encoding:     encoding,
			NoDate:       noDate,
			NoCreator:    noCreator,
			Workers:      workers,
			ShowProgress: !noProgress,
		}
		if preset != "" {
			p, err := loadPreset(preset)
			if err != nil {
				fatal(logger, err)
			}
			p.apply(&opts, flagSet)
		}
		err = runCreate(ctx, logger, opts, plan.Output, timeSuffix, yes)
	case ModePrint:
		err = runPrint(logger, plan.Torrent)
	case ModeVerify:
		err = runVerify(ctx, logger, plan.Torrent, plan.Source, !noProgress)
	case ModeModify:
		err = runModify(logger, modifyOptions(plan, trackers, addTrackers, rmTrackers,
			comment, createdBy, creation, encoding, source, private, flagSet, yes))
	}
	if err != nil {
		fatal(logger, err)
	}
}

func fatal(logger *slog.Logger, err error) {
	logger.Error("failed", slog.Any("error", err))
	fmt.Fprintln(os.Stderr, "torrkit:", err)
	os.Exit(1)
}

func classifyPath(path string) PathInfo {
	info := PathInfo{Path: path, Torrent: strings.HasSuffix(path, ".torrent")}
	if st, err := os.Stat(path); err == nil {
		info.Exists = true
		info.IsDir = st.IsDir()
	}
	return info
}

func runCreate(ctx context.Context, logger *slog.Logger, opts logic.CreateOptions, output string, timeSuffix, yes bool) error {
	if opts.PieceLength != 0 && metainfo.UncommonPieceLength(opts.PieceLength) {
		fmt.Fprintf(os.Stderr, "piece size %d bytes is outside the common range\n", opts.PieceLength)
		if !confirm("continue anyway?", yes) {
			return errors.New("aborted")
		}
	}

	torrentName := opts.Name
	if torrentName == "" {
		torrentName = filepath.Base(filepath.Clean(opts.SourcePath))
	}
	target, err := resolveOutput(output, torrentName, timeSuffix)
	if err != nil {
		return err
	}
	if _, err := os.Stat(target); err == nil {
		fmt.Fprintf(os.Stderr, "%s already exists\n", target)
		if !confirm("overwrite?", yes) {
			return errors.New("aborted")
		}
		opts.Overwrite = true
	}
	opts.OutputPath = target

	m, written, err := logic.NewCreator(logger).Create(ctx, opts)
	if err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", written)
	fmt.Printf("infohash %s\n", m.InfoHashHex())
	return nil
}

// resolveOutput turns the output argument into a concrete file path.
// Empty means <name>.torrent in the working directory; a directory gets
// the same file name appended.
func resolveOutput(output, name string, timeSuffix bool) (string, error) {
	target := output
	switch {
	case target == "":
		target = name + ".torrent"
	default:
		if st, err := os.Stat(target); err == nil && st.IsDir() {
			target = filepath.Join(target, name+".torrent")
		}
	}
	if timeSuffix {
		stem := strings.TrimSuffix(target, ".torrent")
		target = stem + "." + time.Now().Format("2006-01-02_15-04-05") + ".torrent"
	}
	if !strings.HasSuffix(target, ".torrent") {
		target += ".torrent"
	}
	return target, nil
}

func confirm(question string, yes bool) bool {
	if yes {
		return true
	}
	fmt.Fprintf(os.Stderr, "%s [y/N] ", question)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func runPrint(logger *slog.Logger, torrentPath string) error {
	m, err := metainfo.ReadFile(torrentPath)
	if err != nil {
		return err
	}
	printSummary(logic.Summarize(m))
	return nil
}

func printSummary(s logic.Summary) {
	fmt.Printf("Name         %s\n", s.Name)
	fmt.Printf("Info Hash    %s\n", s.InfoHash)
	fmt.Printf("Size         %d bytes in %d file(s)\n", s.TotalLength, s.FileCount)
	fmt.Printf("Piece Size   %d bytes\n", s.PieceLength)
	fmt.Printf("Pieces       %d\n", s.PieceCount)
	fmt.Printf("Torrent Size %d bytes\n", s.TorrentSize)
	if s.Private {
		fmt.Println("Private      yes")
	}
	if s.Source != "" {
		fmt.Printf("Source       %s\n", s.Source)
	}
	if s.Comment != "" {
		fmt.Printf("Comment      %s\n", s.Comment)
	}
	if s.CreatedBy != "" {
		fmt.Printf("Created By   %s\n", s.CreatedBy)
	}
	if s.CreationDate != 0 {
		fmt.Printf("Created      %s\n", time.Unix(s.CreationDate, 0).UTC().Format(time.RFC3339))
	}
	if s.Encoding != "" {
		fmt.Printf("Encoding     %s\n", s.Encoding)
	}
	for i, tr := range s.Trackers {
		if i == 0 {
			fmt.Printf("Trackers     %s\n", tr)
		} else {
			fmt.Printf("             %s\n", tr)
		}
	}
	fmt.Println("Files")
	for _, f := range s.Files {
		fmt.Printf("  %12d  %s\n", f.Length, f.Path)
	}
	fmt.Printf("Magnet       %s\n", s.Magnet)
	for _, p := range s.Problems {
		fmt.Fprintf(os.Stderr, "warning: %s\n", p)
	}
}

// fileLine renders one file verdict. Path segments are joined with "/"
// regardless of platform, matching how the torrent stores them.
func fileLine(f verify.FileReport) string {
	marker := "ok"
	switch f.Status {
	case verify.FileAffected:
		marker = "FAILED"
	case verify.FileIncomplete:
		marker = "unchecked"
	}
	missing := ""
	if f.Missing {
		missing = " (missing)"
	}
	return fmt.Sprintf("%-9s %s%s", marker, strings.Join(f.Path, "/"), missing)
}

func runVerify(ctx context.Context, logger *slog.Logger, torrentPath, contentPath string, showProgress bool) error {
	m, report, err := logic.NewChecker(logger).Check(ctx, logic.CheckOptions{
		TorrentPath:  torrentPath,
		ContentPath:  contentPath,
		ShowProgress: showProgress,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	for _, f := range report.Files {
		fmt.Println(fileLine(f))
	}
	fmt.Printf("%d/%d pieces match", report.Matched, report.Total)
	if !report.Complete {
		fmt.Printf(" (%d checked before cancellation)", report.Checked())
	}
	fmt.Println()

	if errors.Is(err, context.Canceled) {
		return err
	}
	if !report.AllMatch() {
		return fmt.Errorf("%s does not match %s", contentPath, m.Name())
	}
	fmt.Println("content verified")
	return nil
}

func modifyOptions(plan Plan, setTrackers, addTrackers, rmTrackers stringList,
	comment, createdBy string, creation int64, encoding, source string,
	private bool, flagSet map[string]bool, yes bool) logic.ModifyOptions {

	opts := logic.ModifyOptions{
		TorrentPath:    plan.Torrent,
		OutputPath:     plan.Output,
		AddTrackers:    addTrackers,
		RemoveTrackers: rmTrackers,
		Overwrite:      yes,
	}
	if flagSet["t"] {
		opts.SetTrackers = setTrackers
	}
	if flagSet["c"] {
		opts.Comment = &comment
	}
	if flagSet["by"] {
		opts.CreatedBy = &createdBy
	}
	if flagSet["time"] {
		opts.CreationDate = &creation
	}
	if flagSet["encoding"] {
		opts.Encoding = &encoding
	}
	if flagSet["source"] {
		opts.Source = &source
	}
	if flagSet["p"] {
		opts.Private = &private
	}
	return opts
}

func runModify(logger *slog.Logger, opts logic.ModifyOptions) error {
	m, written, err := logic.NewModifier(logger).Modify(opts)
	if err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", written)
	fmt.Printf("infohash %s\n", m.InfoHashHex())
	return nil
}
