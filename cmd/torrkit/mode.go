package main

import (
	"errors"
	"fmt"
	"strings"
)

// Mode is the operation the invocation resolves to.
type Mode int

const (
	ModeCreate Mode = iota
	ModePrint
	ModeVerify
	ModeModify
)

func (m Mode) String() string {
	switch m {
	case ModeCreate:
		return "create"
	case ModePrint:
		return "print"
	case ModeVerify:
		return "verify"
	case ModeModify:
		return "modify"
	}
	return "unknown"
}

func parseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "create", "c":
		return ModeCreate, nil
	case "print", "p":
		return ModePrint, nil
	case "verify", "v", "check":
		return ModeVerify, nil
	case "modify", "m", "edit":
		return ModeModify, nil
	}
	return 0, fmt.Errorf("unknown mode %q", s)
}

// PathInfo classifies one positional argument. Torrent means the path
// carries a .torrent suffix, whether or not it exists yet.
type PathInfo struct {
	Path    string
	Exists  bool
	IsDir   bool
	Torrent bool
}

func (p PathInfo) content() bool { return p.Exists && !p.Torrent }

// Plan assigns a role to each positional path.
type Plan struct {
	Mode    Mode
	Source  string // content file or directory
	Torrent string // torrent file to load
	Output  string // destination for create and modify
}

var errAmbiguous = errors.New("cannot infer mode from the given paths, use -m")

// inferPlan maps path shapes to an operation. With an explicit mode the
// paths only need role assignment; without one, a single torrent prints,
// a single file or directory creates, a torrent next to existing content
// verifies, and content next to a not-yet-existing path creates into it.
func inferPlan(explicit string, paths []PathInfo) (Plan, error) {
	if explicit != "" {
		mode, err := parseMode(explicit)
		if err != nil {
			return Plan{}, err
		}
		return assignRoles(mode, paths)
	}

	switch len(paths) {
	case 1:
		p := paths[0]
		switch {
		case p.Torrent && p.Exists:
			return Plan{Mode: ModePrint, Torrent: p.Path}, nil
		case p.content():
			return Plan{Mode: ModeCreate, Source: p.Path}, nil
		}
		return Plan{}, fmt.Errorf("%s: no such file or directory", p.Path)
	case 2:
		a, b := paths[0], paths[1]
		switch {
		case a.content() && b.Torrent && b.Exists:
			return Plan{Mode: ModeVerify, Source: a.Path, Torrent: b.Path}, nil
		case a.Torrent && a.Exists && b.content():
			return Plan{Mode: ModeVerify, Source: b.Path, Torrent: a.Path}, nil
		case a.content() && b.Torrent:
			return Plan{Mode: ModeCreate, Source: a.Path, Output: b.Path}, nil
		case a.Torrent && b.content():
			return Plan{Mode: ModeCreate, Source: b.Path, Output: a.Path}, nil
		case a.content() && (b.IsDir || !b.Exists):
			return Plan{Mode: ModeCreate, Source: a.Path, Output: b.Path}, nil
		}
		return Plan{}, errAmbiguous
	}
	return Plan{}, errAmbiguous
}

func assignRoles(mode Mode, paths []PathInfo) (Plan, error) {
	plan := Plan{Mode: mode}
	switch mode {
	case ModePrint:
		if len(paths) != 1 {
			return Plan{}, errors.New("print takes exactly one torrent path")
		}
		plan.Torrent = paths[0].Path
	case ModeCreate:
		if len(paths) == 0 || len(paths) > 2 {
			return Plan{}, errors.New("create takes a source path and an optional output path")
		}
		plan.Source = paths[0].Path
		if len(paths) == 2 {
			plan.Output = paths[1].Path
		}
	case ModeVerify:
		if len(paths) != 2 {
			return Plan{}, errors.New("verify takes a torrent path and a content path")
		}
		// Torrent side is whichever path looks like one.
		if paths[0].Torrent && !paths[1].Torrent {
			plan.Torrent, plan.Source = paths[0].Path, paths[1].Path
		} else if paths[1].Torrent && !paths[0].Torrent {
			plan.Torrent, plan.Source = paths[1].Path, paths[0].Path
		} else {
			return Plan{}, errAmbiguous
		}
	case ModeModify:
		if len(paths) == 0 || len(paths) > 2 {
			return Plan{}, errors.New("modify takes a torrent path and an optional output path")
		}
		plan.Torrent = paths[0].Path
		if len(paths) == 2 {
			plan.Output = paths[1].Path
		}
	}
	return plan, nil
}
