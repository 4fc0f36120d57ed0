/* ptp-usb-bridge - WebSocket bridge to a USB-attached Sony PTP camera
 *
 * Camera-model-specific quirks
 */

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/ini.v1"
)

// Quirk names: the keys read inside each section of a quirks file,
// whose section header is a glob pattern on the camera's product name.
const (
	QuirkNmInitDelay    = "init-delay"
	QuirkNmInitReset    = "init-reset"
	QuirkNmLiveViewPoll = "liveview-poll-interval"
)

// QuirkResetMethod selects the recovery action Session.Open applies
// to a camera right after opening its Transport, before the first
// transaction.
type QuirkResetMethod int

const (
	QuirkResetNone QuirkResetMethod = iota
	QuirkResetSoft                  // clear_halt only
	QuirkResetHard                  // full USB device reset
)

func (m QuirkResetMethod) String() string {
	switch m {
	case QuirkResetNone:
		return "none"
	case QuirkResetSoft:
		return "soft"
	case QuirkResetHard:
		return "hard"
	}
	return "unknown"
}

// CameraQuirks is the effective set of quirks that apply to one
// camera model, selected by matching its product name against every
// quirks file section's glob pattern and keeping the most specific
// match per quirk name (spec.md supplement: the FX30 needs a longer
// post-open settle delay than other bodies before auth succeeds).
type CameraQuirks struct {
	InitDelay    time.Duration
	InitReset    QuirkResetMethod
	LiveViewPoll time.Duration
}

// DefaultCameraQuirks is applied when no quirks file entry matches.
var DefaultCameraQuirks = CameraQuirks{
	InitDelay:    0,
	InitReset:    QuirkResetNone,
	LiveViewPoll: 200 * time.Millisecond,
}

// quirkEntry is one parsed `[pattern]` section of a quirks file.
type quirkEntry struct {
	pattern      string
	initDelay    *time.Duration
	initReset    *QuirkResetMethod
	liveViewPoll *time.Duration
}

// QuirksSet is the in-memory database of quirk entries loaded from
// disk, ordered by load order for tie-breaking.
type QuirksSet struct {
	entries []quirkEntry
}

// LoadQuirksSet loads every *.conf file in each directory (later
// directories' entries override earlier ones' on an exact-weight
// tie, matching the teacher's site-overrides-builtin precedence).
func LoadQuirksSet(dirs ...string) (QuirksSet, error) {
	var qs QuirksSet

	for _, dir := range dirs {
		files, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return qs, err
		}

		sort.Slice(files, func(i, j int) bool { return files[i].Name() < files[j].Name() })

		for _, f := range files {
			if f.IsDir() || !strings.HasSuffix(f.Name(), ".conf") {
				continue
			}
			if err := qs.readFile(filepath.Join(dir, f.Name())); err != nil {
				return qs, err
			}
		}
	}

	return qs, nil
}

func (qs *QuirksSet) readFile(path string) error {
	file, err := ini.Load(path)
	if err != nil {
		return fmt.Errorf("%s: %s", path, err)
	}

	for _, sec := range file.Sections() {
		if sec.Name() == ini.DefaultSection {
			continue
		}

		entry := quirkEntry{pattern: sec.Name()}

		if k := sec.Key(QuirkNmInitDelay); k.String() != "" {
			d, err := parseQuirkDuration(k.String())
			if err != nil {
				return fmt.Errorf("%s: %s: %s", path, QuirkNmInitDelay, err)
			}
			entry.initDelay = &d
		}

		if k := sec.Key(QuirkNmInitReset); k.String() != "" {
			m, err := parseQuirkResetMethod(k.String())
			if err != nil {
				return fmt.Errorf("%s: %s: %s", path, QuirkNmInitReset, err)
			}
			entry.initReset = &m
		}

		if k := sec.Key(QuirkNmLiveViewPoll); k.String() != "" {
			d, err := parseQuirkDuration(k.String())
			if err != nil {
				return fmt.Errorf("%s: %s: %s", path, QuirkNmLiveViewPoll, err)
			}
			entry.liveViewPoll = &d
		}

		qs.entries = append(qs.entries, entry)
	}

	return nil
}

func parseQuirkDuration(s string) (time.Duration, error) {
	if ms, err := strconv.ParseUint(s, 10, 32); err == nil {
		return time.Millisecond * time.Duration(ms), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%q: invalid duration", s)
	}
	return d, nil
}

func parseQuirkResetMethod(s string) (QuirkResetMethod, error) {
	switch s {
	case "none":
		return QuirkResetNone, nil
	case "soft":
		return QuirkResetSoft, nil
	case "hard":
		return QuirkResetHard, nil
	default:
		return 0, fmt.Errorf("%q: must be none, soft or hard", s)
	}
}

// For builds CameraQuirks for the given product name: every quirks
// file section whose glob pattern matches contributes its set keys,
// with the most specific match (longest literal match count, per
// GlobMatch) winning on conflict, and the default section ("*")
// least specific of all.
func (qs QuirksSet) For(productName string) CameraQuirks {
	result := DefaultCameraQuirks

	bestInitDelay, bestInitReset, bestLiveView := -1, -1, -1

	for _, e := range qs.entries {
		weight := GlobMatch(productName, e.pattern)
		if weight < 0 {
			continue
		}

		if e.initDelay != nil && weight >= bestInitDelay {
			result.InitDelay = *e.initDelay
			bestInitDelay = weight
		}
		if e.initReset != nil && weight >= bestInitReset {
			result.InitReset = *e.initReset
			bestInitReset = weight
		}
		if e.liveViewPoll != nil && weight >= bestLiveView {
			result.LiveViewPoll = *e.liveViewPoll
			bestLiveView = weight
		}
	}

	return result
}
