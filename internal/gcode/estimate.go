package gcode

import (
	"strconv"
	"strings"
	"time"
)

// SweepSecondsPerMove is the assumed average duration of one sweep move.
// The default sweep rakes a 220 mm bed at 6000 mm/min, so a pass is on the
// order of a second and a half.
const SweepSecondsPerMove = 1.5

// Estimate is a best-effort elapsed-runtime prediction for an assembled
// script. A file without a recognized slicer time comment makes the whole
// aggregate unknown; a silently under-counted estimate would be worse than
// an explicit "unknown", so there is no zero fallback.
type Estimate struct {
	PerLoopSeconds *float64
	TotalSeconds   *float64
	Unknown        bool
}

// EstimateRuntime predicts the elapsed runtime of Assemble's output for
// the same inputs, without constructing the script. The dwell and sweep
// accounting mirrors Assemble's insertion pattern:
//
//	perLoop = sum(file times) + (k-1)*fileWait + (k-1)*fileSweep
//	total   = perLoop*loops + (loops-1)*(loopWait + loopSweep)
//
// where the sweep terms apply only when the corresponding flag is set.
func EstimateRuntime(scripts []Segmented, opts Options) Estimate {
	if len(scripts) == 0 || opts.Loops < 1 {
		return Estimate{Unknown: true}
	}

	var fileSum float64
	for _, s := range scripts {
		secs, ok := FileTimeSeconds(s)
		if !ok {
			return Estimate{Unknown: true}
		}
		fileSum += secs
	}

	k := float64(len(scripts))
	loops := float64(opts.Loops)
	sweepSecs := float64(MotionLineCount(opts.SweepText())) * SweepSecondsPerMove

	perLoop := fileSum + (k-1)*dwellSeconds(opts.FileWait)
	if opts.SweepBetweenFiles {
		perLoop += (k - 1) * sweepSecs
	}

	betweenLoops := dwellSeconds(opts.LoopWait)
	if opts.SweepBetweenLoops {
		betweenLoops += sweepSecs
	}
	total := perLoop*loops + (loops-1)*betweenLoops

	return Estimate{
		PerLoopSeconds: &perLoop,
		TotalSeconds:   &total,
	}
}

// dwellSeconds is the wait a G4 dwell actually imposes. The assembler
// emits G4 with whole seconds and skips sub-second waits entirely, so the
// estimate counts the same truncated value.
func dwellSeconds(d time.Duration) float64 {
	secs := int(d.Seconds())
	if secs <= 0 {
		return 0
	}
	return float64(secs)
}

// FileTimeSeconds extracts the slicer's estimated print time from a
// script's header or footer comments. Three conventions are recognized:
//
//	;TIME:3720
//	;PRINT.TIME:3720
//	; estimated printing time (normal mode) = 1h 2m 3s
//
// Returns false when no convention matches.
func FileTimeSeconds(s Segmented) (float64, bool) {
	for _, section := range []string{s.Header, s.Footer} {
		for _, line := range strings.Split(section, "\n") {
			line = strings.TrimSuffix(line, "\r")
			if secs, ok := parseTimeComment(line); ok {
				return secs, true
			}
		}
	}
	return 0, false
}

func parseTimeComment(line string) (float64, bool) {
	if rest, ok := strings.CutPrefix(line, ";TIME:"); ok {
		return parseSeconds(rest)
	}
	if rest, ok := strings.CutPrefix(line, ";PRINT.TIME:"); ok {
		return parseSeconds(rest)
	}
	if strings.HasPrefix(line, ";") && strings.Contains(line, "estimated printing time") {
		_, rest, found := strings.Cut(line, "=")
		if !found {
			return 0, false
		}
		return parseClockedDuration(rest)
	}
	return 0, false
}

func parseSeconds(s string) (float64, bool) {
	secs, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || secs < 0 {
		return 0, false
	}
	return secs, true
}

// parseClockedDuration parses PrusaSlicer-style "1d 2h 3m 4s" fields.
func parseClockedDuration(s string) (float64, bool) {
	total := 0.0
	matched := false
	for _, field := range strings.Fields(s) {
		unit := field[len(field)-1]
		value, err := strconv.ParseFloat(field[:len(field)-1], 64)
		if err != nil {
			continue
		}
		switch unit {
		case 'd':
			total += value * 86400
		case 'h':
			total += value * 3600
		case 'm':
			total += value * 60
		case 's':
			total += value
		default:
			continue
		}
		matched = true
	}
	return total, matched
}
