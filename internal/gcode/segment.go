package gcode

import "strings"

// Body boundary markers, in priority order. These are the comment and
// command lines the common slicers emit at the end of the preamble and at
// the start of the cooldown sequence. Matching is case-sensitive and
// anchored to line starts.
var (
	startMarkers = []string{
		";LAYER:0",
		"; layer 0",
		";TYPE:WALL-OUTER",
		"G1 Z0.3",
		"; retract extruder",
	}

	endMarkers = []string{
		";END gcode",
		";End of Gcode",
		";end of print",
		"M104 S0",
		"M140 S0",
	}
)

const (
	// MinBodyBytes is the smallest print body accepted by Segment. Anything
	// shorter is treated as a marker false-positive.
	MinBodyBytes = 100

	// excerptLines bounds the diagnostic excerpt carried by StructureError.
	excerptLines = 20
	excerptBytes = 1024
)

// Segmented holds the three sections of a toolpath script. Rejoining
// Header+Body+Footer reproduces every motion line of the original exactly
// once, in the original order.
type Segmented struct {
	Source string
	Header string
	Body   string
	Footer string
}

// Segment splits a raw toolpath script into header, print body, and
// footer. The header runs through the body-start marker line inclusive, so
// it can be reused verbatim as the single preamble of an assembled script.
// The footer starts at the body-end marker line.
//
// Returns a *StructureError when either marker is absent and a
// *TooShortError when the body falls below MinBodyBytes.
func Segment(source, raw string) (Segmented, error) {
	starts := lineOffsets(raw)

	startLine := findFirst(raw, starts, startMarkers)
	if startLine < 0 {
		return Segmented{}, &StructureError{
			Source:  source,
			Missing: "body-start marker",
			Excerpt: excerpt(raw),
		}
	}

	endLine := findLast(raw, starts, endMarkers)
	if endLine < 0 || endLine <= startLine {
		return Segmented{}, &StructureError{
			Source:  source,
			Missing: "body-end marker",
			Excerpt: excerpt(raw),
		}
	}

	bodyStart := len(raw)
	if startLine+1 < len(starts) {
		bodyStart = starts[startLine+1]
	}
	bodyEnd := starts[endLine]

	seg := Segmented{
		Source: source,
		Header: raw[:bodyStart],
		Body:   raw[bodyStart:bodyEnd],
		Footer: raw[bodyEnd:],
	}

	if len(seg.Body) < MinBodyBytes {
		return Segmented{}, &TooShortError{
			Source:    source,
			BodyBytes: len(seg.Body),
			MinBytes:  MinBodyBytes,
		}
	}
	return seg, nil
}

// lineOffsets returns the byte offset of every line start in raw. Works
// for both LF and CRLF input because lines are addressed by their start.
func lineOffsets(raw string) []int {
	offsets := []int{0}
	for i := 0; i < len(raw); i++ {
		if raw[i] == '\n' && i+1 < len(raw) {
			offsets = append(offsets, i+1)
		}
	}
	return offsets
}

// lineAt returns the line beginning at starts[n], without its terminator.
func lineAt(raw string, starts []int, n int) string {
	end := len(raw)
	if n+1 < len(starts) {
		end = starts[n+1] - 1 // strip the \n
	}
	line := raw[starts[n]:end]
	return strings.TrimSuffix(line, "\r")
}

// findFirst scans top-down for the first line matching any marker. Markers
// are tried in priority order: the first marker present anywhere in the
// script wins, matching the slicer conventions most specific first.
func findFirst(raw string, starts []int, markers []string) int {
	for _, marker := range markers {
		for n := range starts {
			if strings.HasPrefix(lineAt(raw, starts, n), marker) {
				return n
			}
		}
	}
	return -1
}

// findLast scans bottom-up for the last line matching any marker, again in
// marker priority order.
func findLast(raw string, starts []int, markers []string) int {
	for _, marker := range markers {
		for n := len(starts) - 1; n >= 0; n-- {
			if strings.HasPrefix(lineAt(raw, starts, n), marker) {
				return n
			}
		}
	}
	return -1
}

// excerpt returns a bounded prefix of raw for structure diagnostics.
func excerpt(raw string) string {
	out := raw
	if idx := nthLineEnd(raw, excerptLines); idx >= 0 {
		out = raw[:idx]
	}
	if len(out) > excerptBytes {
		out = out[:excerptBytes]
	}
	return out
}

func nthLineEnd(raw string, n int) int {
	count := 0
	for i := 0; i < len(raw); i++ {
		if raw[i] == '\n' {
			count++
			if count == n {
				return i
			}
		}
	}
	return -1
}
