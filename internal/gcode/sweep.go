package gcode

import "strings"

// DefaultSweep is the built-in purge/wipe pattern inserted between prints.
// It lifts the nozzle, rakes the bed front-to-back in five passes, and
// flushes the planner queue on both sides.
const DefaultSweep = `; --- AUTO SWEEP START ---
M400
G91
G1 Z5 F2000
G90
G1 X0 Y220 F6000
G1 X0 Y0 F6000
G1 X55 Y220 F6000
G1 X55 Y0 F6000
G1 X110 Y220 F6000
G1 X110 Y0 F6000
G1 X165 Y220 F6000
G1 X165 Y0 F6000
G1 X220 Y220 F6000
G1 X220 Y0 F6000
M400
; --- AUTO SWEEP END ---
`

// motionCommands are the movement opcodes recognized by the sweep-time
// heuristic. A line counts as one move when it starts with one of these
// followed by a space.
var motionCommands = []string{"G0 ", "G1 ", "G2 ", "G3 ", "G28 "}

// MotionLineCount returns the number of movement-command lines in a sweep
// pattern. Used by the runtime estimator for default and custom sweeps
// alike.
func MotionLineCount(sweep string) int {
	count := 0
	for _, line := range strings.Split(sweep, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "G28" {
			count++
			continue
		}
		for _, cmd := range motionCommands {
			if strings.HasPrefix(line, cmd) {
				count++
				break
			}
		}
	}
	return count
}
