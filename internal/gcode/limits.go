package gcode

// Default safety ceilings. The hosting application can override any of
// them through its configuration; they are not contracts of the engine.
const (
	DefaultMaxLoops       = 500
	DefaultMaxFiles       = 30
	DefaultMaxSweepBytes  = 64 * 1024
	DefaultMaxOutputBytes = 45 << 20
)

// Limit names carried by LimitExceededError.
const (
	LimitLoops       = "loops"
	LimitFiles       = "files"
	LimitOutputBytes = "output bytes"
)

// Limits holds the safety ceilings enforced around assembly: the request
// checks run before the (potentially expensive) assembly work, the output
// check is the final net against underestimated growth.
type Limits struct {
	MaxLoops       int
	MaxFiles       int
	MaxSweepBytes  int
	MaxOutputBytes int64
}

// DefaultLimits returns the built-in ceilings.
func DefaultLimits() Limits {
	return Limits{
		MaxLoops:       DefaultMaxLoops,
		MaxFiles:       DefaultMaxFiles,
		MaxSweepBytes:  DefaultMaxSweepBytes,
		MaxOutputBytes: DefaultMaxOutputBytes,
	}
}

// CheckRequest validates the configuration and input count against the
// ceilings before assembly. Each violated ceiling fails with an error
// naming the specific limit and both values; nothing is ever clamped.
func (l Limits) CheckRequest(opts Options, fileCount int) error {
	if opts.Loops > l.MaxLoops {
		return &LimitExceededError{
			Limit:  LimitLoops,
			Max:    int64(l.MaxLoops),
			Actual: int64(opts.Loops),
		}
	}
	if fileCount > l.MaxFiles {
		return &LimitExceededError{
			Limit:  LimitFiles,
			Max:    int64(l.MaxFiles),
			Actual: int64(fileCount),
		}
	}
	if len(opts.CustomSweep) > l.MaxSweepBytes {
		return &CustomSweepTooLargeError{
			Bytes: len(opts.CustomSweep),
			Max:   l.MaxSweepBytes,
		}
	}
	return nil
}

// CheckOutput validates the assembled script size after assembly.
func (l Limits) CheckOutput(size int64) error {
	if size > l.MaxOutputBytes {
		return &LimitExceededError{
			Limit:  LimitOutputBytes,
			Max:    l.MaxOutputBytes,
			Actual: size,
		}
	}
	return nil
}
