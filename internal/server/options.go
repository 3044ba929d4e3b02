package server

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/loopfarm/printloop/internal/gcode"
)

// parseOptions builds the assembly options from the request form fields.
// Wait fields are minutes, order entries are 1-based file positions.
// defaultSweep is the configured sweep override applied when the request
// carries no custom sweep of its own.
func parseOptions(form map[string][]string, defaultSweep string) (gcode.Options, error) {
	opts := gcode.DefaultOptions()
	var errs []error

	get := func(key string) string {
		vals := form[key]
		if len(vals) == 0 {
			return ""
		}
		return strings.TrimSpace(vals[0])
	}

	if v := get("loops"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: loops %q is not a number", gcode.ErrInvalidValue, v))
		} else {
			opts.Loops = n
		}
	}

	if v := get("order"); v != "" {
		order, err := parseOrder(v)
		if err != nil {
			errs = append(errs, err)
		} else {
			opts.Order = order
		}
	}

	if d, err := parseWaitMinutes("file_wait_min", get("file_wait_min")); err != nil {
		errs = append(errs, err)
	} else {
		opts.FileWait = d
	}
	if d, err := parseWaitMinutes("loop_wait_min", get("loop_wait_min")); err != nil {
		errs = append(errs, err)
	} else {
		opts.LoopWait = d
	}

	if b, err := parseFlag("sweep_between_files", get("sweep_between_files")); err != nil {
		errs = append(errs, err)
	} else {
		opts.SweepBetweenFiles = b
	}
	if b, err := parseFlag("sweep_between_loops", get("sweep_between_loops")); err != nil {
		errs = append(errs, err)
	} else {
		opts.SweepBetweenLoops = b
	}
	if b, err := parseFlag("skip_homing", get("skip_homing")); err != nil {
		errs = append(errs, err)
	} else {
		opts.SkipFinalHoming = b
	}

	opts.CustomSweep = get("custom_sweep")
	if opts.CustomSweep == "" {
		opts.CustomSweep = defaultSweep
	}

	return opts, errors.Join(errs...)
}

// parseOrder converts a comma-separated list of 1-based file positions to
// the engine's zero-based order.
func parseOrder(v string) ([]int, error) {
	parts := strings.Split(v, ",")
	order := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 1 {
			return nil, fmt.Errorf("%w: order entry %q, want a 1-based file position",
				gcode.ErrInvalidValue, strings.TrimSpace(part))
		}
		order = append(order, n-1)
	}
	return order, nil
}

func parseWaitMinutes(field, v string) (time.Duration, error) {
	if v == "" {
		return 0, nil
	}
	minutes, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a number", gcode.ErrInvalidValue, field, v)
	}
	return time.Duration(minutes * float64(time.Minute)), nil
}

func parseFlag(field, v string) (bool, error) {
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s %q is not a boolean", gcode.ErrInvalidValue, field, v)
	}
	return b, nil
}
