// Package gcode implements the toolpath segmentation and loop-assembly
// engine: splitting a sliced G-code script into header, print body, and
// footer, assembling a new script that repeats one or more bodies under a
// loop count with dwell and sweep insertions, estimating the elapsed
// runtime of the result, and enforcing safety ceilings on the request and
// the assembled output.
//
// Every operation in this package is a pure function over immutable value
// objects. Identical inputs always produce byte-identical output, and no
// state is shared between concurrent calls.
package gcode
