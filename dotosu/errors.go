package dotosu

import "fmt"

// ChartLoadError is returned when the chart file cannot be opened or read.
type ChartLoadError struct {
	Path string
	Err  error
}

func (e *ChartLoadError) Error() string {
	return fmt.Sprintf("could not open chart %q: %v", e.Path, e.Err)
}

func (e *ChartLoadError) Unwrap() error { return e.Err }

// ChartParseError is returned when the content is not a valid .osu chart.
// Line is 0 when the failure is not tied to a single line.
type ChartParseError struct {
	Path string
	Line int
	Err  error
}

func (e *ChartParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("error while parsing chart %q at line %d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("error while parsing chart %q: %v", e.Path, e.Err)
}

func (e *ChartParseError) Unwrap() error { return e.Err }
