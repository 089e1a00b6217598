package testing

import (
	"fmt"

	"github.com/go-drift/listkit/pkg/rendering"
)

// Sized is a payload value with an explicit natural size.
type Sized struct {
	Width, Height float64
}

// RecordingContent is content that records what happened to it. It
// measures to its value: an int is a height at full proposal width, a
// Sized is used as is, anything else measures to zero.
type RecordingContent struct {
	ID       int
	Value    any
	Updates  int
	Measures int
	Disposed bool

	report func(rendering.Size)
}

// Update implements rendering.Content.
func (c *RecordingContent) Update(value any) {
	c.Value = value
	c.Updates++
}

// Dispose implements rendering.Disposer.
func (c *RecordingContent) Dispose() {
	c.Disposed = true
}

// Measure implements rendering.Measurer.
func (c *RecordingContent) Measure(proposal rendering.Size) rendering.Size {
	c.Measures++
	switch v := c.Value.(type) {
	case int:
		return rendering.Size{Width: proposal.Width, Height: float64(v)}
	case Sized:
		return rendering.Size{Width: v.Width, Height: v.Height}
	}
	return rendering.Size{}
}

// SetSizeReporter implements rendering.SizeReportable.
func (c *RecordingContent) SetSizeReporter(report func(rendering.Size)) {
	c.report = report
}

// ReportSize reports a new size through the reporter of the content's
// latest binding.
func (c *RecordingContent) ReportSize(size rendering.Size) {
	if c.report != nil {
		c.report(size)
	}
}

func (c *RecordingContent) String() string {
	return fmt.Sprintf("content#%d(%v)", c.ID, c.Value)
}

// Factory builds RecordingContent and keeps every instance it built.
type Factory struct {
	Built []*RecordingContent
}

// Build is a content-producing function.
func (f *Factory) Build(value any) rendering.Content {
	c := &RecordingContent{ID: len(f.Built) + 1, Value: value}
	f.Built = append(f.Built, c)
	return c
}

// Disposed returns how many built contents were disposed.
func (f *Factory) Disposed() int {
	n := 0
	for _, c := range f.Built {
		if c.Disposed {
			n++
		}
	}
	return n
}

// Measures returns the total number of measurements across all contents.
func (f *Factory) Measures() int {
	n := 0
	for _, c := range f.Built {
		n += c.Measures
	}
	return n
}
