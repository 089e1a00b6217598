package rendering

// Content is a rendered, hostable unit of cell content.
//
// Content is built once by a content-producing function and may outlive the
// cell that first displayed it: under detached hosting it is parked in the
// expensive cache tier and reattached to whichever cell next shows the same
// item. Update rebinds it to the item's current value without rebuilding.
type Content interface {
	Update(value any)
}

// Disposer is implemented by content that holds resources which must be
// released when the content is discarded or evicted.
type Disposer interface {
	Dispose()
}

// Measurer is implemented by content that can report its natural size for a
// proposed size. A zero result means the content could not size itself.
type Measurer interface {
	Measure(proposal Size) Size
}

// SizeReportable is implemented by content whose size can change after it
// was bound, for example once an image finishes decoding. The reporter is
// only valid for the binding it was handed out for; late calls are dropped.
type SizeReportable interface {
	SetSizeReporter(report func(Size))
}

// EmptyContent renders nothing. It stands in for content that could not be
// produced.
type EmptyContent struct{}

// Update implements Content.
func (EmptyContent) Update(any) {}

// Measure implements Measurer.
func (EmptyContent) Measure(Size) Size { return Size{} }

// Dispose releases content if it implements Disposer.
func Dispose(content Content) {
	if d, ok := content.(Disposer); ok {
		d.Dispose()
	}
}
