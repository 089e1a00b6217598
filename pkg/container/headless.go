package container

import (
	"slices"

	"github.com/go-drift/listkit/pkg/rendering"
	"github.com/go-drift/listkit/pkg/reuse"
)

// Headless is a Surface without a display. It lays slots out from the
// container's estimates and sends the display callbacks a real surface
// would send as slots scroll in and out of the viewport.
type Headless struct {
	host      *Container
	viewport  rendering.Size
	offset    rendering.Offset
	displayed []reuse.Target

	reloads       int
	itemReloads   int
	invalidations int
}

// NewHeadless returns a headless surface with the given viewport.
func NewHeadless(viewport rendering.Size) *Headless {
	return &Headless{viewport: viewport}
}

// Attach connects the surface to the container it displays.
func (h *Headless) Attach(c *Container) {
	h.host = c
}

// ReloadData implements Surface.
func (h *Headless) ReloadData() {
	h.reloads++
	if h.host == nil {
		return
	}
	for _, target := range h.displayed {
		h.host.CellDidEndDisplaying(target)
	}
	h.displayed = nil
	h.Layout()
}

// ReloadItems implements Surface.
func (h *Headless) ReloadItems(targets []reuse.Target) {
	h.itemReloads += len(targets)
	if h.host == nil {
		return
	}
	for _, target := range targets {
		if h.isDisplayed(target) {
			h.host.SizeFor(target)
			h.host.ContentFor(target)
		}
	}
}

// InvalidateLayout implements Surface.
func (h *Headless) InvalidateLayout(targets []reuse.Target) {
	h.invalidations += len(targets)
	h.Layout()
}

// ViewportSize implements Surface.
func (h *Headless) ViewportSize() rendering.Size { return h.viewport }

// ContentOffset implements Surface.
func (h *Headless) ContentOffset() rendering.Offset { return h.offset }

// SetContentOffset implements Surface.
func (h *Headless) SetContentOffset(offset rendering.Offset) {
	h.offset = offset
	h.Layout()
}

// ScrollBy moves the viewport by dy, clamped to the content, and reports
// the new offset to the container.
func (h *Headless) ScrollBy(dy float64) {
	if h.host == nil {
		return
	}
	y := clampOffset(h.offset.Y+dy, h.host.ContentSize().Height, h.viewport.Height)
	h.SetContentOffset(rendering.Offset{X: h.offset.X, Y: y})
	h.host.ScrollOffsetChanged(h.offset)
}

// maxLayoutPasses bounds how often Layout repeats while measurements keep
// moving slots into the viewport.
const maxLayoutPasses = 64

// Layout brings the displayed slots in line with the visible range. Slots
// that left are ended before new slots are requested, so their cells can
// be rescued or reused. Measuring a new slot can change the range, so the
// pass repeats until it is stable.
func (h *Headless) Layout() {
	if h.host == nil {
		return
	}
	for range maxLayoutPasses {
		if !h.layoutPass() {
			return
		}
	}
}

func (h *Headless) layoutPass() bool {
	visible := h.host.VisibleRange()
	if slices.Equal(visible, h.displayed) {
		return false
	}
	keep := make(map[reuse.Target]struct{}, len(visible))
	for _, target := range visible {
		keep[target] = struct{}{}
	}
	for _, target := range h.displayed {
		if _, ok := keep[target]; !ok {
			h.host.CellDidEndDisplaying(target)
		}
	}
	for _, target := range visible {
		if h.isDisplayed(target) {
			continue
		}
		h.host.SizeFor(target)
		h.host.ContentFor(target)
		h.host.CellWillDisplay(target)
	}
	h.displayed = visible
	return true
}

// Displayed returns the slots currently on screen, top to bottom.
func (h *Headless) Displayed() []reuse.Target {
	return append([]reuse.Target(nil), h.displayed...)
}

// Reloads returns how many full reloads were requested.
func (h *Headless) Reloads() int { return h.reloads }

// ItemReloads returns how many slots were reloaded individually.
func (h *Headless) ItemReloads() int { return h.itemReloads }

// Invalidations returns how many slot invalidations were received.
func (h *Headless) Invalidations() int { return h.invalidations }

func (h *Headless) isDisplayed(target reuse.Target) bool {
	return slices.Contains(h.displayed, target)
}
