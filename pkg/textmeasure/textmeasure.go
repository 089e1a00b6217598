// Package textmeasure sizes plain text content for list cells.
//
// A Measurer wraps text on word boundaries to the proposed width using the
// advances of a font.Face, so text rows get a natural height without a
// native text stack:
//
//	m := textmeasure.New(nil) // basicfont.Face7x13
//	builders := reuse.Builders{Item: m.Build}
package textmeasure

import (
	"math"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/go-drift/listkit/pkg/rendering"
)

// Measurer measures text with a single font face. font.Face is not safe for
// concurrent use, so calls are serialized.
type Measurer struct {
	mu         sync.Mutex
	face       font.Face
	lineHeight float64
	space      fixed.Int26_6
}

// New returns a Measurer for face. A nil face uses basicfont.Face7x13.
func New(face font.Face) *Measurer {
	if face == nil {
		face = basicfont.Face7x13
	}
	m := &Measurer{face: face}
	m.lineHeight = toFloat(face.Metrics().Height)
	if adv, ok := face.GlyphAdvance(' '); ok {
		m.space = adv
	}
	return m
}

// LineHeight returns the height of one line of text.
func (m *Measurer) LineHeight() float64 {
	return m.lineHeight
}

// Lines breaks text into the lines it occupies at the given width. Explicit
// newlines always break. A word wider than the width gets a line of its
// own. A width of zero or less disables wrapping.
func (m *Measurer) Lines(text string, width float64) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines, _ := m.wrap(text, width)
	return lines
}

// Measure returns the natural size of text for the proposal. The width is
// that of the widest line and the height covers every line. Empty text
// measures to zero.
func (m *Measurer) Measure(text string, proposal rendering.Size) rendering.Size {
	if text == "" {
		return rendering.Size{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	lines, widest := m.wrap(text, proposal.Width)
	return rendering.Size{
		Width:  math.Ceil(toFloat(widest)),
		Height: float64(len(lines)) * m.lineHeight,
	}
}

func (m *Measurer) wrap(text string, width float64) ([]string, fixed.Int26_6) {
	limit := fixed.Int26_6(math.MaxInt32)
	if width > 0 {
		limit = fixed.Int26_6(width * 64)
	}
	var (
		lines  []string
		widest fixed.Int26_6
	)
	emit := func(line string, w fixed.Int26_6) {
		lines = append(lines, line)
		widest = max(widest, w)
	}
	for _, paragraph := range strings.Split(text, "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			emit("", 0)
			continue
		}
		var (
			line  strings.Builder
			lineW fixed.Int26_6
		)
		for _, word := range words {
			w := font.MeasureString(m.face, word)
			if line.Len() > 0 && lineW+m.space+w > limit {
				emit(line.String(), lineW)
				line.Reset()
				lineW = 0
			}
			if line.Len() > 0 {
				line.WriteByte(' ')
				lineW += m.space
			}
			line.WriteString(word)
			lineW += w
		}
		emit(line.String(), lineW)
	}
	return lines, widest
}

func toFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}

// Build is a content function producing TextContent. Strings and
// Stringers are rendered; other values render empty.
func (m *Measurer) Build(value any) rendering.Content {
	c := &TextContent{measurer: m}
	c.Update(value)
	return c
}

// TextContent is plain text content.
type TextContent struct {
	measurer *Measurer
	text     string
	disposed bool
}

// Text returns the bound text.
func (c *TextContent) Text() string {
	return c.text
}

// Disposed reports whether the content was discarded.
func (c *TextContent) Disposed() bool {
	return c.disposed
}

// Update implements rendering.Content.
func (c *TextContent) Update(value any) {
	switch v := value.(type) {
	case string:
		c.text = v
	case interface{ String() string }:
		c.text = v.String()
	default:
		c.text = ""
	}
}

// Measure implements rendering.Measurer.
func (c *TextContent) Measure(proposal rendering.Size) rendering.Size {
	return c.measurer.Measure(c.text, proposal)
}

// Dispose implements rendering.Disposer.
func (c *TextContent) Dispose() {
	c.disposed = true
}
