// Package prefs defines the preferences recognized by the list engine and
// loads them from YAML.
//
// A preferences file looks like:
//
//	sizing: fixed
//	item_size: {width: 320, height: 44}
//	hosting: detachedOnReuse
//	expensive_cache_capacity: 128
//
// Custom sizing functions cannot be expressed in YAML; set them in code
// with CustomSizing.
package prefs

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/go-drift/listkit/pkg/collection"
	"github.com/go-drift/listkit/pkg/errors"
	"github.com/go-drift/listkit/pkg/rendering"
)

// SizingKind selects how item sizes are resolved.
type SizingKind int

const (
	// SizingAuto measures items and caches the result.
	SizingAuto SizingKind = iota
	// SizingFixed gives every item the same size.
	SizingFixed
	// SizingCustom asks a function for the size at each position.
	SizingCustom
)

func (k SizingKind) String() string {
	switch k {
	case SizingFixed:
		return "fixed"
	case SizingCustom:
		return "custom"
	default:
		return "auto"
	}
}

// SizingMode is auto | fixed(width, height) | custom(position -> size).
type SizingMode struct {
	Kind   SizingKind
	Fixed  rendering.Size
	Custom func(collection.Position) rendering.Size
}

// AutoSizing measures every item.
func AutoSizing() SizingMode {
	return SizingMode{Kind: SizingAuto}
}

// FixedSizing gives every item the same size.
func FixedSizing(width, height float64) SizingMode {
	return SizingMode{Kind: SizingFixed, Fixed: rendering.Size{Width: width, Height: height}}
}

// CustomSizing resolves item sizes through fn.
func CustomSizing(fn func(collection.Position) rendering.Size) SizingMode {
	return SizingMode{Kind: SizingCustom, Custom: fn}
}

// HostingMode selects what happens to content when its cell is reused.
type HostingMode int

const (
	// HostingAutoLayout discards content when its cell is recycled.
	HostingAutoLayout HostingMode = iota
	// HostingDetachedOnReuse detaches content and parks it in the expensive
	// cache tier so it can be reattached when the item scrolls back in.
	HostingDetachedOnReuse
)

func (m HostingMode) String() string {
	if m == HostingDetachedOnReuse {
		return "detachedOnReuse"
	}
	return "autoLayout"
}

// UnmarshalYAML accepts "autoLayout" or "detachedOnReuse" (case-insensitive).
func (m *HostingMode) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "autolayout", "auto_layout":
		*m = HostingAutoLayout
	case "detachedonreuse", "detached_on_reuse", "detached":
		*m = HostingDetachedOnReuse
	default:
		return fmt.Errorf("%w: unknown hosting mode %q", errors.ErrInvalidConfig, s)
	}
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (m HostingMode) MarshalYAML() (any, error) {
	return m.String(), nil
}

// Preferences configure a coordinator.
type Preferences struct {
	Sizing  SizingMode
	Hosting HostingMode
	// ExpensiveCacheCapacity bounds the expensive cache tier by entry count.
	ExpensiveCacheCapacity int
	// MaxPooledCells bounds the number of free cells kept for reuse.
	MaxPooledCells int
	// EstimatedItemSize is used for scroll anchoring before an item has been
	// measured.
	EstimatedItemSize rendering.Size
}

// Default values.
const (
	DefaultExpensiveCacheCapacity = 64
	DefaultMaxPooledCells         = 32
	DefaultEstimatedHeight        = 44
)

// Default returns auto sizing with autoLayout hosting.
func Default() Preferences {
	return Preferences{
		Sizing:                 AutoSizing(),
		Hosting:                HostingAutoLayout,
		ExpensiveCacheCapacity: DefaultExpensiveCacheCapacity,
		MaxPooledCells:         DefaultMaxPooledCells,
		EstimatedItemSize:      rendering.Size{Height: DefaultEstimatedHeight},
	}
}

// Validate checks the preferences for values the engine cannot honor.
func (p Preferences) Validate() error {
	switch p.Sizing.Kind {
	case SizingFixed:
		if p.Sizing.Fixed.IsEmpty() {
			return fmt.Errorf("%w: fixed sizing needs a positive width and height, got %vx%v",
				errors.ErrInvalidConfig, p.Sizing.Fixed.Width, p.Sizing.Fixed.Height)
		}
	case SizingCustom:
		if p.Sizing.Custom == nil {
			return fmt.Errorf("%w: custom sizing needs a size function", errors.ErrInvalidConfig)
		}
	}
	if p.ExpensiveCacheCapacity < 0 {
		return fmt.Errorf("%w: expensive_cache_capacity must not be negative", errors.ErrInvalidConfig)
	}
	if p.MaxPooledCells < 0 {
		return fmt.Errorf("%w: max_pooled_cells must not be negative", errors.ErrInvalidConfig)
	}
	return nil
}

// WithDefaults fills zero-valued limits with their defaults.
func (p Preferences) WithDefaults() Preferences {
	if p.ExpensiveCacheCapacity == 0 {
		p.ExpensiveCacheCapacity = DefaultExpensiveCacheCapacity
	}
	if p.MaxPooledCells == 0 {
		p.MaxPooledCells = DefaultMaxPooledCells
	}
	if p.EstimatedItemSize.Height <= 0 {
		p.EstimatedItemSize.Height = DefaultEstimatedHeight
	}
	return p
}

// file is the YAML shape of Preferences.
type file struct {
	Sizing                 string      `yaml:"sizing,omitempty"`
	ItemSize               *sizeFile   `yaml:"item_size,omitempty"`
	Hosting                HostingMode `yaml:"hosting,omitempty"`
	ExpensiveCacheCapacity int         `yaml:"expensive_cache_capacity,omitempty"`
	MaxPooledCells         int         `yaml:"max_pooled_cells,omitempty"`
	EstimatedItemSize      *sizeFile   `yaml:"estimated_item_size,omitempty"`
}

type sizeFile struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

func (s *sizeFile) size() rendering.Size {
	if s == nil {
		return rendering.Size{}
	}
	return rendering.Size{Width: s.Width, Height: s.Height}
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *Preferences) UnmarshalYAML(node *yaml.Node) error {
	var f file
	if err := node.Decode(&f); err != nil {
		return err
	}
	out := Default()
	switch strings.ToLower(strings.TrimSpace(f.Sizing)) {
	case "", "auto":
		out.Sizing = AutoSizing()
	case "fixed":
		size := f.ItemSize.size()
		out.Sizing = FixedSizing(size.Width, size.Height)
	case "custom":
		return fmt.Errorf("%w: custom sizing cannot be configured from YAML", errors.ErrInvalidConfig)
	default:
		return fmt.Errorf("%w: unknown sizing mode %q", errors.ErrInvalidConfig, f.Sizing)
	}
	out.Hosting = f.Hosting
	if f.ExpensiveCacheCapacity != 0 {
		out.ExpensiveCacheCapacity = f.ExpensiveCacheCapacity
	}
	if f.MaxPooledCells != 0 {
		out.MaxPooledCells = f.MaxPooledCells
	}
	if f.EstimatedItemSize != nil {
		out.EstimatedItemSize = f.EstimatedItemSize.size()
	}
	*p = out
	return nil
}

// Parse decodes and validates preferences from YAML.
func Parse(data []byte) (Preferences, error) {
	p := Default()
	if len(strings.TrimSpace(string(data))) == 0 {
		return p, nil
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Preferences{}, fmt.Errorf("failed to parse preferences: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Preferences{}, err
	}
	return p, nil
}

// Load reads preferences from a YAML file.
func Load(path string) (Preferences, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Preferences{}, fmt.Errorf("failed to read preferences: %w", err)
	}
	return Parse(data)
}
