package winloop

import (
	"fmt"
	"strings"
)

// DefaultInnerSize is used when a WindowConfig has no InnerSize.
var DefaultInnerSize = Size{Width: 800, Height: 600}

type (
	// Size is a width and height in physical pixels.
	Size struct {
		Width  uint32 `json:"width" toml:"width" yaml:"width"`
		Height uint32 `json:"height" toml:"height" yaml:"height"`
	}

	// Position is a screen position in physical pixels.
	Position struct {
		X int32 `json:"x" toml:"x" yaml:"x"`
		Y int32 `json:"y" toml:"y" yaml:"y"`
	}

	// VideoMode is a monitor mode used for exclusive fullscreen.
	VideoMode struct {
		Size        Size   `json:"size" toml:"size" yaml:"size"`
		BitDepth    uint16 `json:"bit_depth" toml:"bit_depth" yaml:"bit_depth"`
		RefreshRate uint16 `json:"refresh_rate" toml:"refresh_rate" yaml:"refresh_rate"`
	}

	// FullscreenKind selects between borderless and exclusive fullscreen.
	FullscreenKind uint8

	// Fullscreen configures a fullscreen window. Mode is required for
	// FullscreenExclusive and ignored otherwise.
	Fullscreen struct {
		Mode *VideoMode     `json:"mode,omitempty" toml:"mode,omitempty" yaml:"mode,omitempty"`
		Kind FullscreenKind `json:"kind" toml:"kind" yaml:"kind"`
	}

	// WindowConfig is the creation-time configuration of a window. Start from
	// DefaultWindowConfig, the zero value describes an invisible, undecorated,
	// fixed-size window.
	WindowConfig struct {
		InnerSize   *Size       `json:"inner_size,omitempty" toml:"inner_size,omitempty" yaml:"inner_size,omitempty"`
		Position    *Position   `json:"position,omitempty" toml:"position,omitempty" yaml:"position,omitempty"`
		Fullscreen  *Fullscreen `json:"fullscreen,omitempty" toml:"fullscreen,omitempty" yaml:"fullscreen,omitempty"`
		Title       string      `json:"title" toml:"title" yaml:"title"`
		Resizable   bool        `json:"resizable" toml:"resizable" yaml:"resizable"`
		Decorations bool        `json:"decorations" toml:"decorations" yaml:"decorations"`
		Visible     bool        `json:"visible" toml:"visible" yaml:"visible"`
		Transparent bool        `json:"transparent" toml:"transparent" yaml:"transparent"`
		AlwaysOnTop bool        `json:"always_on_top" toml:"always_on_top" yaml:"always_on_top"`
	}
)

const (
	// FullscreenBorderless covers the current monitor without changing its mode.
	FullscreenBorderless FullscreenKind = iota + 1
	// FullscreenExclusive switches the monitor to a VideoMode.
	FullscreenExclusive
)

// DefaultWindowConfig returns a visible, decorated, resizable window titled
// "winloop window".
func DefaultWindowConfig() WindowConfig {
	return WindowConfig{
		Title:       "winloop window",
		Resizable:   true,
		Decorations: true,
		Visible:     true,
	}
}

// Borderless returns a borderless fullscreen configuration.
func Borderless() *Fullscreen {
	return &Fullscreen{Kind: FullscreenBorderless}
}

// Exclusive returns an exclusive fullscreen configuration using mode.
func Exclusive(mode VideoMode) *Fullscreen {
	return &Fullscreen{Kind: FullscreenExclusive, Mode: &mode}
}

// EffectiveInnerSize returns InnerSize or DefaultInnerSize.
func (c WindowConfig) EffectiveInnerSize() Size {
	if c.InnerSize != nil {
		return *c.InnerSize
	}
	return DefaultInnerSize
}

// Validate rejects combinations no backend can honor. The returned error
// matches ErrUnsupportedConfig.
func (c WindowConfig) Validate() error {
	if c.InnerSize != nil && (c.InnerSize.Width == 0 || c.InnerSize.Height == 0) {
		return fmt.Errorf("%w: zero inner size %dx%d", ErrUnsupportedConfig, c.InnerSize.Width, c.InnerSize.Height)
	}
	if c.Fullscreen == nil {
		return nil
	}
	switch c.Fullscreen.Kind {
	case FullscreenBorderless:
	case FullscreenExclusive:
		m := c.Fullscreen.Mode
		if m == nil || m.Size.Width == 0 || m.Size.Height == 0 || m.RefreshRate == 0 {
			return fmt.Errorf("%w: exclusive fullscreen requires a complete video mode", ErrUnsupportedConfig)
		}
		if c.Transparent {
			return fmt.Errorf("%w: exclusive fullscreen cannot be transparent", ErrUnsupportedConfig)
		}
	default:
		return fmt.Errorf("%w: unknown fullscreen kind %d", ErrUnsupportedConfig, c.Fullscreen.Kind)
	}
	return nil
}

func (k FullscreenKind) String() string {
	switch k {
	case FullscreenBorderless:
		return "borderless"
	case FullscreenExclusive:
		return "exclusive"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k FullscreenKind) MarshalText() ([]byte, error) {
	switch k {
	case FullscreenBorderless, FullscreenExclusive:
		return []byte(k.String()), nil
	default:
		return nil, fmt.Errorf("winloop: invalid fullscreen kind %d", k)
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *FullscreenKind) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "borderless":
		*k = FullscreenBorderless
	case "exclusive":
		*k = FullscreenExclusive
	default:
		return fmt.Errorf("winloop: invalid fullscreen kind %q", b)
	}
	return nil
}

// WindowAttributes is the cached, thread-safe view of a window's state.
// MinInnerSize and MaxInnerSize are zero when unconstrained.
type WindowAttributes struct {
	Fullscreen   *Fullscreen
	Title        string
	InnerSize    Size
	MinInnerSize Size
	MaxInnerSize Size
	Position     Position
	Visible      bool
	Resizable    bool
	Decorations  bool
	Transparent  bool
	AlwaysOnTop  bool
	Minimized    bool
	Maximized    bool
	Focused      bool
	// HasPosition is false until a position is configured or reported.
	HasPosition bool
}

func attributesFromConfig(c WindowConfig) WindowAttributes {
	a := WindowAttributes{
		Title:       c.Title,
		InnerSize:   c.EffectiveInnerSize(),
		Visible:     c.Visible,
		Resizable:   c.Resizable,
		Decorations: c.Decorations,
		Transparent: c.Transparent,
		AlwaysOnTop: c.AlwaysOnTop,
	}
	if c.Position != nil {
		a.Position = *c.Position
		a.HasPosition = true
	}
	if c.Fullscreen != nil {
		fs := *c.Fullscreen
		a.Fullscreen = &fs
	}
	return a
}
