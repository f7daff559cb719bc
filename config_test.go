package winloop

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowID_text(t *testing.T) {
	b, err := WindowID(12).MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "window-12", string(b))

	var id WindowID
	require.NoError(t, id.UnmarshalText([]byte("window-12")))
	assert.Equal(t, WindowID(12), id)
	require.NoError(t, id.UnmarshalText([]byte("7")))
	assert.Equal(t, WindowID(7), id)
	assert.Error(t, id.UnmarshalText([]byte("window-")))

	assert.False(t, WindowID(0).Valid())
	assert.Equal(t, "device-0", DefaultDeviceID.String())
}

func TestWindowConfig_defaults(t *testing.T) {
	cfg := DefaultWindowConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, Size{Width: 800, Height: 600}, cfg.EffectiveInnerSize())
	assert.True(t, cfg.Visible)
	assert.True(t, cfg.Decorations)
	assert.True(t, cfg.Resizable)

	a := attributesFromConfig(cfg)
	assert.Equal(t, DefaultInnerSize, a.InnerSize)
	assert.False(t, a.HasPosition)
}

func TestWindowConfig_validate(t *testing.T) {
	mode := VideoMode{Size: Size{Width: 1920, Height: 1080}, BitDepth: 32, RefreshRate: 60}
	for _, tc := range []struct {
		name   string
		mutate func(c *WindowConfig)
		ok     bool
	}{
		{"default", func(*WindowConfig) {}, true},
		{"zero width", func(c *WindowConfig) { c.InnerSize = &Size{Height: 10} }, false},
		{"borderless", func(c *WindowConfig) { c.Fullscreen = Borderless() }, true},
		{"borderless transparent", func(c *WindowConfig) {
			c.Fullscreen = Borderless()
			c.Transparent = true
		}, true},
		{"exclusive", func(c *WindowConfig) { c.Fullscreen = Exclusive(mode) }, true},
		{"exclusive without mode", func(c *WindowConfig) {
			c.Fullscreen = &Fullscreen{Kind: FullscreenExclusive}
		}, false},
		{"exclusive without refresh", func(c *WindowConfig) {
			m := mode
			m.RefreshRate = 0
			c.Fullscreen = Exclusive(m)
		}, false},
		{"exclusive transparent", func(c *WindowConfig) {
			c.Fullscreen = Exclusive(mode)
			c.Transparent = true
		}, false},
		{"unknown kind", func(c *WindowConfig) { c.Fullscreen = &Fullscreen{Kind: 9} }, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultWindowConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrUnsupportedConfig)
			}
		})
	}
}

func TestFullscreenKind_json(t *testing.T) {
	b, err := json.Marshal(Exclusive(VideoMode{Size: Size{Width: 640, Height: 480}, RefreshRate: 60}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"exclusive","mode":{"size":{"width":640,"height":480},"bit_depth":0,"refresh_rate":60}}`, string(b))

	var fs Fullscreen
	require.NoError(t, json.Unmarshal([]byte(`{"kind":"Borderless"}`), &fs))
	assert.Equal(t, FullscreenBorderless, fs.Kind)
	assert.Error(t, json.Unmarshal([]byte(`{"kind":"windowed"}`), &fs))
}

func TestIsTemporary(t *testing.T) {
	assert.False(t, IsTemporary(nil))
	assert.True(t, IsTemporary(ErrTemporary))
	assert.True(t, IsTemporary(&BackendFatalError{Err: tempErr(true)}))
	assert.False(t, IsTemporary(tempErr(false)))
}

type tempErr bool

func (e tempErr) Error() string   { return "temp" }
func (e tempErr) Temporary() bool { return bool(e) }
