// Package config loads winloop run configurations from TOML, YAML or JSON.
//
// A File describes the loop (backend, waiting policy, retry and batch
// limits), logging, an optional event recording, and the windows to open at
// startup. Unknown keys are rejected in every format.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joeycumines/go-winloop"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Format is a configuration file encoding.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Backend names understood by the command line tool.
const (
	BackendSynthetic = "synthetic"
	BackendGLFW      = "glfw"
)

// Control flow names, for Loop.ControlFlow.
const (
	FlowPoll      = "poll"
	FlowWait      = "wait"
	FlowWaitUntil = "wait_until"
)

type (
	File struct {
		Loop    Loop     `json:"loop" toml:"loop" yaml:"loop"`
		Log     Log      `json:"log" toml:"log" yaml:"log"`
		Record  Record   `json:"record" toml:"record" yaml:"record"`
		Windows []Window `json:"windows" toml:"windows" yaml:"windows"`
	}

	// Window is a window to create at startup. Unset fields take their
	// values from winloop.DefaultWindowConfig.
	Window struct {
		InnerSize   *winloop.Size       `json:"inner_size,omitempty" toml:"inner_size,omitempty" yaml:"inner_size,omitempty"`
		Position    *winloop.Position   `json:"position,omitempty" toml:"position,omitempty" yaml:"position,omitempty"`
		Fullscreen  *winloop.Fullscreen `json:"fullscreen,omitempty" toml:"fullscreen,omitempty" yaml:"fullscreen,omitempty"`
		Resizable   *bool               `json:"resizable,omitempty" toml:"resizable,omitempty" yaml:"resizable,omitempty"`
		Decorations *bool               `json:"decorations,omitempty" toml:"decorations,omitempty" yaml:"decorations,omitempty"`
		Visible     *bool               `json:"visible,omitempty" toml:"visible,omitempty" yaml:"visible,omitempty"`
		Transparent *bool               `json:"transparent,omitempty" toml:"transparent,omitempty" yaml:"transparent,omitempty"`
		AlwaysOnTop *bool               `json:"always_on_top,omitempty" toml:"always_on_top,omitempty" yaml:"always_on_top,omitempty"`
		Title       string              `json:"title,omitempty" toml:"title,omitempty" yaml:"title,omitempty"`
	}

	Loop struct {
		FetchRetries   *int   `json:"fetch_retries,omitempty" toml:"fetch_retries,omitempty" yaml:"fetch_retries,omitempty"`
		FatalExitCode  *int   `json:"fatal_exit_code,omitempty" toml:"fatal_exit_code,omitempty" yaml:"fatal_exit_code,omitempty"`
		Backend        string `json:"backend" toml:"backend" yaml:"backend"`
		ControlFlow    string `json:"control_flow" toml:"control_flow" yaml:"control_flow"`
		MaxNativeBatch int    `json:"max_native_batch,omitempty" toml:"max_native_batch,omitempty" yaml:"max_native_batch,omitempty"`
		// Tick is the WaitUntil period, used with the wait_until control flow.
		Tick Duration `json:"tick,omitempty" toml:"tick,omitempty" yaml:"tick,omitempty"`
		// MaxIterations exits the loop with code 0 after this many iterations,
		// if positive.
		MaxIterations uint64 `json:"max_iterations,omitempty" toml:"max_iterations,omitempty" yaml:"max_iterations,omitempty"`
	}

	Log struct {
		// Level is a logiface level name, e.g. "info" or "debug".
		Level string `json:"level" toml:"level" yaml:"level"`
		// Time includes a timestamp field when true.
		Time bool `json:"time" toml:"time" yaml:"time"`
	}

	// Record enables an event recording, see package recorder.
	Record struct {
		Path          string   `json:"path,omitempty" toml:"path,omitempty" yaml:"path,omitempty"`
		FlushInterval Duration `json:"flush_interval,omitempty" toml:"flush_interval,omitempty" yaml:"flush_interval,omitempty"`
	}

	// Duration is a time.Duration encoded as a string such as "16ms".
	Duration time.Duration
)

// Default returns the configuration used when no file is given: the
// synthetic backend, waiting for events, with one default window.
func Default() *File {
	return &File{
		Loop: Loop{
			Backend:     BackendSynthetic,
			ControlFlow: FlowWait,
		},
		Log:     Log{Level: "info", Time: true},
		Windows: []Window{{}},
	}
}

// FormatOf infers the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("config: unknown format for %q", path)
	}
}

// Load reads and validates the file at path.
func Load(path string) (*File, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cfg, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Decode reads a File, starting from Default, then validates it. Windows
// listed in the input replace the default window.
func Decode(r io.Reader, format Format) (*File, error) {
	cfg := Default()
	cfg.Windows = nil

	var err error
	switch format {
	case FormatTOML:
		err = toml.NewDecoder(r).DisallowUnknownFields().Decode(cfg)
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err = dec.Decode(cfg); errors.Is(err, io.EOF) {
			err = nil
		}
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err = dec.Decode(cfg); errors.Is(err, io.EOF) {
			err = nil
		}
	default:
		err = fmt.Errorf("config: unknown format %q", format)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Windows == nil {
		cfg.Windows = []Window{{}}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Encode writes cfg in the given format.
func Encode(w io.Writer, format Format, cfg *File) error {
	switch format {
	case FormatTOML:
		return toml.NewEncoder(w).Encode(cfg)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	default:
		return fmt.Errorf("config: unknown format %q", format)
	}
}

// Validate checks every field, including each window configuration.
func (f *File) Validate() error {
	var errs []error
	switch f.Loop.Backend {
	case BackendSynthetic, BackendGLFW:
	default:
		errs = append(errs, fmt.Errorf("config: unknown backend %q", f.Loop.Backend))
	}
	switch f.Loop.ControlFlow {
	case FlowPoll, FlowWait:
	case FlowWaitUntil:
		if f.Loop.Tick <= 0 {
			errs = append(errs, errors.New("config: wait_until requires a positive tick"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown control flow %q", f.Loop.ControlFlow))
	}
	if f.Loop.FetchRetries != nil && *f.Loop.FetchRetries < 0 {
		errs = append(errs, errors.New("config: fetch_retries must not be negative"))
	}
	if f.Loop.MaxNativeBatch < 0 {
		errs = append(errs, errors.New("config: max_native_batch must not be negative"))
	}
	if _, err := ParseLevel(f.Log.Level); err != nil {
		errs = append(errs, err)
	}
	for i, w := range f.Windows {
		if err := w.WindowConfig().Validate(); err != nil {
			errs = append(errs, fmt.Errorf("config: windows[%d]: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// LoopOptions converts the loop section into options for winloop.New.
func (f *File) LoopOptions() []winloop.LoopOption {
	var opts []winloop.LoopOption
	if f.Loop.FetchRetries != nil {
		opts = append(opts, winloop.WithFetchRetries(*f.Loop.FetchRetries))
	}
	if f.Loop.MaxNativeBatch > 0 {
		opts = append(opts, winloop.WithMaxNativeBatch(f.Loop.MaxNativeBatch))
	}
	if f.Loop.FatalExitCode != nil {
		opts = append(opts, winloop.WithFatalExitCode(*f.Loop.FatalExitCode))
	}
	return opts
}

// WindowConfig applies w over winloop.DefaultWindowConfig.
func (w Window) WindowConfig() winloop.WindowConfig {
	cfg := winloop.DefaultWindowConfig()
	cfg.InnerSize = w.InnerSize
	cfg.Position = w.Position
	cfg.Fullscreen = w.Fullscreen
	if w.Title != "" {
		cfg.Title = w.Title
	}
	for _, f := range [...]struct {
		src *bool
		dst *bool
	}{
		{w.Resizable, &cfg.Resizable},
		{w.Decorations, &cfg.Decorations},
		{w.Visible, &cfg.Visible},
		{w.Transparent, &cfg.Transparent},
		{w.AlwaysOnTop, &cfg.AlwaysOnTop},
	} {
		if f.src != nil {
			*f.dst = *f.src
		}
	}
	return cfg
}

// Flow returns the configured ControlFlow, relative to now.
func (l Loop) Flow(now time.Time) winloop.ControlFlow {
	switch l.ControlFlow {
	case FlowPoll:
		return winloop.Poll()
	case FlowWaitUntil:
		return winloop.WaitUntil(now.Add(time.Duration(l.Tick)))
	default:
		return winloop.Wait()
	}
}

// ParseLevel maps a level name, as printed by logiface.Level.String, to the
// level. Common aliases such as "warn" and "error" are accepted.
func ParseLevel(s string) (logiface.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "disabled", "off", "none":
		return logiface.LevelDisabled, nil
	case "emerg", "emergency":
		return logiface.LevelEmergency, nil
	case "alert":
		return logiface.LevelAlert, nil
	case "crit", "critical":
		return logiface.LevelCritical, nil
	case "err", "error":
		return logiface.LevelError, nil
	case "warning", "warn":
		return logiface.LevelWarning, nil
	case "notice":
		return logiface.LevelNotice, nil
	case "info", "informational", "":
		return logiface.LevelInformational, nil
	case "debug":
		return logiface.LevelDebug, nil
	case "trace":
		return logiface.LevelTrace, nil
	default:
		return logiface.LevelDisabled, fmt.Errorf("config: unknown log level %q", s)
	}
}

// Logger builds a stumpy JSON logger writing to w.
func (l Log) Logger(w io.Writer) (*logiface.Logger[logiface.Event], error) {
	level, err := ParseLevel(l.Level)
	if err != nil {
		return nil, err
	}
	output := stumpy.L.WithStumpy(stumpy.WithWriter(w))
	if !l.Time {
		output = stumpy.L.WithStumpy(stumpy.WithWriter(w), stumpy.WithTimeField(``))
	}
	return stumpy.L.New(output, stumpy.L.WithLevel(level)).Logger(), nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(bytes.TrimSpace(b)))
	if err != nil {
		return fmt.Errorf("config: invalid duration %q: %w", b, err)
	}
	*d = Duration(v)
	return nil
}
