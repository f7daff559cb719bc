package recorder

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"unicode/utf8"

	"github.com/joeycumines/go-utilpkg/jsonenc"
	"github.com/joeycumines/go-winloop"
)

// Event type names, as written to the Type field.
const (
	TypeNewEvents           = "NewEvents"
	TypeWindowEvent         = "WindowEvent"
	TypeDeviceEvent         = "DeviceEvent"
	TypeUserEvent           = "UserEvent"
	TypeMainEventsCleared   = "MainEventsCleared"
	TypeRedrawRequested     = "RedrawRequested"
	TypeRedrawEventsCleared = "RedrawEventsCleared"
	TypeBackendFatal        = "BackendFatal"
	TypeLoopDestroyed       = "LoopDestroyed"
)

// Record is one dispatched event, flattened. Which fields are set depends on
// Type and Kind.
type Record struct {
	Type  string `json:"type"`
	Kind  string `json:"kind,omitempty"`
	Value string `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
	// Iteration is the loop iteration, starting at 1.
	Iteration uint64 `json:"iter"`
	// Seq orders records across the whole recording.
	Seq    uint64           `json:"seq"`
	Window winloop.WindowID `json:"window,omitempty"`
	Device winloop.DeviceID `json:"device,omitempty"`
	X      float64          `json:"x,omitempty"`
	Y      float64          `json:"y,omitempty"`
	// Code is a scan code, button, touch id or modifier mask.
	Code   uint64 `json:"code,omitempty"`
	Width  uint32 `json:"width,omitempty"`
	Height uint32 `json:"height,omitempty"`
	// Flag is a focus state, or true for pressed.
	Flag   bool `json:"flag,omitempty"`
	Repeat bool `json:"repeat,omitempty"`
}

// NewRecord flattens ev.
func NewRecord(iteration, seq uint64, ev winloop.Event) Record {
	r := Record{Iteration: iteration, Seq: seq}
	switch e := ev.(type) {
	case winloop.NewEvents:
		r.Type = TypeNewEvents
		r.Kind = e.Cause.Kind.String()
	case winloop.WindowEvent:
		r.Type = TypeWindowEvent
		r.Window = e.WindowID
		flattenWindowKind(&r, e.Kind)
	case winloop.DeviceEvent:
		r.Type = TypeDeviceEvent
		r.Device = e.DeviceID
		flattenDeviceKind(&r, e.Kind)
	case winloop.MainEventsCleared:
		r.Type = TypeMainEventsCleared
	case winloop.RedrawRequested:
		r.Type = TypeRedrawRequested
		r.Window = e.WindowID
	case winloop.RedrawEventsCleared:
		r.Type = TypeRedrawEventsCleared
	case winloop.BackendFatal:
		r.Type = TypeBackendFatal
		if e.Err != nil {
			r.Error = e.Err.Error()
		}
	case winloop.LoopDestroyed:
		r.Type = TypeLoopDestroyed
	case interface{ Payload() any }:
		r.Type = TypeUserEvent
		r.Value = fmt.Sprint(e.Payload())
	default:
		r.Type = fmt.Sprintf("%T", ev)
	}
	return r
}

func flattenWindowKind(r *Record, kind winloop.WindowEventKind) {
	switch k := kind.(type) {
	case winloop.Resized:
		r.Kind, r.Width, r.Height = "Resized", k.Width, k.Height
	case winloop.Moved:
		r.Kind, r.X, r.Y = "Moved", float64(k.X), float64(k.Y)
	case winloop.CloseRequested:
		r.Kind = "CloseRequested"
	case winloop.Destroyed:
		r.Kind = "Destroyed"
	case winloop.Focused:
		r.Kind, r.Flag = "Focused", bool(k)
	case winloop.KeyboardInput:
		r.Kind, r.Value, r.Code, r.Flag, r.Device = "KeyboardInput", k.Key, uint64(k.ScanCode), k.State == winloop.Pressed, k.DeviceID
		r.Repeat = k.Repeat
	case winloop.ReceivedCharacter:
		r.Kind, r.Value = "ReceivedCharacter", string(rune(k))
	case winloop.ModifiersChanged:
		r.Kind, r.Code = "ModifiersChanged", uint64(k)
	case winloop.CursorMoved:
		r.Kind, r.X, r.Y, r.Device = "CursorMoved", k.X, k.Y, k.DeviceID
	case winloop.CursorEntered:
		r.Kind, r.Device = "CursorEntered", k.DeviceID
	case winloop.CursorLeft:
		r.Kind, r.Device = "CursorLeft", k.DeviceID
	case winloop.MouseInput:
		r.Kind, r.Code, r.Flag, r.Device = "MouseInput", uint64(k.Button), k.State == winloop.Pressed, k.DeviceID
	case winloop.MouseWheel:
		r.Kind, r.X, r.Y, r.Device = "MouseWheel", k.DX, k.DY, k.DeviceID
	case winloop.Touch:
		r.Kind, r.X, r.Y, r.Code, r.Value, r.Device = "Touch", k.X, k.Y, k.ID, k.Phase.String(), k.DeviceID
	default:
		r.Kind = fmt.Sprintf("%T", kind)
	}
}

func flattenDeviceKind(r *Record, kind winloop.DeviceEventKind) {
	switch k := kind.(type) {
	case winloop.DeviceAdded:
		r.Kind = "DeviceAdded"
	case winloop.DeviceRemoved:
		r.Kind = "DeviceRemoved"
	case winloop.MouseMotion:
		r.Kind, r.X, r.Y = "MouseMotion", k.DX, k.DY
	case winloop.DeviceWheel:
		r.Kind, r.X, r.Y = "DeviceWheel", k.DX, k.DY
	case winloop.DeviceKey:
		r.Kind, r.Code, r.Flag = "DeviceKey", uint64(k.ScanCode), k.State == winloop.Pressed
	case winloop.DeviceButton:
		r.Kind, r.Code, r.Flag = "DeviceButton", uint64(k.Button), k.State == winloop.Pressed
	default:
		r.Kind = fmt.Sprintf("%T", kind)
	}
}

// AppendJSON appends r as a single line JSON object, without the newline.
func (r *Record) AppendJSON(dst []byte) []byte {
	dst = append(dst, `{"iter":`...)
	dst = strconv.AppendUint(dst, r.Iteration, 10)
	dst = append(dst, `,"seq":`...)
	dst = strconv.AppendUint(dst, r.Seq, 10)
	dst = append(dst, `,"type":`...)
	dst = jsonenc.AppendString(dst, r.Type)
	if r.Kind != "" {
		dst = append(dst, `,"kind":`...)
		dst = jsonenc.AppendString(dst, r.Kind)
	}
	if r.Window != 0 {
		dst = append(dst, `,"window":`...)
		dst = jsonenc.AppendString(dst, r.Window.String())
	}
	if r.Device != 0 {
		dst = append(dst, `,"device":`...)
		dst = strconv.AppendUint(dst, uint64(r.Device), 10)
	}
	if r.X != 0 {
		dst = append(dst, `,"x":`...)
		dst = jsonenc.AppendFloat64(dst, r.X)
	}
	if r.Y != 0 {
		dst = append(dst, `,"y":`...)
		dst = jsonenc.AppendFloat64(dst, r.Y)
	}
	if r.Width != 0 {
		dst = append(dst, `,"width":`...)
		dst = strconv.AppendUint(dst, uint64(r.Width), 10)
	}
	if r.Height != 0 {
		dst = append(dst, `,"height":`...)
		dst = strconv.AppendUint(dst, uint64(r.Height), 10)
	}
	if r.Code != 0 {
		dst = append(dst, `,"code":`...)
		dst = strconv.AppendUint(dst, r.Code, 10)
	}
	if r.Flag {
		dst = append(dst, `,"flag":true`...)
	}
	if r.Repeat {
		dst = append(dst, `,"repeat":true`...)
	}
	if r.Value != "" {
		dst = append(dst, `,"value":`...)
		dst = jsonenc.AppendString(dst, r.Value)
	}
	if r.Error != "" {
		dst = append(dst, `,"error":`...)
		dst = jsonenc.AppendString(dst, r.Error)
	}
	return append(dst, '}')
}

// Decode reads a JSON lines recording, returning the records ordered by Seq.
func Decode(r io.Reader) ([]Record, error) {
	var records []Record
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for line := 1; scanner.Scan(); line++ {
		b := scanner.Bytes()
		if len(b) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(b, &rec); err != nil {
			return nil, fmt.Errorf("recorder: line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	slices.SortStableFunc(records, func(a, b Record) int {
		switch {
		case a.Seq < b.Seq:
			return -1
		case a.Seq > b.Seq:
			return 1
		}
		return 0
	})
	return records, nil
}

// Inputs rebuilds the events a backend produced, in order, for replay. Events
// the loop synthesizes itself, and user events, are skipped, as are kinds
// that cannot be rebuilt from a Record.
func Inputs(records []Record) []winloop.Event {
	var out []winloop.Event
	for _, r := range records {
		switch r.Type {
		case TypeWindowEvent:
			if kind := windowKind(r); kind != nil {
				out = append(out, winloop.WindowEvent{WindowID: r.Window, Kind: kind})
			}
		case TypeDeviceEvent:
			if kind := deviceKind(r); kind != nil {
				out = append(out, winloop.DeviceEvent{DeviceID: r.Device, Kind: kind})
			}
		case TypeRedrawRequested:
			out = append(out, winloop.RedrawRequested{WindowID: r.Window})
		}
	}
	return out
}

func windowKind(r Record) winloop.WindowEventKind {
	switch r.Kind {
	case "Resized":
		return winloop.Resized{Width: r.Width, Height: r.Height}
	case "Moved":
		return winloop.Moved{X: int32(r.X), Y: int32(r.Y)}
	case "CloseRequested":
		return winloop.CloseRequested{}
	case "Destroyed":
		return winloop.Destroyed{}
	case "Focused":
		return winloop.Focused(r.Flag)
	case "KeyboardInput":
		return winloop.KeyboardInput{Key: r.Value, DeviceID: r.Device, ScanCode: uint32(r.Code), State: state(r.Flag), Repeat: r.Repeat}
	case "ReceivedCharacter":
		c, n := utf8.DecodeRuneInString(r.Value)
		if n == 0 || n != len(r.Value) {
			return nil
		}
		return winloop.ReceivedCharacter(c)
	case "ModifiersChanged":
		return winloop.ModifiersChanged(r.Code)
	case "CursorMoved":
		return winloop.CursorMoved{DeviceID: r.Device, X: r.X, Y: r.Y}
	case "CursorEntered":
		return winloop.CursorEntered{DeviceID: r.Device}
	case "CursorLeft":
		return winloop.CursorLeft{DeviceID: r.Device}
	case "MouseInput":
		return winloop.MouseInput{DeviceID: r.Device, Button: winloop.MouseButton(r.Code), State: state(r.Flag)}
	case "MouseWheel":
		return winloop.MouseWheel{DeviceID: r.Device, DX: r.X, DY: r.Y}
	case "Touch":
		phase, ok := touchPhase(r.Value)
		if !ok {
			return nil
		}
		return winloop.Touch{DeviceID: r.Device, ID: r.Code, X: r.X, Y: r.Y, Phase: phase}
	default:
		return nil
	}
}

func deviceKind(r Record) winloop.DeviceEventKind {
	switch r.Kind {
	case "DeviceAdded":
		return winloop.DeviceAdded{}
	case "DeviceRemoved":
		return winloop.DeviceRemoved{}
	case "MouseMotion":
		return winloop.MouseMotion{DX: r.X, DY: r.Y}
	case "DeviceWheel":
		return winloop.DeviceWheel{DX: r.X, DY: r.Y}
	case "DeviceKey":
		return winloop.DeviceKey{ScanCode: uint32(r.Code), State: state(r.Flag)}
	case "DeviceButton":
		return winloop.DeviceButton{Button: uint32(r.Code), State: state(r.Flag)}
	default:
		return nil
	}
}

func touchPhase(s string) (winloop.TouchPhase, bool) {
	for _, p := range [...]winloop.TouchPhase{winloop.TouchStarted, winloop.TouchMoved, winloop.TouchEnded, winloop.TouchCancelled} {
		if p.String() == s {
			return p, true
		}
	}
	return 0, false
}

func state(pressed bool) winloop.ElementState {
	if pressed {
		return winloop.Pressed
	}
	return winloop.Released
}
