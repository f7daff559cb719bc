package synthetic

import (
	"github.com/joeycumines/go-winloop"
)

// Native events understood by Backend. Push them from any goroutine.
type (
	// Resize translates to Resized followed by RedrawRequested.
	Resize struct {
		Window        winloop.WindowID
		Width, Height uint32
	}

	Move struct {
		Window winloop.WindowID
		X, Y   int32
	}

	CloseRequest struct {
		Window winloop.WindowID
	}

	Focus struct {
		Window  winloop.WindowID
		Focused bool
	}

	// Key translates to a KeyboardInput window event and a DeviceKey device
	// event, both attributed to winloop.DefaultDeviceID.
	Key struct {
		Name     string
		Window   winloop.WindowID
		ScanCode uint32
		Pressed  bool
		Repeat   bool
	}

	// Text translates to one ReceivedCharacter per rune.
	Text struct {
		Window winloop.WindowID
		Text   string
	}

	Pointer struct {
		Window winloop.WindowID
		X, Y   float64
		Kind   PointerKind
	}

	Button struct {
		Window  winloop.WindowID
		Button  winloop.MouseButton
		Pressed bool
	}

	Wheel struct {
		Window winloop.WindowID
		DX, DY float64
	}

	TouchPoint struct {
		Window winloop.WindowID
		ID     uint64
		X, Y   float64
		Phase  winloop.TouchPhase
	}

	Modifiers struct {
		Window winloop.WindowID
		State  winloop.ModifiersState
	}

	// Expose asks for a redraw, as a compositor damage event would.
	Expose struct {
		Window winloop.WindowID
	}

	// Destroy reports that the window was destroyed outside the registry.
	Destroy struct {
		Window winloop.WindowID
	}

	// Motion is raw pointer motion from a device.
	Motion struct {
		Device winloop.DeviceID
		DX, DY float64
	}

	// Quit reports that the native context went away.
	Quit struct{}

	// Raw is passed through untranslated.
	Raw struct {
		Events []winloop.Event
	}
)

// PointerKind distinguishes pointer crossing and motion.
type PointerKind uint8

const (
	PointerMove PointerKind = iota
	PointerEnter
	PointerLeave
)

func translate(ev winloop.NativeEvent, dst []winloop.Event) []winloop.Event {
	switch e := ev.(type) {
	case Resize:
		return append(dst,
			winloop.WindowEvent{WindowID: e.Window, Kind: winloop.Resized{Width: e.Width, Height: e.Height}},
			winloop.RedrawRequested{WindowID: e.Window},
		)
	case Move:
		return append(dst, winloop.WindowEvent{WindowID: e.Window, Kind: winloop.Moved{X: e.X, Y: e.Y}})
	case CloseRequest:
		return append(dst, winloop.WindowEvent{WindowID: e.Window, Kind: winloop.CloseRequested{}})
	case Focus:
		return append(dst, winloop.WindowEvent{WindowID: e.Window, Kind: winloop.Focused(e.Focused)})
	case Key:
		state := elementState(e.Pressed)
		return append(dst,
			winloop.WindowEvent{WindowID: e.Window, Kind: winloop.KeyboardInput{
				Key:      e.Name,
				DeviceID: winloop.DefaultDeviceID,
				ScanCode: e.ScanCode,
				State:    state,
				Repeat:   e.Repeat,
			}},
			winloop.DeviceEvent{DeviceID: winloop.DefaultDeviceID, Kind: winloop.DeviceKey{ScanCode: e.ScanCode, State: state}},
		)
	case Text:
		for _, r := range e.Text {
			dst = append(dst, winloop.WindowEvent{WindowID: e.Window, Kind: winloop.ReceivedCharacter(r)})
		}
		return dst
	case Pointer:
		var kind winloop.WindowEventKind
		switch e.Kind {
		case PointerEnter:
			kind = winloop.CursorEntered{DeviceID: winloop.DefaultDeviceID}
		case PointerLeave:
			kind = winloop.CursorLeft{DeviceID: winloop.DefaultDeviceID}
		default:
			kind = winloop.CursorMoved{DeviceID: winloop.DefaultDeviceID, X: e.X, Y: e.Y}
		}
		return append(dst, winloop.WindowEvent{WindowID: e.Window, Kind: kind})
	case Button:
		return append(dst, winloop.WindowEvent{WindowID: e.Window, Kind: winloop.MouseInput{
			DeviceID: winloop.DefaultDeviceID,
			Button:   e.Button,
			State:    elementState(e.Pressed),
		}})
	case Wheel:
		return append(dst, winloop.WindowEvent{WindowID: e.Window, Kind: winloop.MouseWheel{
			DeviceID: winloop.DefaultDeviceID,
			DX:       e.DX,
			DY:       e.DY,
		}})
	case TouchPoint:
		return append(dst, winloop.WindowEvent{WindowID: e.Window, Kind: winloop.Touch{
			DeviceID: winloop.DefaultDeviceID,
			ID:       e.ID,
			X:        e.X,
			Y:        e.Y,
			Phase:    e.Phase,
		}})
	case Modifiers:
		return append(dst, winloop.WindowEvent{WindowID: e.Window, Kind: winloop.ModifiersChanged(e.State)})
	case Expose:
		return append(dst, winloop.RedrawRequested{WindowID: e.Window})
	case Destroy:
		return append(dst, winloop.WindowEvent{WindowID: e.Window, Kind: winloop.Destroyed{}})
	case Motion:
		return append(dst, winloop.DeviceEvent{DeviceID: e.Device, Kind: winloop.MouseMotion{DX: e.DX, DY: e.DY}})
	case Quit:
		return append(dst, winloop.LoopDestroyed{})
	case Raw:
		return append(dst, e.Events...)
	default:
		return dst
	}
}

func elementState(pressed bool) winloop.ElementState {
	if pressed {
		return winloop.Pressed
	}
	return winloop.Released
}
