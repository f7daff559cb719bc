package winloop

import (
	"fmt"
	"strconv"
	"strings"
)

// WindowID identifies one creation of a native window. IDs are allocated
// monotonically, starting at 1, and are never reused. The zero value is not a
// valid window.
type WindowID uint64

// DeviceID identifies an input device. Backends unable to distinguish devices
// report DefaultDeviceID.
type DeviceID uint64

// DefaultDeviceID is the device reported by backends with no device model.
const DefaultDeviceID DeviceID = 0

const windowIDPrefix = "window-"

// Valid reports whether id could have been issued by a Registry.
func (id WindowID) Valid() bool { return id != 0 }

func (id WindowID) String() string {
	return windowIDPrefix + strconv.FormatUint(uint64(id), 10)
}

// MarshalText encodes the id as "window-N".
func (id WindowID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText accepts the "window-N" form produced by MarshalText, or a
// bare decimal number.
func (id *WindowID) UnmarshalText(b []byte) error {
	s := strings.TrimPrefix(string(b), windowIDPrefix)
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("winloop: invalid window id %q: %w", b, err)
	}
	*id = WindowID(v)
	return nil
}

func (id DeviceID) String() string {
	return "device-" + strconv.FormatUint(uint64(id), 10)
}
