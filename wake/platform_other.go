//go:build !linux

package wake

import (
	"errors"
)

func newPlatform() (Waker, error) {
	return nil, errors.New("wake: no platform waker")
}
