package main

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/joeycumines/go-winloop"
	"github.com/joeycumines/go-winloop/backend/synthetic"
	"github.com/joeycumines/go-winloop/config"
)

type (
	// demoBackend is a backend plus, optionally, a script that drives it
	// once the startup windows exist.
	demoBackend struct {
		winloop.Backend
		script func(ctx context.Context, windows []winloop.WindowID, proxy winloop.Proxy[string])
	}

	backendFactory func(cfg *config.File) (*demoBackend, error)
)

// backends holds the backends built into this binary, see glfw.go.
var backends = map[string]backendFactory{
	config.BackendSynthetic: newSyntheticBackend,
}

func openBackend(cfg *config.File) (*demoBackend, error) {
	factory, ok := backends[cfg.Loop.Backend]
	if !ok {
		available := make([]string, 0, len(backends))
		for name := range backends {
			available = append(available, name)
		}
		slices.Sort(available)
		return nil, fmt.Errorf("backend %q is not built in, available: %v", cfg.Loop.Backend, available)
	}
	return factory(cfg)
}

func newSyntheticBackend(*config.File) (*demoBackend, error) {
	b := synthetic.New()
	return &demoBackend{
		Backend: b,
		script: func(ctx context.Context, windows []winloop.WindowID, proxy winloop.Proxy[string]) {
			if err := b.Play(ctx, syntheticScript(windows)); err != nil {
				return
			}
			_ = proxy.Send("script finished")
			_ = b.Play(ctx, closeScript(windows))
		},
	}, nil
}

// syntheticScript exercises each window with a short burst of input.
func syntheticScript(windows []winloop.WindowID) []synthetic.Step {
	const step = 5 * time.Millisecond
	var steps []synthetic.Step
	for _, id := range windows {
		steps = append(steps,
			synthetic.Step{After: step, Events: []winloop.NativeEvent{
				synthetic.Focus{Window: id, Focused: true},
				synthetic.Resize{Window: id, Width: 1024, Height: 768},
			}},
			synthetic.Step{After: step, Events: []winloop.NativeEvent{
				synthetic.Pointer{Window: id, Kind: synthetic.PointerEnter},
				synthetic.Pointer{Window: id, X: 12, Y: 34},
				synthetic.Motion{DX: 1.5, DY: -2},
				synthetic.Button{Window: id, Button: winloop.MouseLeft, Pressed: true},
				synthetic.Button{Window: id, Button: winloop.MouseLeft},
			}},
			synthetic.Step{After: step, Events: []winloop.NativeEvent{
				synthetic.Modifiers{Window: id, State: winloop.ModShift},
				synthetic.Key{Window: id, Name: "A", ScanCode: 30, Pressed: true},
				synthetic.Text{Window: id, Text: "A"},
				synthetic.Key{Window: id, Name: "A", ScanCode: 30},
				synthetic.Modifiers{Window: id},
				synthetic.Wheel{Window: id, DY: -1},
				synthetic.Move{Window: id, X: 100, Y: 50},
				synthetic.Expose{Window: id},
			}},
		)
	}
	return steps
}

func closeScript(windows []winloop.WindowID) []synthetic.Step {
	steps := make([]synthetic.Step, 0, len(windows))
	for _, id := range windows {
		steps = append(steps, synthetic.Step{
			After:  5 * time.Millisecond,
			Events: []winloop.NativeEvent{synthetic.CloseRequest{Window: id}},
		})
	}
	return steps
}
