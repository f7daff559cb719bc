package recorder

import (
	"fmt"
)

// phase is the position within one iteration.
type phase uint8

const (
	phaseIdle   phase = iota // before the first NewEvents, or after RedrawEventsCleared
	phaseNative              // NewEvents seen, native events allowed
	phaseUser                // a user event was seen, natives no longer allowed
	phaseFatal               // BackendFatal seen
	phaseRedraw              // MainEventsCleared seen
	phaseDone                // LoopDestroyed seen
)

// Verify checks that records form a well ordered recording: iterations
// numbered from 1 without gaps, each bracketed by NewEvents and
// RedrawEventsCleared with native events before user events, redraws only
// after MainEventsCleared and at most once per window, and a single
// terminating LoopDestroyed. The first NewEvents must have cause Init.
func Verify(records []Record) error {
	var (
		p         phase
		iteration uint64
		seq       uint64
		redrawn   map[string]struct{}
	)
	for i, r := range records {
		if i != 0 && r.Seq <= seq {
			return fmt.Errorf("recorder: record %d: seq %d not after %d", i, r.Seq, seq)
		}
		seq = r.Seq
		if p == phaseDone {
			return fmt.Errorf("recorder: record %d: %s after LoopDestroyed", i, r.Type)
		}

		if r.Type == TypeLoopDestroyed {
			if p != phaseIdle || iteration == 0 {
				return fmt.Errorf("recorder: record %d: LoopDestroyed inside iteration %d", i, iteration)
			}
			if r.Iteration != iteration {
				return fmt.Errorf("recorder: record %d: LoopDestroyed in iteration %d, want %d", i, r.Iteration, iteration)
			}
			p = phaseDone
			continue
		}

		if r.Type == TypeNewEvents {
			if p != phaseIdle {
				return fmt.Errorf("recorder: record %d: NewEvents before iteration %d ended", i, iteration)
			}
			if r.Iteration != iteration+1 {
				return fmt.Errorf("recorder: record %d: iteration %d follows %d", i, r.Iteration, iteration)
			}
			if iteration == 0 && r.Kind != "Init" {
				return fmt.Errorf("recorder: record %d: first iteration has cause %s", i, r.Kind)
			}
			iteration = r.Iteration
			redrawn = make(map[string]struct{})
			p = phaseNative
			continue
		}

		if r.Iteration != iteration {
			return fmt.Errorf("recorder: record %d: %s in iteration %d, want %d", i, r.Type, r.Iteration, iteration)
		}

		switch r.Type {
		case TypeWindowEvent, TypeDeviceEvent:
			if p != phaseNative {
				return fmt.Errorf("recorder: record %d: %s out of order in iteration %d", i, r.Type, iteration)
			}
		case TypeUserEvent:
			if p != phaseNative && p != phaseUser {
				return fmt.Errorf("recorder: record %d: UserEvent out of order in iteration %d", i, iteration)
			}
			p = phaseUser
		case TypeBackendFatal:
			if p != phaseNative && p != phaseUser {
				return fmt.Errorf("recorder: record %d: BackendFatal out of order in iteration %d", i, iteration)
			}
			p = phaseFatal
		case TypeMainEventsCleared:
			if p == phaseIdle || p == phaseRedraw {
				return fmt.Errorf("recorder: record %d: MainEventsCleared out of order in iteration %d", i, iteration)
			}
			p = phaseRedraw
		case TypeRedrawRequested:
			if p != phaseRedraw {
				return fmt.Errorf("recorder: record %d: RedrawRequested before MainEventsCleared in iteration %d", i, iteration)
			}
			key := r.Window.String()
			if _, ok := redrawn[key]; ok {
				return fmt.Errorf("recorder: record %d: %s redrawn twice in iteration %d", i, key, iteration)
			}
			redrawn[key] = struct{}{}
		case TypeRedrawEventsCleared:
			if p != phaseRedraw {
				return fmt.Errorf("recorder: record %d: RedrawEventsCleared out of order in iteration %d", i, iteration)
			}
			p = phaseIdle
		default:
			return fmt.Errorf("recorder: record %d: unknown type %q", i, r.Type)
		}
	}
	if p != phaseDone {
		return fmt.Errorf("recorder: recording ends without LoopDestroyed")
	}
	return nil
}
