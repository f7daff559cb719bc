package recorder_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/joeycumines/go-winloop"
	"github.com/joeycumines/go-winloop/backend/chanbackend"
	"github.com/joeycumines/go-winloop/backend/synthetic"
	"github.com/joeycumines/go-winloop/recorder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_AppendJSON(t *testing.T) {
	r := recorder.NewRecord(3, 7, winloop.WindowEvent{
		WindowID: 2,
		Kind:     winloop.KeyboardInput{Key: "\"q\"", ScanCode: 16, State: winloop.Pressed},
	})
	assert.Equal(t,
		`{"iter":3,"seq":7,"type":"WindowEvent","kind":"KeyboardInput","window":"window-2","code":16,"flag":true,"value":"\"q\""}`,
		string(r.AppendJSON(nil)),
	)

	r = recorder.NewRecord(1, 1, winloop.UserEvent[int]{Value: 42})
	assert.Equal(t, `{"iter":1,"seq":1,"type":"UserEvent","value":"42"}`, string(r.AppendJSON(nil)))

	r = recorder.NewRecord(1, 2, winloop.DeviceEvent{Kind: winloop.MouseMotion{DX: 0.5, DY: -1}})
	assert.Equal(t, `{"iter":1,"seq":2,"type":"DeviceEvent","kind":"MouseMotion","x":0.5,"y":-1}`, string(r.AppendJSON(nil)))
}

func TestDecode(t *testing.T) {
	in := strings.Join([]string{
		`{"iter":1,"seq":2,"type":"MainEventsCleared"}`,
		``,
		`{"iter":1,"seq":1,"type":"NewEvents","kind":"Init"}`,
		`{"iter":1,"seq":3,"type":"RedrawRequested","window":"window-4"}`,
	}, "\n")
	records, err := recorder.Decode(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, recorder.TypeNewEvents, records[0].Type)
	assert.Equal(t, winloop.WindowID(4), records[2].Window)

	_, err = recorder.Decode(strings.NewReader("{not json"))
	assert.ErrorContains(t, err, "line 1")
}

func TestInputs_rebuildsWindowEvents(t *testing.T) {
	events := []winloop.Event{
		winloop.WindowEvent{WindowID: 1, Kind: winloop.KeyboardInput{Key: "a", ScanCode: 30, State: winloop.Pressed, Repeat: true, DeviceID: winloop.DefaultDeviceID}},
		winloop.WindowEvent{WindowID: 1, Kind: winloop.ReceivedCharacter('é')},
		winloop.WindowEvent{WindowID: 2, Kind: winloop.Touch{DeviceID: winloop.DefaultDeviceID, ID: 3, X: 1.5, Y: 2, Phase: winloop.TouchMoved}},
		winloop.WindowEvent{WindowID: 2, Kind: winloop.Touch{ID: 0, Phase: winloop.TouchEnded}},
	}
	var buf bytes.Buffer
	for i, ev := range events {
		r := recorder.NewRecord(1, uint64(i+1), ev)
		buf.Write(r.AppendJSON(nil))
		buf.WriteByte('\n')
	}
	assert.Contains(t, buf.String(), `"repeat":true`)

	records, err := recorder.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, events, recorder.Inputs(records))
}

func TestInputs_skipsMalformedKinds(t *testing.T) {
	assert.Empty(t, recorder.Inputs([]recorder.Record{
		{Type: recorder.TypeWindowEvent, Kind: "Touch", Value: "sideways"},
		{Type: recorder.TypeWindowEvent, Kind: "ReceivedCharacter", Value: "ab"},
		{Type: recorder.TypeWindowEvent, Kind: "ReceivedCharacter"},
	}))
}

func TestVerify(t *testing.T) {
	seq := uint64(0)
	rec := func(iter uint64, typ string, mods ...func(r *recorder.Record)) recorder.Record {
		seq++
		r := recorder.Record{Iteration: iter, Seq: seq, Type: typ}
		for _, m := range mods {
			m(&r)
		}
		return r
	}
	kind := func(k string) func(r *recorder.Record) { return func(r *recorder.Record) { r.Kind = k } }
	window := func(id winloop.WindowID) func(r *recorder.Record) { return func(r *recorder.Record) { r.Window = id } }

	valid := func() []recorder.Record {
		seq = 0
		return []recorder.Record{
			rec(1, recorder.TypeNewEvents, kind("Init")),
			rec(1, recorder.TypeWindowEvent),
			rec(1, recorder.TypeUserEvent),
			rec(1, recorder.TypeMainEventsCleared),
			rec(1, recorder.TypeRedrawRequested, window(1)),
			rec(1, recorder.TypeRedrawRequested, window(2)),
			rec(1, recorder.TypeRedrawEventsCleared),
			rec(2, recorder.TypeNewEvents, kind("Poll")),
			rec(2, recorder.TypeBackendFatal),
			rec(2, recorder.TypeMainEventsCleared),
			rec(2, recorder.TypeRedrawEventsCleared),
			rec(2, recorder.TypeLoopDestroyed),
		}
	}
	require.NoError(t, recorder.Verify(valid()))

	for name, mutate := range map[string]func(rs []recorder.Record) []recorder.Record{
		"native after user": func(rs []recorder.Record) []recorder.Record {
			rs[1].Type, rs[2].Type = rs[2].Type, rs[1].Type
			return rs
		},
		"redraw twice": func(rs []recorder.Record) []recorder.Record {
			rs[5].Window = 1
			return rs
		},
		"redraw before main cleared": func(rs []recorder.Record) []recorder.Record {
			rs[3].Type, rs[4].Type = rs[4].Type, rs[3].Type
			return rs
		},
		"missing destroyed": func(rs []recorder.Record) []recorder.Record {
			return rs[:len(rs)-1]
		},
		"event after destroyed": func(rs []recorder.Record) []recorder.Record {
			r := rs[len(rs)-1]
			r.Seq++
			r.Type = recorder.TypeMainEventsCleared
			return append(rs, r)
		},
		"iteration gap": func(rs []recorder.Record) []recorder.Record {
			for i := 7; i < len(rs); i++ {
				rs[i].Iteration = 3
			}
			return rs
		},
		"first cause": func(rs []recorder.Record) []recorder.Record {
			rs[0].Kind = "Poll"
			return rs
		},
		"seq order": func(rs []recorder.Record) []recorder.Record {
			rs[2].Seq = 1
			return rs
		},
	} {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, recorder.Verify(mutate(valid())))
		})
	}
}

func TestRecorder_recordsLoop(t *testing.T) {
	var buf bytes.Buffer
	rec := recorder.New(&buf, recorder.WithFlushInterval(time.Millisecond), recorder.WithBatchSize(4))

	b := synthetic.New()
	loop, err := winloop.New[string](b, winloop.WithObserver(rec))
	require.NoError(t, err)
	id, err := loop.Registry().Create(winloop.DefaultWindowConfig())
	require.NoError(t, err)
	proxy := loop.Proxy()

	go func() {
		for i := range 20 {
			b.Push(synthetic.Move{Window: id, X: int32(i)})
			_ = proxy.Send("tick")
		}
		b.Push(synthetic.CloseRequest{Window: id})
	}()

	_, err = loop.RunReturn(func(ev winloop.Event, reg *winloop.Registry, flow *winloop.ControlFlow) {
		switch e := ev.(type) {
		case winloop.NewEvents:
			flow.SetWait()
		case winloop.WindowEvent:
			if _, ok := e.Kind.(winloop.CloseRequested); ok {
				flow.SetExit()
			}
			_ = reg.RequestRedraw(e.WindowID)
		}
	})
	require.NoError(t, err)
	require.NoError(t, rec.Close())
	require.NoError(t, rec.Close())

	records, err := recorder.Decode(&buf)
	require.NoError(t, err)
	require.NoError(t, recorder.Verify(records))
	assert.Equal(t, recorder.TypeLoopDestroyed, records[len(records)-1].Type)

	var windowEvents []winloop.Event
	for _, ev := range recorder.Inputs(records) {
		if _, ok := ev.(winloop.WindowEvent); ok {
			windowEvents = append(windowEvents, ev)
		}
	}
	require.Len(t, windowEvents, 21)
	assert.Equal(t, winloop.WindowEvent{WindowID: id, Kind: winloop.Moved{X: 19}}, windowEvents[19])
	assert.Equal(t, winloop.WindowEvent{WindowID: id, Kind: winloop.CloseRequested{}}, windowEvents[20])
}

func TestRecorder_replayThroughChannel(t *testing.T) {
	var first bytes.Buffer
	rec := recorder.New(&first)
	b := synthetic.New()
	loop, err := winloop.New[int](b, winloop.WithObserver(rec))
	require.NoError(t, err)
	id, err := loop.Registry().Create(winloop.DefaultWindowConfig())
	require.NoError(t, err)
	b.Push(
		synthetic.Resize{Window: id, Width: 300, Height: 200},
		synthetic.Focus{Window: id, Focused: true},
		synthetic.Motion{DX: 2, DY: 3},
	)
	_, err = loop.RunReturn(func(ev winloop.Event, reg *winloop.Registry, flow *winloop.ControlFlow) {
		if _, ok := ev.(winloop.RedrawEventsCleared); ok {
			flow.SetExit()
		}
	})
	require.NoError(t, err)
	require.NoError(t, rec.Close())

	records, err := recorder.Decode(&first)
	require.NoError(t, err)
	inputs := recorder.Inputs(records)

	ch := make(chan winloop.Event, len(inputs))
	for _, ev := range inputs {
		ch <- ev
	}
	close(ch)

	var second bytes.Buffer
	rec2 := recorder.New(&second)
	loop2, err := winloop.New[int](chanbackend.New(ch), winloop.WithObserver(rec2))
	require.NoError(t, err)
	_, err = loop2.Registry().Create(winloop.DefaultWindowConfig())
	require.NoError(t, err)
	_, err = loop2.RunReturn(func(winloop.Event, *winloop.Registry, *winloop.ControlFlow) {})
	assert.True(t, errors.Is(err, chanbackend.ErrClosed))
	require.NoError(t, rec2.Close())

	replayed, err := recorder.Decode(&second)
	require.NoError(t, err)
	require.NoError(t, recorder.Verify(replayed))
	assert.Equal(t, inputs, recorder.Inputs(replayed))
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestRecorder_writeError(t *testing.T) {
	rec := recorder.New(failingWriter{}, recorder.WithFlushInterval(time.Millisecond))
	rec.Observe(1, winloop.MainEventsCleared{})
	assert.ErrorContains(t, rec.Close(), "disk full")
	assert.ErrorContains(t, rec.Err(), "disk full")
}
