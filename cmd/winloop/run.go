package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joeycumines/go-winloop"
	"github.com/joeycumines/go-winloop/config"
	"github.com/joeycumines/go-winloop/recorder"
	"github.com/joeycumines/logiface"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newRunCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the demo loop",
		Long: `Open the configured windows and run the loop until every window has
been closed, the iteration limit is reached, or a "quit" user event arrives.
The synthetic backend plays a short input script against each window, then
asks each to close.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			code, err := runDemo(cmd.Context(), cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if code != 0 {
				return &exitError{code: code}
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringP(keyBackend, "b", "", "backend: synthetic, or glfw in builds tagged glfw")
	flags.String(keyControlFlow, "", "control flow between iterations: poll, wait or wait_until")
	flags.Duration(keyTick, 0, "wake period for the wait_until control flow")
	flags.StringP(keyRecord, "r", "", "write the dispatched events to this file as JSON lines")
	flags.Uint64(keyMaxIterations, 0, "exit after this many iterations, 0 for no limit")
	bindFlags(v,
		flags.Lookup(keyBackend),
		flags.Lookup(keyControlFlow),
		flags.Lookup(keyTick),
		flags.Lookup(keyRecord),
		flags.Lookup(keyMaxIterations),
	)
	return cmd
}

// runDemo runs one loop per cfg, logging to logOut, and returns its exit
// code. The error is non-nil if the loop could not start, the backend
// failed, or the recording could not be written.
func runDemo(ctx context.Context, cfg *config.File, logOut io.Writer) (code int, err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger, err := cfg.Log.Logger(logOut)
	if err != nil {
		return 0, err
	}

	backend, err := openBackend(cfg)
	if err != nil {
		return 0, err
	}

	opts := append(cfg.LoopOptions(), winloop.WithLogger(logger))
	if cfg.Record.Path != "" {
		rec, closeRec, openErr := openRecording(cfg.Record)
		if openErr != nil {
			closeBackend(backend)
			return 0, openErr
		}
		defer func() { err = errors.Join(err, closeRec()) }()
		opts = append(opts, winloop.WithObserver(rec))
	}

	loop, err := winloop.New[string](backend.Backend, opts...)
	if err != nil {
		closeBackend(backend)
		return 0, err
	}

	d := &demo{
		ctx:    ctx,
		cfg:    cfg,
		log:    logger,
		script: backend.script,
		proxy:  loop.Proxy(),
	}
	code, err = loop.RunReturn(d.handle)
	if err != nil {
		return code, err
	}
	return code, d.err
}

func openRecording(cfg config.Record) (*recorder.Recorder, func() error, error) {
	f, err := os.Create(cfg.Path)
	if err != nil {
		return nil, nil, err
	}
	var opts []recorder.Option
	if cfg.FlushInterval > 0 {
		opts = append(opts, recorder.WithFlushInterval(time.Duration(cfg.FlushInterval)))
	}
	rec := recorder.New(f, opts...)
	return rec, func() error {
		return errors.Join(rec.Close(), f.Close())
	}, nil
}

func closeBackend(b *demoBackend) {
	if c, ok := b.Backend.(io.Closer); ok {
		_ = c.Close()
	}
}

// demo is the callback state of the run command.
type demo struct {
	ctx        context.Context
	cfg        *config.File
	log        *logiface.Logger[logiface.Event]
	script     func(ctx context.Context, windows []winloop.WindowID, proxy winloop.Proxy[string])
	proxy      winloop.Proxy[string]
	err        error
	iterations uint64
}

func (d *demo) handle(ev winloop.Event, reg *winloop.Registry, flow *winloop.ControlFlow) {
	switch e := ev.(type) {
	case winloop.NewEvents:
		d.iterations++
		if e.Cause.Kind == winloop.CauseInit {
			d.open(reg, flow)
		}
		if limit := d.cfg.Loop.MaxIterations; limit > 0 && d.iterations >= limit {
			d.log.Info().
				Uint64("iterations", d.iterations).
				Log("iteration limit reached")
			flow.SetExit()
			return
		}
		setFlow(flow, d.cfg.Loop.Flow(time.Now()))

	case winloop.WindowEvent:
		d.logEvent(ev)
		switch k := e.Kind.(type) {
		case winloop.CloseRequested:
			if err := reg.Destroy(e.WindowID); err != nil && !errors.Is(err, winloop.ErrWindowNotFound) {
				d.log.Err().Err(err).Stringer("window", e.WindowID).Log("destroy failed")
			}
		case winloop.Resized:
			_ = reg.RequestRedraw(e.WindowID)
		case winloop.KeyboardInput:
			if k.Key == "Escape" && k.State == winloop.Pressed {
				flow.SetExit()
			}
		}
		if reg.Len() == 0 {
			d.log.Info().Log("all windows closed")
			flow.SetExit()
		}

	case winloop.UserEvent[string]:
		d.log.Info().Str("value", e.Value).Log("user event")
		if e.Value == "quit" {
			flow.SetExit()
		}

	case winloop.BackendFatal:
		d.log.Err().Err(e.Err).Log("backend failed")

	case winloop.LoopDestroyed:
		d.log.Info().Uint64("iterations", d.iterations).Log("loop destroyed")

	default:
		d.logEvent(ev)
	}
}

// open creates the configured windows, then starts the backend script.
func (d *demo) open(reg *winloop.Registry, flow *winloop.ControlFlow) {
	ids := make([]winloop.WindowID, 0, len(d.cfg.Windows))
	for i, w := range d.cfg.Windows {
		id, err := reg.Create(w.WindowConfig())
		if err != nil {
			d.err = fmt.Errorf("windows[%d]: %w", i, err)
			flow.SetExitWithCode(1)
			return
		}
		ids = append(ids, id)
	}
	if d.script != nil {
		go d.script(d.ctx, ids, d.proxy)
	}
}

func (d *demo) logEvent(ev winloop.Event) {
	b := d.log.Debug()
	if b == nil {
		return
	}
	r := recorder.NewRecord(d.iterations, 0, ev)
	b = b.Str("type", r.Type)
	if r.Kind != "" {
		b = b.Str("kind", r.Kind)
	}
	if r.Window != 0 {
		b = b.Stringer("window", r.Window)
	}
	b.Log("event")
}

func setFlow(flow *winloop.ControlFlow, next winloop.ControlFlow) {
	switch next.Kind() {
	case winloop.FlowPoll:
		flow.SetPoll()
	case winloop.FlowWaitUntil:
		flow.SetWaitUntil(next.Deadline())
	default:
		flow.SetWait()
	}
}
