package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/joeycumines/go-winloop"
	"github.com/joeycumines/go-winloop/backend/chanbackend"
	"github.com/joeycumines/go-winloop/config"
	"github.com/joeycumines/go-winloop/recorder"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newVerifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify RECORDING...",
		Short: "Check the event ordering of recordings",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var errs []error
			for _, path := range args {
				records, err := readRecording(path)
				if err == nil {
					if err = recorder.Verify(records); err != nil {
						err = fmt.Errorf("%s: %w", path, err)
					}
				}
				if err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "FAIL: %v\n", err)
					errs = append(errs, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok, %d records over %d iterations\n",
					path, len(records), records[len(records)-1].Iteration)
			}
			return errors.Join(errs...)
		},
	}
}

func newReplayCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay RECORDING",
		Short: "Feed the input events of a recording through a new loop",
		Long: `Rebuild the window, device and redraw events of a recording and dispatch
them through a loop backed by a channel, one window per window seen. With
--out, the replayed stream is recorded and verified too.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			logger, err := cfg.Log.Logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			records, err := readRecording(args[0])
			if err != nil {
				return err
			}
			inputs := recorder.Inputs(records)

			opts := append(cfg.LoopOptions(), winloop.WithLogger(logger))
			out := v.GetString(keyOut)
			var closeRec func() error
			if out != "" {
				rec, c, err := openRecording(config.Record{Path: out})
				if err != nil {
					return err
				}
				closeRec = c
				opts = append(opts, winloop.WithObserver(rec))
			}

			dispatched, err := replay(inputs, opts)
			if closeRec != nil {
				err = errors.Join(err, closeRec())
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "replayed %d of %d input events\n", dispatched, len(inputs))

			if out != "" {
				replayed, err := readRecording(out)
				if err != nil {
					return err
				}
				if err := recorder.Verify(replayed); err != nil {
					return fmt.Errorf("%s: %w", out, err)
				}
				if got := recorder.Inputs(replayed); !slices.Equal(eventKeys(got), eventKeys(inputs)) {
					return fmt.Errorf("%s: replayed inputs differ from %s", out, args[0])
				}
			}
			return nil
		},
	}
	cmd.Flags().StringP(keyOut, "o", "", "record the replayed events to this file")
	bindFlags(v, cmd.Flags().Lookup(keyOut))
	return cmd
}

// replay runs inputs through a channel backed loop, returning the number of
// input events dispatched. Exhausting the channel ends the loop normally.
func replay(inputs []winloop.Event, opts []winloop.LoopOption) (int, error) {
	ch := make(chan winloop.Event, len(inputs))
	var windows winloop.WindowID
	for _, ev := range inputs {
		ch <- ev
		switch e := ev.(type) {
		case winloop.WindowEvent:
			windows = max(windows, e.WindowID)
		case winloop.RedrawRequested:
			windows = max(windows, e.WindowID)
		}
	}
	close(ch)

	loop, err := winloop.New[struct{}](chanbackend.New(ch), opts...)
	if err != nil {
		return 0, err
	}
	// ids are allocated from 1, so this recreates every recorded id
	for range windows {
		if _, err := loop.Registry().Create(winloop.DefaultWindowConfig()); err != nil {
			return 0, err
		}
	}

	var dispatched int
	_, err = loop.RunReturn(func(ev winloop.Event, _ *winloop.Registry, flow *winloop.ControlFlow) {
		switch ev.(type) {
		case winloop.NewEvents:
			flow.SetWait()
		case winloop.WindowEvent, winloop.DeviceEvent, winloop.RedrawRequested:
			dispatched++
		}
	})
	if errors.Is(err, chanbackend.ErrClosed) {
		err = nil
	}
	return dispatched, err
}

func readRecording(path string) ([]recorder.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	records, err := recorder.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: %w", path, io.ErrUnexpectedEOF)
	}
	return records, nil
}

// eventKeys renders the window and device events for comparison. Redraw
// requests are skipped, as the replay may coalesce them differently.
func eventKeys(events []winloop.Event) []string {
	keys := make([]string, 0, len(events))
	for _, ev := range events {
		if _, ok := ev.(winloop.RedrawRequested); ok {
			continue
		}
		keys = append(keys, fmt.Sprintf("%#v", ev))
	}
	return keys
}
