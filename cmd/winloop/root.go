package main

import (
	"strings"

	"github.com/joeycumines/go-winloop/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Version is set during build.
var Version = "0.1.0-dev"

// Flag and viper keys. Every key can also be set through the environment,
// as WINLOOP_ followed by the key in upper case with dashes replaced.
const (
	keyConfig        = "config"
	keyLogLevel      = "log-level"
	keyBackend       = "backend"
	keyControlFlow   = "control-flow"
	keyTick          = "tick"
	keyRecord        = "record"
	keyMaxIterations = "max-iterations"
	keyFormat        = "format"
	keyOut           = "out"
)

func newRootCommand() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("WINLOOP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:   "winloop",
		Short: "winloop - windowing event loop demo",
		Long: `winloop drives a windowing event loop over a selectable backend,
logging every dispatched event, and can record the event stream as JSON
lines for later verification and replay.`,
		Version:      Version,
		SilenceUsage: true,
	}
	root.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s\n" .Version}}`)

	flags := root.PersistentFlags()
	flags.StringP(keyConfig, "c", "", "configuration file (.toml, .yaml, .yml or .json)")
	flags.String(keyLogLevel, "", "log level, overriding the configuration (e.g. debug, info, warning)")
	bindFlags(v, flags.Lookup(keyConfig), flags.Lookup(keyLogLevel))

	root.AddCommand(
		newRunCommand(v),
		newVerifyCommand(),
		newReplayCommand(v),
		newConfigCommand(v),
	)
	return root
}

func bindFlags(v *viper.Viper, flags ...*pflag.Flag) {
	for _, f := range flags {
		// binding only fails for a nil flag
		if err := v.BindPFlag(f.Name, f); err != nil {
			panic(err)
		}
	}
}

// loadConfig reads the configuration file, if any, then applies flag and
// environment overrides and validates the result.
func loadConfig(v *viper.Viper) (*config.File, error) {
	cfg := config.Default()
	if path := v.GetString(keyConfig); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}

	if v.IsSet(keyLogLevel) {
		cfg.Log.Level = v.GetString(keyLogLevel)
	}
	if v.IsSet(keyBackend) {
		cfg.Loop.Backend = v.GetString(keyBackend)
	}
	if v.IsSet(keyControlFlow) {
		cfg.Loop.ControlFlow = v.GetString(keyControlFlow)
	}
	if v.IsSet(keyTick) {
		cfg.Loop.Tick = config.Duration(v.GetDuration(keyTick))
	}
	if v.IsSet(keyRecord) {
		cfg.Record.Path = v.GetString(keyRecord)
	}
	if v.IsSet(keyMaxIterations) {
		cfg.Loop.MaxIterations = v.GetUint64(keyMaxIterations)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
