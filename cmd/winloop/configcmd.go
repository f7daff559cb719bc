package main

import (
	"github.com/joeycumines/go-winloop/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newConfigCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration run would use, after applying flags and
WINLOOP_* environment variables. The output can be saved and passed back
with --config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			return config.Encode(cmd.OutOrStdout(), config.Format(v.GetString(keyFormat)), cfg)
		},
	}
	cmd.Flags().StringP(keyFormat, "f", string(config.FormatTOML), "output format: toml, yaml or json")
	bindFlags(v, cmd.Flags().Lookup(keyFormat))
	return cmd
}
