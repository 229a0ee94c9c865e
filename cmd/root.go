package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/beehub/bmar-go/cmd/devices"
	"github.com/beehub/bmar-go/cmd/inspect"
	"github.com/beehub/bmar-go/cmd/realtime"
	"github.com/beehub/bmar-go/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bmar",
		Short: "BMAR acoustic capture engine",
		Long:  "Multichannel acoustic capture for long-term hive monitoring: circular buffering, scheduled recordings and threshold event capture.",
	}

	setupFlags(rootCmd, settings)

	rootCmd.AddCommand(
		realtime.Command(settings),
		devices.Command(settings),
		inspect.Command(settings),
	)

	return rootCmd
}

// setupFlags defines global flags and binds them to viper.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")

	if err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		cobra.CheckErr(err)
	}
}
