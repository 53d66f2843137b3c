package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// newRootCmd builds the command tree. Each tree owns its own viper
// instance so that flags bound by one invocation never leak into another.
func newRootCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:          "taskqueue",
		Short:        "Single-consumer task queue with an HTTP API",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file path (default: taskqueue.yaml in ., $HOME/.taskqueue, /etc/taskqueue)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug | info | warn | error")
	rootCmd.PersistentFlags().String("log-format", "json", "log format: json | text")
	bindFlag(v, "logging.level", rootCmd.PersistentFlags(), "log-level")
	bindFlag(v, "logging.format", rootCmd.PersistentFlags(), "log-format")

	rootCmd.AddCommand(newServeCmd(v, &cfgFile))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func bindFlag(v *viper.Viper, viperKey string, fs *pflag.FlagSet, flagName string) {
	if err := v.BindPFlag(viperKey, fs.Lookup(flagName)); err != nil {
		panic(fmt.Sprintf("bindFlag %q → %q: %v", flagName, viperKey, err))
	}
}
