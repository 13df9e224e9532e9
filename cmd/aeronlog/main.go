// Command aeronlog creates, inspects and services shared-memory log
// buffers.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/paulexy/Aeron/internal/config"
)

var (
	flagConfig   string
	flagDir      string
	flagLogLevel string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "aeronlog",
		Short:        "Operate shared-memory log buffers",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML config file")
	root.PersistentFlags().StringVar(&flagDir, "dir", "", "log directory (overrides config)")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "logrus level (overrides config)")
	root.AddCommand(newCreateCmd(), newDescribeCmd(), newBenchCmd(), newCleanCmd())
	return root
}

// loadConfig resolves file config, the AERONLOG_LOG_LEVEL environment
// variable and flag overrides, then points logrus at the resolved
// level. Flags win over the environment, which wins over the file.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if flagConfig != "" {
		var err error
		if cfg, err = config.Load(flagConfig); err != nil {
			return nil, err
		}
	} else {
		cfg = config.Default()
	}
	if flagDir != "" {
		cfg.Dir = flagDir
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	} else if v := os.Getenv("AERONLOG_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logrus.SetLevel(cfg.Level())
	return cfg, nil
}
