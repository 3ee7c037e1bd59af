package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"deskpilot/internal/config"
	"deskpilot/internal/logging"
)

var (
	flagConfig string
	cfg        *config.Config
	console    *zap.SugaredLogger
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "deskpilot",
		Short: "Natural-language desktop automation",
		Long: `deskpilot converts a natural-language instruction (Spanish or English)
into a deterministic sequence of desktop automation actions and executes
them against the configured surface.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath())
			if err != nil {
				return err
			}
			if err := logging.Initialize(cfg.Logging.Dir, cfg.Logging.Level); err != nil {
				return err
			}
			zl, err := zap.NewDevelopment()
			if err != nil {
				return fmt.Errorf("creating console logger: %w", err)
			}
			console = zl.Sugar()
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if console != nil {
				_ = console.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", "", "config file path")
	root.AddCommand(newRunCmd(), newHistoryCmd(), newDoctorCmd())
	return root
}

func configPath() string {
	if flagConfig != "" {
		return flagConfig
	}
	if env := os.Getenv("DESKPILOT_CONFIG"); env != "" {
		return env
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".deskpilot", "config.yaml")
}
