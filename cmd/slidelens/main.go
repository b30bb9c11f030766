package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gnemet/SlideLens/internal/config"
)

func main() {
	var configPath string
	var debug bool
	app := &app{}

	root := &cobra.Command{
		Use:           "slidelens",
		Short:         "Render presentations and PDFs into one image with a per-slide font report",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init(configPath, debug)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app.log != nil {
				_ = app.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "optional YAML config file")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "development logging")

	root.AddCommand(convertCmd(app), serveCmd(app), watchCmd(app))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type app struct {
	cfg *config.Config
	log *zap.Logger
}

func (a *app) init(configPath string, debug bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	var log *zap.Logger
	if debug || cfg.Application.Debug {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	zap.ReplaceGlobals(log)

	a.cfg, a.log = cfg, log
	return nil
}
