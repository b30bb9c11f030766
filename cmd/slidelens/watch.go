package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gnemet/SlideLens/internal/observer"
)

func watchCmd(a *app) *cobra.Command {
	var inbox, outbox, done string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Convert every deck or PDF dropped into the inbox directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			wc := a.cfg.Watch
			if inbox != "" {
				wc.Inbox = inbox
			}
			if outbox != "" {
				wc.Outbox = outbox
			}
			if done != "" {
				wc.Done = done
			}

			p, err := newPipeline(a.cfg.Conversion, a.log)
			if err != nil {
				return err
			}
			hist, cleanup, err := newRecorder(ctx, a.cfg, a.log)
			if err != nil {
				return err
			}
			defer cleanup()

			logs := make(chan string, 16)
			drained := make(chan struct{})
			go func() {
				defer close(drained)
				for msg := range logs {
					fmt.Fprintln(cmd.OutOrStdout(), msg)
				}
			}()

			err = observer.NewObserver(wc, p, hist, a.log, logs).Start(ctx)
			close(logs)
			<-drained
			return err
		},
	}
	cmd.Flags().StringVar(&inbox, "inbox", "", "directory to watch (overrides config)")
	cmd.Flags().StringVar(&outbox, "outbox", "", "directory for results (overrides config)")
	cmd.Flags().StringVar(&done, "done", "", "move processed inputs here (overrides config)")
	return cmd
}
