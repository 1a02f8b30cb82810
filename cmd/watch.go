package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/connections-cli/internal/poller"
)

var (
	watchUntilDone bool
	watchInterval  int
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll all active jobs on an interval",
	Long: `Runs the poll scheduler: an immediate first pass over every active job,
then one pass per interval, writing each remote report into the ledger.
Interrupt with Ctrl-C; the in-flight pass finishes before exit.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		if watchInterval > 0 {
			cfg.Poll.IntervalSecs = watchInterval
		}

		var opts []poller.Option
		if watchUntilDone {
			opts = append(opts, poller.WithStopWhenIdle())
		}
		sched := newScheduler(e, opts...)

		zap.L().Info("watching active jobs",
			zap.Int("interval_secs", cfg.Poll.IntervalSecs),
			zap.Bool("until_done", watchUntilDone),
		)
		if err := sched.Run(ctx); err != nil && !eris.Is(err, context.Canceled) {
			return eris.Wrap(err, "watch")
		}
		return nil
	},
}

func init() {
	watchCmd.Flags().BoolVar(&watchUntilDone, "until-done", false, "exit once no active jobs remain")
	watchCmd.Flags().IntVar(&watchInterval, "interval", 0, "poll interval in seconds (default: poll.interval_secs from config)")
	rootCmd.AddCommand(watchCmd)
}
