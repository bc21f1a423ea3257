package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/yairfalse/perfio/internal/observers/counters"
)

func (a *app) sampleCmd() *cobra.Command {
	var delay time.Duration

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Push every signal on every core, wait, then print one batch read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			group, closeFn, err := a.openGroup()
			if err != nil {
				return err
			}
			defer closeFn()

			obs, err := counters.NewObserver(group, a.logger, &counters.Config{Interval: time.Second})
			if err != nil {
				return err
			}

			if delay > 0 {
				select {
				case <-time.After(delay):
				case <-cmd.Context().Done():
					return cmd.Context().Err()
				}
			}
			if err := obs.Poll(cmd.Context()); err != nil {
				return err
			}
			return a.printSnapshot(obs.Snapshot())
		},
	}

	cmd.Flags().DurationVar(&delay, "delay", time.Second, "time to count before the batch read")
	return cmd
}
