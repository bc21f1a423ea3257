package cli

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/yairfalse/perfio/internal/counter/perf"
)

func (a *app) eventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "List the event names the perf_event backend understands",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			names := perf.EventNames()
			if len(names) == 0 {
				a.printf("No events available on this platform.\n")
				return
			}
			sort.Strings(names)
			for _, name := range names {
				a.printf("%s\n", name)
			}
		},
	}
}
