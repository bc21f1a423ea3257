package cli

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/yairfalse/perfio/internal/config"
	"github.com/yairfalse/perfio/internal/iogroup"
	"github.com/yairfalse/perfio/internal/observers/counters"
	"github.com/yairfalse/perfio/pkg/domain"
)

func (a *app) signalsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signals",
		Short: "List the signals of the configured IOGroup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			group, closeFn, err := a.openGroup()
			if err != nil {
				return err
			}
			defer closeFn()

			names := group.SignalNames()
			if len(names) == 0 {
				a.printf("No signals. Set %s or --events.\n", config.EventsEnv)
				return nil
			}

			w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "SIGNAL\tDOMAIN\tAGGREGATION\tDESCRIPTION")
			for _, name := range names {
				agg, err := group.AggFunction(name)
				if err != nil {
					return err
				}
				desc, err := group.SignalDescription(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					name, group.SignalDomainType(name), iogroup.AggregationName(agg), desc)
			}
			return w.Flush()
		},
	}
}

func (a *app) readCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read SIGNAL CORE",
		Short: "Read one signal on one core immediately",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid core index %q: %w", args[1], err)
			}

			group, closeFn, err := a.openGroup()
			if err != nil {
				return err
			}
			defer closeFn()

			name := args[0]
			value, err := group.ReadSignal(name, group.SignalDomainType(name), idx)
			if err != nil {
				return err
			}
			format, err := group.FormatFunction(name)
			if err != nil {
				return err
			}
			a.printf("%s\n", format(value))
			return nil
		},
	}
}

func (a *app) pluginsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List registered IOGroup plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.register()
			for _, name := range a.registry.List() {
				marker := " "
				if name == a.cfg.Plugin {
					marker = "*"
				}
				a.printf("%s %s\n", marker, name)
			}
			return nil
		},
	}
}

// printSnapshot writes one row per signal with a column per domain index
func (a *app) printSnapshot(snap counters.Snapshot) error {
	if len(snap.Signals) == 0 {
		a.printf("No signals.\n")
		return nil
	}

	width := 0
	for _, sv := range snap.Signals {
		if len(sv.Values) > width {
			width = len(sv.Values)
		}
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprint(w, "SIGNAL\t")
	for i := 0; i < width; i++ {
		fmt.Fprintf(w, "%s%d\t", shortDomain(snap.Signals[0].Domain), i)
	}
	fmt.Fprintln(w, "TOTAL\t")

	for _, sv := range snap.Signals {
		format := sv.Format
		if format == nil {
			format = iogroup.FormatDouble
		}
		fmt.Fprintf(w, "%s\t", sv.Name)
		for i := 0; i < width; i++ {
			cell := "-"
			if i < len(sv.Values) {
				cell = format(sv.Values[i])
			}
			fmt.Fprintf(w, "%s\t", cell)
		}
		fmt.Fprintf(w, "%s\t\n", format(sv.Total))
	}
	return w.Flush()
}

func shortDomain(dt domain.DomainType) string {
	if dt == domain.DomainCore {
		return "core"
	}
	return dt.String()
}
