package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/newsweave-lab/clotho/pkg/domain/types"
	"github.com/newsweave-lab/clotho/pkg/utils/safe"
)

func cmdSignals() *cli.Command {
	var pf pipelineFlags
	var timeframe string
	var limit int
	var recompute bool

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "timeframe",
			Usage:       "Signal timeframe (24h, 7d or 30d)",
			Value:       "24h",
			Sources:     cli.EnvVars("CLOTHO_SIGNAL_TIMEFRAME"),
			Destination: &timeframe,
		},
		&cli.IntFlag{
			Name:        "limit",
			Usage:       "Number of top signals to show",
			Value:       20,
			Destination: &limit,
		},
		&cli.BoolFlag{
			Name:        "recompute",
			Usage:       "Recompute signals from the mention log before listing",
			Destination: &recompute,
		},
	}
	flags = append(flags, pf.flags()...)

	return &cli.Command{
		Name:  "signals",
		Usage: "Show ranked entity signals, optionally recomputing first",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			tf, err := types.ParseTimeframe(timeframe)
			if err != nil {
				return err
			}

			uc, repo, cleanup, err := pf.setup(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if recompute {
				if err := uc.Signal.Run(ctx); err != nil {
					return err
				}
			}

			signals, err := repo.Signal().List(ctx, tf, limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ENTITY\tSCORE\tMENTIONS\tVELOCITY\tEMERGING\tNARRATIVES")
			for _, s := range signals {
				fmt.Fprintf(w, "%s\t%.2f\t%d\t%+.2f\t%t\t%d\n",
					s.Entity, s.Score, s.MentionCount, s.Velocity, s.IsEmerging, len(s.NarrativeIDs))
			}
			safe.Flush(ctx, w)
			return nil
		},
	}
}
