package cli

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/newsweave-lab/clotho/pkg/utils/logging"
)

func cmdBackfillEntities() *cli.Command {
	var pf pipelineFlags

	return &cli.Command{
		Name:  "backfill-entities",
		Usage: "Re-canonicalize entity names on stored narratives and mentions",
		Flags: pf.flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			uc, _, cleanup, err := pf.setup(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := uc.Backfill.Run(ctx)
			if report != nil {
				logging.Default().Info("backfill report",
					"narratives", report.Narratives,
					"updated", report.Updated,
					"mentions", report.Mentions,
					"mentions_updated", report.MentionsUpdated,
				)
			}
			return err
		},
	}
}
