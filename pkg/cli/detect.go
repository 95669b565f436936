package cli

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/newsweave-lab/clotho/pkg/utils/logging"
)

func cmdDetect() *cli.Command {
	var pf pipelineFlags

	return &cli.Command{
		Name:  "detect",
		Usage: "Run one detection cycle (extract, cluster, match, lifecycle)",
		Flags: pf.flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			uc, _, cleanup, err := pf.setup(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := uc.Detect.Run(ctx)
			if report != nil {
				logging.Default().Info("detection report",
					"attempted", report.Attempted,
					"succeeded", report.Succeeded,
					"skipped", report.Skipped,
					"failed", report.Failed,
					"clusters", report.Clusters,
					"created", report.NarrativesCreated,
					"updated", report.NarrativesUpdated,
					"reawakened", report.Reawakened,
				)
			}
			return err
		},
	}
}
