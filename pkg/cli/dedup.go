package cli

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/newsweave-lab/clotho/pkg/utils/logging"
)

func cmdDedup() *cli.Command {
	var pf pipelineFlags

	return &cli.Command{
		Name:  "dedup",
		Usage: "Run one narrative deduplication pass",
		Flags: pf.flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			uc, _, cleanup, err := pf.setup(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := uc.Dedup.Run(ctx)
			if report != nil {
				logging.Default().Info("dedup report",
					"compared", report.Compared,
					"groups", report.Groups,
					"absorbed", report.Absorbed,
				)
			}
			return err
		},
	}
}
