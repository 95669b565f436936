package cli

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/newsweave-lab/clotho/pkg/utils/logging"
)

func cmdIngest() *cli.Command {
	var pf pipelineFlags

	return &cli.Command{
		Name:  "ingest",
		Usage: "Fetch configured feeds and store new documents",
		Flags: pf.flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			uc, _, cleanup, err := pf.setup(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := uc.Ingest.Run(ctx)
			if report != nil {
				logging.Default().Info("ingestion report",
					"sources", report.Sources,
					"failed", report.Failed,
					"new_documents", report.Documents,
				)
			}
			return err
		},
	}
}
