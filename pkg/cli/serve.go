package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	httpctrl "github.com/newsweave-lab/clotho/pkg/controller/http"
	"github.com/newsweave-lab/clotho/pkg/service/worker"
	"github.com/newsweave-lab/clotho/pkg/utils/logging"
)

func cmdServe() *cli.Command {
	var addr string
	var pf pipelineFlags

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("CLOTHO_ADDR"),
			Destination: &addr,
		},
	}
	flags = append(flags, pf.flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start the pipeline workers and HTTP read API",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			uc, repo, cleanup, err := pf.setup(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			logging.Default().Info("Pipeline configured", "pipeline", pf.pipeline)

			var workers []*worker.Worker
			if uc.Ingest.Configured() {
				workers = append(workers, worker.New("ingest", pf.pipeline.IngestInterval(), func(ctx context.Context) error {
					_, err := uc.Ingest.Run(ctx)
					return err
				}, worker.WithRunAtStart()))
			}
			if uc.Detect.Configured() {
				workers = append(workers, worker.New("detect", pf.pipeline.DetectInterval(), func(ctx context.Context) error {
					_, err := uc.Detect.Run(ctx)
					return err
				}))
			}
			workers = append(workers,
				worker.New("dedup", pf.pipeline.DedupInterval(), func(ctx context.Context) error {
					_, err := uc.Dedup.Run(ctx)
					return err
				}),
				worker.New("signals", pf.pipeline.SignalInterval(), func(ctx context.Context) error {
					return uc.Signal.Run(ctx)
				}),
				worker.New("cache-prune", pf.pipeline.CachePruneInterval(), func(ctx context.Context) error {
					_, err := uc.Maintenance.Run(ctx)
					return err
				}),
			)

			for _, w := range workers {
				w.Start(ctx)
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(repo),
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				// Stop workers first so no cycle starts mid-shutdown
				for _, w := range workers {
					w.Stop(ctx)
				}

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
