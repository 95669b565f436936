package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/newsweave-lab/clotho/pkg/cli/config"
	"github.com/newsweave-lab/clotho/pkg/domain/interfaces"
	"github.com/newsweave-lab/clotho/pkg/service/canonical"
	"github.com/newsweave-lab/clotho/pkg/service/extract"
	"github.com/newsweave-lab/clotho/pkg/service/feed"
	"github.com/newsweave-lab/clotho/pkg/usecase"
	"github.com/newsweave-lab/clotho/pkg/utils/logging"
)

// pipelineFlags bundles the configuration shared by serve and the
// one-shot pipeline commands.
type pipelineFlags struct {
	repo     config.Repository
	gemini   config.Gemini
	pipeline config.Pipeline
	sources  config.Sources
}

func (p *pipelineFlags) flags() []cli.Flag {
	var flags []cli.Flag
	flags = append(flags, p.repo.Flags()...)
	flags = append(flags, p.gemini.Flags()...)
	flags = append(flags, p.pipeline.Flags()...)
	flags = append(flags, p.sources.Flags()...)
	return flags
}

// setup builds the repository and use case bundle from the parsed
// flags. The returned cleanup closes the repository.
func (p *pipelineFlags) setup(ctx context.Context) (*usecase.UseCases, interfaces.Repository, func(), error) {
	repo, err := p.repo.Configure(ctx)
	if err != nil {
		return nil, nil, nil, goerr.Wrap(err, "failed to initialize repository")
	}
	cleanup := func() {
		if err := repo.Close(); err != nil {
			logging.Default().Error("failed to close repository", "error", err.Error())
		}
	}

	uc, err := p.buildUseCases(ctx, repo)
	if err != nil {
		cleanup()
		return nil, nil, nil, err
	}
	return uc, repo, cleanup, nil
}

func (p *pipelineFlags) buildUseCases(ctx context.Context, repo interfaces.Repository) (*usecase.UseCases, error) {
	feeds, entityMappings, err := p.sources.Load()
	if err != nil {
		return nil, err
	}
	canon := canonical.New(entityMappings)

	ucOpts := p.pipeline.UseCaseOptions()
	ucOpts = append(ucOpts, usecase.WithCanonicalizer(canon))

	if len(feeds) > 0 {
		ucOpts = append(ucOpts, usecase.WithFeeds(feed.NewFetcher(), feeds))
		logging.Default().Info("Feed ingestion enabled", "feeds", len(feeds))
	} else {
		logging.Default().Info("No feeds configured, ingestion disabled")
	}

	llm, err := p.gemini.Configure(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to configure Gemini client")
	}

	var extractor *extract.Client
	if llm != nil {
		extractor, err = extract.New(llm, repo,
			extract.WithModelName(p.gemini.Model()),
			extract.WithCanonicalizer(canon),
		)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create extraction client")
		}
		logging.Default().Info("Extraction enabled", "model", p.gemini.Model())
	} else {
		logging.Default().Info("Gemini project not configured, extraction disabled")
	}

	return usecase.New(repo, extractor, ucOpts...), nil
}
