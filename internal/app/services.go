package app

import (
	"context"
	"os"

	"github.com/yungbote/courseforge/internal/config"
	"github.com/yungbote/courseforge/internal/enrichment"
	"github.com/yungbote/courseforge/internal/generation"
	"github.com/yungbote/courseforge/internal/platform/logger"
	"github.com/yungbote/courseforge/internal/qa"
	"github.com/yungbote/courseforge/internal/services"
)

type Services struct {
	Orchestrator     *generation.Orchestrator
	Course           services.CourseService
	CourseGeneration services.CourseGenerationService
	ProgressBus      services.ProgressBus
}

func wireServices(ctx context.Context, cfg *config.Config, log *logger.Logger, clients Clients, reposet Repos) (Services, error) {
	log.Info("Wiring services...")

	gate := qa.New(clients.Generator, log, qa.Options{
		Timeout:          cfg.QA.Timeout.Duration,
		MinContentLength: cfg.QA.MinContentLength,
		PassThreshold:    cfg.QA.PassThreshold,
		MaxContentChars:  cfg.QA.MaxContentChars,
	})

	var refs generation.Lookup
	if cfg.Enrichment.Enabled {
		refs = wireEnrichment(cfg.Enrichment, log, clients)
	}

	orch := generation.New(clients.Generator, gate, refs, log, generation.Options{
		ContentDelay:   cfg.Generation.ContentDelay.Duration,
		ModuleStagger:  cfg.Generation.ModuleStagger.Duration,
		MinModules:     cfg.Generation.MinModules,
		MaxModules:     cfg.Generation.MaxModules,
		ChapterCount:   cfg.Generation.ChapterCount,
		ApplyRevisions: cfg.Generation.ApplyRevisions,
	})

	var bus services.ProgressBus
	if clients.Redis != nil {
		bus = services.NewRedisProgressBus(clients.Redis, cfg.Redis.ChannelPrefix, log)
	} else {
		bus = services.NewMemoryProgressBus(log)
	}

	// runs left queued or running by a previous process can never finish
	if n, err := reposet.CourseGenerationRun.FailInterrupted(ctx, nil, "interrupted by service restart"); err != nil {
		log.Warn("fail interrupted runs", "error", err)
	} else if n > 0 {
		log.Info("marked interrupted generation runs failed", "count", n)
	}

	return Services{
		Orchestrator:     orch,
		Course:           services.NewCourseService(log, reposet.Course),
		CourseGeneration: services.NewCourseGenerationService(log, orch, reposet.Course, reposet.CourseGenerationRun, bus, clients.Archive),
		ProgressBus:      bus,
	}, nil
}

func wireEnrichment(cfg config.EnrichmentConfig, log *logger.Logger, clients Clients) generation.Lookup {
	hc := enrichment.NewHTTPClient(cfg.Timeout.Duration)
	general := []enrichment.Researcher{enrichment.NewWikipedia(hc, cfg.WikipediaURL, 2)}
	if key := os.Getenv(cfg.BraveAPIKeyEnv); cfg.BraveAPIKeyEnv != "" && key != "" {
		general = append(general, enrichment.NewWebSearch(hc, cfg.BraveURL, key))
	}
	svc := enrichment.NewService(clients.Generator, log, enrichment.ServiceOptions{
		Roadmap:  enrichment.NewRoadmap(hc, cfg.RoadmapBaseURL, cfg.MaxReferenceChars),
		General:  general,
		Academic: []enrichment.Researcher{enrichment.NewArxiv(hc, cfg.ArxivURL, 3)},
		MaxChars: cfg.MaxReferenceChars,
	})
	if clients.Redis == nil {
		return svc
	}
	return enrichment.NewCache(svc, clients.Redis, cfg.CacheTTL.Duration, log)
}
