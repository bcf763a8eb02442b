// Command coursegen runs one course generation in-process and writes the
// result as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/yungbote/courseforge/internal/config"
	"github.com/yungbote/courseforge/internal/enrichment"
	"github.com/yungbote/courseforge/internal/generation"
	"github.com/yungbote/courseforge/internal/llm/router"
	"github.com/yungbote/courseforge/internal/platform/logger"
	"github.com/yungbote/courseforge/internal/platform/shutdown"
	"github.com/yungbote/courseforge/internal/qa"
)

type topicFlags []string

func (t *topicFlags) String() string { return strings.Join(*t, ",") }

func (t *topicFlags) Set(v string) error {
	*t = append(*t, v)
	return nil
}

func main() {
	var (
		topics   topicFlags
		planPath = flag.String("plan", "", "chapter plan JSON file (skips planning)")
		outPath  = flag.String("out", "course.json", "output file, - for stdout")
		mock     = flag.Bool("mock", false, "use deterministic mock providers")
		noRefs   = flag.Bool("no-enrichment", false, "skip reference enrichment")
	)
	flag.Var(&topics, "topic", "course topic (repeatable)")
	flag.Parse()

	if err := run(topics, *planPath, *outPath, *mock, *noRefs); err != nil {
		fmt.Fprintf(os.Stderr, "coursegen: %v\n", err)
		os.Exit(1)
	}
}

func run(topics []string, planPath, outPath string, mock, noRefs bool) error {
	if len(topics) == 0 {
		return errors.New("at least one -topic is required")
	}
	if mock {
		os.Setenv("CF_MOCK_PROVIDERS", "true")
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	rt, err := router.NewFromConfig(ctx, cfg.Tiers, log)
	if err != nil {
		return err
	}
	gate := qa.New(rt, log, qa.Options{
		Timeout:          cfg.QA.Timeout.Duration,
		MinContentLength: cfg.QA.MinContentLength,
		PassThreshold:    cfg.QA.PassThreshold,
		MaxContentChars:  cfg.QA.MaxContentChars,
	})
	var refs generation.Lookup
	if cfg.Enrichment.Enabled && !noRefs && !mock {
		hc := enrichment.NewHTTPClient(cfg.Enrichment.Timeout.Duration)
		refs = enrichment.NewService(rt, log, enrichment.ServiceOptions{
			Roadmap:  enrichment.NewRoadmap(hc, cfg.Enrichment.RoadmapBaseURL, cfg.Enrichment.MaxReferenceChars),
			General:  []enrichment.Researcher{enrichment.NewWikipedia(hc, cfg.Enrichment.WikipediaURL, 2)},
			Academic: []enrichment.Researcher{enrichment.NewArxiv(hc, cfg.Enrichment.ArxivURL, 3)},
			MaxChars: cfg.Enrichment.MaxReferenceChars,
		})
	}
	opts := generation.Options{
		ContentDelay:   cfg.Generation.ContentDelay.Duration,
		ModuleStagger:  cfg.Generation.ModuleStagger.Duration,
		MinModules:     cfg.Generation.MinModules,
		MaxModules:     cfg.Generation.MaxModules,
		ChapterCount:   cfg.Generation.ChapterCount,
		ApplyRevisions: cfg.Generation.ApplyRevisions,
	}
	if mock {
		opts.ContentDelay, opts.ModuleStagger = 0, 0
	}
	orch := generation.New(rt, gate, refs, log, opts)

	req := generation.Request{CourseID: "local", OwnerID: "cli", Topics: topics}
	if planPath != "" {
		raw, err := os.ReadFile(planPath)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(raw, &req.Plan); err != nil {
			return fmt.Errorf("decode plan: %w", err)
		}
	}

	progress := func(p generation.Progress) {
		if p.Total > 0 {
			fmt.Fprintf(os.Stderr, "[%d/%d] %s\n", p.Current, p.Total, p.Phase)
			return
		}
		fmt.Fprintf(os.Stderr, "%s\n", p.Phase)
	}
	persist := func(_ context.Context, ch generation.Chapter) error {
		fmt.Fprintf(os.Stderr, "chapter %d ready: %s (%d modules)\n", ch.Number, ch.Title, len(ch.Modules))
		return nil
	}

	course, genErr := orch.Generate(ctx, req, progress, persist)
	if course != nil {
		if err := writeJSON(outPath, course); err != nil {
			return err
		}
	}
	return genErr
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	if path == "-" {
		_, err = os.Stdout.Write(b)
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
