package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/jamiesonbates/trendscout/internal/analysis"
	"github.com/jamiesonbates/trendscout/internal/competitorsearch"
	"github.com/jamiesonbates/trendscout/internal/config"
	"github.com/jamiesonbates/trendscout/internal/export"
	"github.com/jamiesonbates/trendscout/internal/trendcontext"
	"github.com/jamiesonbates/trendscout/internal/trendsource"
)

func main() {
	keyword := flag.String("keyword", "", "Search term to analyze")
	competitors := flag.Bool("competitors", false, "Include competitor gap analysis (needs TAVILY_API_KEY)")
	jsonOut := flag.String("json", "", "Write the full response envelope to this file")
	mdOut := flag.String("md", "", "Write the markdown report to this file")
	pdfOut := flag.String("pdf", "", "Write a PDF report to this file (needs Chromium)")
	flag.Parse()

	log := logrus.New()
	if *keyword == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	heavy, light, err := analysis.NewAnthropicCallersFromEnv()
	if err != nil {
		log.Fatal(err)
	}
	runner := analysis.NewLLMStageRunner(analysis.NewStageExecutor(heavy), analysis.NewStageExecutor(light))

	source, err := trendsource.NewClient(trendsource.Config{
		APIKey:    cfg.SerpAPIKey,
		Geo:       cfg.TrendsGeo,
		Timeframe: cfg.TrendsPeriod,
		Logger:    log,
	})
	if err != nil {
		log.Fatal(err)
	}

	var fetcher analysis.CompetitorFetcher
	if *competitors {
		client, err := competitorsearch.NewClient(competitorsearch.Config{APIKey: cfg.TavilyAPIKey})
		if err != nil {
			log.Fatal(err)
		}
		fetcher = client
	}

	pipeline := analysis.NewPipeline(trendcontext.NewBuilder(cfg.TrendContext), runner, source, fetcher)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	result, err := pipeline.RunWithProgress(ctx, analysis.RequestEnvelope{
		Keyword:            *keyword,
		IncludeCompetitors: *competitors,
	}, func(stage, message string) {
		log.WithField("stage", stage).Info(message)
	})
	if err != nil {
		log.WithField("stage", analysis.StageNameFromError(err)).Fatal(err)
	}

	env := analysis.BuildResponse(result)
	log.WithFields(logrus.Fields{
		"mode":    env.ReportMode,
		"calls":   env.PipelineMetadata.TotalLLMCalls,
		"retries": env.PipelineMetadata.TotalRetries,
	}).Info("analysis complete")

	if *jsonOut != "" {
		data, err := json.MarshalIndent(env, "", "  ")
		if err != nil {
			log.Fatal(err)
		}
		if err := os.WriteFile(*jsonOut, data, 0o644); err != nil {
			log.Fatal(err)
		}
	}
	if *mdOut != "" {
		if err := os.WriteFile(*mdOut, []byte(env.ReportMarkdown), 0o644); err != nil {
			log.Fatal(err)
		}
	}
	if *pdfOut != "" {
		pdf, err := export.NewRenderer().PDF(ctx, env)
		if err != nil {
			log.Fatal(err)
		}
		if err := os.WriteFile(*pdfOut, pdf, 0o644); err != nil {
			log.Fatal(err)
		}
	}
	if *jsonOut == "" && *mdOut == "" && *pdfOut == "" {
		fmt.Println(env.ReportMarkdown)
	}
}
