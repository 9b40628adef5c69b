package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jamiesonbates/trendscout/internal/analysis"
	"github.com/jamiesonbates/trendscout/internal/competitorsearch"
	"github.com/jamiesonbates/trendscout/internal/config"
	"github.com/jamiesonbates/trendscout/internal/runstore"
	"github.com/jamiesonbates/trendscout/internal/server"
	"github.com/jamiesonbates/trendscout/internal/trendcontext"
	"github.com/jamiesonbates/trendscout/internal/trendsource"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

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

	// Competitor search is optional; without a key the pipeline skips
	// those stages and still produces a complete report.
	var competitors analysis.CompetitorFetcher
	if cfg.TavilyAPIKey != "" {
		client, err := competitorsearch.NewClient(competitorsearch.Config{APIKey: cfg.TavilyAPIKey})
		if err != nil {
			log.Fatal(err)
		}
		competitors = client
	} else {
		log.Warn("TAVILY_API_KEY not set; competitor analysis disabled")
	}

	store, err := runstore.Open(cfg.DBPath)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	pipeline := analysis.NewPipeline(trendcontext.NewBuilder(cfg.TrendContext), runner, source, competitors)
	srv := server.New(server.Config{
		Host:        cfg.Host,
		Port:        cfg.Port,
		CORSOrigins: cfg.CORSOrigins,
	}, pipeline, store, log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("shutdown")
		}
	}()

	log.WithFields(logrus.Fields{"host": cfg.Host, "port": cfg.Port, "db": cfg.DBPath}).Info("trendscout server listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
	log.Info("trendscout server stopped")
}
