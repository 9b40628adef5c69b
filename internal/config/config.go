package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/jamiesonbates/trendscout/internal/trendcontext"
)

// Config holds everything the server and CLI need from the environment.
// API keys are read lazily by the clients that use them, so a missing
// TAVILY_API_KEY only matters when competitor analysis is requested.
type Config struct {
	Host        string
	Port        int
	DBPath      string
	CORSOrigins []string

	SerpAPIKey   string
	TavilyAPIKey string
	TrendsGeo    string
	TrendsPeriod string
	TrendContext trendcontext.Config
}

// Load reads a .env file if present, then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Host:         os.Getenv("HOST"),
		DBPath:       getEnv("DB_PATH", "trendscout.db"),
		SerpAPIKey:   strings.TrimSpace(os.Getenv("SERPAPI_API_KEY")),
		TavilyAPIKey: strings.TrimSpace(os.Getenv("TAVILY_API_KEY")),
		TrendsGeo:    os.Getenv("TRENDS_GEO"),
		TrendsPeriod: os.Getenv("TRENDS_TIMEFRAME"),
		TrendContext: trendcontext.DefaultConfig(),
	}

	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PORT: %w", err)
	}
	cfg.Port = port

	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}

	if path := os.Getenv("TREND_CONTEXT_CONFIG"); path != "" {
		tc, err := trendcontext.LoadConfig(path)
		if err != nil {
			return Config{}, fmt.Errorf("load trend context config: %w", err)
		}
		cfg.TrendContext = tc
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
