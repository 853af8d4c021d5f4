// Command monzo-mcp-http starts the gateway HTTP server.
package main

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"monzo-mcp/internal/config"
	"monzo-mcp/internal/server"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel)); err == nil {
		log = log.Level(level)
	}

	if cfg.MonzoAccessToken == "" {
		log.Warn().Msg("MONZO_ACCESS_TOKEN not set; tool execution will return 401 until configured")
	}
	if cfg.OpenAIAPIKey == "" {
		log.Warn().Msg("OPENAI_API_KEY not set; tool execution will return 401 until configured")
	}

	srv := server.New(cfg, log)
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
		log.Info().Str("port", cfg.Port).Msg("starting gateway with TLS")
		err = httpServer.ListenAndServeTLS(cfg.TLSCertFile, cfg.TLSKeyFile)
	} else {
		log.Info().Str("port", cfg.Port).Msg("starting gateway")
		err = httpServer.ListenAndServe()
	}
	if err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
