package main

import (
	"net/http"
	"os"
	"time"

	"github.com/rs/cors"

	wipecheck "github.com/wipecheck/wipecheck"
	"github.com/wipecheck/wipecheck/clients"
	"github.com/wipecheck/wipecheck/config"
	"github.com/wipecheck/wipecheck/logger"
	"github.com/wipecheck/wipecheck/metrics"
	"github.com/wipecheck/wipecheck/server"
	"github.com/wipecheck/wipecheck/store"
	"github.com/wipecheck/wipecheck/types"
	"github.com/wipecheck/wipecheck/verification"
)

func main() {
	// 1) Config
	cfg, err := config.Load()
	if err != nil {
		logger.NewZapLogger(config.AppName, "error").Error("failed to load config", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	log := logger.NewZapLogger(config.AppName, cfg.LogLevel)

	// 2) Store
	st := store.NewMemoryStore(cfg.ChallengeTTL)

	// 3) Service options
	opts := []wipecheck.Option{
		wipecheck.WithLogger(log),
		wipecheck.WithMetrics(metrics.NewPrometheusRecorder()),
		wipecheck.WithForwardTimeout(cfg.ForwardTimeout),
	}
	if cfg.SingleUse {
		opts = append(opts, wipecheck.WithSingleUse())
	}

	if cfg.VerifyPayments {
		verifier, err := buildVerifier(cfg)
		if err != nil {
			log.Error("failed to build payment verifier", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
		opts = append(opts, wipecheck.WithVerifier(verifier))
	}

	svc, err := wipecheck.New(st, cfg.Terms, opts...)
	if err != nil {
		log.Error("failed to build service", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer svc.Close()

	// 4) Router + CORS
	router := server.New(svc, log).Router()

	c := cors.New(cors.Options{
		AllowedOrigins: []string{cfg.AllowedOrigin},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})

	log.Info("starting server", map[string]any{
		"port":    cfg.Port,
		"network": cfg.Terms.Network,
		"verify":  cfg.VerifyPayments,
	})
	if err := http.ListenAndServe(":"+cfg.Port, c.Handler(router)); err != nil {
		log.Error("server error", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}

// buildVerifier wires a verification service with a client for the
// configured pricing network.
func buildVerifier(cfg *config.Config) (*verification.Service, error) {
	svc := verification.NewService(30 * time.Second)
	network := types.Network(cfg.Terms.Network)

	switch {
	case network.IsSolana():
		client, err := clients.NewSolanaClient(network, cfg.SolanaRPCURL)
		if err != nil {
			return nil, err
		}
		if err := svc.AddSolanaClient(network, client); err != nil {
			return nil, err
		}

	case network.IsEVM():
		client, err := clients.NewEVMClient(network, cfg.EVMRPCURL)
		if err != nil {
			return nil, err
		}
		if err := svc.AddEVMClient(network, client); err != nil {
			return nil, err
		}
	}

	return svc, nil
}
