package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/vault/api"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/xueqianLu/dscgateway/internal/cache"
	"github.com/xueqianLu/dscgateway/internal/chain"
	"github.com/xueqianLu/dscgateway/internal/config"
	"github.com/xueqianLu/dscgateway/internal/contracts"
	"github.com/xueqianLu/dscgateway/internal/handler"
	"github.com/xueqianLu/dscgateway/internal/logging"
	"github.com/xueqianLu/dscgateway/internal/metrics"
	"github.com/xueqianLu/dscgateway/internal/middleware"
	"github.com/xueqianLu/dscgateway/internal/server"
	"github.com/xueqianLu/dscgateway/internal/signer"
	"github.com/xueqianLu/dscgateway/internal/telemetry"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}
	log := logging.New(cfg.Log.Level, cfg.Log.Format)

	if err := run(cfg, log); err != nil {
		log.Fatalf("%v", err)
	}
}

// run serves until SIGINT or SIGTERM. Resources are released on every
// return path.
func run(cfg config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracer(ctx, "dsc-gateway", cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("failed to initialise tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(flushCtx); err != nil {
			log.WithError(err).Warn("tracer shutdown")
		}
	}()

	client, err := chain.Dial(ctx, cfg.Chain.RPCURL)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", cfg.Chain.RPCURL, err)
	}
	defer client.Close()

	m := metrics.New()
	meta, err := cache.New(cache.Config{Addr: cfg.Redis.Addr, TTL: cfg.Redis.TTL})
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	if c, ok := meta.(io.Closer); ok {
		defer c.Close()
	}

	// Initialize components
	bind := func(name, address, abiJSON string) (*chain.BoundContract, error) {
		c, err := chain.NewContract(name, common.HexToAddress(address), abiJSON, client, m)
		if err != nil {
			return nil, fmt.Errorf("failed to bind %s contract: %w", name, err)
		}
		return c, nil
	}
	dscContract, err := bind("dsc", cfg.Contracts.DSC, chain.DSCTokenABI)
	if err != nil {
		return err
	}
	engineContract, err := bind("engine", cfg.Contracts.Engine, chain.DSCEngineABI)
	if err != nil {
		return err
	}
	wethContract, err := bind("weth", cfg.Contracts.WETH, chain.WrappedAssetABI)
	if err != nil {
		return err
	}
	wbtcContract, err := bind("wbtc", cfg.Contracts.WBTC, chain.WrappedAssetABI)
	if err != nil {
		return err
	}
	token := contracts.NewToken(dscContract, client, meta)
	engine := contracts.NewEngine(engineContract, client)
	weth := contracts.NewWrappedAsset(contracts.WETH, wethContract, client, meta)
	wbtc := contracts.NewWrappedAsset(contracts.WBTC, wbtcContract, client, meta)

	keyManager, err := newKeyManager(cfg.KeyManager, log)
	if err != nil {
		return fmt.Errorf("failed to create KeyManager: %w", err)
	}

	opts := handler.Options{
		Metrics: m,
		Auth:    middleware.NewAuthMiddleware(cfg.Auth.APIKey, cfg.Auth.APISecret),
	}
	if len(cfg.CORS.AllowedOrigins) > 0 {
		opts.CORS = middleware.NewCORSMiddleware(cfg.CORS.AllowedOrigins)
	}
	if cfg.RateLimit.RPS > 0 {
		opts.RateLimiter = middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, log, m)
		opts.RateLimiter.StartCleanup(time.Minute, ctx.Done())
	}

	router := handler.NewRouter(handler.Services{
		Token:   token,
		Engine:  engine,
		WETH:    contracts.NewCollateral(weth, engine, token),
		WBTC:    contracts.NewCollateral(wbtc, engine, token),
		Backend: client,
		Signer:  signer.NewSigner(keyManager, log),
	}, opts, log)

	// Start server
	srv := server.NewServer(router, cfg.Server)
	serveErr := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"port":   cfg.Server.Port,
			"rpc":    cfg.Chain.RPCURL,
			"auth":   opts.Auth.Enabled(),
			"keys":   cfg.KeyManager.Type,
			"dsc":    cfg.Contracts.DSC,
			"engine": cfg.Contracts.Engine,
		}).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown")
	}
	return nil
}

// newKeyManager returns nil when managed keys are disabled.
func newKeyManager(cfg config.KeyManagerConfig, log logrus.FieldLogger) (signer.KeyManager, error) {
	switch cfg.Type {
	case "local":
		return signer.NewLocalKeyManager(cfg.Local.KeyDir, cfg.Local.Password, log)
	case "vault":
		vaultConfig := api.DefaultConfig()
		if err := vaultConfig.ReadEnvironment(); err != nil {
			log.Warnf("could not read Vault environment variables: %v", err)
		}
		if cfg.Vault.Address != "" {
			vaultConfig.Address = cfg.Vault.Address
		}
		vaultClient, err := api.NewClient(vaultConfig)
		if err != nil {
			return nil, err
		}
		if cfg.Vault.Token != "" {
			vaultClient.SetToken(cfg.Vault.Token)
		}
		return signer.NewVaultKeyManager(vaultClient, cfg.Vault.TransitPath, log)
	default:
		return nil, nil
	}
}
