// Command flavorbot runs the FlavorBot terminal client.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/sahilkamalny/flavorbot/internal/cli"
	"github.com/sahilkamalny/flavorbot/internal/config"
	pkgcrypto "github.com/sahilkamalny/flavorbot/internal/crypto"
	"github.com/sahilkamalny/flavorbot/internal/limiter"
	"github.com/sahilkamalny/flavorbot/internal/llm"
	"github.com/sahilkamalny/flavorbot/internal/logger"
	"github.com/sahilkamalny/flavorbot/internal/metrics"
	"github.com/sahilkamalny/flavorbot/internal/migrate"
	"github.com/sahilkamalny/flavorbot/internal/repository/postgres"
	"github.com/sahilkamalny/flavorbot/internal/service"
	"github.com/sahilkamalny/flavorbot/internal/session"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// unconfigured stands in for the generator when no endpoint is set.
type unconfigured struct{}

func (unconfigured) Generate(context.Context, string) (string, error) {
	return "", errors.New("recipe generation is not configured (set openai.api_key or openai.base_url)")
}

func main() {
	cfgFile := flag.String("config", "", "path to a YAML config file (default ./config.yaml if present)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("flavorbot %s (%s)\n", version, buildDate)
		return
	}
	if err := run(*cfgFile); err != nil {
		fmt.Fprintln(os.Stderr, "flavorbot:", err)
		os.Exit(1)
	}
}

func run(cfgFile string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.IsProduction(), cfg.Log.Level)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	log.Info("starting", zap.String("version", version), zap.String("buildDate", buildDate))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.DB.Migrate {
		if err := migrate.Up(ctx, cfg.DB.DSN); err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
	}

	db, err := postgres.New(ctx, cfg.DB.DSN)
	if err != nil {
		return err
	}
	defer db.Close()

	scheme, err := pkgcrypto.NewScheme(cfg.Auth.Scheme)
	if err != nil {
		return err
	}

	var lim limiter.Limiter = limiter.Nop{}
	if cfg.Limiter.Enabled {
		lim = limiter.NewPG(db.Pool, cfg.Limiter.Window, cfg.Limiter.MaxFails, cfg.Limiter.BlockFor)
	}

	var gen service.Generator = unconfigured{}
	if cfg.OpenAI.APIKey != "" || cfg.OpenAI.BaseURL != "" {
		g, err := llm.NewOpenAI(llm.Config{
			APIKey:    cfg.OpenAI.APIKey,
			BaseURL:   cfg.OpenAI.BaseURL,
			Model:     cfg.OpenAI.Model,
			MaxTokens: cfg.OpenAI.MaxTokens,
			Timeout:   cfg.OpenAI.Timeout,
		}, log)
		if err != nil {
			return err
		}
		gen = g
	} else {
		log.Warn("no recipe generator configured")
	}

	users := postgres.NewUserRepo(db)
	items := postgres.NewItemRepo(db)
	sess := session.New()

	authSvc := service.NewAuthService(users, scheme, sess, lim, limiter.LocalDevice(), log)
	invSvc := service.NewInventoryService(items, sess, log)
	recipeSvc := service.NewRecipeService(users, gen, sess, cfg.Recipes.CacheSize, cfg.Recipes.CacheTTL, log)

	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr, log); err != nil {
				log.Error("metrics server", zap.Error(err))
			}
		}()
	}

	// unblock the pending line read on SIGINT/SIGTERM
	go func() {
		<-ctx.Done()
		_ = os.Stdin.Close()
	}()

	app := cli.New(authSvc, invSvc, recipeSvc, scheme, os.Stdin, os.Stdout, log)
	err = app.Run(ctx)
	authSvc.Logout()
	log.Info("shutdown complete")
	return err
}
