package main // Entry point package

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/rmtpark-api/internal/config"
	"github.com/iliyamo/rmtpark-api/internal/database"
	"github.com/iliyamo/rmtpark-api/internal/handler"
	"github.com/iliyamo/rmtpark-api/internal/mailer"
	"github.com/iliyamo/rmtpark-api/internal/middleware"
	"github.com/iliyamo/rmtpark-api/internal/payment"
	"github.com/iliyamo/rmtpark-api/internal/queue"
	"github.com/iliyamo/rmtpark-api/internal/repository"
	"github.com/iliyamo/rmtpark-api/internal/router"
	"github.com/iliyamo/rmtpark-api/internal/service"
)

func main() {
	_ = godotenv.Load() // a missing .env is fine; the environment wins anyway

	cfg := config.Load()
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(log)

	// money goes over the wire as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	plans, err := loadPlans(cfg.PlansFile)
	if err != nil {
		return err
	}

	db, err := database.Open(ctx, database.Options{
		User:            cfg.DBUser,
		Pass:            cfg.DBPass,
		Host:            cfg.DBHost,
		Port:            cfg.DBPort,
		Name:            cfg.DBName,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	publisher := queue.NewPublisher(cfg.AMQPURL)
	tenants := repository.NewTenantRepo(db)
	tokens := repository.NewTokenRepo(db)

	var gateway service.PaymentGateway
	if cfg.AsaasAPIKey != "" {
		gateway = payment.NewAsaasClient(cfg.AsaasAPIURL, cfg.AsaasAPIKey)
	} else {
		log.Warn("ASAAS_API_KEY not set, subscriptions are disabled")
	}

	auth := service.NewAuthService(service.AuthConfig{
		JWTSecret:         cfg.JWTSecret,
		AccessTTLMin:      cfg.AccessTTLMin,
		RefreshTTLDays:    cfg.RefreshTTLDays,
		BcryptCost:        cfg.BcryptCost,
		ConfirmTTL:        cfg.ConfirmTTL,
		APIURL:            cfg.APIURL,
		FrontURL:          cfg.FrontURL,
		AdminEmail:        cfg.AdminEmail,
		AdminPasswordHash: cfg.AdminPasswordHash,
	}, tenants, tokens, publisher)

	h := router.Handlers{
		Auth:    handler.NewAuthHandler(auth, service.NewBillingService(tenants, gateway)),
		Parking: handler.NewParkingHandler(service.NewParkingService(db, plans, publisher, loc), loc),
		Tariff:  handler.NewTariffHandler(service.NewTariffService(db)),
		Reports: handler.NewReportHandler(service.NewReportService(repository.NewReportRepo(db), loc), loc),
		Passes:  handler.NewMonthlyPassHandler(service.NewMonthlyPassService(repository.NewMonthlyPassRepo(db)), loc),
		Admin:   handler.NewAdminHandler(service.NewAdminService(tenants)),
	}
	rl := config.LoadRateLimitConfig()
	e := router.New(h, router.Options{
		JWTSecret:   cfg.JWTSecret,
		CORSOrigins: cfg.CORSOrigins,
		RateLimit:   rl,
		Limiter:     middleware.NewLimiter(rl, rdb),
		Cache:       config.LoadCacheConfig(),
		Store:       middleware.NewResponseStore(rdb),
		DB:          db,
		Log:         log,
	})

	var wg sync.WaitGroup
	startConsumer := func(name string, fn queue.HandlerFunc) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := queue.Consume(ctx, cfg.AMQPURL, name, fn); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("consumer stopped", "queue", name, "err", err)
			}
		}()
	}
	startConsumer(queue.CheckoutCompletedQueue, queue.CheckoutLogHandler(cfg.LogDir))
	startConsumer(queue.EmailOutboundQueue, queue.EmailHandler(mailer.SMTPSender{
		Host: cfg.SMTPHost,
		Port: cfg.SMTPPort,
		User: cfg.SMTPUser,
		Pass: cfg.SMTPPass,
		From: cfg.SMTPFrom,
	}))

	wg.Add(1)
	go func() {
		defer wg.Done()
		purgeTokens(ctx, tokens, log)
	}()

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		log.Info("listening", "addr", addr, "env", cfg.Env, "timezone", loc.String())
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		stop()
		wg.Wait()
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = e.Shutdown(shutdownCtx)
	wg.Wait()
	return err
}

// loadPlans reads the capacity plan table from path, or returns the
// built-in table when path is empty.
func loadPlans(path string) (service.PlanTable, error) {
	if path == "" {
		return service.DefaultPlanTable(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return service.PlanTable{}, err
	}
	return service.ParsePlanTable(data)
}

// purgeTokens deletes expired refresh tokens every hour until ctx ends.
func purgeTokens(ctx context.Context, tokens *repository.TokenRepo, log *slog.Logger) {
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := tokens.DeleteExpired(ctx, now)
			if err != nil {
				log.Warn("purge refresh tokens failed", "err", err)
				continue
			}
			log.Debug("purged refresh tokens", "rows", n)
		}
	}
}
