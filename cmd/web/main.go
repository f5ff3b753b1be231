package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/Juanex7890/senalmaq2-sub000/internal/config"
	apphttp "github.com/Juanex7890/senalmaq2-sub000/internal/http"
	"github.com/Juanex7890/senalmaq2-sub000/internal/http/handlers"
	"github.com/Juanex7890/senalmaq2-sub000/internal/modules/orders"
	"github.com/Juanex7890/senalmaq2-sub000/internal/modules/payments"
	"github.com/Juanex7890/senalmaq2-sub000/internal/notify"
	"github.com/Juanex7890/senalmaq2-sub000/internal/storage"
)

func main() {
	// .env is optional; production uses real env vars.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration:\n%v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	publisher := notify.FromBrokers(cfg.KafkaBrokerList(), cfg.KafkaStatusTopic, logger)
	defer publisher.Close()

	ledger := orders.NewLedger(store,
		orders.WithNotifier(publisher),
		orders.WithLogger(logger),
	)

	svc := payments.NewWebhookService(ledger, payments.NewEventRecorder(payments.DefaultRecorderCapacity))
	svc.SetLogger(logger)

	archive, err := storage.FromConfig(ctx, cfg)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	if archive.Storage != nil {
		svc.SetArchive(storage.NewWebhookArchive(archive.Storage))
	}

	if cfg.MercadoPago.Enabled {
		svc.SetMercadoPago(
			payments.NewMercadoPagoClient(payments.MercadoPagoConfig{
				BaseURL:     cfg.MercadoPago.APIBaseURL,
				AccessToken: cfg.MercadoPago.AccessToken,
				Timeout:     cfg.MercadoPago.Timeout,
			}),
			payments.NewMercadoPagoSignatureVerifier(cfg.MercadoPago.WebhookSecret),
		)
	}

	notifier := "none"
	if len(cfg.KafkaBrokerList()) > 0 {
		notifier = "kafka"
	}

	r := apphttp.NewRouter(apphttp.Deps{
		Logger:       logger,
		Ledger:       ledger,
		Webhooks:     svc,
		Bold:         payments.NewBoldVerifier(cfg.Bold.WebhookSecret),
		Signer:       payments.NewIntegritySigner(cfg.Bold.IntegritySecret),
		BoldEnabled:  cfg.Bold.Enabled,
		MPEnabled:    cfg.MercadoPago.Enabled,
		SupportToken: cfg.SupportAPIToken,
		Health: handlers.HealthInfo{
			Store:       cfg.StoreDriver,
			Archive:     archive.Driver,
			Bold:        cfg.Bold.Enabled,
			MercadoPago: cfg.MercadoPago.Enabled,
			Notifier:    notifier,
		},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("server starting",
		"addr", srv.Addr,
		"store", cfg.StoreDriver,
		"archive", archive.Driver,
		"notifier", notifier,
		"bold_webhook_url", cfg.CallbackURL("/api/payments/bold/webhook"),
		"mercadopago_webhook_url", cfg.CallbackURL("/api/payments/mercadopago/webhook"),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config) (orders.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreMySQL:
		db, err := gorm.Open(mysql.Open(cfg.DBDSN), &gorm.Config{TranslateError: true})
		if err != nil {
			return nil, err
		}
		s := orders.NewGormStore(db)
		if err := s.Migrate(ctx); err != nil {
			return nil, err
		}
		return s, nil

	case config.StoreDynamoDB:
		client, err := orders.NewDynamoDBClient(ctx, cfg.AWSRegion, cfg.DynamoDBEndpoint)
		if err != nil {
			return nil, err
		}
		return orders.NewDynamoStore(client, cfg.DynamoDBTable, cfg.DynamoDBCodeIndex), nil

	default:
		return orders.NewMemoryStore(), nil
	}
}
