package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ADX777/Timelock-newbot/cas"
	"github.com/ADX777/Timelock-newbot/config"
	"github.com/ADX777/Timelock-newbot/notify"
	"github.com/ADX777/Timelock-newbot/poller"
	"github.com/ADX777/Timelock-newbot/reconcile"
	"github.com/ADX777/Timelock-newbot/store"
	"github.com/ADX777/Timelock-newbot/trongrid"
	"github.com/ADX777/Timelock-newbot/web"
	"github.com/ADX777/Timelock-newbot/web/controllers"
	"github.com/ADX777/Timelock-newbot/webhook"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("timelock service failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	db, err := store.Connect(cfg.DSN)
	if err != nil {
		return err
	}
	st := store.New(db, logger)

	var notifier notify.Notifier = notify.Nop{}
	if cfg.BotToken != "" && cfg.ChannelID != "" {
		notifier = notify.NewTelegram(cfg.BotToken, cfg.ChannelID, logger)
	} else {
		logger.Warn("no telegram credentials configured, operator alerts disabled")
	}

	proofs := cas.NewClient(cfg.IPFSAddr)
	indexer := trongrid.NewClient(cfg.TrongridBaseURL, cfg.TrongridAPIKey,
		cfg.ReceivingAddress, cfg.USDTContract, logger)

	coordinator := reconcile.NewCoordinator(st, notifier, logger)
	pollers := poller.NewSupervisor(poller.Deps{
		Indexer:     indexer,
		Confirmer:   coordinator,
		Proofs:      proofs,
		Notifier:    notifier,
		AmountKnown: st.AmountAllocated,
		Interval:    cfg.PollInterval,
		Logger:      logger,
	})
	coordinator.SetPollerStopper(pollers)

	// resume watching orders that were pending when the process stopped
	pending, err := st.PendingOrders(ctx)
	if err != nil {
		return err
	}
	for _, o := range pending {
		pollers.Watch(ctx, o)
	}
	if len(pending) > 0 {
		logger.Info("resumed pending orders", zap.Int("count", len(pending)))
	}

	processor := webhook.NewProcessorClient(cfg.ProcessorBaseURL, cfg.ProcessorAPIKey)
	ipn := webhook.NewHandler(cfg.IPNSecret, st, coordinator, proofs, processor, logger)

	ctrl := &controllers.Controllers{
		Store:            st,
		Pollers:          pollers,
		Notifier:         notifier,
		ReceivingAddress: cfg.ReceivingAddress,
		AppCtx:           ctx,
		Logger:           logger,
	}
	router := web.NewRouter(ctrl, ipn.Handle, cfg.JWTSecret)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		pollers.Shutdown()
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown failed", zap.Error(err))
	}
	pollers.Shutdown()
	return nil
}
