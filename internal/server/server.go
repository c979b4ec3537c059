package server

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ikayjohn/wingside-sub005/internal/config"
	"github.com/ikayjohn/wingside-sub005/internal/handler"
	"github.com/ikayjohn/wingside-sub005/internal/provider"
	"github.com/ikayjohn/wingside-sub005/internal/provider/korapay"
	"github.com/ikayjohn/wingside-sub005/internal/provider/sudo"
	"github.com/ikayjohn/wingside-sub005/internal/provider/tap"
	"github.com/ikayjohn/wingside-sub005/internal/repository"
	"github.com/ikayjohn/wingside-sub005/internal/router"
	"github.com/ikayjohn/wingside-sub005/internal/usecase/payment"
	"github.com/ikayjohn/wingside-sub005/internal/usecase/wallet"
	"github.com/ikayjohn/wingside-sub005/internal/webhook"

	"github.com/ikayjohn/wingside-sub005/internal/domain"
)

type Server struct {
	httpServer *http.Server
	db         *pgxpool.Pool
}

func New(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	db, err := config.ConnectDB(cfg)
	if err != nil {
		return nil, err
	}
	rdb := config.ConnectRedis(cfg)

	walletRepo := repository.NewWalletRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	eventRepo := repository.NewWebhookEventRepository(db)

	notifier := wallet.NewNotifier(logger)
	wallets := wallet.New(walletRepo, notifier, logger)

	gateways := []provider.Gateway{
		korapay.NewClient(cfg.KorapayBaseURL, cfg.KorapaySecretKey, logger),
		tap.NewClient(cfg.TapBaseURL, cfg.TapConsumerKey, cfg.TapConsumerSecret, logger),
		sudo.NewClient(cfg.SudoBaseURL, cfg.SudoAPIKey, logger),
	}

	engine := payment.New(
		orderRepo,
		wallets,
		gateways,
		eventRepo,
		payment.NewRedisDedupeCache(rdb),
		payment.NewLogConfirmationSender(logger),
		logger,
	)

	verifiers := map[string]webhook.Verifier{
		domain.GatewayKorapay: webhook.NewKorapayVerifier(cfg.KorapayWebhookSecret),
		domain.GatewayTap:     webhook.NewTapVerifier(cfg.TapWebhookSecret),
		domain.GatewaySudo:    webhook.NewSudoVerifier(cfg.SudoWebhookSecret),
	}

	r := router.New(
		handler.NewOrderHandler(orderRepo, logger),
		handler.NewCheckoutHandler(engine, logger),
		handler.NewWalletHandler(wallets, engine, logger),
		handler.NewWebhookHandler(engine, verifiers, eventRepo, logger),
		wallets,
		logger,
	)

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  30 * time.Second,
		},
		db: db,
	}, nil
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	defer s.db.Close()
	return s.httpServer.Shutdown(ctx)
}
