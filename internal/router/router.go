package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ikayjohn/wingside-sub005/internal/handler"
	"github.com/ikayjohn/wingside-sub005/internal/usecase/wallet"
)

func New(
	orderH *handler.OrderHandler,
	checkoutH *handler.CheckoutHandler,
	walletH *handler.WalletHandler,
	webhookH *handler.WebhookHandler,
	wallets *wallet.Service,
	logger *zap.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-User-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Public: provider callbacks and operational endpoints. Webhook bodies
	// are authenticated by signature, not by session.
	r.Group(func(pub chi.Router) {
		pub.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok"))
		})
		pub.Handle("/metrics", promhttp.Handler())
		pub.Post("/webhooks/{provider}", webhookH.Handle)
	})

	// User-facing API; identity arrives from the auth gateway upstream.
	r.Route("/api", func(api chi.Router) {
		api.Post("/orders", orderH.Create)
		api.Get("/orders/{orderID}", orderH.Get)

		api.Post("/checkout/initialize", checkoutH.Initialize)
		api.Get("/checkout/verify/{gateway}/{reference}", checkoutH.Verify)

		api.Get("/admin/events/deferred", webhookH.ListDeferred)
		api.Post("/admin/events/retry", webhookH.RetryDeferred)

		api.Get("/wallet", walletH.GetWallet)
		api.Get("/wallet/transactions", walletH.ListTransactions)
		api.Post("/wallet/pay", walletH.Pay)
		api.Get("/ws/wallet", handler.WalletWSHandler(wallets, logger))
	})

	return r
}
