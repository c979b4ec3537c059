package handler

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ikayjohn/wingside-sub005/internal/response"
	"github.com/ikayjohn/wingside-sub005/internal/usecase/wallet"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WalletWSHandler streams balance updates to the client. An initial wallet
// snapshot is pushed on connect; afterwards the notifier delivers updates as
// ledger mutations land.
func WalletWSHandler(wallets *wallet.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := userID(r)
		if uid == "" {
			response.Error(w, http.StatusUnauthorized, "missing user identity")
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		wallets.Notifier.RegisterConnection(uid, conn)
		defer wallets.Notifier.UnregisterConnection(uid, conn)

		if wlt, err := wallets.GetWallet(r.Context(), uid); err == nil {
			wallets.Notifier.NotifyWallet(uid, wlt)
		} else {
			logger.Warn("initial wallet snapshot failed", zap.String("user_id", uid), zap.Error(err))
		}

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}
}
