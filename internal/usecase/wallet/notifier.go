package wallet

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ikayjohn/wingside-sub005/internal/domain"
)

type wsMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Notifier pushes balance updates to connected websocket clients. Delivery
// is best effort; a dead socket never affects the ledger write that
// triggered the push.
type Notifier struct {
	clients map[string]map[*websocket.Conn]bool
	mu      sync.Mutex
	logger  *zap.Logger
}

func NewNotifier(logger *zap.Logger) *Notifier {
	return &Notifier{
		clients: make(map[string]map[*websocket.Conn]bool),
		logger:  logger,
	}
}

func (n *Notifier) RegisterConnection(userID string, conn *websocket.Conn) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.clients[userID] == nil {
		n.clients[userID] = make(map[*websocket.Conn]bool)
	}
	n.clients[userID][conn] = true
}

func (n *Notifier) UnregisterConnection(userID string, conn *websocket.Conn) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if conns, ok := n.clients[userID]; ok {
		delete(conns, conn)
		conn.Close()
		if len(conns) == 0 {
			delete(n.clients, userID)
		}
	}
}

func (n *Notifier) NotifyBalance(userID string, tx *domain.WalletTransaction) {
	n.mu.Lock()
	defer n.mu.Unlock()

	payload, _ := json.Marshal(wsMessage{
		Type: "balance_update",
		Data: map[string]interface{}{
			"user_id":        userID,
			"balance":        tx.BalanceAfter,
			"transaction_id": tx.ID,
			"direction":      tx.Direction,
			"amount":         tx.Amount,
			"category":       tx.Category,
		},
	})

	for conn := range n.clients[userID] {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			n.logger.Warn("balance push failed, dropping connection",
				zap.String("user_id", userID), zap.Error(err))
			conn.Close()
			delete(n.clients[userID], conn)
		}
	}
}

func (n *Notifier) NotifyWallet(userID string, w *domain.Wallet) {
	n.mu.Lock()
	defer n.mu.Unlock()

	payload, _ := json.Marshal(wsMessage{
		Type: "wallet_snapshot",
		Data: w,
	})

	for conn := range n.clients[userID] {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			conn.Close()
			delete(n.clients[userID], conn)
		}
	}
}
