package websocket

import (
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification types pushed over WebSocket
const (
	NotificationTypeWithdrawalUpdate  = "withdrawal_update"
	NotificationTypeCommissionUpdate  = "commission_update"
	NotificationTypeWithdrawalRequest = "withdrawal_request"
)

// Notification represents a message sent over WebSocket
type Notification struct {
	Type    string      `json:"type"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	UserID  string      `json:"userID,omitempty"`
}

// Client represents a connected WebSocket client
type Client struct {
	UserID primitive.ObjectID
	Conn   *websocket.Conn
}

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	clients    map[primitive.ObjectID]*Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[primitive.ObjectID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if client.UserID != primitive.NilObjectID {
				h.clients[client.UserID] = client
			}
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.UserID]; ok {
				delete(h.clients, client.UserID)
			}
			client.Conn.Close()
			h.mu.Unlock()
		}
	}
}

// SendToUser sends a message to a specific user
func (h *Hub) SendToUser(userID primitive.ObjectID, notification Notification) error {
	h.mu.RLock()
	client, ok := h.clients[userID]
	h.mu.RUnlock()

	if !ok {
		return fmt.Errorf("user not connected")
	}

	return client.Conn.WriteJSON(notification)
}

// NotifyWithdrawalUpdate tells a consultant their withdrawal changed state
func (h *Hub) NotifyWithdrawalUpdate(consultantID primitive.ObjectID, withdrawalData interface{}) error {
	notification := Notification{
		Type:    NotificationTypeWithdrawalUpdate,
		Message: "Your withdrawal request status has been updated",
		Data:    withdrawalData,
	}

	return h.SendToUser(consultantID, notification)
}

// NotifyCommissionUpdate tells a consultant a commission changed state
func (h *Hub) NotifyCommissionUpdate(consultantID primitive.ObjectID, commissionData interface{}) error {
	notification := Notification{
		Type:    NotificationTypeCommissionUpdate,
		Message: "A commission on your account has been updated",
		Data:    commissionData,
	}

	return h.SendToUser(consultantID, notification)
}
