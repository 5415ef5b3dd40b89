package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 5 * time.Second

// client serializa escritas: gorilla/websocket aceita um único escritor por conexão
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

// Hub gerencia conexões WebSocket e assinaturas por tip
// subs: mapeia tipID (ou "*") para o conjunto de clientes inscritos
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	subs     map[string]map[*client]struct{}
}

// NewHub cria uma instância de Hub com política customizada de origem (CORS)
func NewHub(log *zap.Logger, allowOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		log:      log,
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		subs:     make(map[string]map[*client]struct{}),
	}
}

// HandleWS gerencia o ciclo de vida de uma conexão WebSocket
// Permite subscribe/unsubscribe em tips e responde a pings
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	c := &client{conn: conn}

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		switch msg.Type {
		case "subscribe":
			if msg.TipID == "" {
				continue
			}
			h.mu.Lock()
			if _, ok := h.subs[msg.TipID]; !ok {
				h.subs[msg.TipID] = make(map[*client]struct{})
			}
			h.subs[msg.TipID][c] = struct{}{}
			h.mu.Unlock()
		case "unsubscribe":
			h.remove(c, msg.TipID)
		case "ping":
			_ = c.write([]byte(`{"type":"pong"}`))
		}
	}

	// Remove a conexão de todas as assinaturas ao desconectar
	h.mu.Lock()
	for id, set := range h.subs {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, id)
		}
	}
	h.mu.Unlock()
}

func (h *Hub) remove(c *client, tipID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m, ok := h.subs[tipID]; ok {
		delete(m, c)
		if len(m) == 0 {
			delete(h.subs, tipID)
		}
	}
}

// Broadcast envia a invalidação para os inscritos no tip e para os inscritos em "*"
func (h *Hub) Broadcast(inv Invalidation) {
	inv.Type = "invalidate"

	h.mu.RLock()
	targets := make([]*client, 0, len(h.subs[inv.TipID])+len(h.subs[AllTips]))
	for c := range h.subs[inv.TipID] {
		targets = append(targets, c)
	}
	if inv.TipID != AllTips {
		for c := range h.subs[AllTips] {
			if _, dup := h.subs[inv.TipID][c]; !dup {
				targets = append(targets, c)
			}
		}
	}
	h.mu.RUnlock()
	if len(targets) == 0 {
		return
	}

	b, err := json.Marshal(inv)
	if err != nil {
		return
	}
	for _, c := range targets {
		if err := c.write(b); err != nil {
			h.log.Debug("ws write failed", zap.Error(err))
		}
	}
}

// Subscribers devolve quantos clientes acompanham o tip (sem contar "*")
func (h *Hub) Subscribers(tipID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[tipID])
}
