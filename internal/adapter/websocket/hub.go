package websocket

import (
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Hub fans tariff-change events out to connected rate-board clients so
// displays can re-fetch prices the moment an admin edits a rule.
type Hub struct {
	clients    map[*Client]bool
	notify     chan tariffNotice
	register   chan *Client
	unregister chan *Client
	log        *zap.Logger
}

type tariffNotice struct {
	zoneID  uuid.UUID
	message []byte
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		notify:     make(chan tariffNotice, 16),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		log:        log,
	}
}

func (h *Hub) HandleMessage(client *Client, message []byte) {
	var env Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		h.log.Warn("invalid message from rate board", zap.Error(err))
		return
	}

	switch env.Type {
	case MsgSubscribeZone:
		var sub SubscribePayload
		if err := json.Unmarshal(env.Payload, &sub); err != nil {
			return
		}
		zoneID, err := uuid.Parse(sub.ZoneID)
		if err != nil {
			return
		}
		client.subscribe(zoneID)
		h.log.Info("rate board subscribed", zap.String("zone_id", sub.ZoneID))
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
		case notice := <-h.notify:
			for client := range h.clients {
				if !client.watches(notice.zoneID) {
					continue
				}
				select {
				case client.send <- notice.message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// NotifyTariffUpdated queues the event for clients watching the zone.
func (h *Hub) NotifyTariffUpdated(zoneID, ruleID uuid.UUID, action string) {
	payload, _ := json.Marshal(TariffUpdatedPayload{
		ZoneID: zoneID.String(),
		RuleID: ruleID.String(),
		Action: action,
	})
	msg, _ := json.Marshal(Envelope{Type: MsgTariffUpdated, Payload: payload})

	select {
	case h.notify <- tariffNotice{zoneID: zoneID, message: msg}:
	default:
		h.log.Warn("tariff notice dropped, hub backlog full")
	}
}
