package websocket

import "encoding/json"

type MessageType string

const (
	MsgSubscribeZone MessageType = "SUBSCRIBE_ZONE"
	MsgTariffUpdated MessageType = "TARIFF_UPDATED"
)

type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// SubscribePayload narrows a rate-board client to one zone's updates.
// A client that never subscribes receives every update.
type SubscribePayload struct {
	ZoneID string `json:"zone_id"`
}

type TariffUpdatedPayload struct {
	ZoneID string `json:"zone_id"`
	RuleID string `json:"rule_id"`
	Action string `json:"action"`
}
