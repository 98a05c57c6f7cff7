package realtime

import (
	"encoding/json"

	"kinsluv/models"

	log "github.com/sirupsen/logrus"
)

// Client frame types.
const (
	TypeJoin    = "join"
	TypeMessage = "message"
	TypeGift    = "gift"
)

// Server frame types. state, error, banned, and coins go to one session;
// message, system, and gift are room broadcasts.
const (
	TypeState  = "state"
	TypeError  = "error"
	TypeBanned = "banned"
	TypeCoins  = "coins"
	TypeSystem = "system"
)

// Envelope is the wire framing for both directions: a type tag plus a
// type-specific payload.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// JoinRequest carries either a bearer token or the legacy id+username pair,
// plus the room to join.
type JoinRequest struct {
	Token    string `json:"token,omitempty"`
	ID       string `json:"id,omitempty"`
	Username string `json:"username,omitempty"`
	Room     string `json:"room,omitempty"`
}

// MessageRequest is a chat line from the client.
type MessageRequest struct {
	Room string `json:"room,omitempty"`
	Text string `json:"text"`
}

// GiftRequest is a gift purchase from the client.
type GiftRequest struct {
	Room   string `json:"room,omitempty"`
	GiftID string `json:"giftId"`
}

// StatePayload is the snapshot sent to a session right after a successful
// join: its user record, the gift catalog, and recent room history.
type StatePayload struct {
	User     *models.User      `json:"user"`
	Gifts    []*models.Gift    `json:"gifts"`
	Messages []*models.Message `json:"messages"`
}

// ErrorPayload is a targeted error frame.
type ErrorPayload struct {
	Message string `json:"message"`
}

// SystemPayload announces joins and leaves to a room.
type SystemPayload struct {
	Text string `json:"text"`
	Room string `json:"room"`
}

// CoinsPayload pushes a refreshed balance to a session after an admin grant
// or top-up lands.
type CoinsPayload struct {
	Coins int64 `json:"coins"`
}

// encodeFrame marshals an envelope around the given payload. Marshalling
// our own payload types cannot realistically fail; a failure is logged and
// returns nil, which callers treat as nothing-to-send.
func encodeFrame(frameType string, payload any) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		log.WithFields(log.Fields{
			"frameType": frameType,
			"error":     err,
		}).Error("Failed to encode frame payload")
		return nil
	}

	frame, err := json.Marshal(Envelope{Type: frameType, Data: data})
	if err != nil {
		log.WithFields(log.Fields{
			"frameType": frameType,
			"error":     err,
		}).Error("Failed to encode frame")
		return nil
	}
	return frame
}
