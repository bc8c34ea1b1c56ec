package websocket

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// Message defines the structure for websocket messages.
type Message struct {
	Action  string      `json:"action"`
	Topic   string      `json:"topic,omitempty"`
	Payload interface{} `json:"payload"`
}

// Encode marshals m, logging and returning nil on failure.
func (m Message) Encode() []byte {
	data, err := json.Marshal(m)
	if err != nil {
		log.Error().Err(err).Str("action", m.Action).Msg("Failed to encode websocket message")
		return nil
	}
	return data
}

// NewErrorMessage builds an error reply for a single client.
func NewErrorMessage(text string) []byte {
	return Message{Action: "error", Payload: map[string]string{"message": text}}.Encode()
}
