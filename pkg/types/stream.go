package types

import (
	"encoding/json"
	"errors"
)

// MessageType discriminates WebSocket messages.
type MessageType string

const (
	MessageEnergyReading MessageType = "ENERGY_READING"
	MessageSecurityEvent MessageType = "SECURITY_EVENT"
	MessageStatusUpdate  MessageType = "STATUS_UPDATE"
	MessageTamperAlert   MessageType = "TAMPER_ALERT"
	MessageSystemUpdate  MessageType = "SYSTEM_UPDATE"
)

// StreamMessage is one decoded WebSocket message. Payload holds the raw
// object so subscribers decode only the types they care about.
type StreamMessage struct {
	Type           MessageType     `json:"type"`
	InstallationID int64           `json:"installationId,omitempty"`
	Timestamp      LocalTime       `json:"timestamp"`
	Payload        json.RawMessage `json:"payload,omitempty"`
}

// ErrMissingMessageType is returned for messages without a type field.
var ErrMissingMessageType = errors.New("stream message missing type")

// DecodeStreamMessage parses a message. Messages that carry their fields at
// the top level instead of under "payload" keep the whole object as Payload.
func DecodeStreamMessage(b []byte) (StreamMessage, error) {
	var msg StreamMessage
	if err := json.Unmarshal(b, &msg); err != nil {
		return StreamMessage{}, err
	}
	if msg.Type == "" {
		return StreamMessage{}, ErrMissingMessageType
	}
	if len(msg.Payload) == 0 {
		msg.Payload = append(json.RawMessage(nil), b...)
	}
	return msg, nil
}

// EnergyReading decodes the payload of an ENERGY_READING message.
func (m StreamMessage) EnergyReading() (EnergyReading, error) {
	var r EnergyReading
	err := json.Unmarshal(m.Payload, &r)
	return r, err
}

// TamperEvent decodes the payload of a SECURITY_EVENT or TAMPER_ALERT message.
func (m StreamMessage) TamperEvent() (TamperEvent, error) {
	var e TamperEvent
	err := json.Unmarshal(m.Payload, &e)
	return e, err
}
