// Package notify delivers team updates to connected users.
//
// A Hub holds the websocket clients of this process. Without Redis the Hub
// itself is the ledger's notifier. With Redis, a RedisPublisher is the
// notifier and a Bridge on every replica feeds its local Hub.
package notify

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message is the frame written to websocket clients and carried over Redis.
type Message struct {
	Type      string          `json:"type"`
	UserID    string          `json:"user_id"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

func encode(userID, eventType string, payload any, now time.Time) ([]byte, error) {
	if userID == "" {
		return nil, ErrNoUserID
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	out, err := json.Marshal(Message{Type: eventType, UserID: userID, Data: data, Timestamp: now.Unix()})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return out, nil
}

func decode(raw []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(raw, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	if m.UserID == "" {
		return Message{}, ErrNoUserID
	}
	return m, nil
}
