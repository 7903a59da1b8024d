package amqp

import (
	"encoding/json"
	"time"
)

// BankFeedMessage is one transaction pushed by a bank-feed integration.
// The feed delivers structured fields already; statement parsing is not this
// system's job. Description is optional.
type BankFeedMessage struct {
	Amount      float64   `json:"amount"`
	Date        time.Time `json:"date"`
	Description *string   `json:"description,omitempty"`
	Reference   string    `json:"reference,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewBankFeedMessage(amount float64, date time.Time, description *string) *BankFeedMessage {
	return &BankFeedMessage{
		Amount:      amount,
		Date:        date,
		Description: description,
		Timestamp:   time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *BankFeedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BankFeedMessageFromJSON creates a message from JSON bytes
func BankFeedMessageFromJSON(data []byte) (*BankFeedMessage, error) {
	var msg BankFeedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
