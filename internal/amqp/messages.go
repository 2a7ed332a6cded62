package amqp

import (
	"encoding/json"
	"time"
)

// Event actions carried on the expense event stream.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// ExpenseEventMessage is a lightweight notification that an expense changed.
// Consumers that need the full row fetch it from the database.
type ExpenseEventMessage struct {
	Action    string    `json:"action"`
	ExpenseID uint      `json:"expense_id"`
	UserID    uint      `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExpenseEventMessage(action string, expenseID, userID uint) *ExpenseEventMessage {
	return &ExpenseEventMessage{
		Action:    action,
		ExpenseID: expenseID,
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventMessageFromJSON creates a message from JSON bytes
func ExpenseEventMessageFromJSON(data []byte) (*ExpenseEventMessage, error) {
	var msg ExpenseEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
