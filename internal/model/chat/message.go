package chat

import "time"

// Message records one routed exchange for audit/debug.
type Message struct {
	ID        string    `json:"id"`
	Route     Route     `json:"route"`
	Content   string    `json:"content"`
	Reply     string    `json:"reply"`
	Failure   Kind      `json:"failure,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
