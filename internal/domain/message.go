package domain

import "time"

// ChatMessage is immutable once stored; it is only removed by a bulk
// history clear or by bound-triggered eviction of the oldest entries.
// ServerTime is authoritative for ordering and is assigned at receipt.
type ChatMessage struct {
	ID         string    `json:"id"`
	From       UserID    `json:"userId,omitempty"`
	Username   string    `json:"username,omitempty"`
	Avatar     string    `json:"avatar,omitempty"`
	Body       string    `json:"text"`
	System     bool      `json:"system,omitempty"`
	ClientTime time.Time `json:"clientTimestamp,omitempty"`
	ServerTime time.Time `json:"serverTimestamp"`
}
