package model

import "time"

// Notification is a user-facing message written as a side effect of a
// lifecycle transition.  Only IsRead ever changes after insert.
type Notification struct {
    ID        uint64    `json:"id"`         // notifications.id
    UserID    uint64    `json:"user_id"`    // notifications.user_id
    Title     string    `json:"title"`      // notifications.title
    Message   string    `json:"message"`    // notifications.message
    IsRead    bool      `json:"is_read"`    // notifications.is_read
    CreatedAt time.Time `json:"created_at"` // notifications.created_at
}
