// Package queue defines message payloads exchanged over the message broker
// together with the publisher and the consumer that use them.
package queue

// NotificationQueue is the durable queue notification events are routed to.
const NotificationQueue = "library.notifications"

// NotificationEvent is published after a notification row has been written.
// It carries the full text so consumers never need to query the database.
type NotificationEvent struct {
    EventID        string `json:"event_id"`
    NotificationID uint64 `json:"notification_id"`
    UserID         uint64 `json:"user_id"`
    Title          string `json:"title"`
    Message        string `json:"message"`
    CreatedAt      string `json:"created_at"`
}
