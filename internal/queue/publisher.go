package queue

import (
    "context"
    "encoding/json"
    "log"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends events to RabbitMQ.  Each publish dials, declares the queue
// and closes again; notification volume is low and this keeps the server free
// of long-lived broker state.  Errors are logged and returned so callers can
// ignore them without interrupting the main request flow.
type Publisher struct {
    URL   string
    Queue string
}

// NewPublisher returns a Publisher for the notification queue.
func NewPublisher(url string) *Publisher {
    return &Publisher{URL: url, Queue: NotificationQueue}
}

// PublishNotification publishes ev as a persistent JSON message.
func (p *Publisher) PublishNotification(ctx context.Context, ev NotificationEvent) error {
    conn, err := amqp.Dial(p.URL)
    if err != nil {
        log.Printf("rabbitmq: dial failed: %v", err)
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        log.Printf("rabbitmq: channel open failed: %v", err)
        return err
    }
    defer func() { _ = ch.Close() }()

    // Durable so messages survive broker restarts.
    if _, err := ch.QueueDeclare(p.Queue, true, false, false, false, nil); err != nil {
        log.Printf("rabbitmq: queue declare failed: %v", err)
        return err
    }

    body, err := json.Marshal(ev)
    if err != nil {
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        MessageId:    ev.EventID,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", p.Queue, false, false, pub); err != nil {
        log.Printf("rabbitmq: publish failed: %v", err)
        return err
    }
    return nil
}
