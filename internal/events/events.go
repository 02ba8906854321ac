// Package events publishes loan lifecycle notifications to RabbitMQ for
// downstream consumers (reminder mailers, reporting). Publishing is fire and
// forget; a nil publisher disables it entirely.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/vhnguyen/libra/internal/model"
)

// Queue names.
const (
	QueueLoanCreated  = "loan.created"
	QueueLoanReturned = "loan.returned"
)

// Publisher holds an open RabbitMQ connection and channel.
type Publisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// LoanEvent is the payload published for both loan queues.
type LoanEvent struct {
	LoanCode   string    `json:"loan_code"`
	ReaderID   int64     `json:"reader_id"`
	StaffID    int64     `json:"staff_id"`
	ItemCount  int       `json:"item_count"`
	DueDate    time.Time `json:"due_date"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Connect dials the broker and declares the durable loan queues.
func Connect(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dialing broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}

	for _, q := range []string{QueueLoanCreated, QueueLoanReturned} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("declaring queue %s: %w", q, err)
		}
	}

	return &Publisher{conn: conn, ch: ch}, nil
}

// Close releases the channel and connection.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// LoanCreated publishes a loan.created event.
func (p *Publisher) LoanCreated(ctx context.Context, l *model.Loan) error {
	return p.publish(ctx, QueueLoanCreated, loanEvent(l))
}

// LoanReturned publishes a loan.returned event.
func (p *Publisher) LoanReturned(ctx context.Context, l *model.Loan) error {
	return p.publish(ctx, QueueLoanReturned, loanEvent(l))
}

func (p *Publisher) publish(ctx context.Context, queue string, v any) error {
	if p == nil {
		return nil
	}

	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	err = p.ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		return fmt.Errorf("publishing to %s: %w", queue, err)
	}
	return nil
}

func loanEvent(l *model.Loan) LoanEvent {
	return LoanEvent{
		LoanCode:   l.LoanCode,
		ReaderID:   l.Reader.ID,
		StaffID:    l.StaffID,
		ItemCount:  len(l.Items),
		DueDate:    l.DueDate,
		Status:     l.Status,
		OccurredAt: time.Now().UTC(),
	}
}
