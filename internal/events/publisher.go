// Package events publishes transaction changes to NSQ.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nsqio/go-nsq"
)

const TopicTransactionStatus = "transactions.status"

// StatusEvent is the payload of TopicTransactionStatus.
type StatusEvent struct {
	TransactionID string    `json:"transactionId"`
	MerchantID    string    `json:"merchantId"`
	OrderID       string    `json:"orderId"`
	OperatorID    string    `json:"operatorId"`
	RequisiteID   string    `json:"requisiteId"`
	Amount        int64     `json:"amount"`
	From          string    `json:"from,omitempty"`
	To            string    `json:"to"`
	Actor         string    `json:"actor"`
	At            time.Time `json:"at"`
}

type Publisher interface {
	Publish(topic string, message any) error
}

type Nop struct{}

func (Nop) Publish(string, any) error { return nil }

type NSQPublisher struct {
	producer *nsq.Producer
}

func NewNSQPublisher(address string) (*NSQPublisher, error) {
	producer, err := nsq.NewProducer(address, nsq.NewConfig())
	if err != nil {
		return nil, fmt.Errorf("create nsq producer: %w", err)
	}
	if err := producer.Ping(); err != nil {
		producer.Stop()
		return nil, fmt.Errorf("ping nsqd: %w", err)
	}
	producer.SetLoggerLevel(nsq.LogLevelWarning)
	return &NSQPublisher{producer: producer}, nil
}

func (p *NSQPublisher) Publish(topic string, message any) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.producer.Publish(topic, body); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (p *NSQPublisher) Stop() { p.producer.Stop() }
