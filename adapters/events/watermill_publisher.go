package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/agrilinka/auth-service/ports"
)

const (
	TopicLogin      = "agrilinka.auth.login"
	TopicRegistered = "agrilinka.auth.registered"
)

// LoginEvent is emitted after every successful wallet or password login.
type LoginEvent struct {
	UserID        string    `json:"user_id"`
	WalletAddress string    `json:"wallet_address,omitempty"`
	At            time.Time `json:"at"`
}

// RegisteredEvent is emitted after a successful email registration.
type RegisteredEvent struct {
	UserID string    `json:"user_id"`
	Email  string    `json:"email"`
	At     time.Time `json:"at"`
}

// WatermillPublisher fans auth events out to the rest of the platform
// (notifications, analytics) over a Watermill-compatible broker.
type WatermillPublisher struct {
	publisher message.Publisher
}

func NewWatermillPublisher(publisher message.Publisher) *WatermillPublisher {
	return &WatermillPublisher{publisher: publisher}
}

func (p *WatermillPublisher) PublishLogin(_ context.Context, userID, walletAddress string) error {
	return p.publish(TopicLogin, LoginEvent{
		UserID:        userID,
		WalletAddress: walletAddress,
		At:            time.Now().UTC(),
	})
}

func (p *WatermillPublisher) PublishRegistered(_ context.Context, userID, email string) error {
	return p.publish(TopicRegistered, RegisteredEvent{
		UserID: userID,
		Email:  email,
		At:     time.Now().UTC(),
	})
}

func (p *WatermillPublisher) publish(topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)
	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

var _ ports.EventPublisher = (*WatermillPublisher)(nil)
