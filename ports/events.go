package ports

import "context"

// EventPublisher notifies other AgriLinka services about auth activity.
type EventPublisher interface {
	PublishLogin(ctx context.Context, userID, walletAddress string) error
	PublishRegistered(ctx context.Context, userID, email string) error
}
