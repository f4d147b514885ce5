package queue

import "context"

// Publisher emite eventos de dominio hacia un broker.
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
	Close() error
}

type NoopPublisher struct{}

func NewNoop() Publisher { return NoopPublisher{} }

func (NoopPublisher) Publish(_ context.Context, _ string, _ any) error { return nil }
func (NoopPublisher) Close() error                                     { return nil }
