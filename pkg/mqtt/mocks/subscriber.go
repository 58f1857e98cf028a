package mocks

import (
	"context"

	"github.com/absmach/fldash/pkg/mqtt"
	"github.com/stretchr/testify/mock"
)

var _ mqtt.Subscriber = (*Subscriber)(nil)

// Subscriber is a mock implementation of mqtt.Subscriber.
type Subscriber struct {
	mock.Mock
}

// NewSubscriber creates a mock subscriber whose expectations are asserted
// when the test ends.
func NewSubscriber(t interface {
	mock.TestingT
	Cleanup(func())
},
) *Subscriber {
	m := &Subscriber{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

func (m *Subscriber) Subscribe(ctx context.Context, topic string, handler mqtt.Handler) error {
	args := m.Called(ctx, topic, handler)

	return args.Error(0)
}

func (m *Subscriber) Unsubscribe(ctx context.Context, topic string) error {
	args := m.Called(ctx, topic)

	return args.Error(0)
}

func (m *Subscriber) IsConnected() bool {
	args := m.Called()

	return args.Bool(0)
}

func (m *Subscriber) Disconnect(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
