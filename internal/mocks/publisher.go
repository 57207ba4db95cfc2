package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"gatechat/internal/observability"
	"gatechat/internal/rabbitmq"
	"gatechat/internal/telemetry"
)

var (
	_ rabbitmq.Publisher      = (*PublisherMock)(nil)
	_ observability.Publisher = (*PublisherMock)(nil)
	_ telemetry.Publisher     = (*PublisherMock)(nil)
)

// PublisherMock stands in for the AMQP publisher behind session events and audit.
type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error {
	return m.Called(ctx, routingKey, event, headers).Error(0)
}

func (m *PublisherMock) Close() error {
	return m.Called().Error(0)
}
