package delivery

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/donora/internal/config"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type brokerReply int

const (
	replyAck brokerReply = iota
	replyNack
	replySilent
	replyClose
)

type fakeBroker struct {
	reply    brokerReply
	channels []*fakeChannel
}

func (b *fakeBroker) dial() (*amqpSession, error) {
	ch := &fakeChannel{broker: b, confirms: make(chan amqp.Confirmation, 1)}
	b.channels = append(b.channels, ch)
	return &amqpSession{channel: ch, confirms: ch.confirms, close: func() { ch.closed = true }}, nil
}

type fakeChannel struct {
	broker    *fakeBroker
	confirms  chan amqp.Confirmation
	published []amqp.Publishing
	closed    bool
}

func (c *fakeChannel) Publish(_, _ string, _, _ bool, msg amqp.Publishing) error {
	c.published = append(c.published, msg)
	tag := uint64(len(c.published))
	switch c.broker.reply {
	case replyAck:
		c.confirms <- amqp.Confirmation{DeliveryTag: tag, Ack: true}
	case replyNack:
		c.confirms <- amqp.Confirmation{DeliveryTag: tag}
	case replyClose:
		close(c.confirms)
	}
	return nil
}

func newConfirmingPublisher(t *testing.T, timeout time.Duration) (*AMQPPublisher, *fakeBroker) {
	t.Helper()
	broker := &fakeBroker{}
	pub := NewAMQPPublisher(config.DeliveryConfig{Queue: "campaign_sends", ConfirmTimeout: timeout}, zap.NewNop())
	pub.dial = broker.dial
	t.Cleanup(func() { _ = pub.Close() })
	return pub, broker
}

func TestAMQPPublishWaitsForAck(t *testing.T) {
	pub, broker := newConfirmingPublisher(t, time.Second)

	require.NoError(t, pub.Publish(context.Background(), Message{ID: "m1", SendJobID: "7"}))
	require.NoError(t, pub.Publish(context.Background(), Message{ID: "m2", SendJobID: "8"}))

	require.Len(t, broker.channels, 1)
	published := broker.channels[0].published
	require.Len(t, published, 2)
	assert.Equal(t, "m1", published[0].MessageId)
	assert.Equal(t, amqp.Persistent, published[0].DeliveryMode)
	assert.Equal(t, "application/json", published[0].ContentType)
}

func TestAMQPPublishNackIsAnError(t *testing.T) {
	pub, broker := newConfirmingPublisher(t, time.Second)
	broker.reply = replyNack

	err := pub.Publish(context.Background(), Message{ID: "m1"})
	assert.ErrorIs(t, err, ErrNotConfirmed)

	broker.reply = replyAck
	require.NoError(t, pub.Publish(context.Background(), Message{ID: "m2"}))
	assert.Len(t, broker.channels, 1)
}

func TestAMQPPublishConfirmTimeoutRedials(t *testing.T) {
	pub, broker := newConfirmingPublisher(t, 20*time.Millisecond)
	broker.reply = replySilent

	err := pub.Publish(context.Background(), Message{ID: "m1"})
	assert.ErrorIs(t, err, ErrNotConfirmed)
	require.Len(t, broker.channels, 1)
	assert.True(t, broker.channels[0].closed)

	broker.reply = replyAck
	require.NoError(t, pub.Publish(context.Background(), Message{ID: "m2"}))
	assert.Len(t, broker.channels, 2)
}

func TestAMQPPublishClosedConfirmStream(t *testing.T) {
	pub, broker := newConfirmingPublisher(t, time.Second)
	broker.reply = replyClose

	err := pub.Publish(context.Background(), Message{ID: "m1"})
	assert.ErrorIs(t, err, ErrNotConfirmed)
	assert.True(t, broker.channels[0].closed)
}

func TestAMQPPublishHonoursContext(t *testing.T) {
	pub, broker := newConfirmingPublisher(t, time.Minute)
	broker.reply = replySilent

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := pub.Publish(ctx, Message{ID: "m1"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, broker.channels[0].closed)
}
