package delivery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/smallbiznis/donora/internal/config"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

const defaultConfirmTimeout = 5 * time.Second

// amqpChannel is the part of *amqp.Channel used to publish.
type amqpChannel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// amqpSession is a channel in confirm mode with its confirmation stream.
type amqpSession struct {
	channel  amqpChannel
	confirms <-chan amqp.Confirmation
	close    func()
}

// AMQPPublisher publishes persistent messages to a durable queue. The
// channel runs in confirm mode and Publish returns only after the broker
// acknowledged the message.
type AMQPPublisher struct {
	url            string
	queue          string
	confirmTimeout time.Duration
	log            *zap.Logger
	dial           func() (*amqpSession, error)

	mu      sync.Mutex
	session *amqpSession
	closed  bool
}

func NewAMQPPublisher(cfg config.DeliveryConfig, log *zap.Logger) *AMQPPublisher {
	timeout := cfg.ConfirmTimeout
	if timeout <= 0 {
		timeout = defaultConfirmTimeout
	}
	p := &AMQPPublisher{
		url:            cfg.AMQPURL,
		queue:          cfg.Queue,
		confirmTimeout: timeout,
		log:            log.Named("delivery.amqp"),
	}
	p.dial = p.dialBroker
	return p
}

func (p *AMQPPublisher) Driver() string { return config.DeliveryDriverAMQP }

func (p *AMQPPublisher) Publish(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := msg.Encode()
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	session, err := p.ensureSession()
	if err != nil {
		return err
	}

	headers := amqp.Table{}
	for key, value := range msg.Headers {
		headers[key] = value
	}
	err = session.channel.Publish("", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    msg.ID,
		Timestamp:    msg.PublishAt,
		Type:         "campaign.send_job",
		Headers:      headers,
		Body:         body,
	})
	if err != nil {
		p.reset()
		return fmt.Errorf("amqp publish: %w", err)
	}
	return p.awaitConfirm(ctx, session, msg.ID)
}

// awaitConfirm waits for the broker's answer to the single outstanding
// publish. On timeout the session is dropped so a late confirmation is never
// read as the answer to the next message.
func (p *AMQPPublisher) awaitConfirm(ctx context.Context, session *amqpSession, messageID string) error {
	timer := time.NewTimer(p.confirmTimeout)
	defer timer.Stop()

	select {
	case confirm, ok := <-session.confirms:
		if !ok {
			p.reset()
			return fmt.Errorf("%w: channel closed before confirming %s", ErrNotConfirmed, messageID)
		}
		if !confirm.Ack {
			p.log.Warn("amqp publish nacked",
				zap.String("message_id", messageID),
				zap.Uint64("delivery_tag", confirm.DeliveryTag),
			)
			return fmt.Errorf("%w: broker nacked %s", ErrNotConfirmed, messageID)
		}
		return nil
	case <-timer.C:
		p.reset()
		return fmt.Errorf("%w: no confirmation for %s within %s", ErrNotConfirmed, messageID, p.confirmTimeout)
	case <-ctx.Done():
		p.reset()
		return ctx.Err()
	}
}

func (p *AMQPPublisher) ensureSession() (*amqpSession, error) {
	if p.closed {
		return nil, ErrPublisherClosed
	}
	if p.session != nil {
		return p.session, nil
	}
	session, err := p.dial()
	if err != nil {
		return nil, err
	}
	p.session = session
	return session, nil
}

func (p *AMQPPublisher) dialBroker() (*amqpSession, error) {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	closeAll := func() {
		_ = ch.Close()
		_ = conn.Close()
	}
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		closeAll()
		return nil, fmt.Errorf("amqp declare %s: %w", p.queue, err)
	}
	if err := ch.Confirm(false); err != nil {
		closeAll()
		return nil, fmt.Errorf("amqp confirm mode: %w", err)
	}
	confirms := ch.NotifyPublish(make(chan amqp.Confirmation, 1))

	p.log.Info("amqp publisher connected", zap.String("queue", p.queue))
	return &amqpSession{channel: ch, confirms: confirms, close: closeAll}, nil
}

func (p *AMQPPublisher) reset() {
	if p.session == nil {
		return
	}
	if p.session.close != nil {
		p.session.close()
	}
	p.session = nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.reset()
	return nil
}
