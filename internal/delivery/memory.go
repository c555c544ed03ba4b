package delivery

import (
	"context"
	"sync"

	"github.com/smallbiznis/donora/internal/config"
)

const defaultMemoryRetention = 1024

// MemoryPublisher keeps the most recent messages in process. It is only
// allowed in development and is the driver tests assert against.
type MemoryPublisher struct {
	mu       sync.Mutex
	limit    int
	messages []Message
	dropped  int
	failWith error
}

func NewMemoryPublisher() *MemoryPublisher {
	return newMemoryPublisher(defaultMemoryRetention)
}

func newMemoryPublisher(limit int) *MemoryPublisher {
	if limit <= 0 {
		limit = defaultMemoryRetention
	}
	return &MemoryPublisher{limit: limit}
}

func (p *MemoryPublisher) Driver() string { return config.DeliveryDriverMemory }

func (p *MemoryPublisher) Publish(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failWith != nil {
		return p.failWith
	}
	if len(p.messages) == p.limit {
		copy(p.messages, p.messages[1:])
		p.messages = p.messages[:p.limit-1]
		p.dropped++
	}
	p.messages = append(p.messages, msg)
	return nil
}

// Messages returns a copy of the retained messages, oldest first.
func (p *MemoryPublisher) Messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Message, len(p.messages))
	copy(out, p.messages)
	return out
}

// Dropped counts messages evicted to stay within the retention limit.
func (p *MemoryPublisher) Dropped() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dropped
}

// FailWith makes subsequent publishes return err; nil restores success.
func (p *MemoryPublisher) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failWith = err
}
