// Package delivery hands dispatched send jobs to the external delivery workers.
package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/smallbiznis/donora/pkg/telemetry/correlation"
)

var (
	ErrPublisherClosed = errors.New("delivery publisher closed")
	ErrNotConfirmed    = errors.New("delivery not confirmed by broker")
)

// Message is the payload consumed by delivery workers. Workers report the
// outcome back through the send job status endpoint.
type Message struct {
	ID            string            `json:"id"`
	SendJobID     string            `json:"send_job_id"`
	DropID        string            `json:"drop_id"`
	CampaignID    string            `json:"campaign_id"`
	OrgID         string            `json:"organization_id"`
	UserID        string            `json:"user_id"`
	Channel       string            `json:"channel"`
	ContentItemID string            `json:"content_item_id"`
	PublishAt     time.Time         `json:"publish_at"`
	Headers       map[string]string `json:"headers,omitempty"`
}

// NewMessage stamps a fresh id and the trace headers of ctx.
func NewMessage(ctx context.Context, m Message) Message {
	if m.ID == "" {
		m.ID = correlation.NewID()
	}
	if headers := correlation.TraceHeaders(ctx); len(headers) > 0 {
		m.Headers = headers
	}
	return m
}

func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

type Publisher interface {
	// Driver names the transport for logs and metrics.
	Driver() string
	Publish(ctx context.Context, msg Message) error
}
