package guard

import (
	"testing"
	"time"

	campaigndomain "github.com/smallbiznis/donora/internal/campaign/domain"
	"github.com/stretchr/testify/assert"
)

func TestEnsureDropDispatchable(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	assert.NoError(t, EnsureDropDispatchable(campaigndomain.DropStatusPending, now, now))
	assert.NoError(t, EnsureDropDispatchable(campaigndomain.DropStatusExpanded, now.Add(-time.Hour), now))
	assert.ErrorIs(t, EnsureDropDispatchable(campaigndomain.DropStatusPending, now.Add(time.Minute), now), ErrDropNotDue)
	assert.ErrorIs(t, EnsureDropDispatchable(campaigndomain.DropStatusSent, now, now), ErrDropNotDispatching)
	assert.ErrorIs(t, EnsureDropDispatchable(campaigndomain.DropStatusCancelled, now, now), ErrDropNotDispatching)
}

func TestEnsureSendJobPublishable(t *testing.T) {
	assert.NoError(t, EnsureSendJobPublishable(campaigndomain.SendJobStatusQueued))
	assert.ErrorIs(t, EnsureSendJobPublishable(campaigndomain.SendJobStatusSent), ErrSendJobNotQueued)
	assert.ErrorIs(t, EnsureSendJobPublishable(campaigndomain.SendJobStatusFailed), ErrSendJobNotQueued)
}
