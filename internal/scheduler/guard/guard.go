package guard

import (
	"errors"
	"time"

	campaigndomain "github.com/smallbiznis/donora/internal/campaign/domain"
)

var (
	ErrDropNotDue         = errors.New("scheduled_drop_not_due")
	ErrDropNotDispatching = errors.New("scheduled_drop_not_dispatchable")
	ErrSendJobNotQueued   = errors.New("send_job_not_queued")
)

// EnsureDropDispatchable accepts pending drops and expanded drops left over
// from an interrupted run, once their publish time has passed.
func EnsureDropDispatchable(status campaigndomain.DropStatus, publishAt time.Time, now time.Time) error {
	if status != campaigndomain.DropStatusPending && status != campaigndomain.DropStatusExpanded {
		return ErrDropNotDispatching
	}
	if now.Before(publishAt) {
		return ErrDropNotDue
	}
	return nil
}

func EnsureSendJobPublishable(status campaigndomain.SendJobStatus) error {
	if status != campaigndomain.SendJobStatusQueued {
		return ErrSendJobNotQueued
	}
	return nil
}
