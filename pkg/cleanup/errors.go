package cleanup

import "errors"

var (
	ErrPoolRequired      = errors.New("cleanup: pool is required")
	ErrAlreadyStarted    = errors.New("cleanup: already started")
	ErrNotStarted        = errors.New("cleanup: not started")
	ErrInvalidSchedule   = errors.New("cleanup: invalid cron schedule")
	ErrHealthcheckFailed = errors.New("cleanup: healthcheck failed")
	ErrFileInUse         = errors.New("cleanup: file is referenced by its resource")
)
