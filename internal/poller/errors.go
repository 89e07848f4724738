package poller

import "codeberg.org/mutker/axemon/internal/errors"

const (
	ErrInvalidConfig = errors.ErrorCode("poller_invalid_config")
	ErrUnknownDevice = errors.ErrorCode("poller_unknown_device")
	ErrDeviceOffline = errors.ErrDeviceOffline
)
