package data

import "errors"

// Shared sentinel errors for data-layer repositories.
var (
	// Lease sentinels shared by ReserveNext and Heartbeat.
	ErrLeaseSecondsRequired = errors.New("leaseSeconds must be positive")
)
