package domain

import "errors"

var (
	ErrInvalidInterval  = errors.New("invalid interval: end time must be after start time")
	ErrUnknownSpot      = errors.New("parking spot not found")
	ErrStoreUnavailable = errors.New("tariff store unavailable")

	ErrZoneNotFound = errors.New("tariff zone not found")
	ErrRuleNotFound = errors.New("tariff rule not found")
	ErrInvalidRule  = errors.New("invalid tariff rule")
)
