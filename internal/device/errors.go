package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when a (type, location) pair is not in the catalog.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrInvalidDeviceType is returned when a device type is not recognised.
	ErrInvalidDeviceType = errors.New("device: invalid type")

	// ErrMissingParameters is returned when a command omits required fields.
	ErrMissingParameters = errors.New("device: missing parameters")

	// ErrInvalidParameter is returned when a command parameter is present
	// but malformed, such as a non-numeric brightness.
	ErrInvalidParameter = errors.New("device: invalid parameter value")

	// ErrEmptyCatalog is returned when a catalog is constructed with no devices.
	ErrEmptyCatalog = errors.New("device: catalog is empty")
)
