package native

import "errors"

// Package errors for the native backend.
var (
	// ErrNoGPU is returned when no GPU adapter is available.
	ErrNoGPU = errors.New("native: no GPU adapter available")

	// ErrNilDevice is returned when New is given a nil device or queue.
	ErrNilDevice = errors.New("native: nil device or queue")

	// ErrProviderNotHAL is returned when a device provider does not expose
	// wgpu HAL objects.
	ErrProviderNotHAL = errors.New("native: provider does not expose HAL types")

	// ErrInvalidDimensions is returned when the target width or height is
	// zero.
	ErrInvalidDimensions = errors.New("native: invalid dimensions")

	// ErrClosed is returned by operations on a closed device.
	ErrClosed = errors.New("native: device closed")
)

// Diagnostic IDs. The first three follow the OpenGL error codes so that
// diagnostics read the same across backends.
const (
	ErrInvalidEnum      uint32 = 0x0500
	ErrInvalidValue     uint32 = 0x0501
	ErrInvalidOperation uint32 = 0x0502
	// ErrBackend is reported when the HAL rejects a call.
	ErrBackend uint32 = 0x9000
)
