//go:build !darwin || !cgo

package main

// newPlatformBackend reports that no HAL is available on this platform.
// The daemon refuses to start; tests use their own mock Backend.
func newPlatformBackend() (Backend, error) {
	return nil, errBackendUnavailable
}
