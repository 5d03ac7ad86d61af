//go:build !arm64

package platform

// flushICache is a no-op placeholder on hosts this package has no hand
// rolled cache-maintenance sequence for. A32/Thumb hosts (GOARCH=arm) need
// their own DC/IC sequence; tracked as a follow-up, not implemented here
// since the development and test environment for this module is amd64.
func flushICache(uintptr, int) {}
