package mountlib

import "fmt"

// MountFailedError wraps a backend's refusal to create a mount.
type MountFailedError struct {
	MountPoint string
	Err        error
}

func (e *MountFailedError) Error() string {
	return fmt.Sprintf("mountlib: mount %s failed: %v", e.MountPoint, e.Err)
}
func (e *MountFailedError) Unwrap() error { return e.Err }

// UnmountRefusedError is returned when a graceful unmount is denied
// because the adapter reports open file handles or pending operations.
type UnmountRefusedError struct {
	MountPoint string
}

func (e *UnmountRefusedError) Error() string {
	return fmt.Sprintf("mountlib: unmount %s refused: filesystem in use", e.MountPoint)
}

// UnmountFailedError wraps any backend unmount failure other than "in use".
type UnmountFailedError struct {
	MountPoint string
	Err        error
}

func (e *UnmountFailedError) Error() string {
	return fmt.Sprintf("mountlib: unmount %s failed: %v", e.MountPoint, e.Err)
}
func (e *UnmountFailedError) Unwrap() error { return e.Err }

// InvalidMountParameterError flags a builder parameter that fails
// per-backend validation (e.g. a non-root mount point for a
// drive-letter-only provider, or an invalid loopback host name).
type InvalidMountParameterError struct {
	Parameter string
	Reason    string
}

func (e *InvalidMountParameterError) Error() string {
	return fmt.Sprintf("mountlib: invalid parameter %q: %s", e.Parameter, e.Reason)
}

// UnsupportedCapabilityError is returned when a caller requests a
// capability-gated setter the selected provider does not declare.
type UnsupportedCapabilityError struct {
	Capability string
}

func (e *UnsupportedCapabilityError) Error() string {
	return fmt.Sprintf("mountlib: capability %q not supported by this provider", e.Capability)
}
