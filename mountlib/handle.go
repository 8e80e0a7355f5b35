package mountlib

import "sync"

// state is Handle's lifecycle position.
type state int

const (
	stateMounted state = iota
	stateUnmounting
	stateForceUnmounting
	stateUnmounted
)

// Handle is the live handle to a mounted adapter returned by Builder.Mount.
// It owns the one NativeMount collaborator for this mount and serializes
// the lifecycle transitions: a single mount moves
// Mounted → {Unmounting, ForceUnmounting} → Unmounted; the only step back is
// a failed graceful Unmount, which returns the handle from Unmounting to
// Mounted so it can be retried. Concurrent callers racing Unmount/UnmountForced/Release must observe
// a consistent outcome rather than double-releasing the native resource.
type Handle struct {
	mu sync.Mutex

	providerName string
	mountPoint   string
	native       NativeMount
	caps         CapabilitySet
	state        state
}

func newHandle(providerName, mountPoint string, native NativeMount, caps CapabilitySet) *Handle {
	return &Handle{
		providerName: providerName,
		mountPoint:   mountPoint,
		native:       native,
		caps:         caps,
		state:        stateMounted,
	}
}

// Provider returns the name of the provider that produced this mount.
func (h *Handle) Provider() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.providerName
}

// MountPoint returns the resolved mount point, which may be system-chosen.
func (h *Handle) MountPoint() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.mountPoint
}

// IsMounted reports whether the handle is still in the Mounted state.
func (h *Handle) IsMounted() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state == stateMounted
}

// Unmount requests a graceful teardown. It is refused with
// UnmountRefusedError if the native mount reports open handles or pending
// operations; the caller may retry later or escalate to UnmountForced.
// Calling Unmount on an already-unmounted handle is a no-op that returns
// nil, matching io.Closer's idempotent-close convention.
func (h *Handle) Unmount() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch h.state {
	case stateUnmounted:
		return nil
	case stateUnmounting, stateForceUnmounting:
		return &UnmountRefusedError{MountPoint: h.mountPoint}
	}

	if h.native.IsInUse() {
		return &UnmountRefusedError{MountPoint: h.mountPoint}
	}

	h.state = stateUnmounting
	if err := h.native.Unmount(); err != nil {
		h.state = stateMounted
		return &UnmountFailedError{MountPoint: h.mountPoint, Err: err}
	}
	h.native.Release()
	h.state = stateUnmounted
	return nil
}

// UnmountForced tears the mount down regardless of in-use status. It never
// returns UnmountRefusedError; a backend failure surfaces as
// UnmountFailedError instead, but native resources are still released and
// the handle still moves to Unmounted — final release of native resources
// is unconditional, so a failed forced-unmount call never leaves the
// handle wedged in ForceUnmounting where every later Unmount/UnmountForced
// call would just refuse or repeat the same failure. Safe to call
// repeatedly.
func (h *Handle) UnmountForced() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == stateUnmounted {
		return nil
	}

	h.state = stateForceUnmounting
	unmountErr := h.native.UnmountForced()
	h.native.Release()
	h.state = stateUnmounted
	if unmountErr != nil {
		return &UnmountFailedError{MountPoint: h.mountPoint, Err: unmountErr}
	}
	return nil
}

// Release tears the mount down for scoped callers (e.g. "mount, run a
// test, clean up"): it attempts a graceful unmount and, if that is refused
// or fails and the provider declares UnmountForced, escalates to a forced
// one. Without UnmountForced it returns the graceful attempt's error and
// leaves the handle Mounted, with the native resources not released.
func (h *Handle) Release() error {
	err := h.Unmount()
	if err == nil {
		return nil
	}
	if !h.caps.Has(UnmountForced) {
		return err
	}
	return h.UnmountForced()
}
