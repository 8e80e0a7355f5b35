package mountlib

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNativeMount struct {
	inUse        bool
	unmountErr   error
	forcedErr    error
	unmountCalls int
	forcedCalls  int
	released     bool
}

func (f *fakeNativeMount) IsInUse() bool { return f.inUse }
func (f *fakeNativeMount) Unmount() error {
	f.unmountCalls++
	return f.unmountErr
}
func (f *fakeNativeMount) UnmountForced() error {
	f.forcedCalls++
	return f.forcedErr
}
func (f *fakeNativeMount) Release() { f.released = true }

func TestHandle_Unmount_RefusedWhenInUse(t *testing.T) {
	native := &fakeNativeMount{inUse: true}
	h := newHandle("fuse", "/mnt/x", native, NewCapabilitySet())

	err := h.Unmount()
	var refused *UnmountRefusedError
	require.ErrorAs(t, err, &refused)
	assert.True(t, h.IsMounted())
	assert.False(t, native.released)
}

func TestHandle_Unmount_SucceedsWhenNotInUse(t *testing.T) {
	native := &fakeNativeMount{}
	h := newHandle("fuse", "/mnt/x", native, NewCapabilitySet())

	require.NoError(t, h.Unmount())
	assert.False(t, h.IsMounted())
	assert.True(t, native.released)
	assert.Equal(t, 1, native.unmountCalls)
}

func TestHandle_Unmount_Idempotent(t *testing.T) {
	native := &fakeNativeMount{}
	h := newHandle("fuse", "/mnt/x", native, NewCapabilitySet())

	require.NoError(t, h.Unmount())
	require.NoError(t, h.Unmount(), "unmounting an already-unmounted handle is a no-op")
	assert.Equal(t, 1, native.unmountCalls, "native Unmount should not be called again")
}

func TestHandle_UnmountForced_IgnoresInUse(t *testing.T) {
	native := &fakeNativeMount{inUse: true}
	h := newHandle("fuse", "/mnt/x", native, NewCapabilitySet(UnmountForced))

	require.NoError(t, h.UnmountForced())
	assert.False(t, h.IsMounted())
	assert.Equal(t, 1, native.forcedCalls)
}

func TestHandle_UnmountForced_ReleasesNativeResourcesEvenOnBackendFailure(t *testing.T) {
	native := &fakeNativeMount{inUse: true, forcedErr: errors.New("backend refused forced unmount")}
	h := newHandle("fuse", "/mnt/x", native, NewCapabilitySet(UnmountForced))

	err := h.UnmountForced()
	var failed *UnmountFailedError
	require.ErrorAs(t, err, &failed, "the backend failure must still surface to the caller")
	assert.Equal(t, 1, native.forcedCalls)
	assert.True(t, native.released, "native resources must be released even when the forced unmount call fails")
	assert.False(t, h.IsMounted(), "the handle must not stay wedged in ForceUnmounting")
	require.NoError(t, h.UnmountForced(), "a handle that already unmounted should not retry the backend call")
	assert.Equal(t, 1, native.forcedCalls, "UnmountForced must not be called again once the handle is Unmounted")
}

func TestHandle_Release_EscalatesAfterRefusal(t *testing.T) {
	native := &fakeNativeMount{inUse: true}
	h := newHandle("fuse", "/mnt/x", native, NewCapabilitySet(UnmountForced))

	require.NoError(t, h.Release())
	assert.Equal(t, 1, native.forcedCalls)
	assert.False(t, h.IsMounted())
}

func TestHandle_Release_DoesNotEscalateWithoutForcedCapability(t *testing.T) {
	native := &fakeNativeMount{inUse: true}
	h := newHandle("fuse", "/mnt/x", native, NewCapabilitySet())

	err := h.Release()
	var refused *UnmountRefusedError
	require.ErrorAs(t, err, &refused, "without UnmountForced the original refusal should surface unescalated")
	assert.Equal(t, 0, native.forcedCalls, "UnmountForced must never be called when the provider doesn't declare it")
	assert.True(t, h.IsMounted())
}

func TestHandle_Unmount_WrapsBackendFailure(t *testing.T) {
	native := &fakeNativeMount{unmountErr: errors.New("backend refused")}
	h := newHandle("fuse", "/mnt/x", native, NewCapabilitySet())

	err := h.Unmount()
	var failed *UnmountFailedError
	require.ErrorAs(t, err, &failed)
	assert.True(t, h.IsMounted(), "a failed unmount should leave the handle Mounted for retry")
}
