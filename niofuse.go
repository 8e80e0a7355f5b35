// Package niofuse is a thin facade tying the provider registry, the
// per-provider builder, and the mount lifecycle handle together behind the
// Enumerate, Select and NewBuilder entry points over the underlying FUSE
// plumbing.
package niofuse

import (
	"github.com/absfs/absfs"
	"github.com/sirupsen/logrus"

	"github.com/nio-adapter/nio-fuse/mountlib"
	"github.com/nio-adapter/nio-fuse/provider"
)

// Provider re-exports provider.Provider so callers never need to import
// the provider package directly for the common path.
type Provider = provider.Provider

// Builder re-exports mountlib.Builder.
type Builder = mountlib.Builder

// Handle re-exports mountlib.Handle.
type Handle = mountlib.Handle

// Capability re-exports mountlib.Capability and its well-known values.
type Capability = mountlib.Capability

const (
	MountFlags               = mountlib.MountFlags
	MountAsDriveLetter       = mountlib.MountAsDriveLetter
	MountWithinExistingParent = mountlib.MountWithinExistingParent
	MountToSystemChosenPath  = mountlib.MountToSystemChosenPath
	MountPointEmptyDir       = mountlib.MountPointEmptyDir
	ReadOnly                 = mountlib.ReadOnly
	UnmountForced            = mountlib.UnmountForced
	VolumeName               = mountlib.VolumeName
	LoopbackHostName         = mountlib.LoopbackHostName
	Port                     = mountlib.Port
)

// Enumerate lists every registered provider, regardless of host
// applicability, for diagnostic display.
func Enumerate() []*Provider {
	return provider.Enumerate()
}

// Select runs the registry's OS/probe/capability filter pipeline and
// returns the best provider for the given required capability set.
func Select(required mountlib.CapabilitySet) (*Provider, error) {
	return provider.Select(required)
}

// NewBuilder selects a provider satisfying required and returns a Builder
// for root bound to it. This is the common-path entry point: callers that
// don't care which provider wins just call NewBuilder and chain setters.
func NewBuilder(root absfs.FileSystem, required mountlib.CapabilitySet) (Builder, *Provider, error) {
	p, err := Select(required)
	if err != nil {
		return nil, nil, err
	}
	logrus.WithField("provider", p.Name).Info("niofuse: building mount")
	return p.Build(root), p, nil
}
