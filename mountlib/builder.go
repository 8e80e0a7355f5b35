package mountlib

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Builder assembles mount parameters for a single provider and produces a
// Handle once Mount is called. Setters are chainable; a setter gated by a
// capability the selected provider does not declare either no-ops (for
// capabilities where silent fallback is harmless) or records an
// UnsupportedCapabilityError that Mount surfaces (for capabilities where
// silent fallback would change observable behaviour).
type Builder interface {
	SetMountPoint(path string) Builder
	SetMountFlags(flags string) Builder
	SetReadOnly(ro bool) Builder
	SetVolumeName(name string) Builder
	SetPort(port int) Builder
	SetLoopbackHostName(name string) Builder
	Mount() (*Handle, error)
}

// MountFunc is supplied by a provider-specific builder and performs the
// actual native mount call, returning the NativeMount collaborator and the
// resolved mount point (which may differ from params.MountPoint when the
// provider chose it, e.g. MOUNT_TO_SYSTEM_CHOSEN_PATH).
type MountFunc func(params MountParams, flags []string) (NativeMount, string, error)

// MountParams is the resolved set of mount parameters a MountFunc receives.
type MountParams struct {
	MountPoint       string
	ReadOnly         bool
	VolumeName       string
	Port             int
	LoopbackHostName string
}

// BaseBuilder implements Builder's bookkeeping (param storage, capability
// gating, flag merging) and leaves the actual mount syscall/library call to
// the MountFunc a provider's NewBuilder constructor supplies. Provider
// builders embed BaseBuilder rather than reimplementing it, sharing this
// plumbing across every backend.
type BaseBuilder struct {
	providerName string
	caps         CapabilitySet
	mount        MountFunc

	params       MountParams
	explicitFlags string
	builderFlags []string

	pendingErr error
}

// NewBaseBuilder constructs the shared builder state. providerName is used
// only for error messages; caps gates which setters are no-ops vs errors;
// defaultFlags seeds the provider's baseline native flag set (e.g.
// "-oallow_other"), merged with whatever SetMountFlags later supplies.
func NewBaseBuilder(providerName string, caps CapabilitySet, defaultFlags []string, mount MountFunc) *BaseBuilder {
	return &BaseBuilder{
		providerName: providerName,
		caps:         caps,
		mount:        mount,
		builderFlags: defaultFlags,
	}
}

func (b *BaseBuilder) SetMountPoint(path string) Builder {
	b.params.MountPoint = path
	return b
}

func (b *BaseBuilder) SetMountFlags(flags string) Builder {
	if !b.caps.Has(MountFlags) {
		return b
	}
	b.explicitFlags = flags
	return b
}

func (b *BaseBuilder) SetReadOnly(ro bool) Builder {
	if ro && !b.caps.Has(ReadOnly) {
		return b
	}
	b.params.ReadOnly = ro
	return b
}

func (b *BaseBuilder) SetVolumeName(name string) Builder {
	if !b.caps.Has(VolumeName) {
		if b.pendingErr == nil {
			b.pendingErr = &UnsupportedCapabilityError{Capability: VolumeName.String()}
		}
		return b
	}
	b.params.VolumeName = name
	return b
}

func (b *BaseBuilder) SetPort(port int) Builder {
	if !b.caps.Has(Port) {
		if b.pendingErr == nil {
			b.pendingErr = &UnsupportedCapabilityError{Capability: Port.String()}
		}
		return b
	}
	b.params.Port = port
	return b
}

func (b *BaseBuilder) SetLoopbackHostName(name string) Builder {
	if !b.caps.Has(LoopbackHostName) {
		if b.pendingErr == nil {
			b.pendingErr = &UnsupportedCapabilityError{Capability: LoopbackHostName.String()}
		}
		return b
	}
	b.params.LoopbackHostName = name
	return b
}

// Mount validates the accumulated parameters against the provider's
// capability set, merges flags, invokes the MountFunc, and wraps the
// result in a Handle.
func (b *BaseBuilder) Mount() (*Handle, error) {
	if b.pendingErr != nil {
		return nil, b.pendingErr
	}

	if b.params.MountPoint == "" && !b.caps.Has(MountToSystemChosenPath) {
		return nil, &InvalidMountParameterError{
			Parameter: "MountPoint",
			Reason:    "required: provider does not support a system-chosen mount path",
		}
	}
	if b.params.MountPoint != "" && !filepath.IsAbs(b.params.MountPoint) && !b.caps.Has(MountToSystemChosenPath) {
		return nil, &InvalidMountParameterError{
			Parameter: "MountPoint",
			Reason:    "must be an absolute path",
		}
	}
	if b.params.ReadOnly && !b.caps.Has(ReadOnly) {
		return nil, &InvalidMountParameterError{Parameter: "ReadOnly", Reason: "not supported by this provider"}
	}

	derived := make([]string, 0, len(b.builderFlags)+2)
	if b.params.VolumeName != "" {
		derived = append(derived, fmt.Sprintf("-ovolname=%s", b.params.VolumeName))
	}
	derived = append(derived, b.builderFlags...)
	if b.params.ReadOnly {
		derived = append(derived, "-oro")
	}
	flags := MergeFlags(b.explicitFlags, derived)

	var preMountDevID uint64
	if b.params.MountPoint != "" {
		preMountDevID, _ = deviceID(b.params.MountPoint)
	}

	native, resolvedMountPoint, err := b.mount(b.params, flags)
	if err != nil {
		mp := b.params.MountPoint
		if mp == "" {
			mp = "<system-chosen>"
		}
		return nil, &MountFailedError{MountPoint: mp, Err: err}
	}

	if postMountDevID, derr := deviceID(resolvedMountPoint); derr == nil && postMountDevID == preMountDevID {
		logrus.WithField("mountPoint", resolvedMountPoint).
			Debug("mountlib: device id unchanged after mount, backend may still be initializing")
	}

	return newHandle(b.providerName, resolvedMountPoint, native, b.caps), nil
}

// describeFlags is used by providers that want a human-readable summary of
// the merged flags for logging; kept here since it shares MergeFlags' idea
// of a flag's identity.
func describeFlags(flags []string) string {
	return strings.Join(flags, " ")
}
