// Package provider implements the MountProvider registry: a process-wide
// set of backend descriptors, each tagged with an OS predicate and a
// priority, registered once via init() in build-tagged files and selected
// against a caller's required capability set.
package provider

import (
	"runtime"
	"sort"
	"sync"

	"github.com/absfs/absfs"
	"github.com/sirupsen/logrus"

	"github.com/nio-adapter/nio-fuse/mountlib"
)

// Provider is an immutable descriptor for one mount backend. Providers live
// for the process lifetime; they are registered once at init() time and
// never mutated afterward.
type Provider struct {
	// Name is the display name used for logging and as the deterministic
	// tiebreaker when two providers share the highest priority.
	Name string

	// Priority ranks providers surviving the OS/probe/capability filters;
	// higher wins.
	Priority int

	// Capabilities is the immutable set this provider declares support
	// for. Select requires it be a superset of the caller's request.
	Capabilities mountlib.CapabilitySet

	// DefaultFlags seeds the builder's baseline native mount flags.
	DefaultFlags []string

	// osMatch reports whether this provider applies to the current host
	// OS. Set to a constant true/false by each build-tagged registration
	// file, since runtime.GOOS is already resolved per build.
	osMatch bool

	// probe performs the runtime support check, e.g. checking that a
	// native library is present on disk.
	probe func() bool

	// newBuilder constructs a fresh mountlib.Builder bound to root for
	// this provider.
	newBuilder func(root absfs.FileSystem) mountlib.Builder
}

// Build returns a fresh Builder for this provider around root.
func (p *Provider) Build(root absfs.FileSystem) mountlib.Builder {
	return p.newBuilder(root)
}

var (
	registryMu sync.Mutex
	registry   []*Provider
)

// register is called from each build-tagged provider file's init(). It is
// unexported: registration only happens at process startup, from the
// package's own files, never from a caller.
func register(p *Provider) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = append(registry, p)
	logrus.WithField("provider", p.Name).Debug("provider: registered")
}

// Enumerate returns every registered provider, regardless of applicability
// to the current host, for diagnostic listing (e.g. a CLI "providers"
// subcommand).
func Enumerate() []*Provider {
	registryMu.Lock()
	defer registryMu.Unlock()
	out := make([]*Provider, len(registry))
	copy(out, registry)
	return out
}

// Select filters the registry by OS match, runtime probe, and capability
// superset, then returns the highest-priority survivor, breaking ties by
// display name. Returns NoApplicableProviderError if nothing survives.
func Select(required mountlib.CapabilitySet) (*Provider, error) {
	registryMu.Lock()
	candidates := make([]*Provider, len(registry))
	copy(candidates, registry)
	registryMu.Unlock()

	var survivors []*Provider
	for _, p := range candidates {
		if !p.osMatch {
			continue
		}
		if p.probe != nil && !p.probe() {
			continue
		}
		if !p.Capabilities.Superset(required) {
			continue
		}
		survivors = append(survivors, p)
	}

	if len(survivors) == 0 {
		return nil, &NoApplicableProviderError{RequiredCapabilities: capabilityStrings(required)}
	}

	sort.Slice(survivors, func(i, j int) bool {
		if survivors[i].Priority != survivors[j].Priority {
			return survivors[i].Priority > survivors[j].Priority
		}
		return survivors[i].Name < survivors[j].Name
	})

	chosen := survivors[0]
	logrus.WithFields(logrus.Fields{
		"provider": chosen.Name,
		"os":       runtime.GOOS,
	}).Debug("provider: selected")
	return chosen, nil
}

func capabilityStrings(set mountlib.CapabilitySet) []string {
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c.String())
	}
	sort.Strings(out)
	return out
}
