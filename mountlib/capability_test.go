package mountlib

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCapabilitySet_Superset(t *testing.T) {
	declared := NewCapabilitySet(MountFlags, ReadOnly, UnmountForced)

	assert.True(t, declared.Superset(NewCapabilitySet(ReadOnly)))
	assert.True(t, declared.Superset(NewCapabilitySet()))
	assert.False(t, declared.Superset(NewCapabilitySet(VolumeName)))
}

func TestCapability_String(t *testing.T) {
	assert.Equal(t, "VOLUME_NAME", VolumeName.String())
	assert.Equal(t, "UNKNOWN_CAPABILITY", Capability(999).String())
}
