package mountlib

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeFlags_ExplicitWinsOverBuilderDerived(t *testing.T) {
	merged := MergeFlags("-ovolname=custom -oro", []string{"-ovolname=default", "-oallow_other"})
	assert.Equal(t, []string{"-ovolname=custom", "-oro", "-oallow_other"}, merged)
}

func TestMergeFlags_NoExplicit(t *testing.T) {
	merged := MergeFlags("", []string{"-oallow_other", "-odefault_permissions"})
	assert.Equal(t, []string{"-oallow_other", "-odefault_permissions"}, merged)
}

func TestMergeFlags_IgnoresNonFlagTokens(t *testing.T) {
	merged := MergeFlags("not-a-flag -oro", nil)
	assert.Equal(t, []string{"-oro"}, merged)
}

func TestFlagKey_SplitsOnEquals(t *testing.T) {
	assert.Equal(t, "-ovolname", flagKey("-ovolname=foo"))
	assert.Equal(t, "-oro", flagKey("-oro"))
}
