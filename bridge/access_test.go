package bridge

import (
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeFileInfo struct {
	mode os.FileMode
	sys  interface{}
}

func (f fakeFileInfo) Name() string       { return "file" }
func (f fakeFileInfo) Size() int64        { return 0 }
func (f fakeFileInfo) Mode() os.FileMode  { return f.mode }
func (f fakeFileInfo) ModTime() time.Time { return time.Time{} }
func (f fakeFileInfo) IsDir() bool        { return false }
func (f fakeFileInfo) Sys() interface{}   { return f.sys }

func TestCheckAccess_FOK_AlwaysSucceeds(t *testing.T) {
	info := fakeFileInfo{mode: 0}
	assert.Zero(t, CheckAccess(info, 1, 1, F_OK))
}

func TestCheckAccess_OwnerReadWrite(t *testing.T) {
	info := fakeFileInfo{mode: 0600, sys: &syscall.Stat_t{Uid: 42, Gid: 42}}
	assert.Zero(t, CheckAccess(info, 42, 42, R_OK|W_OK))
	assert.Equal(t, syscall.EACCES, CheckAccess(info, 42, 42, X_OK))
}

func TestCheckAccess_GroupPermissionFallsThroughFromOwner(t *testing.T) {
	info := fakeFileInfo{mode: 0640, sys: &syscall.Stat_t{Uid: 1, Gid: 99}}
	assert.Zero(t, CheckAccess(info, 2, 99, R_OK))
	assert.Equal(t, syscall.EACCES, CheckAccess(info, 2, 99, W_OK))
}

func TestCheckAccess_OtherDeniedWithoutPermission(t *testing.T) {
	info := fakeFileInfo{mode: 0600, sys: &syscall.Stat_t{Uid: 1, Gid: 1}}
	assert.Equal(t, syscall.EACCES, CheckAccess(info, 2, 2, R_OK))
}

func TestCheckAccess_NoSysInfo_TreatedAsOwner(t *testing.T) {
	info := fakeFileInfo{mode: 0700}
	assert.Zero(t, CheckAccess(info, 999, 999, R_OK|W_OK|X_OK))
}
