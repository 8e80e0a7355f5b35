package bridge

import (
	"errors"
	"io"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want syscall.Errno
	}{
		{"nil", nil, 0},
		{"not exist", os.ErrNotExist, syscall.ENOENT},
		{"exist", os.ErrExist, syscall.EEXIST},
		{"permission", os.ErrPermission, syscall.EACCES},
		{"closed", os.ErrClosed, syscall.EBADF},
		{"invalid", os.ErrInvalid, syscall.EINVAL},
		{"eof", io.EOF, 0},
		{"already an errno", syscall.ENOSPC, syscall.ENOSPC},
		{"unmapped", errors.New("boom"), syscall.EIO},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapError(tt.err))
		})
	}
}

func TestMapError_WrappedSentinels(t *testing.T) {
	wrapped := &os.PathError{Op: "open", Path: "/a", Err: os.ErrNotExist}
	assert.Equal(t, syscall.ENOENT, MapError(wrapped))
}
