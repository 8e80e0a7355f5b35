package bridge

import "os"

// fakeFile is a minimal absfs.File double for tests: every method the
// interface requires (absfs.File mirrors os.File's method set) is present,
// but only Close is exercised by HandleTracker's tests.
type fakeFile struct {
	name      string
	closed    bool
	closeErr  error
}

func (f *fakeFile) Read(p []byte) (int, error)                  { return 0, nil }
func (f *fakeFile) ReadAt(p []byte, off int64) (int, error)     { return 0, nil }
func (f *fakeFile) Write(p []byte) (int, error)                 { return len(p), nil }
func (f *fakeFile) WriteAt(p []byte, off int64) (int, error)    { return len(p), nil }
func (f *fakeFile) Seek(offset int64, whence int) (int64, error) { return 0, nil }
func (f *fakeFile) Close() error {
	f.closed = true
	return f.closeErr
}
func (f *fakeFile) Name() string { return f.name }
func (f *fakeFile) Readdir(n int) ([]os.FileInfo, error)      { return nil, nil }
func (f *fakeFile) Readdirnames(n int) ([]string, error)      { return nil, nil }
func (f *fakeFile) Stat() (os.FileInfo, error)                { return nil, nil }
func (f *fakeFile) Sync() error                               { return nil }
func (f *fakeFile) Truncate(size int64) error                 { return nil }
func (f *fakeFile) WriteString(s string) (int, error)         { return len(s), nil }
