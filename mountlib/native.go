package mountlib

// NativeMount is the contract a native FUSE library collaborator must
// satisfy, narrowed to the four operations the lifecycle
// controller needs: report in-use status, unmount gracefully, unmount
// forcibly, release native resources. gofusebridge.NativeMount and
// cgofusebridge.NativeMount both satisfy this structurally — mountlib
// never imports either backend package, which is what lets Handle stay
// backend-agnostic and unit-testable against a fake.
type NativeMount interface {
	IsInUse() bool
	Unmount() error
	UnmountForced() error
	Release()
}
