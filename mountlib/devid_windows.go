//go:build windows

package mountlib

import "golang.org/x/sys/windows"

// deviceID returns the volume serial number backing path, windows'
// equivalent of a unix device id for the same "did the mount actually
// take" check Mount performs after a successful native mount call.
func deviceID(path string) (uint64, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, err
	}
	h, err := windows.CreateFile(p, 0, windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
		nil, windows.OPEN_EXISTING, windows.FILE_FLAG_BACKUP_SEMANTICS, 0)
	if err != nil {
		return 0, err
	}
	defer windows.CloseHandle(h)

	var info windows.ByHandleFileInformation
	if err := windows.GetFileInformationByHandle(h, &info); err != nil {
		return 0, err
	}
	return uint64(info.VolumeSerialNumber), nil
}
