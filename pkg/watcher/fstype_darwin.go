//go:build darwin

package watcher

import "golang.org/x/sys/unix"

func detectFilesystemType(path string) FilesystemType {
	var st unix.Statfs_t
	if err := unix.Statfs(nearestExisting(path), &st); err != nil {
		return FSTypeUnknown
	}
	name := unix.ByteSliceToString(st.Fstypename[:])
	switch name {
	case "nfs":
		return FSTypeNFS
	case "smbfs", "cifs":
		return FSTypeSMB
	case "osxfuse", "macfuse", "fusefs":
		return FSTypeFUSE
	default:
		return FSTypeLocal
	}
}
