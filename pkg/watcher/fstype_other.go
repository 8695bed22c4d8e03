//go:build !linux && !darwin

package watcher

func detectFilesystemType(path string) FilesystemType {
	_ = nearestExisting(path)
	return FSTypeUnknown
}
