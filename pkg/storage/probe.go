package storage

// IsDir reports whether path exists on p and is a directory.
// Any stat failure, including not-found, yields false.
func IsDir(p Provider, path string) bool {
	info, err := p.Stat(path)
	return err == nil && info.IsDir
}

// IsFile reports whether path exists on p and is a regular file.
func IsFile(p Provider, path string) bool {
	info, err := p.Stat(path)
	return err == nil && info.IsRegular
}
