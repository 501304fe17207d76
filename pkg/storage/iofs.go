package storage

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
)

// IOFS adapts an io/fs.FS (embed.FS, fstest.MapFS, os.DirFS) to Provider.
type IOFS struct {
	fsys fs.FS
}

// NewIOFS wraps fsys.
func NewIOFS(fsys fs.FS) *IOFS {
	return &IOFS{fsys: fsys}
}

func (f *IOFS) name(p string) (string, error) {
	if p == "" {
		return ".", nil
	}
	cleaned := path.Clean(p)
	if !fs.ValidPath(cleaned) {
		return "", fmt.Errorf("storage: invalid path: %s", p)
	}
	return cleaned, nil
}

// ReadFile returns the raw bytes of a file.
func (f *IOFS) ReadFile(p string) ([]byte, error) {
	name, err := f.name(p)
	if err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(f.fsys, name)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", p, err)
	}
	return data, nil
}

// ReadDir lists the entry names of a directory, sorted by name.
func (f *IOFS) ReadDir(p string) ([]string, error) {
	name, err := f.name(p)
	if err != nil {
		return nil, err
	}
	entries, err := fs.ReadDir(f.fsys, name)
	if err != nil {
		return nil, fmt.Errorf("storage: read dir %s: %w", p, err)
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	sort.Strings(names)
	return names, nil
}

// Stat describes a path.
func (f *IOFS) Stat(p string) (FileInfo, error) {
	name, err := f.name(p)
	if err != nil {
		return FileInfo{}, err
	}
	info, err := fs.Stat(f.fsys, name)
	if err != nil {
		return FileInfo{}, fmt.Errorf("storage: stat %s: %w", p, err)
	}
	return FileInfo{
		Name:      info.Name(),
		IsDir:     info.IsDir(),
		IsRegular: info.Mode().IsRegular(),
		Size:      info.Size(),
		ModTime:   info.ModTime(),
	}, nil
}
