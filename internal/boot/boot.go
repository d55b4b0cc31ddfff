package boot

import "os"

// Requester reports whether the operator asked to reboot into the
// bootloader. Implementations are platform specific; the bridge only
// consumes the boolean.
type Requester interface {
	IsBootRequestPending() bool
}

// Never is a Requester that never requests a reboot.
type Never struct{}

func (Never) IsBootRequestPending() bool {
	return false
}

// FileFlag is a host Requester: a boot request is pending while the flag
// file exists.
type FileFlag struct {
	path string
}

// NewFileFlag creates a FileFlag watching path.
func NewFileFlag(path string) *FileFlag {
	return &FileFlag{path: path}
}

func (f *FileFlag) IsBootRequestPending() bool {
	if f.path == "" {
		return false
	}
	_, err := os.Stat(f.path)
	return err == nil
}
