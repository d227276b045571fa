package logging

import (
	"fmt"
	"os"
	"sync"
)

// RotatingFile is a zapcore.WriteSyncer over the daemon's own log
// file: before a write that would push the file past MaxBytes, it
// closes the handle, renames the file to the lowest unused ".N" suffix,
// and reopens a fresh file, per §4.9's rotation policy.
type RotatingFile struct {
	Path     string
	MaxBytes int64

	mu   sync.Mutex
	file *os.File
	size int64
}

// NewRotatingFile opens (creating if absent) the log file at path.
func NewRotatingFile(path string, maxBytes int64) (*RotatingFile, error) {
	f := &RotatingFile{Path: path, MaxBytes: maxBytes}
	if err := f.open(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *RotatingFile) open() error {
	file, err := os.OpenFile(f.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("logging: open log file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("logging: stat log file: %w", err)
	}
	f.file = file
	f.size = info.Size()
	return nil
}

// Write implements io.Writer, rotating first if p would push the file
// past MaxBytes.
func (f *RotatingFile) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.MaxBytes > 0 && f.size+int64(len(p)) > f.MaxBytes {
		if err := f.rotateLocked(); err != nil {
			return 0, err
		}
	}
	n, err := f.file.Write(p)
	f.size += int64(n)
	return n, err
}

func (f *RotatingFile) rotateLocked() error {
	if err := f.file.Close(); err != nil {
		return fmt.Errorf("logging: close log file for rotation: %w", err)
	}
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s.%d", f.Path, n)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			if err := os.Rename(f.Path, candidate); err != nil {
				return fmt.Errorf("logging: rename log file: %w", err)
			}
			break
		}
	}
	return f.open()
}

// Sync implements zapcore.WriteSyncer.
func (f *RotatingFile) Sync() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.file.Sync()
}

// Close releases the underlying file handle.
func (f *RotatingFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.file.Close()
}
