package daemon

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pbnjay/memory"
)

// CurrentIssue is the in-flight issue the status file reports.
type CurrentIssue struct {
	Number    int       `json:"number"`
	Phase     string    `json:"phase"`
	StartedAt time.Time `json:"started_at"`
}

// LastProcessed is the most recently finished issue.
type LastProcessed struct {
	Number      int       `json:"number"`
	CompletedAt time.Time `json:"completed_at"`
}

// Status is the full contents of status.json.
type Status struct {
	CurrentIssue    *CurrentIssue   `json:"current_issue,omitempty"`
	LastProcessed   *LastProcessed  `json:"last_processed,omitempty"`
	MemoryMB        float64         `json:"memory_mb"`
	SystemMemoryMB  float64         `json:"system_memory_mb,omitempty"`
}

// StatusFile serializes reads/writes to Path, always writing the
// complete document atomically via temp-file + rename so a concurrent
// reader never observes a partial write.
type StatusFile struct {
	Path string
	mu   sync.Mutex
}

// Read loads the current status, returning the zero value if the file
// doesn't exist yet.
func (s *StatusFile) Read() (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked()
}

func (s *StatusFile) readLocked() (Status, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return Status{}, nil
		}
		return Status{}, fmt.Errorf("daemon: read status file: %w", err)
	}
	var st Status
	if err := json.Unmarshal(data, &st); err != nil {
		return Status{}, fmt.Errorf("daemon: parse status file: %w", err)
	}
	return st, nil
}

// writeLocked marshals st and writes it atomically: write to a temp
// file in the same directory, then rename over Path.
func (s *StatusFile) writeLocked(st Status) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("daemon: create status dir: %w", err)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("daemon: marshal status: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.Path), ".status-*.tmp")
	if err != nil {
		return fmt.Errorf("daemon: create temp status file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("daemon: write temp status file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("daemon: close temp status file: %w", err)
	}
	if err := os.Rename(tmpPath, s.Path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("daemon: rename status file: %w", err)
	}
	return nil
}

// UpdateCurrentIssue records that number entered phase just now.
func (s *StatusFile) UpdateCurrentIssue(number int, phaseName string, startedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.readLocked()
	if err != nil {
		return err
	}
	st.CurrentIssue = &CurrentIssue{Number: number, Phase: phaseName, StartedAt: startedAt}
	return s.writeLocked(st)
}

// UpdateLastProcessed moves the current issue to last_processed,
// stamping completedAt, and clears current_issue.
func (s *StatusFile) UpdateLastProcessed(completedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.readLocked()
	if err != nil {
		return err
	}
	number := 0
	if st.CurrentIssue != nil {
		number = st.CurrentIssue.Number
	}
	st.LastProcessed = &LastProcessed{Number: number, CompletedAt: completedAt}
	st.CurrentIssue = nil
	return s.writeLocked(st)
}

// UpdateMemory overwrites the RSS sample (and the derived total-system
// figure, sourced from the OS rather than resampled per write).
func (s *StatusFile) UpdateMemory(rssMB float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.readLocked()
	if err != nil {
		return err
	}
	st.MemoryMB = rssMB
	st.SystemMemoryMB = float64(memory.TotalMemory()) / (1024 * 1024)
	return s.writeLocked(st)
}
