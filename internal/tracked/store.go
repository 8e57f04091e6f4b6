// Package tracked persists the set of ZIP codes the gateway keeps warm.
// Storage is a flat JSON file; the set lives in memory and every mutation is
// written through atomically.
package tracked

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"weathergo/internal/core"
)

// fileFormat is the on-disk structure.
type fileFormat struct {
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
	ZIPs      []string  `json:"zips"`
}

// Store is the durable tracked-ZIP set. Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	filePath string
	zips     map[string]struct{}
}

// NewStore creates a store backed by filePath. An empty path keeps the set
// in memory only.
func NewStore(filePath string) *Store {
	return &Store{
		filePath: filePath,
		zips:     make(map[string]struct{}),
	}
}

// Load reads the file into memory. A missing file is an empty set, not an
// error. Entries that are not valid 5-digit ZIPs are dropped on load so the
// invariant holds even if the file was edited by hand.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.filePath == "" {
		return nil
	}

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read tracked ZIP file: %w", err)
	}

	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse tracked ZIP file: %w", err)
	}

	s.zips = make(map[string]struct{}, len(f.ZIPs))
	for _, z := range f.ZIPs {
		if normalized, err := core.NormalizeZIP(z); err == nil {
			s.zips[normalized] = struct{}{}
		}
	}
	return nil
}

// Add validates and tracks a ZIP, persisting the set when it grew. Adding an
// already-tracked ZIP is a no-op.
func (s *Store) Add(zip string) error {
	z, err := core.NormalizeZIP(zip)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.zips[z]; ok {
		return nil
	}
	s.zips[z] = struct{}{}
	return s.saveLocked()
}

// Remove untracks a ZIP. This is an administrative operation; the normal
// path never removes entries.
func (s *Store) Remove(zip string) error {
	z, err := core.NormalizeZIP(zip)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.zips[z]; !ok {
		return nil
	}
	delete(s.zips, z)
	return s.saveLocked()
}

// Contains reports whether a ZIP is tracked.
func (s *Store) Contains(zip string) bool {
	z, err := core.NormalizeZIP(zip)
	if err != nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.zips[z]
	return ok
}

// List returns the tracked ZIPs, sorted for stable iteration.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.zips))
	for z := range s.zips {
		out = append(out, z)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of tracked ZIPs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.zips)
}

// saveLocked writes the set to disk. Caller holds the write lock.
func (s *Store) saveLocked() error {
	if s.filePath == "" {
		return nil
	}

	zips := make([]string, 0, len(s.zips))
	for z := range s.zips {
		zips = append(zips, z)
	}
	sort.Strings(zips)

	data, err := json.MarshalIndent(fileFormat{
		Version:   1,
		UpdatedAt: time.Now().UTC(),
		ZIPs:      zips,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal tracked ZIPs: %w", err)
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create tracked ZIP directory: %w", err)
	}

	// Write atomically using temp file + rename
	tmpFile := s.filePath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write tracked ZIP file: %w", err)
	}
	if err := os.Rename(tmpFile, s.filePath); err != nil {
		os.Remove(tmpFile) // Clean up temp file
		return fmt.Errorf("failed to rename tracked ZIP file: %w", err)
	}
	return nil
}
