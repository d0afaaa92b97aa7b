package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// SegmentRef identifies one spooled audio segment. The key combines session
// id and arrival time at millisecond resolution, so segments for the same
// session cannot collide.
type SegmentRef struct {
	SessionID string
	ArrivedAt int64 // unix milliseconds
	Filename  string
	Path      string
}

// Spool holds inbound audio segments on disk until the session worker has
// processed them. Files are removed best-effort after successful processing.
type Spool struct {
	dir string

	mu   sync.Mutex
	last map[string]int64
	now  func() time.Time
}

func NewSpool(dir string) *Spool {
	if dir == "" {
		dir = filepath.Join("data", "segments")
	}
	return &Spool{dir: dir, last: make(map[string]int64), now: time.Now}
}

// Write persists raw audio bytes and returns a reference for the work queue.
func (s *Spool) Write(sessionID string, data []byte, filename string) (SegmentRef, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return SegmentRef{}, fmt.Errorf("create spool directory: %w", err)
	}

	stamp := s.stamp(sessionID)
	ext := filepath.Ext(filename)
	if ext == "" {
		ext = ".wav"
	}

	path := filepath.Join(s.dir, fmt.Sprintf("%s_%d%s", sessionID, stamp, ext))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return SegmentRef{}, fmt.Errorf("write segment %s: %w", path, err)
	}

	return SegmentRef{
		SessionID: sessionID,
		ArrivedAt: stamp,
		Filename:  filepath.Base(path),
		Path:      path,
	}, nil
}

func (s *Spool) Read(ref SegmentRef) ([]byte, error) {
	data, err := os.ReadFile(ref.Path)
	if err != nil {
		return nil, fmt.Errorf("read segment %s: %w", ref.Path, err)
	}
	return data, nil
}

func (s *Spool) Remove(ref SegmentRef) error {
	if err := os.Remove(ref.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove segment %s: %w", ref.Path, err)
	}
	return nil
}

// stamp returns a strictly increasing millisecond timestamp per session, so
// two segments arriving within the same millisecond still get distinct keys.
func (s *Spool) stamp(sessionID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	stamp := s.now().UnixMilli()
	if prev, ok := s.last[sessionID]; ok && stamp <= prev {
		stamp = prev + 1
	}
	s.last[sessionID] = stamp
	return stamp
}

// Sanitize strips path separators from client-supplied filenames before they
// are used to pick a spool extension.
func Sanitize(filename string) string {
	filename = filepath.Base(strings.TrimSpace(filename))
	if filename == "." || filename == string(filepath.Separator) {
		return ""
	}
	return filename
}
