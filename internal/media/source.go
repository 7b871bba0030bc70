// Package media abstracts where audio bytes come from. The engine only needs
// seekable reads; object storage, CDN origin or local disk all fit behind
// Source.
package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tunelease/server/internal/domain"
)

// Source opens the audio object for a track.
type Source interface {
	// Open returns a seekable reader over the track's bytes, or
	// domain.ErrTrackNotFound when no object exists.
	Open(ctx context.Context, trackID string) (io.ReadSeekCloser, error)
}

// FileSource serves audio objects from a directory, one file per track id.
type FileSource struct {
	dir string
}

// NewFileSource creates a Source rooted at dir.
func NewFileSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

// Open opens <dir>/<trackID>.mp3. Track ids containing path separators are
// rejected before touching the filesystem.
func (s *FileSource) Open(ctx context.Context, trackID string) (io.ReadSeekCloser, error) {
	if trackID == "" || strings.ContainsAny(trackID, `/\`) || strings.Contains(trackID, "..") {
		return nil, domain.ErrTrackNotFound
	}
	f, err := os.Open(filepath.Join(s.dir, trackID+".mp3"))
	if os.IsNotExist(err) {
		return nil, domain.ErrTrackNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open audio object: %w", err)
	}
	return f, nil
}

// MemorySource is a fixture-backed Source for tests.
type MemorySource struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewMemorySource creates an empty fixture source.
func NewMemorySource() *MemorySource {
	return &MemorySource{objects: make(map[string][]byte)}
}

// Put stores the audio bytes for a track.
func (s *MemorySource) Put(trackID string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	s.objects[trackID] = buf
}

// Open returns a reader over the fixture bytes.
func (s *MemorySource) Open(ctx context.Context, trackID string) (io.ReadSeekCloser, error) {
	s.mu.RLock()
	data, ok := s.objects[trackID]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrTrackNotFound
	}
	return &memoryObject{data: data}, nil
}

type memoryObject struct {
	data []byte
	off  int64
}

func (o *memoryObject) Read(p []byte) (int, error) {
	if o.off >= int64(len(o.data)) {
		return 0, io.EOF
	}
	n := copy(p, o.data[o.off:])
	o.off += int64(n)
	return n, nil
}

func (o *memoryObject) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = o.off + offset
	case io.SeekEnd:
		abs = int64(len(o.data)) + offset
	default:
		return 0, fmt.Errorf("seek: invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, fmt.Errorf("seek: negative position")
	}
	o.off = abs
	return abs, nil
}

func (o *memoryObject) Close() error { return nil }
