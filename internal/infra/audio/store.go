package audio

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"insight-survey-service/internal/domain"
)

const fileExt = ".mp3"

// Store keeps synthesized audio as files in a single directory. Writes are
// append-only with unique names, so concurrent requests never collide. A
// background sweep bounds disk usage by age and file count.
type Store struct {
	dir      string
	maxAge   time.Duration
	maxFiles int
	clock    func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewStore creates the directory if needed. maxAge or maxFiles of zero
// disables the corresponding bound.
func NewStore(dir string, maxAge time.Duration, maxFiles int) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{
		dir:      dir,
		maxAge:   maxAge,
		maxFiles: maxFiles,
		clock:    time.Now,
		stop:     make(chan struct{}),
	}, nil
}

// Put writes audio bytes under the given id and returns the servable filename.
func (s *Store) Put(id string, data []byte) (string, error) {
	filename := id + fileExt
	if err := os.WriteFile(filepath.Join(s.dir, filename), data, 0o644); err != nil {
		return "", err
	}
	return filename, nil
}

// Path resolves a filename to its on-disk path. Names that escape the audio
// directory or carry an unexpected extension are treated as not found.
func (s *Store) Path(filename string) (string, error) {
	if filename != filepath.Base(filename) || !strings.HasSuffix(filename, fileExt) {
		return "", domain.ErrAudioNotFound
	}
	path := filepath.Join(s.dir, filename)
	if _, err := os.Stat(path); err != nil {
		return "", domain.ErrAudioNotFound
	}
	return path, nil
}

// StartSweeper evicts on an interval until Close is called.
func (s *Store) StartSweeper(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := s.Sweep(); err != nil {
					log.Printf("audio sweep failed: %v", err)
				}
			case <-s.stop:
				return
			}
		}
	}()
}

// Close stops the background sweeper.
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// Sweep removes files older than maxAge, then trims oldest-first down to
// maxFiles. It returns how many files were removed.
func (s *Store) Sweep() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}

	type audioFile struct {
		name    string
		modTime time.Time
	}
	files := make([]audioFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileExt) {
			continue
		}
		info, err := entry.Info()
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return 0, err
		}
		files = append(files, audioFile{name: entry.Name(), modTime: info.ModTime()})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].modTime.Before(files[j].modTime) })

	removed := 0
	cutoff := s.clock().Add(-s.maxAge)
	keep := files[:0]
	for _, f := range files {
		if s.maxAge > 0 && f.modTime.Before(cutoff) {
			if err := os.Remove(filepath.Join(s.dir, f.name)); err == nil {
				removed++
				continue
			}
		}
		keep = append(keep, f)
	}

	if s.maxFiles > 0 && len(keep) > s.maxFiles {
		for _, f := range keep[:len(keep)-s.maxFiles] {
			if err := os.Remove(filepath.Join(s.dir, f.name)); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
