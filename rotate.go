package funnel

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// sizeRotatingSink wraps file behavior with byte accounting. When a write
// would push the active file past maxBytes, the current file is renamed into
// the ".1" backup slot (cycling existing slots up to backupCount, oldest
// discarded) and a fresh file is opened. The incoming record lands wholly in
// the new file, so no record is split, lost, or duplicated across the
// rotation boundary.
type sizeRotatingSink struct {
	path        string
	f           *os.File
	maxBytes    int64
	backupCount int
	size        int64
}

func newSizeRotatingSink(path string, maxBytes int64, backupCount int) (*sizeRotatingSink, error) {
	f, err := openLogFile(path, "a")
	if err != nil {
		return nil, err
	}
	s := &sizeRotatingSink{
		path:        path,
		f:           f,
		maxBytes:    maxBytes,
		backupCount: backupCount,
	}
	if fi, err := f.Stat(); err == nil {
		s.size = fi.Size()
	}
	return s, nil
}

func (s *sizeRotatingSink) write(line []byte, _ Level) error {
	if s.maxBytes > 0 && s.size > 0 && s.size+int64(len(line)) > s.maxBytes {
		if err := s.rotate(); err != nil {
			return err
		}
	}
	n, err := s.f.Write(line)
	s.size += int64(n)
	return err
}

// rotate shifts path.(i) to path.(i+1) from the highest slot down, moves the
// active file into slot 1, and reopens a fresh active file. With
// backupCount <= 0 the active file is truncated in place instead.
func (s *sizeRotatingSink) rotate() error {
	if err := s.f.Close(); err != nil {
		internalLog("warning - failed to close '%s' before rotation: %v", s.path, err)
	}

	if s.backupCount > 0 {
		for i := s.backupCount - 1; i >= 1; i-- {
			src := fmt.Sprintf("%s.%d", s.path, i)
			dst := fmt.Sprintf("%s.%d", s.path, i+1)
			if _, err := os.Stat(src); err == nil {
				if err := os.Rename(src, dst); err != nil {
					return fmtErrorf("failed to cycle backup '%s': %w", src, err)
				}
			}
		}
		if err := os.Rename(s.path, s.path+".1"); err != nil {
			return fmtErrorf("failed to rotate log file '%s': %w", s.path, err)
		}
	}

	mode := "w" // truncate covers the backupCount <= 0 case
	f, err := openLogFile(s.path, mode)
	if err != nil {
		return fmtErrorf("failed to reopen log file after rotation: %w", err)
	}
	s.f = f
	s.size = 0
	return nil
}

func (s *sizeRotatingSink) close() error {
	if err := s.f.Sync(); err != nil {
		internalLog("warning - failed to sync log file '%s': %v", s.path, err)
	}
	return s.f.Close()
}

// timeRotatingSink rotates when the configured wall-clock interval has
// elapsed since the last rotation. Backups carry a timestamp suffix and are
// pruned beyond backupCount, oldest first.
type timeRotatingSink struct {
	path        string
	f           *os.File
	interval    time.Duration
	backupCount int
	lastRotate  time.Time
	now         func() time.Time // swapped out by tests
}

// rotationInterval maps the configured when/interval pair to a duration.
// "midnight" behaves as a daily interval.
func rotationInterval(when string, interval int) (time.Duration, error) {
	if interval <= 0 {
		interval = 1
	}
	var unit time.Duration
	switch strings.ToLower(when) {
	case "", "h":
		unit = time.Hour
	case "s":
		unit = time.Second
	case "m":
		unit = time.Minute
	case "d", "midnight":
		unit = 24 * time.Hour
	default:
		return 0, fmtErrorf("invalid rotation 'when': '%s' (use s, m, h, d, midnight)", when)
	}
	return time.Duration(interval) * unit, nil
}

func newTimeRotatingSink(path, when string, interval, backupCount int) (*timeRotatingSink, error) {
	dur, err := rotationInterval(when, interval)
	if err != nil {
		return nil, err
	}
	f, err := openLogFile(path, "a")
	if err != nil {
		return nil, err
	}
	return &timeRotatingSink{
		path:        path,
		f:           f,
		interval:    dur,
		backupCount: backupCount,
		lastRotate:  time.Now(),
		now:         time.Now,
	}, nil
}

func (s *timeRotatingSink) write(line []byte, _ Level) error {
	if s.now().Sub(s.lastRotate) >= s.interval {
		if err := s.rotate(); err != nil {
			return err
		}
	}
	_, err := s.f.Write(line)
	return err
}

func (s *timeRotatingSink) rotate() error {
	if err := s.f.Close(); err != nil {
		internalLog("warning - failed to close '%s' before rotation: %v", s.path, err)
	}

	stamp := s.lastRotate.Format("2006-01-02_15-04-05")
	backup := s.path + "." + stamp
	if err := os.Rename(s.path, backup); err != nil && !os.IsNotExist(err) {
		return fmtErrorf("failed to rotate log file '%s': %w", s.path, err)
	}
	s.pruneBackups()

	f, err := openLogFile(s.path, "a")
	if err != nil {
		return fmtErrorf("failed to reopen log file after rotation: %w", err)
	}
	s.f = f
	s.lastRotate = s.now()
	return nil
}

// pruneBackups removes timestamped backups beyond backupCount, oldest first.
// The timestamp format sorts lexicographically in time order.
func (s *timeRotatingSink) pruneBackups() {
	matches, err := filepath.Glob(s.path + ".*")
	if err != nil {
		return
	}
	if s.backupCount <= 0 || len(matches) <= s.backupCount {
		return
	}
	sort.Strings(matches)
	for _, old := range matches[:len(matches)-s.backupCount] {
		if err := os.Remove(old); err != nil {
			internalLog("warning - failed to remove expired backup '%s': %v", old, err)
		}
	}
}

func (s *timeRotatingSink) close() error {
	if err := s.f.Sync(); err != nil {
		internalLog("warning - failed to sync log file '%s': %v", s.path, err)
	}
	return s.f.Close()
}
