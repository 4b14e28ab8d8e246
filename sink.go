package funnel

import (
	"io"
	"os"
	"path/filepath"
)

// sink is a terminal destination for formatted output. Implementations are
// owned exclusively by the dispatcher; nothing else touches them after
// construction.
type sink interface {
	write(line []byte, level Level) error
	close() error
}

// handler pairs a constructed sink with its severity floor and compiled
// format template. One handler per configured entry.
type handler struct {
	name   string
	level  Level
	format *lineFormat
	out    sink
}

// Handler type tags accepted in configuration.
const (
	sinkStream        = "stream"
	sinkFile          = "file"
	sinkRotating      = "rotating_file"
	sinkTimedRotating = "timed_rotating_file"
)

// buildSink constructs one handler from its configuration entry. The target
// directory of file-based kinds must already exist; buildSink never creates
// directories.
func buildSink(name string, hc HandlerConfig) (*handler, error) {
	level := LevelInfo
	if hc.Level != "" {
		var err error
		level, err = ParseLevel(hc.Level)
		if err != nil {
			return nil, &SinkError{Name: name, Err: err}
		}
	}

	format, err := parseFormat(hc.Formatter.Format, hc.Formatter.Datefmt)
	if err != nil {
		return nil, &SinkError{Name: name, Err: err}
	}

	var out sink
	switch hc.Type {
	case "", sinkStream:
		out = newStreamSink(hc.Target)
	case sinkFile:
		out, err = newFileSink(hc.Filename, hc.Mode)
	case sinkRotating:
		out, err = newSizeRotatingSink(hc.Filename, hc.MaxBytes, hc.BackupCount)
	case sinkTimedRotating:
		out, err = newTimeRotatingSink(hc.Filename, hc.When, hc.Interval, hc.BackupCount)
	default:
		return nil, &SinkError{Name: name, Err: fmtErrorf("unsupported handler type: '%s'", hc.Type)}
	}
	if err != nil {
		return nil, &SinkError{Name: name, Path: hc.Filename, Err: err}
	}

	return &handler{name: name, level: level, format: format, out: out}, nil
}

// streamSink writes to stderr or stdout. The stream is not owned, so close
// is a no-op.
type streamSink struct {
	w io.Writer
}

func newStreamSink(target string) *streamSink {
	if target == "stdout" {
		return &streamSink{w: os.Stdout}
	}
	return &streamSink{w: os.Stderr}
}

func (s *streamSink) write(line []byte, _ Level) error {
	_, err := s.w.Write(line)
	return err
}

func (s *streamSink) close() error {
	return nil
}

// fileSink appends (or truncates, mode "w") a single file. The handle's
// lifetime is tied to the sink's lifetime.
type fileSink struct {
	path string
	f    *os.File
}

func newFileSink(path, mode string) (*fileSink, error) {
	f, err := openLogFile(path, mode)
	if err != nil {
		return nil, err
	}
	return &fileSink{path: path, f: f}, nil
}

func (s *fileSink) write(line []byte, _ Level) error {
	_, err := s.f.Write(line)
	return err
}

func (s *fileSink) close() error {
	if err := s.f.Sync(); err != nil {
		internalLog("warning - failed to sync log file '%s': %v", s.path, err)
	}
	return s.f.Close()
}

// openLogFile opens the target path, requiring its directory to exist.
// Creating directories is the caller's responsibility.
func openLogFile(path, mode string) (*os.File, error) {
	if path == "" {
		return nil, fmtErrorf("file handler requires a filename")
	}
	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmtErrorf("log directory '%s' does not exist: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmtErrorf("log target parent '%s' is not a directory", dir)
	}

	flags := os.O_CREATE | os.O_WRONLY
	if mode == "w" {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_APPEND
	}
	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, fmtErrorf("failed to open log file '%s': %w", path, err)
	}
	return f, nil
}
