package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// NewStdout returns an emitter that writes one JSON line per event to
// stdout.
func NewStdout() Emitter {
	return &writerSink{w: os.Stdout}
}

// NewNop returns an emitter that drops every event.
func NewNop() Emitter {
	return nopSink{}
}

type nopSink struct{}

func (nopSink) Emit(context.Context, *Event) {}

type writerSink struct {
	mu sync.Mutex
	w  *os.File
}

func (s *writerSink) Emit(_ context.Context, ev *Event) {
	if ev == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.w, string(data))
}

// FileSink appends JSON lines to a file, creating parent directories on
// first use.
type FileSink struct {
	mu   sync.Mutex
	path string
	f    *os.File
}

// NewFile returns a file-backed emitter. The file is opened lazily so a
// missing directory at startup doesn't take the service down.
func NewFile(path string) *FileSink {
	return &FileSink{path: path}
}

func (s *FileSink) Emit(_ context.Context, ev *Event) {
	if ev == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.f == nil {
		if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
			return
		}
		f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return
		}
		s.f = f
	}
	fmt.Fprintln(s.f, string(data))
}

// Close closes the underlying file if it was opened.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}
