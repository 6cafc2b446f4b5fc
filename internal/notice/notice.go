// Package notice collects recoverable problems (a corrupt side-store blob, a
// catalog that failed to load) so the UI can show them without crashing.
// Every notice is kept in memory for display and appended to a journal file.
package notice

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a notice.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

const defaultCapacity = 50

// Reporter is implemented by anything that accepts degraded-state reports.
type Reporter interface {
	Report(source string, err error)
}

// Notice is a single entry on the board.
type Notice struct {
	At      time.Time
	Level   Level
	Source  string
	Message string
}

func (n Notice) String() string {
	if n.Source == "" {
		return n.Message
	}
	return n.Source + ": " + n.Message
}

// Board keeps recent notices and journals them to a text file.
type Board struct {
	path     string
	mu       sync.Mutex
	recent   []Notice
	capacity int
	now      func() time.Time
}

// New creates a board that journals to the provided path.
func New(path string) (*Board, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &Board{path: path, capacity: defaultCapacity, now: time.Now}, nil
}

// NewMemory creates a board without a journal file.
func NewMemory() *Board {
	return &Board{capacity: defaultCapacity, now: time.Now}
}

// Path returns the journal backing this board.
func (b *Board) Path() string {
	if b == nil {
		return ""
	}
	return b.path
}

// Append records a notice.
func (b *Board) Append(level Level, source, message string) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	n := Notice{
		At:      b.now().UTC(),
		Level:   level,
		Source:  strings.TrimSpace(source),
		Message: strings.TrimSpace(message),
	}
	b.recent = append(b.recent, n)
	if len(b.recent) > b.capacity {
		b.recent = b.recent[len(b.recent)-b.capacity:]
	}
	if b.path == "" {
		return
	}
	line := fmt.Sprintf("%s %-5s %s\n", n.At.Format(time.RFC3339), string(level), n.String())
	file, err := os.OpenFile(b.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer file.Close()
	_, _ = file.WriteString(line)
}

// Report records err as a warning; nil errors are ignored.
func (b *Board) Report(source string, err error) {
	if err == nil {
		return
	}
	b.Append(LevelWarn, source, err.Error())
}

// Info appends an informational notice.
func (b *Board) Info(source, format string, args ...any) {
	b.Append(LevelInfo, source, fmt.Sprintf(format, args...))
}

// Warn appends a warning notice.
func (b *Board) Warn(source, format string, args ...any) {
	b.Append(LevelWarn, source, fmt.Sprintf(format, args...))
}

// Error appends an error notice.
func (b *Board) Error(source, format string, args ...any) {
	b.Append(LevelError, source, fmt.Sprintf(format, args...))
}

// Recent returns the in-memory notices, oldest first.
func (b *Board) Recent() []Notice {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Notice(nil), b.recent...)
}

// Latest returns the newest notice.
func (b *Board) Latest() (Notice, bool) {
	if b == nil {
		return Notice{}, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.recent) == 0 {
		return Notice{}, false
	}
	return b.recent[len(b.recent)-1], true
}

// Tail returns up to maxLines of the most recent journal lines along with the
// total number of lines in the journal.
func (b *Board) Tail(maxLines int) ([]string, int) {
	if b == nil || b.path == "" || maxLines <= 0 {
		return nil, 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	file, err := os.Open(b.path)
	if err != nil {
		return nil, 0
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	total := len(lines)
	if total > maxLines {
		lines = lines[total-maxLines:]
	}
	return lines, total
}
