// Package audit appends one JSON line per tool invocation, background login
// outcome and CLI run to a local audit log (~/.azcli-mcp/audit.log by default).
package audit

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kjourdan1/azcli-mcp/internal/azure"
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

type Event struct {
	Timestamp     string            `json:"timestamp"`
	Operation     string            `json:"operation"`
	Command       string            `json:"command,omitempty"`
	Args          []string          `json:"args,omitempty"`
	Result        string            `json:"result"`
	ExitCode      int               `json:"exitCode"`
	Error         string            `json:"error,omitempty"`
	DurationMs    int64             `json:"durationMs"`
	CorrelationID string            `json:"correlationId"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

func (e Event) MetadataValue(key string) string {
	if e.Metadata == nil {
		return ""
	}
	return e.Metadata[key]
}

// Log is an append-only JSON-lines file. It is safe for concurrent use.
type Log struct {
	path string
	mu   sync.Mutex
}

func New(path string) *Log {
	return &Log{path: path}
}

func (l *Log) Path() string { return l.path }

func (l *Log) Write(event Event) error {
	line, err := json.Marshal(event)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(l.path), 0o750); err != nil {
		return err
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(append(line, '\n'))
	return err
}

// Read returns every event in the log. Malformed lines are skipped; a
// missing file yields no events.
func (l *Log) Read() ([]Event, error) {
	file, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var out []Event
	scanner := bufio.NewScanner(file)
	// Failure output from az can make long lines.
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var event Event
		if err := json.Unmarshal([]byte(line), &event); err == nil {
			out = append(out, event)
		}
	}
	return out, scanner.Err()
}

// Recorder adapts the log to the azure service. Write failures go to onError
// and never reach the tool caller.
func (l *Log) Recorder(onError func(error)) azure.Recorder {
	return func(operation, command string, res azure.Result, d time.Duration) {
		if err := l.Write(ToolEvent(operation, command, res, d)); err != nil && onError != nil {
			onError(err)
		}
	}
}

// ToolEvent describes one command run by the service. command must already
// be redacted.
func ToolEvent(operation, command string, res azure.Result, d time.Duration) Event {
	event := newEvent(operation, d)
	event.Command = command
	event.Result = ResultSuccess
	if !res.OK() {
		event.Result = ResultFailure
		event.ExitCode = -1
		var exitErr *azure.ExitError
		if errors.As(res.Err, &exitErr) {
			event.ExitCode = exitErr.Code
			event.Error = exitErr.Error()
		} else {
			event.Error = truncate(azure.Redact(res.Err.Error()), 512)
		}
	}
	return event
}

// BuildEvent describes one run of the azcli-mcp binary itself.
func BuildEvent(args []string, result string, exitCode int, duration time.Duration) Event {
	event := newEvent("cli:"+inferOperation(args), duration)
	event.Args = redactArgs(args)
	event.Result = result
	event.ExitCode = exitCode
	return event
}

func newEvent(operation string, d time.Duration) Event {
	return Event{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Operation:     operation,
		DurationMs:    d.Milliseconds(),
		CorrelationID: uuid.NewString(),
	}
}

func inferOperation(args []string) string {
	for i := 1; i < len(args); i++ {
		if strings.HasPrefix(args[i], "-") {
			continue
		}
		return sanitize(args[i])
	}
	return "root"
}

var secretArgs = map[string]bool{
	"--password":      true,
	"-p":              true,
	"--client-secret": true,
	"--credentials":   true,
}

func redactArgs(args []string) []string {
	out := make([]string, len(args))
	maskNext := false
	for i, arg := range args {
		switch {
		case maskNext:
			out[i] = "***"
			maskNext = false
		case secretArgs[arg]:
			out[i] = arg
			maskNext = true
		default:
			if flag, _, ok := strings.Cut(arg, "="); ok && secretArgs[flag] {
				out[i] = flag + "=***"
				continue
			}
			out[i] = azure.Redact(arg)
		}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func sanitize(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return "operation"
	}
	replacer := strings.NewReplacer("/", "-", "\\", "-", " ", "-", ":", "-")
	return replacer.Replace(s)
}
