package azure

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// eventLog records spawn and kill calls in order across processes.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, fmt.Sprintf(format, args...))
}

func (l *eventLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

// stdinRecorder captures what the orchestrator writes to a process.
type stdinRecorder struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	closed bool
}

func (s *stdinRecorder) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, io.ErrClosedPipe
	}
	return s.buf.Write(p)
}

func (s *stdinRecorder) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *stdinRecorder) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}

// fakeProcess is a scripted process. It stays alive until exit or Kill.
type fakeProcess struct {
	pid      int
	output   io.Reader
	stdin    *stdinRecorder
	exitCode int
	waitErr  error
	events   *eventLog

	once sync.Once
	done chan struct{}
}

func newFakeProcess(pid int, output string) *fakeProcess {
	return &fakeProcess{
		pid:    pid,
		output: strings.NewReader(output),
		stdin:  &stdinRecorder{},
		done:   make(chan struct{}),
	}
}

// exited returns a process that has already finished with code.
func exitedProcess(pid int, output string, code int) *fakeProcess {
	p := newFakeProcess(pid, output)
	p.exitCode = code
	p.exit()
	return p
}

func (p *fakeProcess) exit() { p.exitWith(p.exitCode) }

func (p *fakeProcess) exitWith(code int) {
	p.once.Do(func() {
		p.exitCode = code
		close(p.done)
	})
}

func (p *fakeProcess) Output() io.Reader     { return p.output }
func (p *fakeProcess) Stdin() io.WriteCloser { return p.stdin }
func (p *fakeProcess) Pid() int              { return p.pid }

func (p *fakeProcess) Alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func (p *fakeProcess) Kill() error {
	if p.events != nil {
		p.events.add("kill:%d", p.pid)
	}
	p.once.Do(func() {
		p.exitCode = -1
		close(p.done)
	})
	return nil
}

func (p *fakeProcess) Wait() (int, error) {
	<-p.done
	return p.exitCode, p.waitErr
}

// fakeSpawner hands out queued processes and records every command.
type fakeSpawner struct {
	mu       sync.Mutex
	procs    []*fakeProcess
	err      error
	commands []string
	stdin    []bool
	events   *eventLog
}

func newFakeSpawner(procs ...*fakeProcess) *fakeSpawner {
	s := &fakeSpawner{events: &eventLog{}}
	for _, p := range procs {
		p.events = s.events
	}
	s.procs = procs
	return s
}

func (s *fakeSpawner) Spawn(command string, withStdin bool) (Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands = append(s.commands, command)
	s.stdin = append(s.stdin, withStdin)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.procs) == 0 {
		return nil, fmt.Errorf("no scripted process for %q", command)
	}
	p := s.procs[0]
	s.procs = s.procs[1:]
	s.events.add("spawn:%d", p.pid)
	return p, nil
}

func (s *fakeSpawner) spawned() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

const devicePrompt = "To sign in, use a web browser to open the page https://microsoft.com/devicelogin and enter the code ABCDEFG12 to authenticate."

func bufioReader(s string) *bufio.Reader { return bufio.NewReader(strings.NewReader(s)) }

func bufioReaderFrom(r io.Reader) *bufio.Reader { return bufio.NewReader(r) }
