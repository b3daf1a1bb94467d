package azure

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// DefaultShell interprets command lines so quoting and globbing behave as
// they would in a terminal.
const DefaultShell = "sh"

// Process is a started subprocess whose stdout and stderr share one stream.
type Process interface {
	// Output returns the merged stdout/stderr stream.
	Output() io.Reader
	// Stdin returns the process input, or nil when it was not requested.
	Stdin() io.WriteCloser
	// Alive reports whether the process has not exited yet. It never blocks.
	Alive() bool
	// Kill forcibly terminates the process. Killing an exited process is a no-op.
	Kill() error
	// Wait blocks until the process exits and returns its exit code. A
	// non-zero exit is not an error; err is set only when waiting failed.
	Wait() (int, error)
	Pid() int
}

// Spawner starts subprocesses. Tests replace it to script process behavior.
type Spawner interface {
	Spawn(command string, withStdin bool) (Process, error)
}

// ShellSpawner runs command lines through "<shell> -c".
type ShellSpawner struct {
	Shell string
	// Program replaces the leading "az" of each command, for installs that
	// are not on PATH. Empty keeps "az".
	Program string
	Env     []string // nil inherits the parent environment
}

// NewShellSpawner returns a spawner for the given shell, or DefaultShell.
func NewShellSpawner(shell string) *ShellSpawner {
	if shell == "" {
		shell = DefaultShell
	}
	return &ShellSpawner{Shell: shell}
}

// Spawn starts the command with stderr merged into stdout.
func (s *ShellSpawner) Spawn(command string, withStdin bool) (Process, error) {
	shell := s.Shell
	if shell == "" {
		shell = DefaultShell
	}
	cmd := exec.Command(shell, "-c", s.resolve(command))
	cmd.Env = s.Env
	if withStdin {
		// az is a wrapper script that does not exec its interpreter, so a
		// login gets its own process group for Kill to reach the whole tree.
		// Plain commands stay in ours and still see terminal signals.
		setProcessGroup(cmd)
	}

	// A single pipe for both streams keeps the interleaving the terminal would show.
	reader, writer, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("creating output pipe: %w", err)
	}
	cmd.Stdout = writer
	cmd.Stderr = writer

	var stdin io.WriteCloser
	if withStdin {
		stdin, err = cmd.StdinPipe()
		if err != nil {
			reader.Close()
			writer.Close()
			return nil, fmt.Errorf("opening stdin: %w", err)
		}
	}

	if err := cmd.Start(); err != nil {
		reader.Close()
		writer.Close()
		return nil, err
	}
	// The child holds its own copy; closing ours lets the reader see EOF.
	writer.Close()

	p := &shellProcess{
		cmd:    cmd,
		output: reader,
		stdin:  stdin,
		group:  withStdin,
		done:   make(chan struct{}),
	}
	go p.reap()
	return p, nil
}

func (s *ShellSpawner) resolve(command string) string {
	if s.Program == "" || s.Program == Program {
		return command
	}
	if rest, ok := strings.CutPrefix(command, Program+" "); ok {
		return s.Program + " " + rest
	}
	return command
}

type shellProcess struct {
	cmd    *exec.Cmd
	output *os.File
	stdin  io.WriteCloser
	group  bool // leads its own process group

	done     chan struct{}
	exitCode int
	waitErr  error
	closeOut sync.Once
}

// reap waits in the background so Alive can be answered without blocking.
// Output is an *os.File owned by us, so Wait does not race with readers.
func (p *shellProcess) reap() {
	err := p.cmd.Wait()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		p.exitCode = 0
	case errors.As(err, &exitErr):
		p.exitCode = exitErr.ExitCode()
	default:
		p.exitCode = -1
		p.waitErr = err
	}
	close(p.done)
}

func (p *shellProcess) Output() io.Reader     { return p.output }
func (p *shellProcess) Stdin() io.WriteCloser { return p.stdin }
func (p *shellProcess) Pid() int              { return p.cmd.Process.Pid }

func (p *shellProcess) Alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

func (p *shellProcess) Kill() error {
	if !p.Alive() {
		return nil
	}
	var err error
	if p.group {
		err = killProcessGroup(p.cmd.Process)
	} else {
		err = p.cmd.Process.Kill()
	}
	if err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

func (p *shellProcess) Wait() (int, error) {
	<-p.done
	p.closeOut.Do(func() { p.output.Close() })
	return p.exitCode, p.waitErr
}
