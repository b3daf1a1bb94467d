package azure

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/charmbracelet/log"
)

// Runner executes ordinary az commands to completion and buffers their output.
type Runner struct {
	spawner Spawner
	logger  *log.Logger
}

// NewRunner returns a runner. A nil spawner runs commands through DefaultShell.
func NewRunner(spawner Spawner, logger *log.Logger) *Runner {
	if spawner == nil {
		spawner = NewShellSpawner("")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{spawner: spawner, logger: logger}
}

// Run starts one process for command, drains its merged output and waits
// for it to exit. It blocks for as long as the process runs.
func (r *Runner) Run(_ context.Context, command string) Result {
	r.logger.Info("running az command", "command", Redact(command))

	proc, err := r.spawner.Spawn(command, false)
	if err != nil {
		r.logger.Error("starting az command", "err", err)
		return failure(&SpawnError{Err: err})
	}

	var out strings.Builder
	readErr := readLines(bufio.NewReader(proc.Output()), func(line string) bool {
		out.WriteString(line)
		out.WriteByte('\n')
		return true
	})
	if readErr != nil {
		_ = proc.Kill()
		_, _ = proc.Wait()
		r.logger.Error("reading az output", "err", readErr)
		return failure(&StreamError{Err: readErr})
	}

	// Output is drained before waiting so a chatty process never stalls on a full pipe.
	code, err := proc.Wait()
	if err != nil {
		r.logger.Error("waiting for az command", "err", err)
		return failure(&StreamError{Err: err})
	}
	if code != 0 {
		r.logger.Error("az command failed", "exitCode", code)
		return Result{Output: out.String(), Err: &ExitError{Code: code, Output: out.String()}}
	}
	return success(out.String())
}

// readLines calls fn for each line without its terminator until fn returns
// false or the stream ends. A final unterminated line is still delivered.
func readLines(r *bufio.Reader, fn func(line string) bool) error {
	for {
		line, err := r.ReadString('\n')
		if len(line) > 0 {
			if !fn(strings.TrimRight(line, "\r\n")) {
				return nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}
