package azure

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunner_Success(t *testing.T) {
	sp := newFakeSpawner(exitedProcess(1, "line one\nline two", 0))
	r := NewRunner(sp, quietLogger())

	res := r.Run(context.Background(), "az group list")

	require.True(t, res.OK())
	assert.Equal(t, "line one\nline two\n", res.String())
	assert.Equal(t, []string{"az group list"}, sp.spawned())
	assert.Equal(t, []bool{false}, sp.stdin)
}

func TestRunner_NonZeroExitRendersBufferedOutput(t *testing.T) {
	sp := newFakeSpawner(exitedProcess(1, "boom\n", 1))
	r := NewRunner(sp, quietLogger())

	res := r.Run(context.Background(), "az vm show -n missing")

	require.False(t, res.OK())
	assert.Equal(t, "Error: boom\n", res.String())

	var exitErr *ExitError
	require.ErrorAs(t, res.Err, &exitErr)
	assert.Equal(t, 1, exitErr.Code)
}

func TestRunner_SpawnFailure(t *testing.T) {
	sp := newFakeSpawner()
	sp.err = errors.New("Test exception")
	r := NewRunner(sp, quietLogger())

	res := r.Run(context.Background(), "az account show")

	assert.Equal(t, "Error: Test exception", res.String())
	var spawnErr *SpawnError
	assert.ErrorAs(t, res.Err, &spawnErr)
}

type failingReader struct{ err error }

func (f failingReader) Read([]byte) (int, error) { return 0, f.err }

func TestRunner_StreamFailureKillsProcess(t *testing.T) {
	p := newFakeProcess(7, "")
	p.output = failingReader{err: errors.New("read /dev/fd: bad file descriptor")}
	sp := newFakeSpawner(p)
	r := NewRunner(sp, quietLogger())

	res := r.Run(context.Background(), "az account show")

	assert.Equal(t, "Error: read /dev/fd: bad file descriptor", res.String())
	var streamErr *StreamError
	assert.ErrorAs(t, res.Err, &streamErr)
	assert.Contains(t, sp.events.list(), "kill:7")
}

func TestRunner_WaitFailure(t *testing.T) {
	p := exitedProcess(3, "partial\n", 0)
	p.waitErr = errors.New("wait: no child processes")
	r := NewRunner(newFakeSpawner(p), quietLogger())

	res := r.Run(context.Background(), "az account show")

	assert.Equal(t, "Error: wait: no child processes", res.String())
}

func TestReadLines_HandlesCRLFAndUnterminatedLine(t *testing.T) {
	var lines []string
	err := readLines(bufioReader("a\r\nb\nc"), func(line string) bool {
		lines = append(lines, line)
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, lines)
}

func TestReadLines_StopsEarly(t *testing.T) {
	var lines []string
	err := readLines(bufioReader("a\nb\nc\n"), func(line string) bool {
		lines = append(lines, line)
		return line != "b"
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, lines)
}

func TestReadLines_PropagatesReadError(t *testing.T) {
	err := readLines(bufioReaderFrom(failingReader{err: io.ErrUnexpectedEOF}), func(string) bool { return true })
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

// --- Real shell ---

func TestShellRunner_MergesStderr(t *testing.T) {
	r := NewRunner(NewShellSpawner(""), quietLogger())

	res := r.Run(context.Background(), "echo out; echo err 1>&2")

	require.True(t, res.OK(), res.String())
	assert.Equal(t, "out\nerr\n", res.Output)
}

func TestShellRunner_ExitCodeOne(t *testing.T) {
	r := NewRunner(NewShellSpawner(""), quietLogger())

	res := r.Run(context.Background(), "echo boom; exit 1")

	assert.Equal(t, "Error: boom\n", res.String())
}

func TestShellRunner_ShellQuoting(t *testing.T) {
	r := NewRunner(NewShellSpawner(""), quietLogger())

	res := r.Run(context.Background(), `printf '%s\n' "a  b" 'c'`)

	require.True(t, res.OK())
	assert.Equal(t, "a  b\nc\n", res.Output)
}

func TestShellRunner_MissingShell(t *testing.T) {
	r := NewRunner(NewShellSpawner("/nonexistent/shell"), quietLogger())

	res := r.Run(context.Background(), "echo hi")

	require.False(t, res.OK())
	assert.Contains(t, res.String(), ErrorMarker)
	assert.Contains(t, res.String(), "/nonexistent/shell")
}

func TestShellRunner_LargeOutputDoesNotDeadlock(t *testing.T) {
	r := NewRunner(NewShellSpawner(""), quietLogger())

	// Well beyond a 64KiB pipe buffer.
	res := r.Run(context.Background(), "i=0; while [ $i -lt 20000 ]; do echo 0123456789; i=$((i+1)); done")

	require.True(t, res.OK())
	assert.Len(t, res.Output, 20000*11)
}

func TestShellSpawner_ProgramOverride(t *testing.T) {
	sp := NewShellSpawner("")
	sp.Program = "echo"
	r := NewRunner(sp, quietLogger())

	res := r.Run(context.Background(), "az group list")

	require.True(t, res.OK(), res.String())
	assert.Equal(t, "group list\n", res.Output)
}
