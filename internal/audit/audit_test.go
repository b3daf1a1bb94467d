package audit

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjourdan1/azcli-mcp/internal/azure"
)

func TestBuildEvent_InfersOperationAndRedacts(t *testing.T) {
	event := BuildEvent([]string{"azcli-mcp", "-v", "exec", "az login --service-principal -u c --password hunter2"}, ResultFailure, 3, 1500*time.Millisecond)

	assert.Equal(t, "cli:exec", event.Operation)
	assert.Equal(t, ResultFailure, event.Result)
	assert.Equal(t, 3, event.ExitCode)
	assert.Equal(t, int64(1500), event.DurationMs)
	assert.Equal(t, "az login --service-principal -u c --password ***", event.Args[3])
	assert.NotEmpty(t, event.CorrelationID)
}

func TestRedactArgs(t *testing.T) {
	got := redactArgs([]string{"azcli-mcp", "init", "--client-secret", "s3cret", "--credentials={}", "--tenant", "t"})
	assert.Equal(t, []string{"azcli-mcp", "init", "--client-secret", "***", "--credentials=***", "--tenant", "t"}, got)
}

func TestToolEvent(t *testing.T) {
	ok := ToolEvent("execute", "az group list", azure.Result{Output: "[]"}, 20*time.Millisecond)
	assert.Equal(t, ResultSuccess, ok.Result)
	assert.Equal(t, 0, ok.ExitCode)
	assert.Equal(t, "az group list", ok.Command)
	assert.Empty(t, ok.Error)

	exit := ToolEvent("execute", "az vm show", azure.Result{Err: &azure.ExitError{Code: 3, Output: "ERROR"}}, 0)
	assert.Equal(t, ResultFailure, exit.Result)
	assert.Equal(t, 3, exit.ExitCode)
	assert.Equal(t, "az exited with code 3", exit.Error)

	spawn := ToolEvent("execute", "az vm show", azure.Result{Err: &azure.SpawnError{Err: errors.New("no shell")}}, 0)
	assert.Equal(t, -1, spawn.ExitCode)
	assert.Equal(t, "no shell", spawn.Error)
}

func TestLog_WriteAndRead(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "sub", "audit.log"))

	require.NoError(t, l.Write(Event{Operation: "execute", Result: ResultSuccess}))
	require.NoError(t, l.Write(Event{Operation: "login", Result: ResultFailure}))

	events, err := l.Read()
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "execute", events[0].Operation)
	assert.Equal(t, "login", events[1].Operation)

	info, err := os.Stat(l.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLog_ReadSkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	require.NoError(t, os.WriteFile(path, []byte("{\"operation\":\"a\"}\nnot json\n\n{\"operation\":\"b\"}\n"), 0o600))

	events, err := New(path).Read()
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "b", events[1].Operation)
}

func TestLog_ReadMissingFile(t *testing.T) {
	events, err := New(filepath.Join(t.TempDir(), "none.log")).Read()
	assert.NoError(t, err)
	assert.Nil(t, events)
}

func TestLog_ConcurrentRecorder(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "audit.log"))
	rec := l.Recorder(func(err error) { t.Errorf("write failed: %v", err) })

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec("execute", "az account show", azure.Result{Output: "{}"}, time.Millisecond)
		}()
	}
	wg.Wait()

	events, err := l.Read()
	require.NoError(t, err)
	assert.Len(t, events, 20)
}

func TestLog_RecorderReportsWriteErrors(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	var got error
	rec := New(filepath.Join(blocker, "audit.log")).Recorder(func(err error) { got = err })
	rec("execute", "az account show", azure.Result{}, 0)

	assert.Error(t, got)
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "operation", sanitize(""))
	assert.Equal(t, "login-status", sanitize("Login/Status"))
}
