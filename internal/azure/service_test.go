package azure

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjourdan1/azcli-mcp/internal/azauth"
)

type recordedCall struct {
	operation string
	command   string
	ok        bool
}

type callRecorder struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (r *callRecorder) record(operation, command string, res Result, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recordedCall{operation: operation, command: command, ok: res.OK()})
}

func (r *callRecorder) list() []recordedCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedCall(nil), r.calls...)
}

func newTestService(t *testing.T, sp *fakeSpawner, opts ...Option) *Service {
	t.Helper()
	opts = append([]Option{WithSpawner(sp), WithLogger(quietLogger())}, opts...)
	s := NewService(context.Background(), opts...)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestExecute_RejectsNonAzCommands(t *testing.T) {
	for _, cmd := range []string{"ls -la", "", "az", "azure login", " az group list", "AZ group list"} {
		t.Run(cmd, func(t *testing.T) {
			sp := newFakeSpawner()
			s := newTestService(t, sp)

			got := s.Execute(context.Background(), cmd)

			assert.Equal(t, "Error: Invalid command. Command must start with 'az'.", got)
			assert.Empty(t, sp.spawned())
		})
	}
}

func TestRun_ReturnsTypedValidationError(t *testing.T) {
	s := newTestService(t, newFakeSpawner())

	res := s.Run(context.Background(), "rm -rf /")

	var verr *ValidationError
	require.ErrorAs(t, res.Err, &verr)
	assert.Equal(t, "rm -rf /", verr.Command)
	assert.Equal(t, InvalidCommandMessage, res.String())
}

func TestExecute_RoutesOrdinaryCommandsToRunner(t *testing.T) {
	sp := newFakeSpawner(exitedProcess(1, `[{"name": "rg1"}]`, 0))
	s := newTestService(t, sp)

	got := s.Execute(context.Background(), "az group list")

	assert.Equal(t, "[{\"name\": \"rg1\"}]\n", got)
	assert.Equal(t, []string{"az group list"}, sp.spawned())
	assert.Equal(t, []bool{false}, sp.stdin)
}

func TestExecute_RoutesLoginToOrchestrator(t *testing.T) {
	sp := newFakeSpawner(exitedProcess(1, devicePrompt+"\n", 0))
	s := newTestService(t, sp)

	got := s.Execute(context.Background(), "az login --tenant contoso")

	assert.Equal(t, "To sign in, open the URL: https://microsoft.com/devicelogin and enter the code: ABCDEFG12", got)
	assert.Equal(t, []string{"az login --tenant contoso --use-device-code"}, sp.spawned())
	assert.Equal(t, []bool{true}, sp.stdin)
}

func TestExecute_FailureIsMarked(t *testing.T) {
	sp := newFakeSpawner(exitedProcess(1, "ERROR: (ResourceGroupNotFound)\n", 3))
	s := newTestService(t, sp)

	got := s.Execute(context.Background(), "az group show -n nope")

	assert.Equal(t, "Error: ERROR: (ResourceGroupNotFound)\n", got)
}

func TestExecute_DoesNotCacheResults(t *testing.T) {
	sp := newFakeSpawner(
		exitedProcess(1, "first", 0),
		exitedProcess(2, "second", 0),
	)
	s := newTestService(t, sp)

	assert.Equal(t, "first\n", s.Execute(context.Background(), "az account show"))
	assert.Equal(t, "second\n", s.Execute(context.Background(), "az account show"))
	assert.Len(t, sp.spawned(), 2)
}

func TestExecute_RecordsRedactedCommand(t *testing.T) {
	rec := &callRecorder{}
	sp := newFakeSpawner(exitedProcess(1, "ok", 0))
	s := newTestService(t, sp, WithRecorder(rec.record))

	s.Execute(context.Background(), "az ad sp credential reset --password hunter2")

	calls := rec.list()
	require.Len(t, calls, 1)
	assert.Equal(t, "execute", calls[0].operation)
	assert.Equal(t, "az ad sp credential reset --password ***", calls[0].command)
	assert.True(t, calls[0].ok)
	assert.Equal(t, []string{"az ad sp credential reset --password hunter2"}, sp.spawned())
}

func TestService_LoginOutcomeIsRecordedAndForwarded(t *testing.T) {
	rec := &callRecorder{}
	done := make(chan LoginStatus, 1)
	p := newFakeProcess(4, devicePrompt+"\n")
	s := newTestService(t, newFakeSpawner(p),
		WithRecorder(rec.record),
		WithLoginHooks(LoginHooks{OnComplete: func(st LoginStatus) { done <- st }}),
	)

	s.Execute(context.Background(), "az login")
	assert.Equal(t, LoginStatePromptDetected, s.LoginStatus().State)

	p.exitWith(0)
	select {
	case st := <-done:
		assert.Equal(t, LoginStateCompleted, st.State)
	case <-time.After(5 * time.Second):
		t.Fatal("login hook never fired")
	}
	require.NoError(t, s.Close())

	calls := rec.list()
	require.Len(t, calls, 2)
	assert.Equal(t, "execute", calls[0].operation)
	assert.Equal(t, "login", calls[1].operation)
	assert.True(t, calls[1].ok)
}

func TestNewService_ServicePrincipalBootstrap(t *testing.T) {
	rec := &callRecorder{}
	sp := newFakeSpawner(exitedProcess(1, `[{"tenantId": "t"}]`, 0))
	principal := &azauth.ServicePrincipal{TenantID: "tenant", ClientID: "client", ClientSecret: "s3cret"}

	newTestService(t, sp, WithServicePrincipal(principal), WithRecorder(rec.record))

	cmds := sp.spawned()
	require.Len(t, cmds, 1)
	assert.Equal(t, "az login --service-principal --tenant tenant --username client --password s3cret", cmds[0])
	assert.NotContains(t, cmds[0], DeviceCodeFlag)
	assert.Equal(t, []bool{false}, sp.stdin)

	calls := rec.list()
	require.Len(t, calls, 1)
	assert.Equal(t, "bootstrap", calls[0].operation)
	assert.NotContains(t, calls[0].command, "s3cret")
}

func TestNewService_BootstrapFailureIsNotFatal(t *testing.T) {
	sp := newFakeSpawner(
		exitedProcess(1, "ERROR: AADSTS7000215: Invalid client secret provided.\n", 1),
		exitedProcess(2, "[]", 0),
	)
	principal := &azauth.ServicePrincipal{TenantID: "t", ClientID: "c", ClientSecret: "bad"}

	s := newTestService(t, sp, WithServicePrincipal(principal))

	assert.Equal(t, "[]\n", s.Execute(context.Background(), "az group list"))
}

func TestNewService_WarnsWithoutCredentials(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{})
	sp := newFakeSpawner()

	s := NewService(context.Background(), WithSpawner(sp), WithLogger(logger))
	defer s.Close()

	assert.Contains(t, buf.String(), "no Azure credentials provided")
	assert.Empty(t, sp.spawned())
}

func TestRedact(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"az group list", "az group list"},
		{"az login --password hunter2", "az login --password ***"},
		{"az login --password='a b c' --tenant t", "az login --password=*** --tenant t"},
		{`az login -p "x y" -u me`, "az login -p *** -u me"},
		{"az ad app credential reset --client-secret abc", "az ad app credential reset --client-secret ***"},
		{"az vm create --admin-password-file f", "az vm create --admin-password-file f"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Redact(tt.in)
			assert.Equal(t, tt.want, got)
			assert.False(t, strings.Contains(got, "hunter2"))
		})
	}
}
