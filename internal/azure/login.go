package azure

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// DeviceCodeFlag keeps az login from opening a browser, so it always prints
// a URL and code the orchestrator can scan for.
const DeviceCodeFlag = "--use-device-code"

// loginAck answers the "press 1 to continue" prompt some az versions print
// after the device code.
const loginAck = "1\n"

// LoginState is the lifecycle of one login session.
type LoginState string

const (
	LoginStateIdle           LoginState = "idle"
	LoginStateSpawning       LoginState = "spawning"
	LoginStateStreaming      LoginState = "streaming"
	LoginStatePromptDetected LoginState = "prompt-detected"
	LoginStateNoPrompt       LoginState = "no-prompt"
	LoginStateSpawnError     LoginState = "spawn-error"
	LoginStateCompleted      LoginState = "completed"
	LoginStateFailed         LoginState = "failed"
	LoginStateSuperseded     LoginState = "superseded"
)

// LoginStatus is a snapshot of the current login session.
type LoginStatus struct {
	State      LoginState `json:"state"`
	Generation uint64     `json:"generation"`
	PID        int        `json:"pid,omitempty"`
	Alive      bool       `json:"alive"`
	URL        string     `json:"url,omitempty"`
	Code       string     `json:"code,omitempty"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"startedAt,omitzero"`
	FinishedAt time.Time  `json:"finishedAt,omitzero"`
}

// LoginHooks observe the background outcome of a login. The caller that
// started the login never sees it.
type LoginHooks struct {
	OnComplete func(LoginStatus)
	OnFailure  func(LoginStatus, error)
}

type loginSession struct {
	generation uint64
	proc       Process
	state      LoginState
	prompt     DeviceCodePrompt
	err        error
	startedAt  time.Time
	finishedAt time.Time
}

// LoginOrchestrator runs az login in device-code mode. At most one login
// process is live; starting another terminates the previous one.
type LoginOrchestrator struct {
	spawner Spawner
	logger  *log.Logger
	hooks   LoginHooks

	// serial orders the foreground path (supersede, spawn, scan) of
	// concurrent callers.
	serial sync.Mutex

	mu         sync.Mutex
	current    *loginSession
	generation uint64

	supervisors sync.WaitGroup
}

// NewLoginOrchestrator returns an orchestrator. Missing hooks log the outcome.
func NewLoginOrchestrator(spawner Spawner, logger *log.Logger, hooks LoginHooks) *LoginOrchestrator {
	if spawner == nil {
		spawner = NewShellSpawner("")
	}
	if logger == nil {
		logger = log.Default()
	}
	o := &LoginOrchestrator{spawner: spawner, logger: logger, hooks: hooks}
	if o.hooks.OnComplete == nil {
		o.hooks.OnComplete = func(s LoginStatus) {
			o.logger.Info("az login process completed", "generation", s.Generation)
		}
	}
	if o.hooks.OnFailure == nil {
		o.hooks.OnFailure = func(s LoginStatus, err error) {
			o.logger.Error("az login process failed", "generation", s.Generation, "err", err)
		}
	}
	return o
}

// WithDeviceCode appends DeviceCodeFlag unless command already carries it.
func WithDeviceCode(command string) string {
	if strings.Contains(command, DeviceCodeFlag) {
		return command
	}
	return command + " " + DeviceCodeFlag
}

// HandleLogin starts az login and returns as soon as the device-code prompt
// appears. The process keeps running under a background supervisor until the
// user completes sign-in elsewhere.
func (o *LoginOrchestrator) HandleLogin(_ context.Context, command string) Result {
	command = WithDeviceCode(command)
	o.logger.Info("handling az login", "command", Redact(command))

	o.serial.Lock()
	defer o.serial.Unlock()

	o.supersede()
	session := o.begin()

	proc, err := o.spawner.Spawn(command, true)
	if err != nil {
		o.logger.Error("starting az login", "err", err)
		o.settle(session, LoginStateSpawnError, err)
		return failure(&SpawnError{Err: err})
	}
	o.attach(session, proc)

	reader := bufio.NewReader(proc.Output())
	var out strings.Builder
	var prompt DeviceCodePrompt
	found := false
	readErr := readLines(reader, func(line string) bool {
		o.logger.Debug("az login output", "line", line)
		out.WriteString(line)
		out.WriteByte('\n')
		if p, ok := ParseDeviceCodePrompt(line); ok {
			prompt, found = p, true
			return false
		}
		return true
	})

	if found {
		if prompt.Complete() {
			o.logger.Info("extracted device code", "url", prompt.URL, "code", prompt.Code)
		} else {
			o.logger.Warn("device-code prompt in unexpected wording; returning it verbatim", "line", prompt.Line)
		}
		o.promptDetected(session, prompt)
		o.supervisors.Add(1)
		go o.supervise(session, reader)
		return success(prompt.Message())
	}

	if readErr != nil {
		o.logger.Error("reading az login output", "err", readErr)
		_ = proc.Kill()
		_, _ = proc.Wait()
		o.settle(session, LoginStateFailed, readErr)
		return failure(&StreamError{Err: readErr})
	}

	// The stream ended, so az exited before reaching the device-code step.
	_, _ = proc.Wait()
	noPrompt := &NoPromptError{Output: out.String()}
	o.settle(session, LoginStateNoPrompt, noPrompt)
	o.logger.Error("az login printed no device code")
	return failure(noPrompt)
}

// Status reports the most recent login session.
func (o *LoginOrchestrator) Status() LoginStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current == nil {
		return LoginStatus{State: LoginStateIdle}
	}
	return o.snapshotLocked(o.current)
}

// Close terminates a live login process and waits for every supervisor.
func (o *LoginOrchestrator) Close() error {
	o.mu.Lock()
	var err error
	if s := o.current; s != nil && s.proc != nil && s.proc.Alive() {
		err = s.proc.Kill()
	}
	o.mu.Unlock()
	o.supervisors.Wait()
	return err
}

// supersede kills the previous login process if it is still running. Its
// outcome is discarded.
func (o *LoginOrchestrator) supersede() {
	o.mu.Lock()
	defer o.mu.Unlock()
	prev := o.current
	if prev == nil || prev.proc == nil || !prev.proc.Alive() {
		return
	}
	o.logger.Info("interrupting previous az login", "generation", prev.generation, "pid", prev.proc.Pid())
	prev.state = LoginStateSuperseded
	prev.err = ErrSuperseded
	prev.finishedAt = time.Now()
	if err := prev.proc.Kill(); err != nil {
		o.logger.Warn("terminating previous az login", "err", err)
	}
}

func (o *LoginOrchestrator) begin() *loginSession {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.generation++
	s := &loginSession{
		generation: o.generation,
		state:      LoginStateSpawning,
		startedAt:  time.Now(),
	}
	o.current = s
	return s
}

func (o *LoginOrchestrator) attach(s *loginSession, proc Process) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s.proc = proc
	s.state = LoginStateStreaming
}

func (o *LoginOrchestrator) promptDetected(s *loginSession, prompt DeviceCodePrompt) {
	o.mu.Lock()
	defer o.mu.Unlock()
	s.prompt = prompt
	s.state = LoginStatePromptDetected
}

func (o *LoginOrchestrator) settle(s *loginSession, state LoginState, err error) LoginStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	if s.state != LoginStateSuperseded {
		s.state = state
		s.err = err
		s.finishedAt = time.Now()
	}
	return o.snapshotLocked(s)
}

// supervise owns the process once the caller has its device code: it answers
// the follow-up prompt, drains the rest of the output and waits for exit.
func (o *LoginOrchestrator) supervise(s *loginSession, rest *bufio.Reader) {
	defer o.supervisors.Done()
	o.logger.Info("supervising az login in the background", "generation", s.generation)

	if s.proc.Alive() {
		if err := acknowledge(s.proc.Stdin()); err != nil {
			o.logger.Error("providing input to az login process", "err", err)
		}
	}

	if err := readLines(rest, func(line string) bool {
		o.logger.Debug("az login output", "line", line)
		return true
	}); err != nil {
		o.logger.Warn("draining az login output", "err", err)
	}

	code, err := s.proc.Wait()
	if err == nil && code != 0 {
		err = &ExitError{Code: code}
	}

	var status LoginStatus
	if err != nil {
		status = o.settle(s, LoginStateFailed, err)
	} else {
		status = o.settle(s, LoginStateCompleted, nil)
	}

	if status.State == LoginStateSuperseded {
		o.logger.Debug("superseded az login exited", "generation", s.generation)
		return
	}
	if err != nil {
		o.hooks.OnFailure(status, err)
		return
	}
	o.hooks.OnComplete(status)
}

func acknowledge(w io.WriteCloser) error {
	if w == nil {
		return errors.New("stdin not available")
	}
	_, err := io.WriteString(w, loginAck)
	if closeErr := w.Close(); err == nil {
		err = closeErr
	}
	return err
}

func (o *LoginOrchestrator) snapshotLocked(s *loginSession) LoginStatus {
	status := LoginStatus{
		State:      s.state,
		Generation: s.generation,
		URL:        s.prompt.URL,
		Code:       s.prompt.Code,
		StartedAt:  s.startedAt,
		FinishedAt: s.finishedAt,
	}
	if s.proc != nil {
		status.PID = s.proc.Pid()
		status.Alive = s.proc.Alive()
	}
	if s.err != nil {
		status.Error = s.err.Error()
	}
	return status
}
