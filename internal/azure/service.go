package azure

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/kjourdan1/azcli-mcp/internal/azauth"
)

// Program is the only CLI the service agrees to run.
const Program = "az"

const loginPrefix = Program + " login"

// InvalidCommandMessage is returned verbatim for commands that do not start
// with "az ".
var InvalidCommandMessage = ErrorMarker + (&ValidationError{}).Error()

// Recorder receives one entry per executed command, for the audit trail.
type Recorder func(operation, command string, result Result, duration time.Duration)

// Service is the tool entry point: it validates commands and dispatches
// them to the runner or the login orchestrator.
type Service struct {
	runner   *Runner
	login    *LoginOrchestrator
	logger   *log.Logger
	recorder Recorder
}

type serviceOptions struct {
	spawner   Spawner
	logger    *log.Logger
	recorder  Recorder
	hooks     LoginHooks
	principal *azauth.ServicePrincipal
}

// Option configures a Service.
type Option func(*serviceOptions)

// WithSpawner replaces how subprocesses are started.
func WithSpawner(s Spawner) Option {
	return func(o *serviceOptions) { o.spawner = s }
}

// WithLogger sets the logger used by the service and its components.
func WithLogger(l *log.Logger) Option {
	return func(o *serviceOptions) { o.logger = l }
}

// WithRecorder records every executed command.
func WithRecorder(r Recorder) Option {
	return func(o *serviceOptions) { o.recorder = r }
}

// WithLoginHooks observes background login outcomes.
func WithLoginHooks(h LoginHooks) Option {
	return func(o *serviceOptions) { o.hooks = h }
}

// WithServicePrincipal logs in with the given service principal while the
// service is being constructed.
func WithServicePrincipal(sp *azauth.ServicePrincipal) Option {
	return func(o *serviceOptions) { o.principal = sp }
}

// NewService builds the service. When a service principal is configured the
// login runs synchronously before NewService returns; its failure is logged
// and does not prevent the service from starting.
func NewService(ctx context.Context, opts ...Option) *Service {
	var o serviceOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.Default()
	}
	if o.spawner == nil {
		o.spawner = NewShellSpawner("")
	}

	s := &Service{
		runner:   NewRunner(o.spawner, o.logger),
		logger:   o.logger,
		recorder: o.recorder,
	}

	hooks := o.hooks
	s.login = NewLoginOrchestrator(o.spawner, o.logger, LoginHooks{
		OnComplete: func(st LoginStatus) {
			s.logger.Info("az login process completed", "generation", st.Generation)
			s.record("login", loginPrefix, success(""), st.FinishedAt.Sub(st.StartedAt))
			if hooks.OnComplete != nil {
				hooks.OnComplete(st)
			}
		},
		OnFailure: func(st LoginStatus, err error) {
			s.logger.Error("az login process failed", "generation", st.Generation, "err", err)
			s.record("login", loginPrefix, failure(err), st.FinishedAt.Sub(st.StartedAt))
			if hooks.OnFailure != nil {
				hooks.OnFailure(st, err)
			}
		},
	})

	if o.principal != nil {
		s.authenticate(ctx, o.principal)
	} else {
		s.logger.Warn("no Azure credentials provided")
	}
	return s
}

func (s *Service) authenticate(ctx context.Context, sp *azauth.ServicePrincipal) {
	// A service principal login never prompts, so it skips device-code handling.
	command := sp.LoginCommand()
	start := time.Now()
	res := s.runner.Run(ctx, command)
	s.record("bootstrap", command, res, time.Since(start))
	if !res.OK() {
		s.logger.Error("service principal login failed", "tenant", sp.TenantID, "err", res.Err)
		return
	}
	s.logger.Info("service principal login succeeded", "tenant", sp.TenantID)
	s.logger.Debug("az login result", "output", res.Output)
}

// Execute validates and runs a command, returning its text. Failures are
// prefixed with ErrorMarker; nothing else distinguishes them.
func (s *Service) Execute(ctx context.Context, command string) string {
	s.logger.Info("executing az command", "command", Redact(command))
	if !strings.HasPrefix(command, Program+" ") {
		s.logger.Error("invalid command", "command", Redact(command))
		return InvalidCommandMessage
	}
	out := s.run(ctx, command).String()
	s.logger.Debug("az command output", "output", out)
	return out
}

// Run is Execute without the text rendering, for callers that want the
// typed outcome.
func (s *Service) Run(ctx context.Context, command string) Result {
	if !strings.HasPrefix(command, Program+" ") {
		return failure(&ValidationError{Command: command})
	}
	return s.run(ctx, command)
}

func (s *Service) run(ctx context.Context, command string) Result {
	start := time.Now()
	var res Result
	if strings.HasPrefix(command, loginPrefix) {
		res = s.login.HandleLogin(ctx, command)
	} else {
		res = s.runner.Run(ctx, command)
	}
	s.record("execute", command, res, time.Since(start))
	return res
}

// LoginStatus reports the current device-code login session.
func (s *Service) LoginStatus() LoginStatus {
	return s.login.Status()
}

// Close terminates any login still in flight.
func (s *Service) Close() error {
	return s.login.Close()
}

func (s *Service) record(operation, command string, res Result, d time.Duration) {
	if s.recorder == nil {
		return
	}
	s.recorder(operation, Redact(command), res, d)
}

var secretFlag = regexp.MustCompile(`(^|\s)(--password|--client-secret|-p)(\s+|=)('[^']*'|"[^"]*"|\S+)`)

// Redact masks secrets passed on the command line.
func Redact(command string) string {
	return secretFlag.ReplaceAllString(command, "$1$2$3***")
}
