package cmd

import (
	"context"

	"github.com/kjourdan1/azcli-mcp/internal/audit"
	"github.com/kjourdan1/azcli-mcp/internal/azure"
	"github.com/kjourdan1/azcli-mcp/internal/config"
	"github.com/kjourdan1/azcli-mcp/internal/output"
)

// newSpawner is swapped by tests so commands never reach a real az.
var newSpawner = func(s *config.Settings) azure.Spawner {
	sp := azure.NewShellSpawner(s.Azure.CLI.Shell)
	sp.Program = s.Azure.CLI.Program
	return sp
}

// buildService wires the azure service from settings. An unusable
// credential blob is logged and the service starts without a service
// principal login, so device-code login remains available.
func buildService(ctx context.Context, s *config.Settings, extra ...azure.Option) *azure.Service {
	logger := output.Logger().WithPrefix("azure")

	opts := []azure.Option{
		azure.WithLogger(logger),
		azure.WithSpawner(newSpawner(s)),
	}

	if s.Audit.Enabled {
		log := audit.New(s.Audit.Path)
		opts = append(opts, azure.WithRecorder(log.Recorder(func(err error) {
			logger.Warn("could not write audit event", "path", log.Path(), "err", err)
		})))
	}

	principal, err := s.ServicePrincipal()
	if err != nil {
		logger.Error("invalid Azure credentials; continuing without service principal login",
			"key", config.KeyCredentials, "err", err)
	} else if principal != nil {
		opts = append(opts, azure.WithServicePrincipal(principal))
	}

	return azure.NewService(ctx, append(opts, extra...)...)
}
