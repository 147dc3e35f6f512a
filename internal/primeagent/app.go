package primeagent

import (
	"fmt"

	"github.com/prime-system/prime-agent/internal/primeagent/config"
	"github.com/prime-system/prime-agent/internal/primeagent/service/agentcli"
	"github.com/prime-system/prime-agent/pkg/app"
	"github.com/prime-system/prime-agent/pkg/logger"
)

// NewApp builds the Cobra command for the primeagentd binary, following
// the teacher's NewApp/WithOptions/WithRunFunc bootstrap
// (internal/golem/app.go).
func NewApp(basename string) *app.App {
	opts := config.NewOptions()
	return app.NewApp("primeagentd", basename,
		app.WithOptions(opts),
		app.WithDescription("primeagentd brokers chat sessions, command runs, and capture ingestion against a local vault."),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(run(opts)),
	)
}

func run(opts *config.Options) app.RunFunc {
	return func(basename string) error {
		store, err := config.NewStore(opts.ConfigFile)
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		store.ApplyOverrides(opts.ApplyTo)

		if err := logger.InitLog(fmt.Sprintf("%s/%s.log", store.Current().Data.Dir, basename)); err != nil {
			return fmt.Errorf("init logging: %w", err)
		}
		defer logger.FlushLog()

		sdk := agentcli.New("claude", store.Current().Vault.Path)

		server, err := createAPIServer(store, Dependencies{SDK: sdk})
		if err != nil {
			return fmt.Errorf("create server: %w", err)
		}

		return server.PrepareRun().Run()
	}
}
