package primeagent

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/prime-system/prime-agent/internal/primeagent/config"
	"github.com/prime-system/prime-agent/internal/primeagent/domain/capture"
	"github.com/prime-system/prime-agent/internal/primeagent/domain/command"
	"github.com/prime-system/prime-agent/internal/primeagent/domain/identity"
	"github.com/prime-system/prime-agent/internal/primeagent/domain/push"
	"github.com/prime-system/prime-agent/internal/primeagent/domain/runner"
	"github.com/prime-system/prime-agent/internal/primeagent/domain/session"
	"github.com/prime-system/prime-agent/internal/primeagent/domain/vault"
	"github.com/prime-system/prime-agent/internal/primeagent/service/commandexec"
	"github.com/prime-system/prime-agent/internal/primeagent/store/boltdb"
	"github.com/prime-system/prime-agent/pkg/http/shutdown"
	"github.com/prime-system/prime-agent/pkg/http/shutdown/posixsignal"
	"github.com/prime-system/prime-agent/pkg/logger"
	"github.com/prime-system/prime-agent/pkg/utils/safego"
)

// shutdownTimeout bounds how long the shutdown callback's HTTP Shutdown
// waits for in-flight requests to drain before it gives up.
const shutdownTimeout = 10 * time.Second

// Dependencies are the external collaborators the server wires into the
// domain and service layer. Every field is already constructed; Server
// only connects them.
type Dependencies struct {
	SDK runner.SDK
}

// apiServer owns every long-lived component the process runs: the HTTP
// engine, the domain managers, and the background loops.
type apiServer struct {
	gs     *shutdown.GracefulShutdown
	engine *gin.Engine
	http   *http.Server
	addr   string

	cfg         *config.Store
	sessions    *session.Manager
	runs        *command.Manager
	coordinator *vault.Coordinator
	db          *boltdb.DB

	ctx    context.Context
	cancel context.CancelFunc
}

type preparedAPIServer struct {
	*apiServer
}

// createAPIServer builds every domain and service object from cfg and
// deps, calling each component's constructor directly: there are no
// per-component Config/Complete stages, since this process has exactly
// one configuration, already loaded.
func createAPIServer(cfg *config.Store, deps Dependencies) (*apiServer, error) {
	gs := shutdown.New()
	gs.AddShutdownManager(posixsignal.NewPosixSignalManager())

	c := cfg.Current()

	db, err := boltdb.Open(c.Data.Dir + "/audit.db")
	if err != nil {
		return nil, fmt.Errorf("open audit store: %w", err)
	}
	runStore := boltdb.NewRunStore(db)
	pushStore := boltdb.NewPushStore(db)

	idService := identity.NewService(c.Data.Dir)
	if _, err := idService.GetOrCreate(); err != nil {
		return nil, fmt.Errorf("load agent identity: %w", err)
	}

	registry := push.NewRegistry(c.Data.Dir)
	if err := registry.Load(); err != nil {
		return nil, fmt.Errorf("load device registry: %w", err)
	}
	fanout := push.NewFanout(registry, nil)
	fanout.SetAuditSink(pushStore)

	vaultMutex := vault.NewMutex()
	gitClient := vault.NewGitClient(c.Vault.Path, c.Vault.MirrorEnabled, c.Vault.GitUserName, c.Vault.GitUserEmail)
	if err := gitClient.Initialize(context.Background()); err != nil {
		return nil, fmt.Errorf("initialize vault git identity: %w", err)
	}
	coordinator := vault.NewCoordinator(vaultMutex, gitClient, c.Vault.Path, c.Vault.LogsFolder, c.Vault.MirrorEnabled)

	r := runner.New(deps.SDK)

	sessions := session.NewManager(r, fanout)

	runs := command.NewManager(
		time.Duration(c.Command.RetentionMinutes)*time.Minute,
		c.Command.MaxEventsPerRun,
	)
	executor := commandexec.NewExecutor(c.Vault.CommandsDir, runs, r, coordinator, runStore)

	ingestor := capture.NewIngestor(c.Vault.Path, c.Capture.InboxFolder, r, coordinator)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	deps2 := newRouterDeps(cfg, ingestor, runs, executor, registry, fanout, coordinator, sessions)
	initRouter(engine, deps2)

	addr := fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.BindPort)
	ctx, cancel := context.WithCancel(context.Background())

	server := &apiServer{
		gs:          gs,
		engine:      engine,
		http:        &http.Server{Addr: addr, Handler: engine},
		addr:        addr,
		cfg:         cfg,
		sessions:    sessions,
		runs:        runs,
		coordinator: coordinator,
		db:          db,
		ctx:         ctx,
		cancel:      cancel,
	}
	return server, nil
}

// PrepareRun starts the background loops and registers the shutdown
// callback chain, mirroring the teacher's PrepareRun/Run split.
func (s *apiServer) PrepareRun() preparedAPIServer {
	s.sessions.StartCleanupLoop(s.ctx)

	c := s.cfg.Current()
	if c.Vault.MirrorEnabled {
		interval := time.Duration(c.Vault.PullInterval) * time.Second
		safego.Go(s.ctx, func() { s.coordinator.PullLoop(s.ctx, interval) })
	}

	if err := s.cfg.Watch(s.ctx); err != nil {
		logger.WarnX(moduleName, "config hot-reload watch failed to start: %v", err)
	}

	s.gs.AddShutdownCallback(shutdown.Func(func(name string) error {
		logger.InfoX(moduleName, "shutting down (%s): draining sessions and HTTP listener", name)
		s.sessions.TerminateAll()
		s.cancel()
		s.cfg.Close()

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.http.Shutdown(ctx); err != nil {
			logger.ErrorX(moduleName, "HTTP server shutdown error: %v", err)
		}
		if err := s.db.Close(); err != nil {
			logger.ErrorX(moduleName, "audit store close error: %v", err)
		}
		return nil
	}))

	return preparedAPIServer{s}
}

// Run starts listening and blocks until the listener is closed by a
// shutdown callback.
func (s preparedAPIServer) Run() error {
	if err := s.gs.Start(); err != nil {
		return fmt.Errorf("start shutdown manager: %w", err)
	}

	logger.InfoX(moduleName, "listening on %s", s.addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

const moduleName = "server"
