// Package primeagent wires every domain and service package into the
// gin.Engine the HTTP and WebSocket surfaces run on, and owns the
// process's startup/shutdown lifecycle.
package primeagent

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prime-system/prime-agent/internal/primeagent/config"
	"github.com/prime-system/prime-agent/internal/primeagent/domain/capture"
	"github.com/prime-system/prime-agent/internal/primeagent/domain/command"
	"github.com/prime-system/prime-agent/internal/primeagent/domain/push"
	"github.com/prime-system/prime-agent/internal/primeagent/domain/session"
	"github.com/prime-system/prime-agent/internal/primeagent/domain/vault"
	v1 "github.com/prime-system/prime-agent/internal/primeagent/handler/v1"
	wshandler "github.com/prime-system/prime-agent/internal/primeagent/handler/ws"
	"github.com/prime-system/prime-agent/internal/primeagent/handler/middleware"
	"github.com/prime-system/prime-agent/internal/primeagent/service/commandexec"
)

// Version is overridden at build time via -ldflags and reported by the
// /version probe; the binary has no --version command-line flag.
var Version = "dev"

// routerDeps holds every dependency route registration needs.
type routerDeps struct {
	auth config.AuthConfig

	captureHandler      *v1.CaptureHandler
	commandHandler      *v1.CommandHandler
	configHandler       *v1.ConfigHandler
	deviceHandler       *v1.DeviceHandler
	notificationHandler *v1.NotificationHandler
	monitoringHandler   *v1.MonitoringHandler
	wsHandler           *wshandler.Handler
}

func newRouterDeps(
	cfg *config.Store,
	ingestor *capture.Ingestor,
	runs *command.Manager,
	executor *commandexec.Executor,
	registry *push.Registry,
	fanout *push.Fanout,
	coordinator *vault.Coordinator,
	sessions *session.Manager,
) *routerDeps {
	return &routerDeps{
		auth:                cfg.Current().Auth,
		captureHandler:      v1.NewCaptureHandler(ingestor),
		commandHandler:      v1.NewCommandHandler(executor, runs),
		configHandler:       v1.NewConfigHandler(cfg),
		deviceHandler:       v1.NewDeviceHandler(registry),
		notificationHandler: v1.NewNotificationHandler(fanout),
		monitoringHandler:   v1.NewMonitoringHandler(runs, sessions, coordinator),
		wsHandler:           wshandler.NewHandler(sessions),
	}
}

func initRouter(g *gin.Engine, deps *routerDeps) {
	installMiddleware(g, deps)
	installRoutes(g, deps)
}

func installMiddleware(g *gin.Engine, deps *routerDeps) {
	g.Use(gin.Recovery())
	g.Use(middleware.BearerAuth(deps.auth))
}

func installRoutes(g *gin.Engine, deps *routerDeps) {
	g.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	g.GET("/version", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"version": Version}) })

	g.POST("/capture", deps.captureHandler.Create)

	g.POST("/commands/:name/trigger", deps.commandHandler.Trigger)
	g.GET("/commands/runs/:run_id", deps.commandHandler.RunStatus)

	g.POST("/config/reload", deps.configHandler.Reload)

	g.POST("/devices/register", deps.deviceHandler.Register)
	g.GET("/devices", deps.deviceHandler.List)

	g.POST("/notifications/send", deps.notificationHandler.Send)

	g.GET("/monitoring/background-tasks/status", deps.monitoringHandler.Status)

	g.GET("/ws/:id", deps.wsHandler.Serve)
}
