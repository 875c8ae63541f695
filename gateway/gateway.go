package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/example/shopdash/pkg/backend"
	"github.com/example/shopdash/pkg/config"
	"github.com/example/shopdash/pkg/filter"
	"github.com/example/shopdash/pkg/notify"
	"github.com/example/shopdash/pkg/repository"
)

// SessionStore keeps signed in sessions.
type SessionStore interface {
	SaveSession(ctx context.Context, s *repository.Session, ttl time.Duration) error
	GetSession(ctx context.Context, id string, ttl time.Duration) (*repository.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// Inbox holds toasts until the session polls for them.
type Inbox interface {
	notify.Notifier
	Drain(ctx context.Context, session string) ([]notify.Toast, error)
}

// FilterStore persists each user's last kept search per view.
type FilterStore interface {
	Get(ctx context.Context, userID, view string) (*repository.SavedFilter, error)
	Save(ctx context.Context, userID, view string, c filter.Criteria) (*repository.SavedFilter, error)
}

// AuditLog records dashboard mutations.
type AuditLog interface {
	RecordMutation(ctx context.Context, entry *repository.AuditEntry) error
}

// AuditReader is an AuditLog that can also be read back, newest first.
type AuditReader interface {
	AuditTrail(ctx context.Context, view, entityID string, limit int64) ([]*repository.AuditEntry, error)
}

// Deps are the collaborators the gateway is built from. Filters, Audit and
// System are optional.
type Deps struct {
	Backend  *backend.Client
	Sessions SessionStore
	Toasts   Inbox
	Filters  FilterStore
	Audit    AuditLog
	// System runs every view on its own actor when set.
	System   *actor.ActorSystem
	Gatherer prometheus.Gatherer
}

type Gateway struct {
	config   *config.Config
	logger   *zap.Logger
	router   *gin.Engine
	server   *http.Server
	backend  *backend.Client
	sessions SessionStore
	toasts   Inbox
	notifier notify.Notifier
	filters  FilterStore
	audit    AuditLog
	system   *actor.ActorSystem
	views    *liveViews

	stopOnce sync.Once
	done     chan struct{}
}

func NewGateway(cfg *config.Config, logger *zap.Logger, deps Deps) *Gateway {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(loggerMiddleware(logger))
	router.Use(cors.New(corsConfig(cfg.Gateway.AllowOrigins)))

	g := &Gateway{
		config:   cfg,
		logger:   logger,
		router:   router,
		backend:  deps.Backend,
		sessions: deps.Sessions,
		toasts:   deps.Toasts,
		notifier: deps.Toasts,
		filters:  deps.Filters,
		audit:    deps.Audit,
		system:   deps.System,
		views:    newLiveViews(),
		done:     make(chan struct{}),
	}
	if g.notifier == nil {
		g.notifier = notify.Discard
	}
	g.setupRoutes(deps.Gatherer)
	return g
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", HeaderSessionID, HeaderRequestID},
		ExposeHeaders:    []string{HeaderSessionID, HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) > 0 {
		cfg.AllowOrigins = origins
	} else {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	}
	return cfg
}

// SetNotifier routes toasts through n instead of straight into the inbox,
// e.g. through an actor.
func (g *Gateway) SetNotifier(n notify.Notifier) { g.notifier = n }

func (g *Gateway) Handler() http.Handler { return g.router }

func (g *Gateway) setupRoutes(gatherer prometheus.Gatherer) {
	g.router.GET("/health", g.health)
	if gatherer != nil {
		g.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	v1 := g.router.Group("/api/v1")
	v1.POST("/session", g.createSession)

	auth := v1.Group("", g.requireSession())
	{
		auth.DELETE("/session", g.deleteSession)
		auth.GET("/toasts", g.listToasts)

		views := auth.Group("/views")
		{
			views.GET("", g.listViews)
			views.GET("/:view", g.getView)
			views.DELETE("/:view", g.closeView)
			views.PUT("/:view/search", g.searchView)
			views.POST("/:view/refresh", g.refreshView)
			views.GET("/:view/records/:id/preview", g.previewRecord)
			views.DELETE("/:view/records/:id", g.deleteRecord)
			views.GET("/:view/saved-filter", g.getSavedFilter)
			views.PUT("/:view/saved-filter", g.putSavedFilter)
			views.GET("/:view/audit", requireRole(roleAdmin), g.viewAudit)
		}

		admin := auth.Group("", requireRole(roleAdmin))
		{
			admin.GET("/dashboard/stats", g.dashboardStats)
			admin.POST("/products", g.createProduct)
			admin.PUT("/products/:id", g.updateProduct)
			admin.POST("/banners", g.createBanner)
		}

		auth.POST("/orders", g.createOrder)
		auth.PUT("/orders/:id/status", requireRole(roleAdmin, roleSeller), g.updateOrderStatus)
	}
}

func (g *Gateway) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Start serves until Shutdown. Idle view stores are swept in the
// background.
func (g *Gateway) Start() error {
	addr := fmt.Sprintf("%s:%d", g.config.Gateway.Host, g.config.Gateway.Port)
	g.server = &http.Server{Addr: addr, Handler: g.router}

	idle := g.config.Session.TTL
	if idle > 0 {
		go g.sweepLoop(idle)
	}

	g.logger.Info("Gateway starting", zap.String("address", addr))
	if err := g.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (g *Gateway) sweepLoop(idle time.Duration) {
	t := time.NewTicker(idle / 4)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			if n := g.views.sweep(idle); n > 0 {
				g.logger.Info("Closed idle view stores", zap.Int("count", n))
			}
		case <-g.done:
			return
		}
	}
}

func (g *Gateway) Shutdown(ctx context.Context) error {
	g.stopOnce.Do(func() { close(g.done) })
	g.views.closeAll()
	if g.server == nil {
		return nil
	}
	return g.server.Shutdown(ctx)
}
