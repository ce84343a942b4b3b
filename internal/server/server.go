package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/homedash/homedash/internal/dashboard"
	"github.com/homedash/homedash/internal/homeassistant"
	"github.com/homedash/homedash/internal/icons"
	"github.com/homedash/homedash/internal/models"
	"github.com/homedash/homedash/internal/widgets"
)

var rssProxyTimeout = time.Second * 15

// Connection is the slice of the streaming client the API needs: the current
// connection state and change notifications for the browser stream. Nil when
// running in demo or poll mode.
type Connection interface {
	ConnectionState() homeassistant.ConnectionState
	WatchConnection(callback func(homeassistant.ConnectionState)) func()
}

type Options struct {
	Addr      string
	PhotosDir string
	Demo      bool

	Registry *widgets.Registry
	Store    *dashboard.Store
	Conn     Connection
}

type Server struct {
	opts   Options
	engine *gin.Engine
	hub    *hub
	httpd  *http.Server

	unwatch func()

	startTime time.Time

	pr *log.Logger
}

func New(opts Options) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		opts:      opts,
		engine:    gin.New(),
		hub:       newHub(),
		startTime: time.Now(),
		pr:        models.Printer.WithPrefix("API"),
	}

	s.engine.Use(gin.Recovery())
	s.routes()

	// wired before the first Reload so no snapshot is missed
	s.opts.Registry.OnUpdate(func(id string, snap widgets.Snapshot) {
		s.hub.broadcast(streamMsg{Type: "widget", ID: id, Snapshot: &snap})
	})

	if s.opts.Conn != nil {
		s.unwatch = s.opts.Conn.WatchConnection(func(state homeassistant.ConnectionState) {
			s.hub.broadcast(streamMsg{Type: "connection", State: string(state)})
		})
	}

	return s
}

// Handler exposes the route tree, used by Run and the tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	s.engine.GET("/api/status", s.statusHandler)
	s.engine.GET("/api/widgets", s.widgetsHandler)
	s.engine.GET("/api/widgets/:id", s.widgetHandler)
	s.engine.GET("/api/config", s.getConfigHandler)
	s.engine.PUT("/api/config", s.putConfigHandler)
	s.engine.GET("/api/rss", s.rssProxyHandler)
	s.engine.GET("/api/stream", s.streamHandler)
	s.registerPhotoRoutes()
}

// Run starts the listener and blocks until the context is done or the
// listener fails.
func (s *Server) Run(ctx context.Context) error {
	s.httpd = &http.Server{Addr: s.opts.Addr, Handler: s.Handler(), ReadHeaderTimeout: time.Second * 5}

	errs := make(chan error, 1)

	go func() {
		s.pr.Infof("%s listening on %s", icons.Home, s.opts.Addr)

		if err := s.httpd.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if s.unwatch != nil {
		s.unwatch()
	}

	s.hub.closeAll()

	return s.httpd.Shutdown(shutdownCtx)
}

func (s *Server) connectionState() homeassistant.ConnectionState {
	if s.opts.Conn == nil {
		return homeassistant.StateDisconnected
	}

	return s.opts.Conn.ConnectionState()
}

func (s *Server) statusHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"app":        models.AppName,
		"version":    models.AppVersion,
		"demo":       s.opts.Demo,
		"connection": s.connectionState(),
		"uptime":     time.Since(s.startTime).Round(time.Second).String(),
	})
}

func (s *Server) widgetsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.opts.Registry.Snapshots())
}

func (s *Server) widgetHandler(c *gin.Context) {
	snap, ok := s.opts.Registry.Snapshot(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown widget"})

		return
	}

	c.JSON(http.StatusOK, snap)
}

func (s *Server) getConfigHandler(c *gin.Context) {
	raw, err := s.opts.Store.Raw()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	c.Data(http.StatusOK, "application/json", raw)
}

// putConfigHandler persists the document and rebuilds all providers, the
// browser picks the new set up through the stream.
func (s *Server) putConfigHandler(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	cfg, err := s.opts.Store.Save(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	s.opts.Registry.Reload(cfg)

	c.JSON(http.StatusOK, gin.H{"widgets": len(cfg.Widgets)})
}

// rssProxyHandler fetches a feed on the browser's behalf, feeds rarely allow
// cross-origin requests.
func (s *Server) rssProxyHandler(c *gin.Context) {
	feedURL := c.Query("url")
	if feedURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing url parameter"})

		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), rssProxyTimeout)
	defer cancel()

	raw, err := widgets.FetchFeed(ctx, http.DefaultClient, feedURL)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})

		return
	}

	c.Data(http.StatusOK, "application/xml", raw)
}
