package web

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"prusammu/mmu"
)

// Server exposes the plugin's command surface: the select/gettool API the
// operator UI calls, a settings endpoint, and an SSE stream carrying the
// show/close/nav notifications.
type Server struct {
	plugin      *mmu.Plugin
	broadcaster *Broadcaster
	apiKey      string
	router      *gin.Engine
}

func NewServer(plugin *mmu.Plugin, broadcaster *Broadcaster, apiKey string) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		plugin:      plugin,
		broadcaster: broadcaster,
		apiKey:      apiKey,
		router:      router,
	}

	api := router.Group("/api/plugin/prusammu", s.checkAPIKey)
	{
		api.POST("", s.commandHandler)
		api.GET("/events", s.eventsHandler)
		api.GET("/settings", s.getSettingsHandler)
		api.POST("/settings", s.updateSettingsHandler)
	}
	return s
}

func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) checkAPIKey(c *gin.Context) {
	if s.apiKey != "" && c.GetHeader("X-Api-Key") != s.apiKey {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid api key"})
	}
}

type apiCommand struct {
	Command string `json:"command" binding:"required"`
	Choice  *int   `json:"choice"`
}

func (s *Server) commandHandler(c *gin.Context) {
	var req apiCommand
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	switch req.Command {
	case "select":
		if req.Choice == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing filament choice"})
			return
		}
		if err := s.plugin.Select(*req.Choice); err != nil {
			c.JSON(selectStatus(err), gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusNoContent)
	case "gettool":
		c.JSON(http.StatusOK, gin.H{"tool": s.plugin.ActiveTool()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown command " + req.Command})
	}
}

func selectStatus(err error) int {
	switch {
	case errors.Is(err, mmu.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, mmu.ErrNoActivePrompt):
		return http.StatusConflict
	case errors.Is(err, mmu.ErrInvalidChoice):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) eventsHandler(c *gin.Context) {
	ch, cancel := s.broadcaster.Subscribe()
	defer cancel()

	c.Stream(func(w io.Writer) bool {
		select {
		case msg, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(msg.Action, msg.Payload)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func (s *Server) getSettingsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, s.plugin.Bridge().Config())
}

func (s *Server) updateSettingsHandler(c *gin.Context) {
	var data map[string]interface{}
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.plugin.Bridge().ApplyConfig(data); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.plugin.Bridge().Config())
}
