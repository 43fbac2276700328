// Package api exposes the engine to the POS application UI over HTTP and a
// websocket event stream. Business callers supply typed documents; no
// protocol bytes cross this boundary.
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/thereceipt/pos-print-engine/internal/dispatcher"
	"github.com/thereceipt/pos-print-engine/internal/history"
	"github.com/thereceipt/pos-print-engine/internal/registry"
	"github.com/thereceipt/pos-print-engine/internal/transport"
	"github.com/thereceipt/pos-print-engine/pkg/document"
)

// Server is the HTTP surface of the print engine.
type Server struct {
	router     *gin.Engine
	registry   *registry.Registry
	store      *registry.Store
	dispatcher *dispatcher.Dispatcher
	ledger     *history.Ledger
	hub        *hub
	logger     *zap.Logger
}

// NewServer wires the routes and subscribes the websocket hub to printer
// status changes.
func NewServer(reg *registry.Registry, store *registry.Store, disp *dispatcher.Dispatcher, ledger *history.Ledger, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	s := &Server{
		router:     router,
		registry:   reg,
		store:      store,
		dispatcher: disp,
		ledger:     ledger,
		hub:        newHub(logger),
		logger:     logger,
	}

	reg.OnStatusChange(func(p registry.Printer) {
		s.hub.broadcast(eventPrinterStatus, p)
	})

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/printers", s.handleListPrinters)
	s.router.POST("/printers/connect", s.handleConnect)
	s.router.DELETE("/printers/:id", s.handleDisconnect)
	s.router.POST("/printers/:id/test", s.handleTestPrint)

	s.router.GET("/config/:role", s.handleGetConfig)
	s.router.PUT("/config/:role", s.handleSetConfig)

	s.router.POST("/print", s.handlePrint)

	s.router.GET("/history", s.handleHistory)
	s.router.GET("/statistics", s.handleStatistics)

	s.router.GET("/ws", s.handleWebSocket)

	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

func (s *Server) handleListPrinters(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"printers": s.registry.List()})
}

func (s *Server) handleConnect(c *gin.Context) {
	var req struct {
		Role registry.Role `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "role is required"})
		return
	}

	printer, err := s.registry.Connect(req.Role)
	if errors.Is(err, transport.ErrUserCancelled) {
		// Dismissed pairing is a no-op, not a failure.
		c.JSON(http.StatusOK, gin.H{"connected": false, "cancelled": true})
		return
	}
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, transport.ErrEndpointNotFound) {
			// Hard failure: the device must be re-paired.
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"connected": true, "printer": printer})
}

func (s *Server) handleDisconnect(c *gin.Context) {
	if err := s.registry.Disconnect(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleTestPrint(c *gin.Context) {
	outcome := s.dispatcher.TestPrint(c.Param("id"))
	s.hub.broadcast(eventPrintCompleted, outcomePayload(outcome))
	c.JSON(http.StatusOK, outcomePayload(outcome))
}

func (s *Server) handleGetConfig(c *gin.Context) {
	role := registry.Role(c.Param("role"))
	if !role.Valid() {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown role"})
		return
	}
	c.JSON(http.StatusOK, s.store.Config(role))
}

func (s *Server) handleSetConfig(c *gin.Context) {
	role := registry.Role(c.Param("role"))

	var cfg registry.Config
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.store.SetConfig(role, cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (s *Server) handlePrint(c *gin.Context) {
	var req struct {
		Role     registry.Role     `json:"role" binding:"required"`
		Document document.Envelope `json:"document" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doc, err := req.Document.Document()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := document.Validate(doc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Printing is best-effort: the caller's business action already exists,
	// so the outcome is reported, never turned into a 5xx.
	outcome := s.dispatcher.Print(req.Role, doc)
	s.hub.broadcast(eventPrintCompleted, outcomePayload(outcome))
	c.JSON(http.StatusOK, outcomePayload(outcome))
}

func (s *Server) handleHistory(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := s.ledger.Recent(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (s *Server) handleStatistics(c *gin.Context) {
	stats, err := s.ledger.Statistics()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func outcomePayload(o dispatcher.Outcome) gin.H {
	payload := gin.H{
		"success":          o.Success(),
		"document_type":    o.DocumentType,
		"role":             o.Role,
		"printer_name":     o.PrinterName,
		"copies_requested": o.CopiesRequested,
		"copies_printed":   o.CopiesPrinted,
	}
	if o.Err != nil {
		payload["error"] = o.Err.Error()
	}
	return payload
}

// Run starts the API server.
func (s *Server) Run(addr string) error {
	s.logger.Info("api server listening", zap.String("addr", addr))
	return s.router.Run(addr)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
