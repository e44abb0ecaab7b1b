package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"tcm-rag/internal/config"
	"tcm-rag/internal/models"
	"tcm-rag/internal/rag"
)

//go:embed static
var staticFS embed.FS

// Chatter is the slice of the query orchestrator the web layer needs.
type Chatter interface {
	QueryStream(ctx context.Context, question string) (<-chan string, <-chan error)
}

// ChatRequest carries the user message plus the browser-held transcript.
// The history is not fed to the prompt; it exists so the payload mirrors
// what the page tracks and logs stay meaningful.
type ChatRequest struct {
	Message string        `json:"message"`
	History []models.Turn `json:"history"`
}

// Server exposes the chat UI: one embedded page and an SSE streaming
// chat endpoint. The conversation transcript lives in the browser.
type Server struct {
	engine *gin.Engine
	chat   Chatter
	port   int
}

func New(cfg *config.ServerConfig, chat Chatter) *Server {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(cors.Default())

	s := &Server{engine: engine, chat: chat, port: cfg.Port}
	engine.GET("/", s.handleIndex)
	engine.GET("/healthz", s.handleHealth)
	engine.POST("/api/chat", s.handleChat)
	return s
}

// Engine exposes the router for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) Run() error {
	log.Info().Int("port", s.port).Msg("Starting chat UI server")
	return s.engine.Run(fmt.Sprintf(":%d", s.port))
}

func (s *Server) handleIndex(c *gin.Context) {
	page, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleChat streams the answer as SSE events: "message" per fragment,
// then "done"; a failure mid-stream becomes an "error" event the page
// renders as a visible error turn instead of crashing the session.
func (s *Server) handleChat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	requestID := uuid.NewString()
	log.Info().Str("request_id", requestID).Int("message_len", len(req.Message)).
		Int("history_turns", len(req.History)).Msg("Chat request")

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	// blank input never reaches the generation endpoint
	if strings.TrimSpace(req.Message) == "" {
		c.SSEvent("message", models.EmptyQueryReply)
		c.SSEvent("done", "")
		return
	}

	fragments, errs := s.chat.QueryStream(c.Request.Context(), req.Message)
	for fragment := range fragments {
		c.SSEvent("message", fragment)
		c.Writer.Flush()
	}

	if err := <-errs; err != nil {
		if errors.Is(err, rag.ErrEmptyQuery) {
			c.SSEvent("message", models.EmptyQueryReply)
			c.SSEvent("done", "")
			return
		}
		log.Error().Err(err).Str("request_id", requestID).Msg("Error querying")
		c.SSEvent("error", err.Error())
		c.Writer.Flush()
		return
	}

	c.SSEvent("done", "")
	c.Writer.Flush()
}
