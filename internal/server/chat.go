package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/marinesafe/safety-advisor/internal/chat"
)

type chatRequest struct {
	Question string      `json:"question"`
	History  []chat.Turn `json:"history"`
}

// handleChat always answers with a chat envelope. Malformed requests and
// downstream failures surface as an apologetic envelope, never as an error
// status the frontend would have to special-case.
func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		c.JSON(http.StatusOK, chat.Envelope{
			Success: false,
			Answer:  "Please provide a question about the incident reports.",
		})
		return
	}

	env := s.agent.Ask(c.Request.Context(), req.Question, req.History)
	c.JSON(http.StatusOK, env)
}
