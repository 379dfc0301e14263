package handlers

import (
	"errors"
	"net/http"
	"time"

	"meetsync/models"
	"meetsync/services/negotiation"
	"meetsync/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AssistantHandler exposes the negotiation engine over HTTP.
type AssistantHandler struct {
	Svc    negotiation.NegotiationService
	Logger *zap.Logger
}

func NewAssistantHandler(svc negotiation.NegotiationService, logger *zap.Logger) *AssistantHandler {
	return &AssistantHandler{Svc: svc, Logger: logger}
}

// StartSessionRequest optionally names the user starting the conversation.
type StartSessionRequest struct {
	UserID string `json:"userId"`
}

// StartSessionHandler opens a new negotiation session and issues the client
// token the remaining endpoints require.
func (h *AssistantHandler) StartSessionHandler(c *gin.Context) {
	var req StartSessionRequest
	_ = c.ShouldBindJSON(&req) // body is optional
	if req.UserID == "" {
		req.UserID = uuid.New().String()
	}

	sess, err := h.Svc.StartSession(c.Request.Context(), req.UserID)
	if err != nil {
		h.Logger.Error("failed to start session", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "failed to start session", err.Error())
		return
	}

	token, err := utils.GenerateClientToken(req.UserID, 24*time.Hour)
	if err != nil {
		h.Logger.Error("failed to issue client token", zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "failed to issue token", err.Error())
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"sessionId": sess.ID,
		"state":     sess.State,
		"token":     token,
		"reply":     "Hi! I can help you schedule meetings. What would you like to set up?",
	})
}

// TurnHandler processes one utterance within a session.
func (h *AssistantHandler) TurnHandler(c *gin.Context) {
	sessionID := c.Param("sessionID")

	var turn models.TurnRequest
	if err := c.ShouldBindJSON(&turn); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid turn payload", err.Error())
		return
	}

	resp, err := h.Svc.ProcessTurn(c.Request.Context(), sessionID, turn)
	if err != nil {
		if errors.Is(err, negotiation.ErrSessionNotFound) {
			utils.JSONError(c, http.StatusNotFound, "session not found", sessionID)
			return
		}
		h.Logger.Error("turn processing failed",
			zap.String("sessionID", sessionID), zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "failed to process turn", err.Error())
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CancelSessionHandler abandons a session on explicit user request.
func (h *AssistantHandler) CancelSessionHandler(c *gin.Context) {
	sessionID := c.Param("sessionID")

	if err := h.Svc.CancelSession(c.Request.Context(), sessionID); err != nil {
		if errors.Is(err, negotiation.ErrSessionNotFound) {
			utils.JSONError(c, http.StatusNotFound, "session not found", sessionID)
			return
		}
		h.Logger.Error("cancel failed", zap.String("sessionID", sessionID), zap.Error(err))
		utils.JSONError(c, http.StatusInternalServerError, "failed to cancel session", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessionId": sessionID, "state": models.StateAbandoned})
}
