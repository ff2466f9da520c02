package handler

import (
	"errors"
	"net/http"
	"time"

	"radargo/backend/internal/models"
	"radargo/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

type connectionRequest struct {
	SessionID   string `json:"session_id" binding:"required"`
	InitiatorID string `json:"initiator_id" binding:"required"`
	Notes       string `json:"notes"`
}

// CreateConnection writes the durable trace of a completed session. Called by
// the session landing surface once a session starts, not by the matcher.
func (h *Handler) CreateConnection(c *gin.Context) {
	var req connectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.Storage.GetSession(req.SessionID)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read session"})
		return
	}
	if !session.Includes(req.InitiatorID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Initiator is not part of this session"})
		return
	}

	conn := &models.Connection{
		ID:          session.ID,
		InitiatorID: req.InitiatorID,
		PeerID:      session.PeerOf(req.InitiatorID),
		ConnectedAt: time.Now(),
		Notes:       req.Notes,
	}
	if err := h.Storage.SaveConnection(conn); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save connection"})
		return
	}
	c.JSON(http.StatusCreated, conn)
}

type notesRequest struct {
	InitiatorID string `json:"initiator_id" binding:"required"`
	Notes       string `json:"notes"`
}

// UpdateConnectionNotes rewrites the private notes a participant keeps on one
// of their past connections.
func (h *Handler) UpdateConnectionNotes(c *gin.Context) {
	id := c.Param("id")

	var req notesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	found, err := h.Storage.UpdateConnectionNotes(id, req.InitiatorID, req.Notes)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notes"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Connection not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// ListConnections returns a participant's connection history, newest first.
func (h *Handler) ListConnections(c *gin.Context) {
	participantID := c.Param("participantId")

	connections, err := h.Storage.ListConnectionsFor(participantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list connections"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"connections": connections})
}
