package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type queueRequest struct {
	ParticipantID string `json:"participant_id" binding:"required"`
}

// JoinQueue puts the caller into the matchmaking queue and runs an immediate
// pairing attempt. The response carries the resulting entry: still waiting,
// or already matched with a session to land on.
func (h *Handler) JoinQueue(c *gin.Context) {
	var req queueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, err := h.Matcher.Join(req.ParticipantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, entry)
}

// LeaveQueue removes the caller's waiting entry. A no-op when not queued; a
// matched entry stays, the session already exists.
func (h *Handler) LeaveQueue(c *gin.Context) {
	var req queueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Matcher.Leave(req.ParticipantID); err != nil {
		// Non-fatal: the caller may still be waiting and can retry or let a
		// future match proceed.
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// QueueStatus returns the caller's newest queue entry. Clients poll this
// every couple of seconds as the fallback to push notifications.
func (h *Handler) QueueStatus(c *gin.Context) {
	participantID := c.Param("participantId")

	entry, err := h.Storage.GetQueueEntry(participantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read queue entry"})
		return
	}
	if entry == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not in queue"})
		return
	}
	c.JSON(http.StatusOK, entry)
}
