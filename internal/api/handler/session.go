package handler

import (
	"errors"
	"log"
	"net/http"

	"radargo/backend/internal/models"
	"radargo/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

// GetSession is the point lookup for the session landing surface. An unknown
// or reaped ID is fatal to that view only; the client routes back to the
// queue entry point.
func (h *Handler) GetSession(c *gin.Context) {
	id := c.Param("id")

	session, err := h.Storage.GetSession(id)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read session"})
		return
	}
	c.JSON(http.StatusOK, session)
}

// EndSession flips a session to ended and notifies both parties. Irreversible.
func (h *Handler) EndSession(c *gin.Context) {
	id := c.Param("id")

	session, err := h.Storage.GetSession(id)
	if err != nil {
		if errors.Is(err, storage.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read session"})
		return
	}

	if err := h.Storage.EndSession(session.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to end session"})
		return
	}

	ev := models.ChangeEvent{
		Table:     models.TableSessions,
		Op:        models.OpUpdate,
		SessionID: session.ID,
		Status:    models.SessionEnded,
	}
	if err := h.Storage.PublishChange(ev); err != nil {
		log.Printf("Error publishing session end for %s: %v", session.ID, err)
	}
	h.Hub.Dispatch(ev)

	c.Status(http.StatusNoContent)
}
