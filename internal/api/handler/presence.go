package handler

import (
	"log"
	"net/http"

	"radargo/backend/internal/models"

	"github.com/gin-gonic/gin"
)

type announceRequest struct {
	ParticipantID string `json:"participant_id"`
	DisplayName   string `json:"display_name"`
}

type heartbeatRequest struct {
	ParticipantID string `json:"participant_id" binding:"required"`
}

// AnnounceOnline creates or refreshes the caller's presence record. Repeated
// calls are idempotent; the created record is returned so a first-time
// browser can persist its ID.
func (h *Handler) AnnounceOnline(c *gin.Context) {
	var req announceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.Presence.AnnounceOnline(req.ParticipantID, req.DisplayName)
	if err != nil {
		log.Printf("Error announcing online for %s: %v", req.ParticipantID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update presence"})
		return
	}
	c.JSON(http.StatusOK, p)
}

// Heartbeat refreshes liveness. The client calls this on a fixed interval
// while it considers itself online; a failed tick is retried on the next one.
func (h *Handler) Heartbeat(c *gin.Context) {
	var req heartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Presence.Heartbeat(req.ParticipantID); err != nil {
		log.Printf("Error on heartbeat for %s: %v", req.ParticipantID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record heartbeat"})
		return
	}
	c.Status(http.StatusNoContent)
}

// AnnounceOffline flips the caller offline. Best effort, also hit from page
// teardown beacons.
func (h *Handler) AnnounceOffline(c *gin.Context) {
	var req heartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Presence.AnnounceOffline(req.ParticipantID); err != nil {
		log.Printf("Error announcing offline for %s: %v", req.ParticipantID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update presence"})
		return
	}
	c.Status(http.StatusNoContent)
}

type profileRequest struct {
	ParticipantID string   `json:"participant_id" binding:"required"`
	DisplayName   string   `json:"display_name"`
	AvatarURL     *string  `json:"avatar_url"`
	Tags          []string `json:"tags"`
}

// UpdateProfile sets the fields shown on the participant's radar card. The
// participant must already exist; presence status and heartbeat are untouched.
func (h *Handler) UpdateProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := h.Storage.GetParticipant(req.ParticipantID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read participant"})
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Participant not found"})
		return
	}

	if req.DisplayName != "" {
		p.DisplayName = req.DisplayName
	}
	if req.AvatarURL != nil {
		p.AvatarURL = req.AvatarURL
	}
	if req.Tags != nil {
		p.Tags = req.Tags
	}

	if err := h.Storage.SaveParticipant(p); err != nil {
		log.Printf("Error saving profile for %s: %v", req.ParticipantID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save profile"})
		return
	}

	if err := h.Storage.PublishChange(models.ChangeEvent{
		Table:         models.TableParticipants,
		Op:            models.OpUpdate,
		ParticipantID: p.ID,
		Status:        p.Status,
	}); err != nil {
		log.Printf("Error publishing profile change for %s: %v", p.ID, err)
	}

	c.JSON(http.StatusOK, p)
}

// ListPresence returns the radar view for a status (default online), ordered
// by most recent heartbeat.
func (h *Handler) ListPresence(c *gin.Context) {
	status := c.DefaultQuery("status", models.StatusOnline)

	participants, err := h.Tracker.List(status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list participants"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"participants": participants})
}

// OnlineCount returns how many participants are currently online.
func (h *Handler) OnlineCount(c *gin.Context) {
	n, err := h.Tracker.Count(models.StatusOnline)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count participants"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"online": n})
}
