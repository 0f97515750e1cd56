package handler

import (
	"net/http"
	"strconv"

	"MindEase/internal/consult"
	"MindEase/internal/service"

	"github.com/gin-gonic/gin"
)

type ConsultHandler interface {
	GetDoctors(c *gin.Context)
	GetConsultations(c *gin.Context)
	GetSessionMessages(c *gin.Context)
	AnalyzeSymptoms(c *gin.Context)
	GetVoiceClip(c *gin.Context)
}

type consultHandler struct {
	service service.ConsultService
	clips   *consult.ClipStore
}

func NewConsultHandler(service service.ConsultService, clips *consult.ClipStore) ConsultHandler {
	return &consultHandler{
		service: service,
		clips:   clips,
	}
}

// GetDoctors lists the doctor directory. Optional query params:
// specialty (contains match) and available=true.
func (h *consultHandler) GetDoctors(c *gin.Context) {
	specialty := c.Query("specialty")
	availableOnly := c.Query("available") == "true"

	doctors, err := h.service.GetDoctors(c.Request.Context(), specialty, availableOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get doctors",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"doctors": doctors,
	})
}

// GetConsultations pages a user's consultation history, most recent
// activity first.
func (h *consultHandler) GetConsultations(c *gin.Context) {
	userID := c.Query("userId")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "userId is required",
		})
		return
	}

	page, err := parsePage(c.DefaultQuery("page", "1"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid page number",
		})
		return
	}

	result, err := h.service.GetRecentConsultations(c.Request.Context(), userID, page)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get consultations",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"consultations": result.Data,
		"total":         result.Total,
		"page":          result.Page,
		"totalPages":    result.TotalPages,
	})
}

// GetSessionMessages pages one session's message history in send order.
func (h *consultHandler) GetSessionMessages(c *gin.Context) {
	sessionKey := c.Param("sessionKey")

	page, err := parsePage(c.DefaultQuery("page", "1"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid page number",
		})
		return
	}

	result, err := h.service.GetSessionMessages(c.Request.Context(), sessionKey, page)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get messages",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages":   result.Data,
		"total":      result.Total,
		"page":       result.Page,
		"totalPages": result.TotalPages,
	})
}

// AnalyzeSymptoms runs the symptom rule engine on the posted text. The
// result is returned, never stored.
func (h *consultHandler) AnalyzeSymptoms(c *gin.Context) {
	var body struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	report := h.service.AnalyzeSymptoms(body.Text)

	c.JSON(http.StatusOK, report)
}

// GetVoiceClip serves a finalized voice clip by its reference. Clips
// only live as long as the process.
func (h *consultHandler) GetVoiceClip(c *gin.Context) {
	ref := "voice:" + c.Param("ref")

	data, ok := h.clips.Get(ref)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Clip not found",
		})
		return
	}

	c.Data(http.StatusOK, "audio/webm", data)
}

func parsePage(raw string) (int64, error) {
	page, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || page < 1 {
		return 0, strconv.ErrRange
	}
	return page, nil
}
