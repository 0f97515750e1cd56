package approuters

import (
	"MindEase/internal/configuration"

	"github.com/gin-gonic/gin"
)

func ConsultRouters(router *gin.Engine, container *configuration.Container) {
	// History and directory reads need the MongoDB-backed handler;
	// in-memory storage mode runs without them.
	if container.ConsultHandler == nil {
		return
	}

	consultRoute := router.Group("/me/api")
	{
		consultRoute.GET("/doctors", container.ConsultHandler.GetDoctors)
		consultRoute.GET("/consultations", container.ConsultHandler.GetConsultations)
		consultRoute.GET("/consultations/:sessionKey/messages", container.ConsultHandler.GetSessionMessages)
		consultRoute.POST("/symptoms/analyze", container.ConsultHandler.AnalyzeSymptoms)
		consultRoute.GET("/voice/:ref", container.ConsultHandler.GetVoiceClip)
	}
}
