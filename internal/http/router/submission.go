package router

import (
	"basegraph.app/intake/internal/http/handler"
	"github.com/gin-gonic/gin"
)

func SubmissionRouter(router *gin.RouterGroup, handler *handler.SubmissionHandler) {
	router.POST("", handler.Submit)
}
