package handler

import (
	"github.com/gin-gonic/gin"
)

// Register 注册 /api/v1 路由
func Register(api *gin.RouterGroup, segment *SegmentHandler, cutout *CutoutHandler) {
	api.POST("/segment", segment.Segment)
	api.GET("/segment/:md5", segment.GetByMD5)
	api.POST("/cutout", cutout.Cutout)
}
