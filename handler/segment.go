package handler

import (
	"errors"
	"fmt"
	"image"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thoxey/AiClothes/mask"
	"github.com/thoxey/AiClothes/model"
	"github.com/thoxey/AiClothes/service"
	"github.com/thoxey/AiClothes/utils"
	"go.uber.org/zap"
)

type SegmentHandler struct {
	decoder        *service.ImageDecoder
	cache          service.ResultCache
	segmentService *service.SegmentService
}

func NewSegmentHandler(decoder *service.ImageDecoder, cache service.ResultCache, segment *service.SegmentService) *SegmentHandler {
	return &SegmentHandler{
		decoder:        decoder,
		cache:          cache,
		segmentService: segment,
	}
}

// Segment 分割上传的图片，带 point 时为交互式分割
func (h *SegmentHandler) Segment(c *gin.Context) {
	var req model.SegmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "请上传图片",
			Error:   err.Error(),
		})
		return
	}

	img, data, err := h.decoder.Decode(req.ImageBase64)
	if err != nil {
		writeImageError(c, err)
		return
	}

	md5 := utils.BytesMD5(data)
	cacheKey := md5
	if req.Point != nil {
		cacheKey = fmt.Sprintf("%s:%s:%d,%d", md5, model.ModeInteractive, req.Point.X, req.Point.Y)
	}

	ctx := c.Request.Context()
	cachedResult, err := h.cache.GetSegmentResult(ctx, cacheKey)
	if err != nil {
		utils.Logger.Warn("failed to get cache", zap.Error(err))
	}
	if cachedResult != nil {
		utils.Logger.Info("cache hit", zap.String("cache_key", cacheKey))
		c.JSON(http.StatusOK, model.Response{
			Success: true,
			Message: "处理成功（来自缓存）",
			Data:    cachedResult,
		})
		return
	}

	var result *model.SegmentResult
	if req.Point != nil {
		pt := image.Pt(req.Point.X, req.Point.Y)
		result, err = h.segmentService.Interactive(ctx, img, &pt)
	} else {
		result, err = h.segmentService.Automatic(ctx, img)
	}
	if err != nil {
		writeSegmentError(c, err)
		return
	}
	result.MD5 = md5

	if err := h.cache.SetSegmentResult(ctx, cacheKey, result); err != nil {
		utils.Logger.Warn("failed to set cache", zap.Error(err))
	}

	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Message: "处理成功",
		Data:    result,
	})
}

// GetByMD5 根据MD5获取自动分割结果
func (h *SegmentHandler) GetByMD5(c *gin.Context) {
	md5 := c.Param("md5")
	if md5 == "" {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "MD5参数缺失",
		})
		return
	}

	result, err := h.cache.GetSegmentResult(c.Request.Context(), md5)
	if err != nil {
		utils.Logger.Error("failed to get segment result", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Success: false,
			Message: "查询失败",
			Error:   err.Error(),
		})
		return
	}

	if result == nil {
		c.JSON(http.StatusNotFound, model.ErrorResponse{
			Success: false,
			Message: "未找到该图片的分割结果",
		})
		return
	}

	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Message: "查询成功",
		Data:    result,
	})
}

func writeImageError(c *gin.Context, err error) {
	status := http.StatusBadRequest
	message := "图片解码失败"
	switch {
	case errors.Is(err, service.ErrImageTooLarge):
		status = http.StatusRequestEntityTooLarge
		message = "文件大小超过限制"
	case errors.Is(err, service.ErrUnsupportedImage):
		message = "不支持的文件类型，仅支持 JPEG/PNG/WebP"
	}
	c.JSON(status, model.ErrorResponse{
		Success: false,
		Message: message,
		Error:   err.Error(),
	})
}

func writeSegmentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, mask.ErrNoRegionsFound):
		// 没有选中任何区域不是系统错误
		c.JSON(http.StatusOK, model.ErrorResponse{
			Success: false,
			Message: "未选中任何区域",
		})
	case errors.Is(err, service.ErrPointOutOfBounds):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "点击位置超出图片范围",
			Error:   err.Error(),
		})
	case errors.Is(err, service.ErrDetectorBusy):
		c.JSON(http.StatusServiceUnavailable, model.ErrorResponse{
			Success: false,
			Message: "处理队列已满，请稍后重试",
		})
	default:
		utils.Logger.Error("failed to segment image", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Success: false,
			Message: "图片处理失败",
			Error:   err.Error(),
		})
	}
}
