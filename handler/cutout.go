package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thoxey/AiClothes/mask"
	"github.com/thoxey/AiClothes/model"
	"github.com/thoxey/AiClothes/service"
	"github.com/thoxey/AiClothes/utils"
	"go.uber.org/zap"
)

type CutoutHandler struct {
	decoder       *service.ImageDecoder
	cutoutService *service.CutoutService
}

func NewCutoutHandler(decoder *service.ImageDecoder, cutout *service.CutoutService) *CutoutHandler {
	return &CutoutHandler{
		decoder:       decoder,
		cutoutService: cutout,
	}
}

// Cutout 将编辑后的掩码应用到原图，返回透明背景 PNG
func (h *CutoutHandler) Cutout(c *gin.Context) {
	var req model.CutoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{
			Success: false,
			Message: "缺少图片或掩码",
			Error:   err.Error(),
		})
		return
	}

	img, _, err := h.decoder.Decode(req.ImageBase64)
	if err != nil {
		writeImageError(c, err)
		return
	}

	result, err := h.cutoutService.Cutout(img, req.MaskBase64, req.MaskWidth, req.MaskHeight, req.Crop)
	if err != nil {
		if errors.Is(err, service.ErrMaskTooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, model.ErrorResponse{
				Success: false,
				Message: "掩码尺寸超出限制",
				Error:   err.Error(),
			})
			return
		}
		if errors.Is(err, mask.ErrCodec) || errors.Is(err, mask.ErrShapeMismatch) {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{
				Success: false,
				Message: "掩码数据无效",
				Error:   err.Error(),
			})
			return
		}
		utils.Logger.Error("failed to apply mask", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Success: false,
			Message: "抠图失败",
			Error:   err.Error(),
		})
		return
	}

	utils.Logger.Info("cutout created",
		zap.Int("width", result.Width),
		zap.Int("height", result.Height),
		zap.Int("bytes", len(result.CutoutBase64)))

	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Message: "处理成功",
		Data:    result,
	})
}
