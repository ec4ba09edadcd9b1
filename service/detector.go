package service

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/thoxey/AiClothes/config"
	"github.com/thoxey/AiClothes/mask"
)

var (
	ErrDetectorBusy     = errors.New("处理队列已满，请稍后重试")
	ErrPointOutOfBounds = errors.New("point outside image")
)

// Detector 分割模型的抽象，DetectAt 在点击位置没有区域时返回 nil, nil
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]mask.Detection, error)
	DetectAt(ctx context.Context, img image.Image, pt image.Point) (*mask.Raster, error)
}

// NewDetector 根据配置创建分割后端
func NewDetector(cfg *config.Config) (Detector, error) {
	switch cfg.Detector.Backend {
	case "grabcut":
		return NewGrabCutDetector(&cfg.GrabCut, cfg.Segment.MinArea), nil
	case "remote":
		return NewRemoteDetector(&cfg.Detector), nil
	default:
		return nil, fmt.Errorf("unknown detector backend %q", cfg.Detector.Backend)
	}
}
