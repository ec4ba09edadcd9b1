package service

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/thoxey/AiClothes/mask"
	"github.com/thoxey/AiClothes/model"
)

// DefaultMaxMaskPixels 客户端声明的掩码尺寸上限（像素数）
const DefaultMaxMaskPixels = 40_000_000

var ErrMaskTooLarge = errors.New("mask too large")

// CutoutService 把客户端编辑后的掩码应用到原图，输出透明背景 PNG
type CutoutService struct {
	crop          bool
	maxMaskPixels int
}

// NewCutoutService maxMaskPixels<=0 时使用 DefaultMaxMaskPixels
func NewCutoutService(crop bool, maxMaskPixels int) *CutoutService {
	if maxMaskPixels <= 0 {
		maxMaskPixels = DefaultMaxMaskPixels
	}
	return &CutoutService{crop: crop, maxMaskPixels: maxMaskPixels}
}

// Cutout maskWidth/maskHeight 为 0 时按原图尺寸解码掩码；crop 为 nil 时使用配置默认值
func (s *CutoutService) Cutout(img image.Image, wire string, maskWidth, maskHeight int, crop *bool) (*model.CutoutResult, error) {
	// 解压缓冲区大小由宽高决定，必须在解码前限制；
	// 省略宽高时使用原图尺寸，原图像素数已由 ImageDecoder 限制
	if maskWidth > 0 && maskHeight > 0 &&
		(maskWidth > math.MaxInt/maskHeight || maskWidth*maskHeight > s.maxMaskPixels) {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrMaskTooLarge, maskWidth, maskHeight, s.maxMaskPixels)
	}

	out, r, err := mask.ApplyEncoded(img, wire, maskHeight, maskWidth)
	if err != nil {
		return nil, err
	}

	doCrop := s.crop
	if crop != nil {
		doCrop = *crop
	}
	fg := r.Bounds()
	if doCrop {
		out = mask.Crop(out, r)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("encode cutout: %w", err)
	}

	return &model.CutoutResult{
		CutoutBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
		Width:        out.Bounds().Dx(),
		Height:       out.Bounds().Dy(),
		Bounds:       model.BBox{X: fg.Min.X, Y: fg.Min.Y, Width: fg.Dx(), Height: fg.Dy()},
	}, nil
}
