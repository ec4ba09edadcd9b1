package service

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/h2non/filetype"
	_ "golang.org/x/image/webp"
)

var (
	ErrInvalidImage     = errors.New("invalid image")
	ErrImageTooLarge    = errors.New("image too large")
	ErrUnsupportedImage = errors.New("unsupported image type")
)

// ImageDecoder 校验并解码客户端上传的 Base64 图片
type ImageDecoder struct {
	maxSize      int64
	maxPixels    int
	allowedTypes []string
}

// NewImageDecoder maxPixels 限制解码后的像素数，<=0 表示不限制
func NewImageDecoder(maxSize int64, maxPixels int, allowedTypes []string) *ImageDecoder {
	return &ImageDecoder{maxSize: maxSize, maxPixels: maxPixels, allowedTypes: allowedTypes}
}

// Decode 返回解码后的图片和原始字节，类型由文件头判断
func (d *ImageDecoder) Decode(payload string) (image.Image, []byte, error) {
	// 兼容 data URL
	if i := strings.Index(payload, ";base64,"); i >= 0 && strings.HasPrefix(payload, "data:") {
		payload = payload[i+len(";base64,"):]
	}

	if d.maxSize > 0 && int64(base64.StdEncoding.DecodedLen(len(payload))) > d.maxSize+2 {
		return nil, nil, fmt.Errorf("%w: limit %d bytes", ErrImageTooLarge, d.maxSize)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if d.maxSize > 0 && int64(len(data)) > d.maxSize {
		return nil, nil, fmt.Errorf("%w: limit %d bytes", ErrImageTooLarge, d.maxSize)
	}

	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return nil, nil, ErrUnsupportedImage
	}
	if !d.isAllowedType(kind.MIME.Value) {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, kind.MIME.Value)
	}

	// 先读文件头中的尺寸，小文件也可能声明巨大的画布
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if d.maxPixels > 0 && (cfg.Width <= 0 || cfg.Height <= 0 ||
		cfg.Width > d.maxPixels/cfg.Height) {
		return nil, nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrImageTooLarge, cfg.Width, cfg.Height, d.maxPixels)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return img, data, nil
}

func (d *ImageDecoder) isAllowedType(contentType string) bool {
	for _, allowed := range d.allowedTypes {
		if strings.EqualFold(contentType, allowed) {
			return true
		}
	}
	return false
}
