package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/thoxey/AiClothes/mask"
	"github.com/thoxey/AiClothes/model"
)

// fakeDetector 返回预设结果并记录交互式调用的点击位置
type fakeDetector struct {
	detections []mask.Detection
	region     *mask.Raster
	err        error

	mu     sync.Mutex
	clicks []image.Point
}

func (f *fakeDetector) Detect(context.Context, image.Image) ([]mask.Detection, error) {
	return f.detections, f.err
}

func (f *fakeDetector) DetectAt(_ context.Context, _ image.Image, pt image.Point) (*mask.Raster, error) {
	f.mu.Lock()
	f.clicks = append(f.clicks, pt)
	f.mu.Unlock()
	return f.region, f.err
}

type mapCache struct {
	mu    sync.Mutex
	items map[string]*model.SegmentResult
}

func newMapCache() *mapCache {
	return &mapCache{items: map[string]*model.SegmentResult{}}
}

func (c *mapCache) GetSegmentResult(_ context.Context, key string) (*model.SegmentResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items[key], nil
}

func (c *mapCache) SetSegmentResult(_ context.Context, key string, r *model.SegmentResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = r
	return nil
}

var _ ResultCache = (*mapCache)(nil)
var _ ResultCache = NopCache{}
var _ ResultCache = (*RedisService)(nil)
var _ Detector = (*GrabCutDetector)(nil)
var _ Detector = (*RemoteDetector)(nil)

func rect(t *testing.T, w, h int, rs ...image.Rectangle) mask.Raster {
	t.Helper()
	r, err := mask.NewRaster(w, h)
	require.NoError(t, err)
	for _, rr := range rs {
		for y := rr.Min.Y; y < rr.Max.Y; y++ {
			for x := rr.Min.X; x < rr.Max.X; x++ {
				r.Pix[y*w+x] = mask.Foreground
			}
		}
	}
	return r
}

func solidImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func pngBase64(t *testing.T, img image.Image) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func decodePNG(t *testing.T, payload string) *image.NRGBA {
	t.Helper()
	data, err := base64.StdEncoding.DecodeString(payload)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	if out, ok := img.(*image.NRGBA); ok {
		return out
	}
	// 完全不透明的 PNG 会以 RGB 编码
	b := img.Bounds()
	out := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.Set(x, y, img.At(x, y))
		}
	}
	return out
}
