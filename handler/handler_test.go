package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thoxey/AiClothes/mask"
	"github.com/thoxey/AiClothes/model"
	"github.com/thoxey/AiClothes/service"
)

type stubDetector struct {
	detections []mask.Detection
	region     *mask.Raster
	calls      int
}

func (s *stubDetector) Detect(context.Context, image.Image) ([]mask.Detection, error) {
	s.calls++
	return s.detections, nil
}

func (s *stubDetector) DetectAt(context.Context, image.Image, image.Point) (*mask.Raster, error) {
	s.calls++
	return s.region, nil
}

type memoryCache struct {
	mu    sync.Mutex
	items map[string]*model.SegmentResult
}

func (c *memoryCache) GetSegmentResult(_ context.Context, key string) (*model.SegmentResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items[key], nil
}

func (c *memoryCache) SetSegmentResult(_ context.Context, key string, r *model.SegmentResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = r
	return nil
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func block(t *testing.T, w, h int, rects ...image.Rectangle) mask.Raster {
	t.Helper()
	r, err := mask.NewRaster(w, h)
	require.NoError(t, err)
	for _, rr := range rects {
		for y := rr.Min.Y; y < rr.Max.Y; y++ {
			for x := rr.Min.X; x < rr.Max.X; x++ {
				r.Pix[y*w+x] = mask.Foreground
			}
		}
	}
	return r
}

func photo(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func newRouter(det service.Detector, cache service.ResultCache) *gin.Engine {
	gin.SetMode(gin.TestMode)
	decoder := service.NewImageDecoder(1<<20, 1<<20, []string{"image/png", "image/jpeg"})
	r := gin.New()
	Register(r.Group("/api/v1"),
		NewSegmentHandler(decoder, cache, service.NewSegmentService(det, mask.DefaultMinArea)),
		NewCutoutHandler(decoder, service.NewCutoutService(false, 0)),
	)
	return r
}

func do(t *testing.T, r http.Handler, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func TestSegmentAutomaticAndCache(t *testing.T) {
	det := &stubDetector{detections: []mask.Detection{
		mask.NewDetection(block(t, 32, 24, image.Rect(4, 4, 20, 20)), 0.9),
	}}
	cache := &memoryCache{items: map[string]*model.SegmentResult{}}
	r := newRouter(det, cache)

	req := model.SegmentRequest{ImageBase64: photo(t, 32, 24)}
	w, env := do(t, r, http.MethodPost, "/api/v1/segment", req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.True(t, env.Success)

	var result model.SegmentResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, model.ModeAutomatic, result.Mode)
	assert.Len(t, result.Polygons, 1)
	assert.NotEmpty(t, result.MD5)

	decoded, err := mask.Decode(result.Mask, result.Height, result.Width, 1)
	require.NoError(t, err)
	assert.Equal(t, 256, decoded.Area())

	// 第二次请求命中缓存
	_, env = do(t, r, http.MethodPost, "/api/v1/segment", req)
	assert.True(t, env.Success)
	assert.Equal(t, 1, det.calls)

	w, env = do(t, r, http.MethodGet, "/api/v1/segment/"+result.MD5, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)

	w, _ = do(t, r, http.MethodGet, "/api/v1/segment/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSegmentInteractiveNothingSelected(t *testing.T) {
	r := newRouter(&stubDetector{}, service.NopCache{})

	req := model.SegmentRequest{ImageBase64: photo(t, 10, 10), Point: &model.Point{X: 3, Y: 3}}
	w, env := do(t, r, http.MethodPost, "/api/v1/segment", req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.False(t, env.Success)
}

func TestSegmentBadRequests(t *testing.T) {
	r := newRouter(&stubDetector{}, service.NopCache{})

	w, env := do(t, r, http.MethodPost, "/api/v1/segment", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.Success)

	w, _ = do(t, r, http.MethodPost, "/api/v1/segment", model.SegmentRequest{ImageBase64: "bm90IGFuIGltYWdl"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCutout(t *testing.T) {
	r := newRouter(&stubDetector{}, service.NopCache{})
	wire, err := mask.Encode(block(t, 4, 4, image.Rect(1, 1, 3, 3)))
	require.NoError(t, err)

	w, env := do(t, r, http.MethodPost, "/api/v1/cutout", model.CutoutRequest{
		ImageBase64: photo(t, 4, 4),
		MaskBase64:  wire,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result model.CutoutResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	data, err := base64.StdEncoding.DecodeString(result.CutoutBase64)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)

	_, _, _, a := img.At(0, 0).RGBA()
	assert.Equal(t, uint32(0), a)
	_, _, _, a = img.At(1, 2).RGBA()
	assert.Equal(t, uint32(0xffff), a)
}

func TestCutoutInvalidMask(t *testing.T) {
	r := newRouter(&stubDetector{}, service.NopCache{})

	w, env := do(t, r, http.MethodPost, "/api/v1/cutout", model.CutoutRequest{
		ImageBase64: photo(t, 4, 4),
		MaskBase64:  "AAAA",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.Success)
}

func TestCutoutMaskShapeTooLarge(t *testing.T) {
	r := newRouter(&stubDetector{}, service.NopCache{})

	wire, err := mask.Encode(block(t, 4, 4))
	require.NoError(t, err)
	w, env := do(t, r, http.MethodPost, "/api/v1/cutout", model.CutoutRequest{
		ImageBase64: photo(t, 4, 4),
		MaskBase64:  wire,
		MaskWidth:   1 << 20,
		MaskHeight:  1 << 20,
	})
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.False(t, env.Success)
}
