package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"strings"

	"github.com/thoxey/AiClothes/config"
	"github.com/thoxey/AiClothes/mask"
	"github.com/thoxey/AiClothes/model"
	"github.com/thoxey/AiClothes/utils"
	"go.uber.org/zap"
)

// maxRemoteResponse 模型服务响应体上限
const maxRemoteResponse = 256 << 20

// RemoteDetector 调用外部分割模型服务（例如 SAM），掩码以 WireMask 格式传输
type RemoteDetector struct {
	baseURL     string
	client      *http.Client
	maxResponse int64
}

type remoteDetectRequest struct {
	ImageBase64 string       `json:"imageBase64"`
	Point       *model.Point `json:"point,omitempty"`
}

type remoteMask struct {
	Mask  string  `json:"mask"`
	Area  int     `json:"area"`
	Score float64 `json:"score"`
}

type remoteDetectResponse struct {
	Width  int          `json:"width"`
	Height int          `json:"height"`
	Masks  []remoteMask `json:"masks"`
	Mask   string       `json:"mask"`
	Error  string       `json:"error,omitempty"`
}

func NewRemoteDetector(cfg *config.DetectorConfig) *RemoteDetector {
	return &RemoteDetector{
		baseURL:     strings.TrimRight(cfg.RemoteURL, "/"),
		client:      &http.Client{Timeout: cfg.Timeout},
		maxResponse: maxRemoteResponse,
	}
}

// Detect 请求 /detect，返回模型给出的全部区域
func (d *RemoteDetector) Detect(ctx context.Context, img image.Image) ([]mask.Detection, error) {
	payload, err := encodePNGBase64(img)
	if err != nil {
		return nil, err
	}

	var resp remoteDetectResponse
	if err := d.post(ctx, "/detect", remoteDetectRequest{ImageBase64: payload}, &resp); err != nil {
		return nil, err
	}
	if err := checkRemoteShape(resp, img.Bounds()); err != nil {
		return nil, err
	}

	detections := make([]mask.Detection, 0, len(resp.Masks))
	for i, m := range resp.Masks {
		r, err := mask.Decode(m.Mask, resp.Height, resp.Width, 1)
		if err != nil {
			return nil, fmt.Errorf("remote mask %d: %w", i, err)
		}
		area := m.Area
		if area <= 0 {
			area = r.Area()
		}
		detections = append(detections, mask.Detection{Mask: r, Area: area, Score: m.Score})
	}

	utils.Logger.Debug("remote detection finished",
		zap.String("url", d.baseURL),
		zap.Int("regions", len(detections)))

	return detections, nil
}

// DetectAt 请求 /detect-at，mask 为空表示该点没有区域
func (d *RemoteDetector) DetectAt(ctx context.Context, img image.Image, pt image.Point) (*mask.Raster, error) {
	b := img.Bounds()
	if !pt.In(image.Rect(0, 0, b.Dx(), b.Dy())) {
		return nil, ErrPointOutOfBounds
	}

	payload, err := encodePNGBase64(img)
	if err != nil {
		return nil, err
	}

	req := remoteDetectRequest{ImageBase64: payload, Point: &model.Point{X: pt.X, Y: pt.Y}}
	var resp remoteDetectResponse
	if err := d.post(ctx, "/detect-at", req, &resp); err != nil {
		return nil, err
	}
	if resp.Mask == "" {
		return nil, nil
	}
	if err := checkRemoteShape(resp, b); err != nil {
		return nil, err
	}

	r, err := mask.Decode(resp.Mask, resp.Height, resp.Width, 1)
	if err != nil {
		return nil, fmt.Errorf("remote mask: %w", err)
	}
	if r.Empty() {
		return nil, nil
	}
	return &r, nil
}

func (d *RemoteDetector) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("remote detector: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, d.maxResponse+1))
	if err != nil {
		return fmt.Errorf("remote detector: read body: %w", err)
	}
	if int64(len(raw)) > d.maxResponse {
		return fmt.Errorf("remote detector: response exceeds %d bytes", d.maxResponse)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("remote detector: %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("remote detector: decode response: %w", err)
	}
	return nil
}

// checkRemoteShape 掩码尺寸必须与请求的图像一致，解码缓冲区大小由它决定
func checkRemoteShape(resp remoteDetectResponse, b image.Rectangle) error {
	if resp.Width != b.Dx() || resp.Height != b.Dy() {
		return fmt.Errorf("remote detector returned %dx%d for %dx%d image: %w",
			resp.Width, resp.Height, b.Dx(), b.Dy(), mask.ErrShapeMismatch)
	}
	return nil
}

func encodePNGBase64(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
