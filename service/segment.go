package service

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/thoxey/AiClothes/mask"
	"github.com/thoxey/AiClothes/model"
	"github.com/thoxey/AiClothes/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SegmentService 串联检测、并集、轮廓提取和掩码编码
type SegmentService struct {
	detector Detector
	minArea  int
}

func NewSegmentService(detector Detector, minArea int) *SegmentService {
	return &SegmentService{detector: detector, minArea: minArea}
}

// Automatic 自动分割：过滤小区域后求并集，每个区域单独生成复合路径
func (s *SegmentService) Automatic(ctx context.Context, img image.Image) (*model.SegmentResult, error) {
	startTime := time.Now()
	b := img.Bounds()

	detections, err := s.detector.Detect(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}

	union, err := mask.Union(detections, s.minArea)
	if err != nil {
		return nil, err
	}
	if union.Width != b.Dx() || union.Height != b.Dy() {
		return nil, fmt.Errorf("detector returned %dx%d for %dx%d image: %w",
			union.Width, union.Height, b.Dx(), b.Dy(), mask.ErrShapeMismatch)
	}

	kept := mask.Filter(detections, s.minArea)
	paths := make([][]mask.CompoundPath, len(kept))

	var g errgroup.Group
	for i, d := range kept {
		i, d := i, d
		g.Go(func() error {
			cps, err := mask.Extract(d.Mask)
			if err != nil {
				return fmt.Errorf("extract region %d: %w", i, err)
			}
			paths[i] = cps
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	encoded, err := mask.Encode(union)
	if err != nil {
		return nil, err
	}

	result := &model.SegmentResult{
		Mode:      model.ModeAutomatic,
		Width:     union.Width,
		Height:    union.Height,
		Mask:      encoded,
		Polygons:  []string{},
		Regions:   []model.Region{},
		Timestamp: time.Now().Unix(),
	}
	for i, cps := range paths {
		appendRegions(result, cps, i+1, kept[i].Area, kept[i].Score)
	}

	utils.Logger.Info("automatic segmentation finished",
		zap.Int("detections", len(detections)),
		zap.Int("kept", len(kept)),
		zap.Int("polygons", len(result.Polygons)),
		zap.Int("mask_bytes", len(encoded)),
		zap.Duration("duration", time.Since(startTime)))

	return result, nil
}

// Interactive 交互式分割，pt 为 nil 时取图像中心
func (s *SegmentService) Interactive(ctx context.Context, img image.Image, pt *image.Point) (*model.SegmentResult, error) {
	startTime := time.Now()
	b := img.Bounds()

	click := image.Pt(b.Dx()/2, b.Dy()/2)
	if pt != nil {
		click = *pt
	}

	region, err := s.detector.DetectAt(ctx, img, click)
	if err != nil {
		return nil, fmt.Errorf("detect at %v: %w", click, err)
	}
	if region == nil || region.Empty() {
		return nil, mask.ErrNoRegionsFound
	}
	if region.Width != b.Dx() || region.Height != b.Dy() {
		return nil, fmt.Errorf("detector returned %dx%d for %dx%d image: %w",
			region.Width, region.Height, b.Dx(), b.Dy(), mask.ErrShapeMismatch)
	}

	cps, err := mask.Extract(*region)
	if err != nil {
		return nil, err
	}

	encoded, err := mask.Encode(*region)
	if err != nil {
		return nil, err
	}

	result := &model.SegmentResult{
		Mode:      model.ModeInteractive,
		Width:     region.Width,
		Height:    region.Height,
		Mask:      encoded,
		Polygons:  []string{},
		Regions:   []model.Region{},
		Timestamp: time.Now().Unix(),
	}
	appendRegions(result, cps, 1, region.Area(), 1.0)

	utils.Logger.Info("interactive segmentation finished",
		zap.Int("x", click.X),
		zap.Int("y", click.Y),
		zap.Int("polygons", len(result.Polygons)),
		zap.Duration("duration", time.Since(startTime)))

	return result, nil
}

func appendRegions(result *model.SegmentResult, cps []mask.CompoundPath, detection, area int, score float64) {
	for _, cp := range cps {
		bb := cp.Outer.Bounds()
		result.Polygons = append(result.Polygons, cp.String())
		result.Regions = append(result.Regions, model.Region{
			ID:          len(result.Regions) + 1,
			Detection:   detection,
			BoundingBox: model.BBox{X: bb.Min.X, Y: bb.Min.Y, Width: bb.Dx(), Height: bb.Dy()},
			Area:        area,
			Score:       score,
			Holes:       len(cp.Holes),
		})
	}
}
