package service

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/thoxey/AiClothes/config"
	"github.com/thoxey/AiClothes/mask"
	"github.com/thoxey/AiClothes/utils"
	"go.uber.org/zap"
	"gocv.io/x/gocv"
)

// GrabCutDetector 基于 GrabCut 的本地服装分割
type GrabCutDetector struct {
	iterations         int
	borderSize         int
	maxSide            int
	seedRadius         int
	minArea            int
	semaphore          chan struct{}
	queueTimeout       time.Duration
	complexityAnalyzer *ComplexityAnalyzer
	saliencyDetector   *SaliencyDetector
	maskProcessor      *MaskProcessor
	wearerDetector     *WearerDetector
}

// NewGrabCutDetector minArea 以下的连通区域不会生成检测结果
func NewGrabCutDetector(cfg *config.GrabCutConfig, minArea int) *GrabCutDetector {
	wearer := NewWearerDetector()
	queueTimeout := time.Duration(cfg.QueueTimeout) * time.Second
	if queueTimeout <= 0 {
		queueTimeout = 30 * time.Second
	}
	return &GrabCutDetector{
		iterations:         cfg.Iterations,
		borderSize:         cfg.BorderSize,
		maxSide:            cfg.MaxSide,
		seedRadius:         max(1, cfg.SeedRadius),
		minArea:            minArea,
		semaphore:          make(chan struct{}, max(1, cfg.MaxConcurrent)),
		queueTimeout:       queueTimeout,
		complexityAnalyzer: NewComplexityAnalyzer(wearer),
		saliencyDetector:   NewSaliencyDetector(),
		maskProcessor:      NewMaskProcessor(),
		wearerDetector:     wearer,
	}
}

// acquire 并发控制，排队超时返回 ErrDetectorBusy
func (s *GrabCutDetector) acquire(ctx context.Context) (func(), error) {
	ctx, cancel := context.WithTimeout(ctx, s.queueTimeout)
	defer cancel()

	select {
	case s.semaphore <- struct{}{}:
		return func() { <-s.semaphore }, nil
	case <-ctx.Done():
		return nil, ErrDetectorBusy
	}
}

// Detect 自动分割，每个前景连通区域作为一个检测结果
func (s *GrabCutDetector) Detect(ctx context.Context, img image.Image) ([]mask.Detection, error) {
	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	startTime := time.Now()

	src, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image: %w", err)
	}
	defer src.Close()

	width, height := src.Cols(), src.Rows()

	scaledImg, scale := s.smartResize(&src)
	defer scaledImg.Close()

	complexity := s.complexityAnalyzer.Analyze(&scaledImg)
	utils.Logger.Info("scene analyzed",
		zap.Int("width", width),
		zap.Int("height", height),
		zap.String("level", complexity.Level),
		zap.Float64("edge_density", complexity.EdgeDensity),
		zap.Float64("color_variance", complexity.ColorVariance))

	seed, initRect := s.seed(&scaledImg, complexity)
	defer seed.Close()

	fgMask := s.grabCut(&scaledImg, &seed, initRect, s.iterationsFor(complexity.Level), complexity.Level != LevelSimple)
	defer func() { fgMask.Close() }()

	if complexity.HasWearer {
		garment := s.wearerDetector.SuppressSkin(&fgMask, &scaledImg)
		fgMask.Close()
		fgMask = garment
	}

	kernelSize := 3
	if complexity.Level == LevelComplex || complexity.Level == LevelWorn {
		kernelSize = 5
	}
	optimized := s.maskProcessor.MorphologyOptimize(&fgMask, kernelSize)
	fgMask.Close()
	fgMask = optimized

	if complexity.Level != LevelSimple {
		refined := s.maskProcessor.RefineEdges(&fgMask)
		fgMask.Close()
		fgMask = refined
	}

	// 还原到原始尺寸
	if scale != 1.0 {
		resized := s.maskProcessor.Resize(&fgMask, width, height)
		fgMask.Close()
		fgMask = resized
	}

	detections, err := s.maskProcessor.Components(&fgMask, s.minArea)
	if err != nil {
		return nil, err
	}

	utils.Logger.Info("grabcut detection finished",
		zap.Int("regions", len(detections)),
		zap.Duration("duration", time.Since(startTime)))

	return detections, nil
}

// DetectAt 以点击位置为种子做交互式分割，返回包含该点的区域
func (s *GrabCutDetector) DetectAt(ctx context.Context, img image.Image, pt image.Point) (*mask.Raster, error) {
	b := img.Bounds()
	if !pt.In(image.Rect(0, 0, b.Dx(), b.Dy())) {
		return nil, ErrPointOutOfBounds
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	startTime := time.Now()

	src, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image: %w", err)
	}
	defer src.Close()

	width, height := src.Cols(), src.Rows()

	scaledImg, scale := s.smartResize(&src)
	defer scaledImg.Close()

	scaledPt := image.Pt(
		min(int(float64(pt.X)*scale), scaledImg.Cols()-1),
		min(int(float64(pt.Y)*scale), scaledImg.Rows()-1),
	)
	seed := s.saliencyDetector.ClickSeedMask(scaledPt, s.seedRadius, scaledImg.Cols(), scaledImg.Rows())
	defer seed.Close()

	fgMask := s.grabCut(&scaledImg, &seed, image.Rectangle{}, s.iterations, false)
	defer func() { fgMask.Close() }()

	optimized := s.maskProcessor.MorphologyOptimize(&fgMask, 3)
	fgMask.Close()
	fgMask = optimized

	if scale != 1.0 {
		resized := s.maskProcessor.Resize(&fgMask, width, height)
		fgMask.Close()
		fgMask = resized
	}

	region, err := s.maskProcessor.ComponentAt(&fgMask, pt)
	if err != nil {
		return nil, err
	}

	utils.Logger.Info("grabcut interactive detection finished",
		zap.Int("x", pt.X),
		zap.Int("y", pt.Y),
		zap.Bool("found", region != nil),
		zap.Duration("duration", time.Since(startTime)))

	return region, nil
}

// seed 简单场景用矩形初始化，其余场景用显著性图初始化掩码
func (s *GrabCutDetector) seed(img *gocv.Mat, complexity ComplexityInfo) (gocv.Mat, image.Rectangle) {
	width, height := img.Cols(), img.Rows()

	if complexity.Level == LevelSimple {
		border := s.borderSize
		if border < 10 {
			border = int(float64(width) * 0.05)
		}
		border = min(border, (min(width, height)-1)/2)
		return gocv.NewMat(), image.Rect(border, border, width-border, height-border)
	}

	saliencyMap := s.saliencyDetector.Detect(img)
	defer saliencyMap.Close()

	return s.saliencyDetector.SeedMask(&saliencyMap, width, height), image.Rectangle{}
}

// grabCut 运行 GrabCut 并返回二值前景，seed 为空时使用矩形初始化
func (s *GrabCutDetector) grabCut(img, seed *gocv.Mat, rect image.Rectangle, iterations int, refine bool) gocv.Mat {
	bgdModel := gocv.NewMat()
	defer bgdModel.Close()
	fgdModel := gocv.NewMat()
	defer fgdModel.Close()

	if seed.Empty() {
		gocv.GrabCut(*img, seed, rect, &bgdModel, &fgdModel, iterations, gocv.GCInitWithRect)
	} else {
		gocv.GrabCut(*img, seed, image.Rectangle{}, &bgdModel, &fgdModel, iterations, gocv.GCInitWithMask)
	}

	if refine {
		gocv.GrabCut(*img, seed, image.Rectangle{}, &bgdModel, &fgdModel, 2, gocv.GCInitWithMask)
	}

	return s.maskProcessor.ExtractForeground(seed)
}

func (s *GrabCutDetector) iterationsFor(level string) int {
	switch level {
	case LevelSimple:
		return max(3, s.iterations-2)
	case LevelWorn:
		return s.iterations + 1
	case LevelComplex:
		return s.iterations + 2
	}
	return s.iterations
}

// smartResize 智能缩放图像以适应最大尺寸
func (s *GrabCutDetector) smartResize(img *gocv.Mat) (gocv.Mat, float64) {
	width := img.Cols()
	height := img.Rows()
	maxDim := max(width, height)
	if s.maxSide <= 0 || maxDim <= s.maxSide {
		return img.Clone(), 1.0
	}

	scale := float64(s.maxSide) / float64(maxDim)
	newWidth := max(1, int(float64(width)*scale))
	newHeight := max(1, int(float64(height)*scale))

	resized := gocv.NewMat()
	gocv.Resize(*img, &resized, image.Point{X: newWidth, Y: newHeight}, 0, 0, gocv.InterpolationArea)

	return resized, scale
}

// grayValue 单通道绘图颜色，所有分量取同一值
func grayValue(v uint8) color.RGBA {
	return color.RGBA{R: v, G: v, B: v, A: v}
}
