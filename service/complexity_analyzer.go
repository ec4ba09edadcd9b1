package service

import (
	"gocv.io/x/gocv"
)

// 场景复杂度等级
const (
	LevelSimple  = "simple"
	LevelMedium  = "medium"
	LevelComplex = "complex"
	LevelWorn    = "worn"
)

// ComplexityAnalyzer 负责分析服装照片的复杂度
type ComplexityAnalyzer struct {
	wearerDetector *WearerDetector
}

type ComplexityInfo struct {
	Level         string
	EdgeDensity   float64
	ColorVariance float64
	HasWearer     bool
}

func NewComplexityAnalyzer(wd *WearerDetector) *ComplexityAnalyzer {
	return &ComplexityAnalyzer{wearerDetector: wd}
}

// Analyze 平铺在纯色背景上的衣物为 simple，被人穿着的为 worn
func (ca *ComplexityAnalyzer) Analyze(img *gocv.Mat) ComplexityInfo {
	edgeDensity := ca.edgeDensity(img)
	colorVariance := ca.colorVariance(img)
	hasWearer := ca.wearerDetector.HasWearer(img)

	var level string
	switch {
	case hasWearer:
		level = LevelWorn
	case edgeDensity < 0.05 && colorVariance < 30:
		level = LevelSimple
	case edgeDensity > 0.15 || colorVariance > 60:
		level = LevelComplex
	default:
		level = LevelMedium
	}

	return ComplexityInfo{
		Level:         level,
		EdgeDensity:   edgeDensity,
		ColorVariance: colorVariance,
		HasWearer:     hasWearer,
	}
}

func (ca *ComplexityAnalyzer) edgeDensity(img *gocv.Mat) float64 {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(*img, &gray, gocv.ColorBGRToGray)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(gray, &edges, 50, 150)

	return float64(gocv.CountNonZero(edges)) / float64(img.Rows()*img.Cols())
}

// colorVariance Lab 三通道标准差的均值
func (ca *ComplexityAnalyzer) colorVariance(img *gocv.Mat) float64 {
	lab := gocv.NewMat()
	defer lab.Close()
	gocv.CvtColor(*img, &lab, gocv.ColorBGRToLab)

	mean := gocv.NewMat()
	stddev := gocv.NewMat()
	defer mean.Close()
	defer stddev.Close()
	gocv.MeanStdDev(lab, &mean, &stddev)

	variance := 0.0
	for i := 0; i < stddev.Rows(); i++ {
		variance += stddev.GetDoubleAt(i, 0)
	}

	return variance / float64(stddev.Rows())
}
