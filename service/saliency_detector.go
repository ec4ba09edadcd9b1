package service

import (
	"image"

	"gocv.io/x/gocv"
)

// SaliencyDetector 负责检测图像的显著性区域
type SaliencyDetector struct{}

func NewSaliencyDetector() *SaliencyDetector {
	return &SaliencyDetector{}
}

// Detect 基于梯度强度计算显著性图
func (sd *SaliencyDetector) Detect(img *gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(*img, &gray, gocv.ColorBGRToGray)

	gradX := gocv.NewMat()
	gradY := gocv.NewMat()
	defer gradX.Close()
	defer gradY.Close()

	gocv.Sobel(gray, &gradX, gocv.MatTypeCV16S, 1, 0, 3, 1, 0, gocv.BorderDefault)
	gocv.Sobel(gray, &gradY, gocv.MatTypeCV16S, 0, 1, 3, 1, 0, gocv.BorderDefault)

	absGradX := gocv.NewMat()
	absGradY := gocv.NewMat()
	defer absGradX.Close()
	defer absGradY.Close()

	gocv.ConvertScaleAbs(gradX, &absGradX, 1, 0)
	gocv.ConvertScaleAbs(gradY, &absGradY, 1, 0)

	gradient := gocv.NewMat()
	defer gradient.Close()
	gocv.AddWeighted(absGradX, 0.5, absGradY, 0.5, 0, &gradient)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gradient, &blurred, image.Point{X: 21, Y: 21}, 0, 0, gocv.BorderDefault)

	saliency := gocv.NewMat()
	gocv.Threshold(blurred, &saliency, 0, 255, gocv.ThresholdOtsu)

	return saliency
}

// SeedMask 生成 GrabCut 初始掩码：边框为确定背景，显著区域为可能前景，其余为可能背景
func (sd *SaliencyDetector) SeedMask(saliency *gocv.Mat, width, height int) gocv.Mat {
	seed := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(gcBackground, 0, 0, 0), height, width, gocv.MatTypeCV8U)

	border := max(1, int(float64(width)*0.03))
	if width > 2*border && height > 2*border {
		inner := seed.Region(image.Rect(border, border, width-border, height-border))
		inner.SetTo(gocv.NewScalar(gcProbBackground, 0, 0, 0))
		inner.Close()
	}

	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{X: 11, Y: 11})
	defer kernel.Close()

	dilated := gocv.NewMat()
	defer dilated.Close()
	gocv.Dilate(*saliency, &dilated, kernel)

	salient := gocv.NewMat()
	defer salient.Close()
	gocv.Threshold(dilated, &salient, 128, 255, gocv.ThresholdBinary)

	probFg := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(gcProbForeground, 0, 0, 0), height, width, gocv.MatTypeCV8U)
	defer probFg.Close()
	probFg.CopyToWithMask(&seed, salient)

	return seed
}

// ClickSeedMask 生成交互式分割的初始掩码：点击处为确定前景，周围为可能前景，其余为可能背景
func (sd *SaliencyDetector) ClickSeedMask(pt image.Point, radius, width, height int) gocv.Mat {
	seed := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(gcProbBackground, 0, 0, 0), height, width, gocv.MatTypeCV8U)

	reach := max(width, height) / 4
	gocv.Circle(&seed, pt, max(reach, radius*2), grayValue(gcProbForeground), -1)
	gocv.Circle(&seed, pt, radius, grayValue(gcForeground), -1)

	return seed
}
