package service

import (
	"image"

	"gocv.io/x/gocv"
)

// WearerDetector 检测照片中穿着衣物的人，用于把皮肤从服装掩码中去除
type WearerDetector struct {
	skinRatio float64
}

func NewWearerDetector() *WearerDetector {
	return &WearerDetector{skinRatio: 0.15}
}

// DetectSkin 在 YCrCb 空间检测皮肤区域
func (wd *WearerDetector) DetectSkin(img *gocv.Mat) gocv.Mat {
	ycrcb := gocv.NewMat()
	defer ycrcb.Close()
	gocv.CvtColor(*img, &ycrcb, gocv.ColorBGRToYCrCb)

	lower := gocv.Scalar{Val1: 0, Val2: 133, Val3: 77, Val4: 0}
	upper := gocv.Scalar{Val1: 255, Val2: 173, Val3: 127, Val4: 255}

	skinMask := gocv.NewMat()
	gocv.InRangeWithScalar(ycrcb, lower, upper, &skinMask)

	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{X: 5, Y: 5})
	defer kernel.Close()

	gocv.MorphologyEx(skinMask, &skinMask, gocv.MorphClose, kernel)
	gocv.MorphologyEx(skinMask, &skinMask, gocv.MorphOpen, kernel)

	return skinMask
}

// HasWearer 皮肤占比超过阈值时认为图中有人
func (wd *WearerDetector) HasWearer(img *gocv.Mat) bool {
	skinMask := wd.DetectSkin(img)
	defer skinMask.Close()

	totalPixels := float64(img.Rows() * img.Cols())
	skinPixels := float64(gocv.CountNonZero(skinMask))

	return skinPixels/totalPixels > wd.skinRatio
}

// SuppressSkin 从服装前景中扣除皮肤区域
func (wd *WearerDetector) SuppressSkin(fg, img *gocv.Mat) gocv.Mat {
	skinMask := wd.DetectSkin(img)
	defer skinMask.Close()

	// 腐蚀皮肤区域，保留领口袖口附近的衣物边缘
	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{X: 7, Y: 7})
	defer kernel.Close()

	eroded := gocv.NewMat()
	defer eroded.Close()
	gocv.Erode(skinMask, &eroded, kernel)

	notSkin := gocv.NewMat()
	defer notSkin.Close()
	gocv.BitwiseNot(eroded, &notSkin)

	garment := gocv.NewMat()
	gocv.BitwiseAnd(*fg, notSkin, &garment)

	return garment
}
