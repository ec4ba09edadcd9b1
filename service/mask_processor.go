package service

import (
	"fmt"
	"image"

	"github.com/thoxey/AiClothes/mask"
	"gocv.io/x/gocv"
)

// GrabCut 掩码取值
const (
	gcBackground     = 0
	gcForeground     = 1
	gcProbBackground = 2
	gcProbForeground = 3
)

// connected components 统计矩阵中面积所在的列
const ccStatArea = 4

// MaskProcessor 负责处理图像掩码
type MaskProcessor struct{}

func NewMaskProcessor() *MaskProcessor {
	return &MaskProcessor{}
}

// ExtractForeground 从 GrabCut 掩码中提取确定前景与可能前景
func (mp *MaskProcessor) ExtractForeground(gcMask *gocv.Mat) gocv.Mat {
	fgMask := gocv.NewMat()
	tmp1 := gocv.NewMatFromScalar(gocv.Scalar{Val1: gcForeground}, gocv.MatTypeCV8U)
	defer tmp1.Close()
	gocv.Compare(*gcMask, tmp1, &fgMask, gocv.CompareEQ)

	fgMaskPr := gocv.NewMat()
	defer fgMaskPr.Close()
	tmp2 := gocv.NewMatFromScalar(gocv.Scalar{Val1: gcProbForeground}, gocv.MatTypeCV8U)
	defer tmp2.Close()
	gocv.Compare(*gcMask, tmp2, &fgMaskPr, gocv.CompareEQ)

	combined := gocv.NewMat()
	gocv.BitwiseOr(fgMask, fgMaskPr, &combined)
	fgMask.Close()

	return combined
}

// MorphologyOptimize 开运算去噪点，闭运算填小孔
func (mp *MaskProcessor) MorphologyOptimize(fg *gocv.Mat, kernelSize int) gocv.Mat {
	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{X: kernelSize, Y: kernelSize})
	defer kernel.Close()

	opened := gocv.NewMat()
	gocv.MorphologyEx(*fg, &opened, gocv.MorphOpen, kernel)

	closed := gocv.NewMat()
	gocv.MorphologyEx(opened, &closed, gocv.MorphClose, kernel)
	opened.Close()

	return closed
}

// RefineEdges 平滑掩码边缘后重新二值化
func (mp *MaskProcessor) RefineEdges(fg *gocv.Mat) gocv.Mat {
	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Point{X: 2, Y: 2})
	defer kernel.Close()

	refined := gocv.NewMat()
	gocv.Dilate(*fg, &refined, kernel)

	blurred := gocv.NewMat()
	gocv.GaussianBlur(refined, &blurred, image.Point{X: 3, Y: 3}, 0, 0, gocv.BorderDefault)
	refined.Close()

	final := gocv.NewMat()
	gocv.Threshold(blurred, &final, 127, 255, gocv.ThresholdBinary)
	blurred.Close()

	return final
}

// Resize 缩放二值掩码到指定尺寸，线性插值后以 127 为阈值重新二值化
func (mp *MaskProcessor) Resize(fg *gocv.Mat, width, height int) gocv.Mat {
	resized := gocv.NewMat()
	gocv.Resize(*fg, &resized, image.Point{X: width, Y: height}, 0, 0, gocv.InterpolationLinear)

	binary := gocv.NewMat()
	gocv.Threshold(resized, &binary, 127, 255, gocv.ThresholdBinary)
	resized.Close()

	return binary
}

// Components 把前景拆成连通区域，面积小于 minArea 的区域不生成 Detection
func (mp *MaskProcessor) Components(fg *gocv.Mat, minArea int) ([]mask.Detection, error) {
	labels := gocv.NewMat()
	defer labels.Close()
	stats := gocv.NewMat()
	defer stats.Close()
	centroids := gocv.NewMat()
	defer centroids.Close()

	n := gocv.ConnectedComponentsWithStats(*fg, &labels, &stats, &centroids)
	if n <= 1 {
		return nil, nil
	}

	total := float64(fg.Cols() * fg.Rows())
	var detections []mask.Detection
	for label := 1; label < n; label++ {
		area := int(stats.GetIntAt(label, ccStatArea))
		if area < minArea {
			continue
		}
		r, err := mp.labelRaster(&labels, label)
		if err != nil {
			return nil, err
		}
		detections = append(detections, mask.Detection{
			Mask:  r,
			Area:  area,
			Score: clampConfidence(float64(area) / total),
		})
	}
	return detections, nil
}

// ComponentAt 返回包含点 pt 的连通区域，pt 不在前景上时返回 nil
func (mp *MaskProcessor) ComponentAt(fg *gocv.Mat, pt image.Point) (*mask.Raster, error) {
	labels := gocv.NewMat()
	defer labels.Close()

	n := gocv.ConnectedComponents(*fg, &labels)
	if n <= 1 {
		return nil, nil
	}

	target := int(labels.GetIntAt(pt.Y, pt.X))
	if target == 0 {
		return nil, nil
	}

	r, err := mp.labelRaster(&labels, target)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// labelRaster 取出标签图中等于 label 的像素
func (mp *MaskProcessor) labelRaster(labels *gocv.Mat, label int) (mask.Raster, error) {
	v := float64(label)
	selected := gocv.NewMat()
	defer selected.Close()
	gocv.InRangeWithScalar(*labels, gocv.NewScalar(v, 0, 0, 0), gocv.NewScalar(v, 0, 0, 0), &selected)

	r, err := mp.ToRaster(&selected)
	if err != nil {
		return mask.Raster{}, fmt.Errorf("read component %d: %w", label, err)
	}
	return r, nil
}

// ToRaster 将单通道 8 位 Mat 转换为 Raster
func (mp *MaskProcessor) ToRaster(m *gocv.Mat) (mask.Raster, error) {
	if m.Type() != gocv.MatTypeCV8U {
		return mask.Raster{}, fmt.Errorf("unexpected mask type %v", m.Type())
	}
	return mask.FromPix(m.Cols(), m.Rows(), m.ToBytes())
}

// FromRaster 将 Raster 转换为单通道 8 位 Mat，调用方负责 Close
func (mp *MaskProcessor) FromRaster(r mask.Raster) (gocv.Mat, error) {
	return gocv.NewMatFromBytes(r.Height, r.Width, gocv.MatTypeCV8U, r.Clone().Pix)
}

func clampConfidence(v float64) float64 {
	if v < 0.05 {
		return 0.05
	}
	if v > 0.95 {
		return 0.95
	}
	return v
}
