package mask

// DefaultMinArea 自动检测时保留区域的最小像素面积
const DefaultMinArea = 100

// Detection 一次检测得到的候选区域
type Detection struct {
	Mask  Raster
	Area  int
	Score float64
}

func NewDetection(r Raster, score float64) Detection {
	return Detection{Mask: r, Area: r.Area(), Score: score}
}

// Filter 过滤掉面积小于 minArea 的检测结果
func Filter(detections []Detection, minArea int) []Detection {
	kept := make([]Detection, 0, len(detections))
	for _, d := range detections {
		if d.Area >= minArea {
			kept = append(kept, d)
		}
	}
	return kept
}

// Union 对通过面积过滤的检测结果做逐像素并集。
// 没有区域通过过滤时返回 ErrNoRegionsFound；只要输入非空，返回的全背景掩码仍然可用。
func Union(detections []Detection, minArea int) (Raster, error) {
	if len(detections) == 0 {
		return Raster{}, ErrNoRegionsFound
	}

	w, h := detections[0].Mask.Width, detections[0].Mask.Height
	for i, d := range detections[1:] {
		if d.Mask.Width != w || d.Mask.Height != h {
			return Raster{}, shapeErrorf("detection %d is %dx%d, want %dx%d", i+1, d.Mask.Width, d.Mask.Height, w, h)
		}
	}

	out, err := NewRaster(w, h)
	if err != nil {
		return Raster{}, err
	}

	kept := Filter(detections, minArea)
	if len(kept) == 0 {
		return out, ErrNoRegionsFound
	}
	for _, d := range kept {
		orInto(out.Pix, d.Mask.Pix)
	}
	return out, nil
}

// Or 两个掩码的逐像素并集
func Or(a, b Raster) (Raster, error) {
	if !a.SameShape(b) {
		return Raster{}, shapeErrorf("%dx%d vs %dx%d", a.Width, a.Height, b.Width, b.Height)
	}
	out := a.Clone()
	orInto(out.Pix, b.Pix)
	return out, nil
}

func orInto(dst, src []uint8) {
	for i, v := range src {
		if v != 0 {
			dst[i] = Foreground
		}
	}
}
