package mask

import (
	"image"

	"gocv.io/x/gocv"
)

// Ring 像素精度的闭合多边形，首尾点不重复
type Ring []image.Point

// Bounds 返回顶点的外接矩形（右下边界为开区间）
func (r Ring) Bounds() image.Rectangle {
	if len(r) == 0 {
		return image.Rectangle{}
	}
	b := image.Rectangle{Min: r[0], Max: r[0].Add(image.Pt(1, 1))}
	for _, p := range r[1:] {
		b = b.Union(image.Rectangle{Min: p, Max: p.Add(image.Pt(1, 1))})
	}
	return b
}

// CompoundPath 一个外轮廓及其直接包含的孔洞
type CompoundPath struct {
	Outer Ring
	Holes []Ring
}

func (cp CompoundPath) String() string {
	return FormatPath(cp)
}

// hierarchy 中每个轮廓的四元组下标：next, previous, first child, parent
const hierarchyParent = 3

// Extract 追踪掩码中的所有边界，按两级层次组织为 CompoundPath。
// 孔洞中的前景岛会作为新的顶层外轮廓输出，而不是继续嵌套。
func Extract(r Raster) ([]CompoundPath, error) {
	if len(r.Pix) != r.Width*r.Height || len(r.Pix) == 0 {
		return nil, shapeErrorf("invalid raster %dx%d with %d cells", r.Width, r.Height, len(r.Pix))
	}
	if r.Empty() {
		return []CompoundPath{}, nil
	}

	// Mat 直接引用传入的字节，这里传副本以保证掩码不被修改
	src, err := gocv.NewMatFromBytes(r.Height, r.Width, gocv.MatTypeCV8U, r.Clone().Pix)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	hierarchy := gocv.NewMat()
	defer hierarchy.Close()

	contours := gocv.FindContoursWithParams(src, &hierarchy, gocv.RetrievalCComp, gocv.ChainApproxSimple)
	defer contours.Close()

	n := contours.Size()
	if n == 0 {
		return []CompoundPath{}, nil
	}

	rings := make([]Ring, n)
	parents := make([]int, n)
	for i := 0; i < n; i++ {
		rings[i] = Ring(contours.At(i).ToPoints())
		parents[i] = int(hierarchy.GetVeciAt(0, i)[hierarchyParent])
	}

	return assemble(rings, parents), nil
}

// assemble 把没有父节点的轮廓作为外轮廓，父节点为它的轮廓作为孔洞
func assemble(rings []Ring, parents []int) []CompoundPath {
	index := make(map[int]int, len(rings))
	paths := make([]CompoundPath, 0, len(rings))
	for i, p := range parents {
		if p < 0 {
			index[i] = len(paths)
			paths = append(paths, CompoundPath{Outer: rings[i]})
		}
	}
	for i, p := range parents {
		if p < 0 {
			continue
		}
		if k, ok := index[p]; ok {
			paths[k].Holes = append(paths[k].Holes, rings[i])
		}
	}
	return paths
}
