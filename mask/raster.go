// Package mask 实现二值掩码的传输编码、轮廓矢量化与抠图合成。
//
// 包内所有函数均为纯函数：不做 I/O，不持有共享状态，可以被多个请求并发调用。
package mask

import (
	"image"
)

const (
	Background uint8 = 0
	Foreground uint8 = 255
)

// Raster 二值掩码，按行存储，每个像素只取 0 或 255
type Raster struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewRaster 创建全背景掩码
func NewRaster(width, height int) (Raster, error) {
	if width <= 0 || height <= 0 {
		return Raster{}, shapeErrorf("invalid raster size %dx%d", width, height)
	}
	return Raster{Width: width, Height: height, Pix: make([]uint8, width*height)}, nil
}

// FromPix 从行优先字节构造掩码，非零值统一视为前景
func FromPix(width, height int, pix []uint8) (Raster, error) {
	r, err := NewRaster(width, height)
	if err != nil {
		return Raster{}, err
	}
	if len(pix) != width*height {
		return Raster{}, shapeErrorf("pixel count %d does not match %dx%d", len(pix), width, height)
	}
	for i, v := range pix {
		if v != 0 {
			r.Pix[i] = Foreground
		}
	}
	return r, nil
}

// FromGray 将灰度图按阈值二值化
func FromGray(img *image.Gray, threshold uint8) Raster {
	b := img.Bounds()
	r := Raster{Width: b.Dx(), Height: b.Dy(), Pix: make([]uint8, b.Dx()*b.Dy())}
	for y := 0; y < r.Height; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+r.Width]
		for x, v := range row {
			if v > threshold {
				r.Pix[y*r.Width+x] = Foreground
			}
		}
	}
	return r
}

func (r Raster) At(x, y int) uint8 {
	return r.Pix[y*r.Width+x]
}

// Area 前景像素数
func (r Raster) Area() int {
	n := 0
	for _, v := range r.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

func (r Raster) Empty() bool {
	for _, v := range r.Pix {
		if v != 0 {
			return false
		}
	}
	return true
}

// Bounds 返回前景的最小外接矩形，没有前景时返回空矩形
func (r Raster) Bounds() image.Rectangle {
	minX, minY := r.Width, r.Height
	maxX, maxY := -1, -1
	for y := 0; y < r.Height; y++ {
		row := r.Pix[y*r.Width : (y+1)*r.Width]
		for x, v := range row {
			if v == 0 {
				continue
			}
			minX = min(minX, x)
			maxX = max(maxX, x)
			minY = min(minY, y)
			maxY = max(maxY, y)
		}
	}
	if maxX < 0 {
		return image.Rectangle{}
	}
	return image.Rect(minX, minY, maxX+1, maxY+1)
}

func (r Raster) SameShape(o Raster) bool {
	return r.Width == o.Width && r.Height == o.Height
}

func (r Raster) Equal(o Raster) bool {
	if !r.SameShape(o) || len(r.Pix) != len(o.Pix) {
		return false
	}
	for i := range r.Pix {
		if r.Pix[i] != o.Pix[i] {
			return false
		}
	}
	return true
}

func (r Raster) Clone() Raster {
	pix := make([]uint8, len(r.Pix))
	copy(pix, r.Pix)
	return Raster{Width: r.Width, Height: r.Height, Pix: pix}
}

// Gray 转换为 image.Gray，返回的图像不与掩码共享内存
func (r Raster) Gray() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, r.Width, r.Height))
	copy(img.Pix, r.Pix)
	return img
}
