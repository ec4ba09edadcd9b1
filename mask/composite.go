package mask

import (
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// Resample 使用最近邻插值缩放掩码，结果仍然只包含 0 和 255
func Resample(r Raster, width, height int) (Raster, error) {
	if width <= 0 || height <= 0 {
		return Raster{}, shapeErrorf("invalid target size %dx%d", width, height)
	}
	if r.Width == width && r.Height == height {
		return r.Clone(), nil
	}

	dst := image.NewGray(image.Rect(0, 0, width, height))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), r.Gray(), image.Rect(0, 0, r.Width, r.Height), draw.Src, nil)

	return FromGray(dst, 0), nil
}

// Apply 用掩码生成 RGBA 抠图：前景(255)不透明，背景(0)全透明，RGB 保持原值。
// 掩码尺寸与图像不一致时先做最近邻缩放。
func Apply(src image.Image, r Raster) (*image.NRGBA, error) {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, shapeErrorf("empty source image")
	}

	m := r
	if !r.SameShape(Raster{Width: w, Height: h}) {
		var err error
		if m, err = Resample(r, w, h); err != nil {
			return nil, err
		}
	}

	out := copyNRGBA(src)
	for y := 0; y < h; y++ {
		row := out.Pix[y*out.Stride : y*out.Stride+w*4]
		for x := 0; x < w; x++ {
			if m.Pix[y*w+x] != 0 {
				row[x*4+3] = 255
			} else {
				row[x*4+3] = 0
			}
		}
	}
	return out, nil
}

// ApplyEncoded 解码传输掩码后应用到图像上。height/width 为 0 时按图像自身尺寸解码。
// 返回的 Raster 已缩放到图像尺寸，可直接用于 Crop。
func ApplyEncoded(src image.Image, wire string, height, width int) (*image.NRGBA, Raster, error) {
	b := src.Bounds()
	if height == 0 && width == 0 {
		height, width = b.Dy(), b.Dx()
	}
	r, err := Decode(wire, height, width, 1)
	if err != nil {
		return nil, Raster{}, err
	}
	if !r.SameShape(Raster{Width: b.Dx(), Height: b.Dy()}) {
		if r, err = Resample(r, b.Dx(), b.Dy()); err != nil {
			return nil, Raster{}, err
		}
	}
	out, err := Apply(src, r)
	if err != nil {
		return nil, Raster{}, err
	}
	return out, r, nil
}

// Crop 将抠图裁剪到掩码前景的外接矩形，掩码没有前景时原样返回
func Crop(img *image.NRGBA, r Raster) *image.NRGBA {
	fg := r.Bounds()
	if fg.Empty() || !r.SameShape(Raster{Width: img.Bounds().Dx(), Height: img.Bounds().Dy()}) {
		return img
	}
	return copyNRGBA(img.SubImage(fg.Add(img.Bounds().Min)))
}

// copyNRGBA 复制为以 (0,0) 为原点的非预乘 RGBA，避免透明像素丢失颜色
func copyNRGBA(src image.Image) *image.NRGBA {
	b := src.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	if s, ok := src.(*image.NRGBA); ok {
		for y := 0; y < b.Dy(); y++ {
			off := s.PixOffset(b.Min.X, b.Min.Y+y)
			copy(out.Pix[y*out.Stride:y*out.Stride+b.Dx()*4], s.Pix[off:off+b.Dx()*4])
		}
		return out
	}

	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			c := color.NRGBAModel.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			out.SetNRGBA(x, y, c)
		}
	}
	return out
}
