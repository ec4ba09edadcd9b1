package mask

import (
	"bytes"
	"compress/zlib"
	"encoding/base64"
	"io"
	"math"
)

// Encode 将掩码按行展开为字节，zlib 压缩后做 Base64 编码。
// 形状不写入结果，解码方需要自行知道宽高。
func Encode(r Raster) (string, error) {
	if len(r.Pix) != r.Width*r.Height || len(r.Pix) == 0 {
		return "", shapeErrorf("invalid raster %dx%d with %d cells", r.Width, r.Height, len(r.Pix))
	}

	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(r.Pix); err != nil {
		return "", codecErrorf("compress: %v", err)
	}
	if err := zw.Close(); err != nil {
		return "", codecErrorf("compress: %v", err)
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Decode 反向还原 Encode 的结果。
// elementByteWidth 为每个像素占用的字节数，<=0 时按 1 处理；任一字节非零即为前景。
func Decode(wire string, height, width, elementByteWidth int) (Raster, error) {
	if height <= 0 || width <= 0 {
		return Raster{}, codecErrorf("invalid shape %dx%d", width, height)
	}
	if elementByteWidth <= 0 {
		elementByteWidth = 1
	}
	if width > math.MaxInt/height/elementByteWidth {
		return Raster{}, codecErrorf("shape %dx%dx%d overflows", width, height, elementByteWidth)
	}

	compressed, err := base64.StdEncoding.DecodeString(wire)
	if err != nil {
		return Raster{}, codecErrorf("base64: %v", err)
	}

	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return Raster{}, codecErrorf("zlib: %v", err)
	}
	defer zr.Close()

	expected := height * width * elementByteWidth
	// 多读一个字节用于判断数据是否超长
	raw, err := io.ReadAll(io.LimitReader(zr, int64(expected)+1))
	if err != nil {
		return Raster{}, codecErrorf("zlib: %v", err)
	}
	if len(raw) != expected {
		return Raster{}, codecErrorf("decompressed %d bytes, want %d (%dx%dx%d)", len(raw), expected, height, width, elementByteWidth)
	}

	if elementByteWidth == 1 {
		return FromPix(width, height, raw)
	}

	r := Raster{Width: width, Height: height, Pix: make([]uint8, width*height)}
	for i := range r.Pix {
		for _, v := range raw[i*elementByteWidth : (i+1)*elementByteWidth] {
			if v != 0 {
				r.Pix[i] = Foreground
				break
			}
		}
	}
	return r, nil
}
