package mask

import (
	"image"
	"strconv"
	"strings"
)

// FormatRing 生成 "M x1,y1 x2,y2 ... Z" 形式的路径
func FormatRing(r Ring) string {
	var sb strings.Builder
	sb.WriteString("M")
	for _, p := range r {
		sb.WriteByte(' ')
		sb.WriteString(strconv.Itoa(p.X))
		sb.WriteByte(',')
		sb.WriteString(strconv.Itoa(p.Y))
	}
	sb.WriteString(" Z")
	return sb.String()
}

// FormatPath 外轮廓在前，孔洞依次追加，以空格分隔。客户端应使用 evenodd 填充规则。
func FormatPath(cp CompoundPath) string {
	parts := make([]string, 0, 1+len(cp.Holes))
	parts = append(parts, FormatRing(cp.Outer))
	for _, h := range cp.Holes {
		parts = append(parts, FormatRing(h))
	}
	return strings.Join(parts, " ")
}

func FormatPaths(paths []CompoundPath) []string {
	out := make([]string, len(paths))
	for i, cp := range paths {
		out[i] = FormatPath(cp)
	}
	return out
}

// ParsePath 解析 FormatPath 的输出，返回各个闭合环（第一个为外轮廓）
func ParsePath(s string) ([]Ring, error) {
	var (
		rings []Ring
		cur   Ring
		open  bool
	)
	for _, tok := range strings.Fields(s) {
		switch tok {
		case "M":
			if open {
				return nil, parseErrorf("unterminated ring before %q", tok)
			}
			cur = Ring{}
			open = true
		case "Z":
			if !open {
				return nil, parseErrorf("Z without M")
			}
			rings = append(rings, cur)
			open = false
		default:
			if !open {
				return nil, parseErrorf("point %q outside of ring", tok)
			}
			p, ok := parsePoint(tok)
			if !ok {
				return nil, parseErrorf("malformed point %q", tok)
			}
			cur = append(cur, p)
		}
	}
	if open {
		return nil, parseErrorf("missing Z")
	}
	return rings, nil
}

// ParseLegacyPoints 解析旧版 "x,y x,y ..." 点列格式。
// 兼容旧数据：无法解析的片段直接跳过，不返回错误。
func ParseLegacyPoints(s string) []image.Point {
	var pts []image.Point
	for _, tok := range strings.Fields(s) {
		if p, ok := parsePoint(tok); ok {
			pts = append(pts, p)
		}
	}
	return pts
}

func parsePoint(tok string) (image.Point, bool) {
	xs, ys, found := strings.Cut(tok, ",")
	if !found {
		return image.Point{}, false
	}
	x, err := strconv.Atoi(xs)
	if err != nil {
		return image.Point{}, false
	}
	y, err := strconv.Atoi(ys)
	if err != nil {
		return image.Point{}, false
	}
	return image.Pt(x, y), true
}
