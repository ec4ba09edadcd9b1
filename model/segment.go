package model

// Mode 分割模式
const (
	ModeAutomatic   = "automatic"
	ModeInteractive = "interactive"
)

// SegmentResult 分割结果
type SegmentResult struct {
	MD5       string   `json:"md5"`
	Mode      string   `json:"mode"`
	Width     int      `json:"width"`
	Height    int      `json:"height"`
	Mask      string   `json:"mask"`     // zlib压缩后Base64编码的掩码，宽高见 Width/Height
	Polygons  []string `json:"polygons"` // 每个区域一条 "M x,y ... Z" 复合路径
	Regions   []Region `json:"regions"`
	Timestamp int64    `json:"timestamp"`
}

// Region 单个分割区域，对应一条复合路径。
// 一个检测结果可能包含多个互不相连的部分，这些 Region 的 Detection 相同，
// Area 和 Score 都是整个检测结果的值。
type Region struct {
	ID          int     `json:"id"`
	Detection   int     `json:"detection"`
	BoundingBox BBox    `json:"bounding_box"`
	Area        int     `json:"area"`
	Score       float64 `json:"score"`
	Holes       int     `json:"holes"`
}

// BBox 边界框
type BBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Point 交互式分割的点击位置
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// SegmentRequest 分割请求
type SegmentRequest struct {
	ImageBase64 string `json:"imageBase64" binding:"required"`
	Point       *Point `json:"point,omitempty"`
}

// CutoutRequest 抠图请求，MaskWidth/MaskHeight 省略时按原图尺寸解码
type CutoutRequest struct {
	ImageBase64 string `json:"imageBase64" binding:"required"`
	MaskBase64  string `json:"maskBase64" binding:"required"`
	MaskWidth   int    `json:"maskWidth,omitempty"`
	MaskHeight  int    `json:"maskHeight,omitempty"`
	Crop        *bool  `json:"crop,omitempty"`
}

// CutoutResult 抠图结果
type CutoutResult struct {
	CutoutBase64 string `json:"cutoutBase64"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Bounds       BBox   `json:"bounds"`
}

// Response 通用响应
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
