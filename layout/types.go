package layout

// 该文件定义海报快照的数据模型，供导出、渲染与调试 JSON 共用。

// Kind 区分媒体节点与文本节点。
type Kind int

const (
	KindText Kind = iota
	KindMedia
)

func (k Kind) String() string {
	switch k {
	case KindMedia:
		return "media"
	case KindText:
		return "text"
	default:
		return "unknown"
	}
}

// MarshalText 让调试 JSON 输出可读的节点类型。
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// FitMode 描述媒体在容器中的适配方式。
type FitMode string

const (
	FitNone    FitMode = "none"
	FitContain FitMode = "contain"
)

// ParseFitMode 只识别 contain，其余取值一律按 none 处理。
func ParseFitMode(v string) FitMode {
	if v == string(FitContain) {
		return FitContain
	}
	return FitNone
}

// Rect 以像素为单位，坐标与海报根节点处于同一坐标空间。
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Translate 返回平移后的矩形。
func (r Rect) Translate(dx, dy float64) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, Width: r.Width, Height: r.Height}
}

// Contains 判断 other 是否完全落在 r 内（允许 eps 的浮点误差）。
func (r Rect) Contains(other Rect, eps float64) bool {
	return other.X >= r.X-eps &&
		other.Y >= r.Y-eps &&
		other.X+other.Width <= r.X+r.Width+eps &&
		other.Y+other.Height <= r.Y+r.Height+eps
}

// ComputedStyle 是渲染协作方给出的最终样式，导出流程只读不写。
type ComputedStyle struct {
	Color           string  `json:"color"`
	BackgroundColor string  `json:"backgroundColor"`
	FontSizePx      float64 `json:"fontSizePx"`
	FontWeight      string  `json:"fontWeight"`
	FontStyle       string  `json:"fontStyle"`
	TextDecoration  string  `json:"textDecoration"`
	TextAlign       string  `json:"textAlign,omitempty"`
}

// DefaultStyle 对应浏览器的初始计算样式。
func DefaultStyle() ComputedStyle {
	return ComputedStyle{
		Color:           "rgb(0, 0, 0)",
		BackgroundColor: "rgba(0, 0, 0, 0)",
		FontSizePx:      16,
		FontWeight:      "400",
		FontStyle:       "normal",
		TextDecoration:  "none",
	}
}

// MediaInfo 记录媒体节点的资源与固有尺寸。
// NaturalWidth/NaturalHeight 为 0 表示资源尚未加载完成，此时导出按 FitNone 处理。
type MediaInfo struct {
	NaturalWidth  float64 `json:"naturalWidth"`
	NaturalHeight float64 `json:"naturalHeight"`
	FitMode       FitMode `json:"fitMode"`
	Source        string  `json:"source"`
}

// HasNaturalSize 判断固有尺寸是否可用。
func (m MediaInfo) HasNaturalSize() bool {
	return m.NaturalWidth > 0 && m.NaturalHeight > 0
}

// VisualNode 是海报根节点下的一个直接子盒子。
type VisualNode struct {
	Name   string        `json:"name"`
	Kind   Kind          `json:"kind"`
	Rect   Rect          `json:"rect"`
	Style  ComputedStyle `json:"style"`
	Media  *MediaInfo    `json:"media,omitempty"`
	Text   string        `json:"text,omitempty"`
	Role   string        `json:"role,omitempty"`
	Prompt string        `json:"prompt,omitempty"`
}

// IsMedia 判断节点是否为媒体节点。
func (n VisualNode) IsMedia() bool { return n.Kind == KindMedia && n.Media != nil }

// Meta 保存海报级元信息。
type Meta struct {
	Title    string `json:"title"`
	Author   string `json:"author"`
	Template string `json:"template"`
}

// Poster 是导出时刻捕获的只读快照：根矩形决定页面尺寸与坐标原点，Children 的顺序即 z 序。
type Poster struct {
	Root        Rect         `json:"root"`
	Children    []VisualNode `json:"children"`
	Meta        Meta         `json:"meta"`
	Diagnostics []string     `json:"diagnostics,omitempty"`
}

// Clone 深拷贝快照，内容更新不会影响原始快照。
func (p *Poster) Clone() *Poster {
	if p == nil {
		return nil
	}
	out := *p
	out.Children = make([]VisualNode, len(p.Children))
	for i, child := range p.Children {
		if child.Media != nil {
			m := *child.Media
			child.Media = &m
		}
		out.Children[i] = child
	}
	out.Diagnostics = append([]string(nil), p.Diagnostics...)
	return &out
}

// Find 按名称查找节点，返回其下标。
func (p *Poster) Find(name string) (int, bool) {
	for i, child := range p.Children {
		if child.Name == name {
			return i, true
		}
	}
	return -1, false
}
