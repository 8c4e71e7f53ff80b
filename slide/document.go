// Package slide 把海报快照组装为单页幻灯片文档：页面尺寸与按 z 序排列的形状。
// 组装过程是纯函数，不做任何 I/O；序列化由 renderer 下的 DocumentWriter 完成。
package slide

import "strings"

// ShapeKind 区分图片形状与文本形状。
type ShapeKind string

const (
	ShapeMedia ShapeKind = "media"
	ShapeText  ShapeKind = "text"
)

// Frame 是形状在页面中的位置与尺寸，单位为英寸，相对页面左上角。
type Frame struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Payload 要么携带内联数据（data: URI），要么携带外部资源地址，二者互斥。
type Payload struct {
	Data string `json:"data,omitempty"`
	Path string `json:"path,omitempty"`
}

// Inline 判断是否为内联数据。
func (p Payload) Inline() bool { return p.Data != "" }

// Source 返回实际的资源字符串。
func (p Payload) Source() string {
	if p.Inline() {
		return p.Data
	}
	return p.Path
}

// PayloadFor 根据资源字符串是否为 data: URI 选择内联或外部引用。
func PayloadFor(src string) Payload {
	if strings.HasPrefix(strings.TrimSpace(src), "data:") {
		return Payload{Data: src}
	}
	return Payload{Path: src}
}

// Fill 是文本形状的背景填充，Transparency 为 0（不透明）到 100（全透明）的百分比。
type Fill struct {
	Color        string `json:"color"`
	Transparency int    `json:"transparency"`
}

// TextProps 是归一化后的文本属性。
type TextProps struct {
	Color      string  `json:"color"`
	Fill       Fill    `json:"fill"`
	FontSizePt float64 `json:"fontSizePt"`
	Bold       bool    `json:"bold"`
	Italic     bool    `json:"italic"`
	Underline  bool    `json:"underline"`
	Align      string  `json:"align"`
}

// Shape 是文档中的一个输出单元。Kind 为 ShapeMedia 时使用 Payload，为 ShapeText 时使用 Text 与 Props。
type Shape struct {
	Name    string     `json:"name"`
	Kind    ShapeKind  `json:"kind"`
	Frame   Frame      `json:"frame"`
	Payload *Payload   `json:"payload,omitempty"`
	Text    string     `json:"text,omitempty"`
	Props   *TextProps `json:"props,omitempty"`
}

// Meta 是写入文档属性的标题与作者。
type Meta struct {
	Title  string `json:"title"`
	Author string `json:"author"`
}

// Document 是组装完成的单页文档。Shapes 的顺序即 z 序，后面的形状绘制在上层。
type Document struct {
	PageWidth  float64 `json:"pageWidth"`
	PageHeight float64 `json:"pageHeight"`
	Title      string  `json:"title"`
	Author     string  `json:"author"`
	Shapes     []Shape `json:"shapes"`
}
