package slide

import (
	"strings"

	"github.com/ByLCY/posterkit/layout"
)

// Build 由根矩形与子节点组装文档。页面尺寸只取自根矩形；每个子节点按遍历顺序生成一个形状，
// 坐标相对根节点原点换算为英寸。contain 适配在像素矩形上计算，随后再换算单位。
func Build(root layout.Rect, children []layout.VisualNode, meta Meta) *Document {
	doc := &Document{
		PageWidth:  layout.PxToLength(root.Width),
		PageHeight: layout.PxToLength(root.Height),
		Title:      meta.Title,
		Author:     meta.Author,
		Shapes:     make([]Shape, 0, len(children)),
	}
	for _, child := range children {
		doc.Shapes = append(doc.Shapes, buildShape(root, child))
	}
	return doc
}

// FromPoster 是 Build 的便捷形式。
func FromPoster(poster *layout.Poster, meta Meta) *Document {
	return Build(poster.Root, poster.Children, meta)
}

func buildShape(root layout.Rect, node layout.VisualNode) Shape {
	if node.IsMedia() {
		payload := PayloadFor(node.Media.Source)
		return Shape{
			Name:    node.Name,
			Kind:    ShapeMedia,
			Frame:   toFrame(root, layout.DisplayedRect(node)),
			Payload: &payload,
		}
	}

	st := node.Style
	return Shape{
		Name:  node.Name,
		Kind:  ShapeText,
		Frame: toFrame(root, node.Rect),
		Text:  strings.TrimSpace(node.Text),
		Props: &TextProps{
			Color: layout.ParseColor(st.Color),
			Fill: Fill{
				Color:        layout.ParseColor(st.BackgroundColor),
				Transparency: layout.ParseAlpha(st.BackgroundColor),
			},
			FontSizePt: layout.PxToPoints(st.FontSizePx),
			Bold:       layout.NormalizeWeight(st.FontWeight),
			Italic:     layout.NormalizeItalic(st.FontStyle),
			Underline:  layout.NormalizeUnderline(st.TextDecoration),
			Align:      layout.NormalizeAlign(st.TextAlign),
		},
	}
}

func toFrame(root, r layout.Rect) Frame {
	return Frame{
		X: layout.PxToLength(r.X - root.X),
		Y: layout.PxToLength(r.Y - root.Y),
		W: layout.PxToLength(r.Width),
		H: layout.PxToLength(r.Height),
	}
}
