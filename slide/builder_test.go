package slide

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/posterkit/layout"
)

const eps = 1e-3

func mediaNode(name string, rect layout.Rect, nw, nh float64, fit layout.FitMode, src string) layout.VisualNode {
	return layout.VisualNode{
		Name:  name,
		Kind:  layout.KindMedia,
		Rect:  rect,
		Style: layout.DefaultStyle(),
		Media: &layout.MediaInfo{NaturalWidth: nw, NaturalHeight: nh, FitMode: fit, Source: src},
	}
}

func TestBuildPageSizeFromRoot(t *testing.T) {
	doc := Build(layout.Rect{Width: 720, Height: 360}, []layout.VisualNode{
		mediaNode("huge", layout.Rect{Width: 5000, Height: 5000}, 0, 0, layout.FitNone, "a.png"),
	}, Meta{})

	assert.Equal(t, 10.0, doc.PageWidth)
	assert.Equal(t, 5.0, doc.PageHeight)
}

func TestBuildPreservesOrder(t *testing.T) {
	children := []layout.VisualNode{
		{Name: "A", Kind: layout.KindText, Style: layout.DefaultStyle()},
		mediaNode("B", layout.Rect{Width: 10, Height: 10}, 0, 0, layout.FitNone, "b.png"),
		{Name: "C", Kind: layout.KindText, Style: layout.DefaultStyle()},
	}
	doc := Build(layout.Rect{Width: 100, Height: 100}, children, Meta{})

	require.Len(t, doc.Shapes, 3)
	assert.Equal(t, "A", doc.Shapes[0].Name)
	assert.Equal(t, ShapeText, doc.Shapes[0].Kind)
	assert.Equal(t, "B", doc.Shapes[1].Name)
	assert.Equal(t, ShapeMedia, doc.Shapes[1].Kind)
	assert.Equal(t, "C", doc.Shapes[2].Name)
}

func TestBuildContainScenario(t *testing.T) {
	doc := Build(layout.Rect{Width: 720, Height: 360}, []layout.VisualNode{
		mediaNode("m", layout.Rect{Width: 200, Height: 100}, 100, 100, layout.FitContain, "m.png"),
	}, Meta{})

	f := doc.Shapes[0].Frame
	assert.InDelta(t, 0.694, f.X, eps)
	assert.InDelta(t, 0.0, f.Y, eps)
	assert.InDelta(t, 1.389, f.W, eps)
	assert.InDelta(t, 1.389, f.H, eps)
}

func TestBuildMissingNaturalSizeFallsBackToContainer(t *testing.T) {
	doc := Build(layout.Rect{Width: 720, Height: 360}, []layout.VisualNode{
		mediaNode("m", layout.Rect{Width: 144, Height: 72}, 0, 0, layout.FitContain, "m.png"),
	}, Meta{})

	assert.Equal(t, Frame{X: 0, Y: 0, W: 2, H: 1}, doc.Shapes[0].Frame)
}

func TestBuildPositionsRelativeToRoot(t *testing.T) {
	root := layout.Rect{X: 100, Y: 50, Width: 720, Height: 360}
	text := layout.VisualNode{
		Name:  "t",
		Kind:  layout.KindText,
		Rect:  layout.Rect{X: 172, Y: 86, Width: 72, Height: 36},
		Style: layout.DefaultStyle(),
	}
	doc := Build(root, []layout.VisualNode{text}, Meta{})

	assert.Equal(t, Frame{X: 1, Y: 0.5, W: 1, H: 0.5}, doc.Shapes[0].Frame)
}

func TestBuildPayloadSelection(t *testing.T) {
	doc := Build(layout.Rect{Width: 100, Height: 100}, []layout.VisualNode{
		mediaNode("inline", layout.Rect{Width: 10, Height: 10}, 0, 0, layout.FitNone, "data:image/png;base64,AAAA"),
		mediaNode("remote", layout.Rect{Width: 10, Height: 10}, 0, 0, layout.FitNone, "https://example.com/a.png"),
	}, Meta{})

	inline := doc.Shapes[0].Payload
	require.NotNil(t, inline)
	assert.True(t, inline.Inline())
	assert.Equal(t, "data:image/png;base64,AAAA", inline.Source())

	remote := doc.Shapes[1].Payload
	assert.False(t, remote.Inline())
	assert.Equal(t, "https://example.com/a.png", remote.Path)
}

func TestBuildTextProps(t *testing.T) {
	node := layout.VisualNode{
		Name: "title",
		Kind: layout.KindText,
		Rect: layout.Rect{Width: 100, Height: 20},
		Text: "Hello",
		Style: layout.ComputedStyle{
			Color:           "rgb(255, 255, 255)",
			BackgroundColor: "rgba(0, 0, 0, 0.25)",
			FontSizePx:      32,
			FontWeight:      "700",
			FontStyle:       "italic",
			TextDecoration:  "underline solid rgb(0, 0, 0)",
			TextAlign:       "center",
		},
	}
	doc := Build(layout.Rect{Width: 100, Height: 100}, []layout.VisualNode{node}, Meta{Title: "T", Author: "A"})

	shape := doc.Shapes[0]
	require.NotNil(t, shape.Props)
	assert.Nil(t, shape.Payload)
	assert.Equal(t, "Hello", shape.Text)
	assert.Equal(t, TextProps{
		Color:      "#ffffff",
		Fill:       Fill{Color: "#000000", Transparency: 75},
		FontSizePt: 32,
		Bold:       true,
		Italic:     true,
		Underline:  true,
		Align:      "center",
	}, *shape.Props)
	assert.Equal(t, "T", doc.Title)
	assert.Equal(t, "A", doc.Author)
}

func TestBuildDefaultStyleIsTransparentFill(t *testing.T) {
	doc := Build(layout.Rect{Width: 100, Height: 100}, []layout.VisualNode{
		{Name: "t", Kind: layout.KindText, Style: layout.DefaultStyle()},
	}, Meta{})

	props := doc.Shapes[0].Props
	assert.Equal(t, 100, props.Fill.Transparency)
	assert.Equal(t, "left", props.Align)
	assert.False(t, props.Bold)
	assert.Equal(t, 16.0, props.FontSizePt)
}

func TestBuildTrimsDisplayText(t *testing.T) {
	doc := Build(layout.Rect{Width: 100, Height: 100}, []layout.VisualNode{
		{Name: "t", Kind: layout.KindText, Style: layout.DefaultStyle(), Text: "  Summer sale \n"},
		{Name: "u", Kind: layout.KindText, Style: layout.DefaultStyle(), Text: "\tline one\nline two  "},
	}, Meta{})

	assert.Equal(t, "Summer sale", doc.Shapes[0].Text)
	assert.Equal(t, "line one\nline two", doc.Shapes[1].Text)
}
