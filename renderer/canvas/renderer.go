package canvasrenderer

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"
	"sync"
	"unicode"

	"github.com/disintegration/imaging"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"

	"github.com/ByLCY/posterkit/assets"
	"github.com/ByLCY/posterkit/fonts"
	"github.com/ByLCY/posterkit/layout"
	"github.com/ByLCY/posterkit/renderer"
)

// 画布上 1 个单位对应海报的 1 个像素；canvas 以 mm 为单位计算字号，这里在边界处换算。
const ptPerUnit = 72 / 25.4

// defaultLineHeight 对应 CSS line-height: normal 的常见取值。
const defaultLineHeight = 1.2

// Source 提供媒体资源的原始字节。
type Source interface {
	Load(ctx context.Context, src string) (*assets.Asset, error)
}

// Renderer 使用 github.com/tdewolff/canvas 绘制海报快照并栅格化。
type Renderer struct {
	source Source
	scale  float64

	fontMu sync.Mutex
	family *canvas.FontFamily
}

var _ renderer.Snapshotter = (*Renderer)(nil)

// Options 配置栅格渲染器。
type Options struct {
	// Scale 为每个海报像素输出的位图像素数，默认 1。
	Scale  float64
	Source Source
}

// NewRenderer 创建渲染器；未提供 Source 时使用零值 assets.Loader。
func NewRenderer(opts Options) *Renderer {
	if opts.Scale <= 0 {
		opts.Scale = 1
	}
	if opts.Source == nil {
		opts.Source = &assets.Loader{}
	}
	return &Renderer{source: opts.Source, scale: opts.Scale}
}

// Snapshot 按子节点顺序绘制（后绘制的在上层），背景保持透明。
func (r *Renderer) Snapshot(ctx context.Context, poster *layout.Poster) (image.Image, error) {
	if poster == nil {
		return nil, fmt.Errorf("海报快照为空")
	}
	if poster.Root.Width <= 0 || poster.Root.Height <= 0 {
		return nil, fmt.Errorf("海报尺寸无效：%gx%g", poster.Root.Width, poster.Root.Height)
	}

	c := canvas.New(poster.Root.Width, poster.Root.Height)
	cctx := canvas.NewContext(c)
	cctx.SetCoordSystem(canvas.CartesianIV) // 使坐标与快照保持左上角为原点

	for _, node := range poster.Children {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rect := node.Rect.Translate(-poster.Root.X, -poster.Root.Y)
		r.drawBackground(cctx, rect, node.Style.BackgroundColor)

		var err error
		if node.IsMedia() {
			err = r.drawMedia(ctx, cctx, node, rect)
		} else {
			err = r.drawText(cctx, node, rect)
		}
		if err != nil {
			return nil, fmt.Errorf("绘制 %s 失败: %w", node.Name, err)
		}
	}

	return rasterizer.Draw(c, canvas.DPMM(r.scale), canvas.DefaultColorSpace), nil
}

func (r *Renderer) drawBackground(ctx *canvas.Context, rect layout.Rect, bg string) {
	fill := layout.ToNRGBA(bg)
	if fill.A == 0 || rect.Width <= 0 || rect.Height <= 0 {
		return
	}
	ctx.SetFillColor(fill)
	ctx.SetStrokeColor(color.RGBA{0, 0, 0, 0})
	ctx.DrawPath(rect.X, rect.Y, canvas.Rectangle(rect.Width, rect.Height))
}

func (r *Renderer) drawMedia(ctx context.Context, cctx *canvas.Context, node layout.VisualNode, rect layout.Rect) error {
	if node.Media.Source == "" || rect.Width <= 0 || rect.Height <= 0 {
		return nil
	}
	asset, err := r.source.Load(ctx, node.Media.Source)
	if err != nil {
		return err
	}
	img, err := imaging.Decode(bytes.NewReader(asset.Data), imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("解码图片（%s）失败: %w", asset.MIME, err)
	}

	target := rect
	if node.Media.FitMode == layout.FitContain {
		nw, nh := node.Media.NaturalWidth, node.Media.NaturalHeight
		if !node.Media.HasNaturalSize() {
			// 快照未携带固有尺寸时，以解码后的位图尺寸为准
			nw, nh = float64(img.Bounds().Dx()), float64(img.Bounds().Dy())
		}
		if nw > 0 && nh > 0 {
			target = layout.ResolveMediaRect(rect, nw, nh, layout.FitContain)
		}
	}

	pw := max(1, int(math.Round(target.Width*r.scale)))
	ph := max(1, int(math.Round(target.Height*r.scale)))
	if pw != img.Bounds().Dx() || ph != img.Bounds().Dy() {
		img = imaging.Resize(img, pw, ph, imaging.Lanczos)
	}
	// 图片像素与画布单位的比例决定绘制尺寸
	cctx.DrawImage(target.X, target.Y, img, canvas.DPMM(float64(pw)/target.Width))
	return nil
}

func (r *Renderer) drawText(ctx *canvas.Context, node layout.VisualNode, rect layout.Rect) error {
	text := strings.TrimSpace(node.Text)
	if text == "" {
		return nil
	}
	st := node.Style
	bold := layout.NormalizeWeight(st.FontWeight)
	italic := layout.NormalizeItalic(st.FontStyle)
	textColor := layout.ToNRGBA(st.Color)
	face, err := r.fontFace(st.FontSizePx, bold, italic, textColor)
	if err != nil {
		return err
	}

	lineHeight := st.FontSizePx * defaultLineHeight
	metrics := face.Metrics()
	lines := greedyWrap(text, rect.Width, face)

	var textAlign canvas.TextAlign
	var anchorX float64
	switch layout.NormalizeAlign(st.TextAlign) {
	case "center":
		textAlign = canvas.Center
		anchorX = rect.X + rect.Width/2
	case "right":
		textAlign = canvas.Right
		anchorX = rect.X + rect.Width
	default:
		textAlign = canvas.Left
		anchorX = rect.X
	}

	underline := layout.NormalizeUnderline(st.TextDecoration)
	// 半行距：CSS 把 line-height 与字体高度之差平均分到上下两侧
	halfLeading := math.Max(lineHeight-(metrics.Ascent+metrics.Descent), 0) / 2
	cursorY := rect.Y
	for _, line := range lines {
		content := strings.TrimRightFunc(line.Content, unicode.IsSpace)
		baseline := cursorY + halfLeading + metrics.Ascent
		if content != "" {
			ctx.DrawText(anchorX, baseline, canvas.NewTextLine(face, content, textAlign))
			if underline {
				drawUnderline(ctx, face, content, anchorX, baseline, textAlign, st.FontSizePx, textColor)
			}
		}
		cursorY += lineHeight
	}
	return nil
}

func drawUnderline(ctx *canvas.Context, face *canvas.FontFace, content string, anchorX, baseline float64, align canvas.TextAlign, sizePx float64, col color.Color) {
	width := face.TextWidth(content)
	x := anchorX
	switch align {
	case canvas.Center:
		x -= width / 2
	case canvas.Right:
		x -= width
	}
	thickness := math.Max(sizePx/16, 1)
	ctx.SetStrokeColor(col)
	ctx.SetStrokeWidth(thickness)
	p := &canvas.Path{}
	p.MoveTo(0, 0)
	p.LineTo(width, 0)
	ctx.DrawPath(x, baseline+thickness*1.5, p)
}

// TextLine 是换行后的一行文本，Width 以海报像素为单位。
type TextLine struct {
	Content string
	Width   float64
}

// WrapText 按给定字号与宽度贪心换行，供测量与测试使用。
func (r *Renderer) WrapText(content string, width, fontSizePx float64, bold, italic bool) ([]TextLine, error) {
	face, err := r.fontFace(fontSizePx, bold, italic, canvas.Black)
	if err != nil {
		return nil, err
	}
	return greedyWrap(content, width, face), nil
}

func (r *Renderer) fontFace(sizePx float64, bold, italic bool, col color.Color) (*canvas.FontFace, error) {
	family, err := r.ensureFontFamily()
	if err != nil {
		return nil, err
	}
	if sizePx <= 0 {
		sizePx = layout.DefaultStyle().FontSizePx
	}
	return family.Face(sizePx*ptPerUnit, col, fontStyle(bold, italic), canvas.FontNormal), nil
}

func (r *Renderer) ensureFontFamily() (*canvas.FontFamily, error) {
	r.fontMu.Lock()
	defer r.fontMu.Unlock()

	if r.family != nil {
		return r.family, nil
	}
	family := canvas.NewFontFamily("Go")
	for _, face := range []fonts.Face{{}, {Bold: true}, {Italic: true}, {Bold: true, Italic: true}} {
		if err := family.LoadFont(fonts.FaceData(face), 0, fontStyle(face.Bold, face.Italic)); err != nil {
			return nil, fmt.Errorf("加载字体 %s 失败: %w", face.Name(), err)
		}
	}
	r.family = family
	return family, nil
}

func fontStyle(bold, italic bool) canvas.FontStyle {
	style := canvas.FontRegular
	if bold {
		style = canvas.FontBold
	}
	if italic {
		style |= canvas.FontItalic
	}
	return style
}

func greedyWrap(content string, width float64, face *canvas.FontFace) []TextLine {
	limit := width
	if limit <= 0 {
		limit = math.MaxFloat64
	}

	var lines []TextLine
	var builder strings.Builder
	currentWidth := 0.0

	emit := func(force bool) {
		if builder.Len() == 0 {
			if force {
				lines = append(lines, TextLine{})
			}
			return
		}
		lines = append(lines, TextLine{Content: builder.String(), Width: currentWidth})
		builder.Reset()
		currentWidth = 0
	}
	appendToken := func(token string) {
		// 行首的空白不占位
		if builder.Len() == 0 && strings.TrimSpace(token) == "" {
			return
		}
		builder.WriteString(token)
		currentWidth += face.TextWidth(token)
	}

	for _, token := range tokenizeContent(content) {
		if token == "\n" {
			emit(true)
			continue
		}
		tokenWidth := face.TextWidth(token)
		isSpace := strings.TrimSpace(token) == ""
		if currentWidth > 0 && currentWidth+tokenWidth > limit && !isSpace {
			emit(false)
		}
		if tokenWidth <= limit || isSpace {
			appendToken(token)
			continue
		}
		for _, chunk := range splitTokenByWidth(token, limit, face) {
			chunkWidth := face.TextWidth(chunk)
			if currentWidth > 0 && currentWidth+chunkWidth > limit {
				emit(false)
			}
			appendToken(chunk)
		}
	}
	emit(true)

	for i := range lines {
		trimmed := strings.TrimRightFunc(lines[i].Content, unicode.IsSpace)
		if trimmed != lines[i].Content {
			lines[i].Content = trimmed
			lines[i].Width = face.TextWidth(trimmed)
		}
	}
	return lines
}

func tokenizeContent(s string) []string {
	var tokens []string
	var builder strings.Builder
	lastWasSpace := false
	flush := func() {
		if builder.Len() == 0 {
			return
		}
		tokens = append(tokens, builder.String())
		builder.Reset()
	}

	for _, r := range s {
		if r == '\r' {
			continue
		}
		if r == '\n' {
			flush()
			tokens = append(tokens, "\n")
			lastWasSpace = false
			continue
		}
		isSpace := unicode.IsSpace(r)
		if builder.Len() == 0 {
			lastWasSpace = isSpace
		} else if lastWasSpace != isSpace {
			flush()
			lastWasSpace = isSpace
		}
		builder.WriteRune(r)
	}
	flush()
	return tokens
}

func splitTokenByWidth(token string, limit float64, face *canvas.FontFace) []string {
	if limit <= 0 || limit == math.MaxFloat64 {
		return []string{token}
	}
	var parts []string
	var builder strings.Builder
	for _, r := range token {
		builder.WriteRune(r)
		if face.TextWidth(builder.String()) > limit && builder.Len() > 1 {
			runes := []rune(builder.String())
			parts = append(parts, string(runes[:len(runes)-1]))
			builder.Reset()
			builder.WriteRune(r)
		}
	}
	if builder.Len() > 0 {
		parts = append(parts, builder.String())
	}
	return parts
}
