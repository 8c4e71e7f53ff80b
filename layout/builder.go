package layout

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ByLCY/posterkit/dsl"
)

// Build 根据海报 DSL 生成导出时刻的快照：根矩形、按文档顺序排列的子节点及其计算样式。
// 媒体固有尺寸优先取 DSL 中的 natural 声明，否则交给 opts.Prober 探测；探测失败只记录诊断。
func Build(ctx context.Context, doc *dsl.Document, opts BuildOptions) (*Poster, error) {
	if doc == nil {
		return nil, fmt.Errorf("文档为空")
	}
	canvas := firstCanvas(doc)
	if canvas == nil {
		return nil, fmt.Errorf("文档中缺少 canvas 段落")
	}

	styles, err := collectStyles(doc)
	if err != nil {
		return nil, err
	}

	width, okW := ParsePixels(canvas.Width)
	height, okH := ParsePixels(canvas.Height)
	if !okW || !okH || width <= 0 || height <= 0 {
		return nil, fmt.Errorf("canvas 尺寸无效：%s x %s", canvas.Width, canvas.Height)
	}

	poster := &Poster{
		Root: Rect{Width: width, Height: height},
		Meta: collectMeta(doc),
	}
	if canvas.Block == nil {
		return poster, nil
	}

	for _, stmt := range canvas.Block.Statements {
		if stmt.Assignment != nil && strings.EqualFold(stmt.Assignment.Key, "origin") {
			vals := valueToPixels(stmt.Assignment.Value)
			if len(vals) >= 2 {
				poster.Root.X, poster.Root.Y = vals[0], vals[1]
			}
		}
	}

	for _, stmt := range canvas.Block.Statements {
		if stmt.Command == nil {
			continue
		}
		node, err := buildNode(stmt.Command, styles)
		if err != nil {
			return nil, err
		}
		// 子节点坐标写的是相对根节点的位置，快照中统一换算到根节点所在的坐标空间。
		node.Rect = node.Rect.Translate(poster.Root.X, poster.Root.Y)
		poster.Children = append(poster.Children, node)
	}

	poster.Diagnostics = append(poster.Diagnostics, ProbeNaturalSizes(ctx, poster, opts.Prober)...)
	return poster, nil
}

// ProbeNaturalSizes 为缺少固有尺寸的媒体节点探测尺寸，返回探测失败的诊断信息。
func ProbeNaturalSizes(ctx context.Context, poster *Poster, prober Prober) []string {
	if prober == nil || poster == nil {
		return nil
	}
	var diags []string
	for i := range poster.Children {
		node := &poster.Children[i]
		if !node.IsMedia() || node.Media.HasNaturalSize() || node.Media.Source == "" {
			continue
		}
		w, h, err := prober.Probe(ctx, node.Media.Source)
		if err != nil {
			diags = append(diags, fmt.Sprintf("%s: 无法读取媒体固有尺寸，按 fit none 导出: %v", node.Name, err))
			continue
		}
		node.Media.NaturalWidth = float64(w)
		node.Media.NaturalHeight = float64(h)
	}
	return diags
}

func buildNode(cmd *dsl.Command, styles map[string]Style) (VisualNode, error) {
	name, attrs := parseArgs(cmd.Args)
	if name == "" {
		return VisualNode{}, fmt.Errorf("%s 节点缺少名称（行 %d）", cmd.Name, cmd.Pos.Line)
	}

	node := VisualNode{Name: name, Style: DefaultStyle()}
	switch cmd.Name {
	case "image":
		node.Kind = KindMedia
		node.Media = &MediaInfo{FitMode: FitNone}
	case "text", "box":
		node.Kind = KindText
	default:
		return VisualNode{}, fmt.Errorf("未知节点类型 %s（行 %d）", cmd.Name, cmd.Pos.Line)
	}

	var stmts []*dsl.Assignment
	if cmd.Block != nil {
		for _, stmt := range cmd.Block.Statements {
			if stmt.Assignment != nil {
				stmts = append(stmts, stmt.Assignment)
			}
		}
	}

	class := attrs["class"]
	for _, a := range stmts {
		if strings.EqualFold(a.Key, "class") {
			class = valueToString(a.Value)
		}
	}
	if class != "" {
		style, ok := styles[class]
		if !ok {
			return VisualNode{}, fmt.Errorf("%s 引用了未定义的 style %s", name, class)
		}
		for _, prop := range style.Props {
			applyStyleProp(&node.Style, prop.Key, prop.Value)
		}
	}

	// 按书写顺序应用，同一属性的多种写法以最后出现的为准
	for _, a := range stmts {
		key, val := strings.ToLower(a.Key), a.Value
		switch key {
		case "class":
		case "rect":
			vals := valueToPixels(val)
			if len(vals) != 4 {
				return VisualNode{}, fmt.Errorf("%s 的 rect 需要 4 个数值", name)
			}
			node.Rect = Rect{X: vals[0], Y: vals[1], Width: vals[2], Height: vals[3]}
		case "x", "left":
			node.Rect.X = parseLength(valueToString(val))
		case "y", "top":
			node.Rect.Y = parseLength(valueToString(val))
		case "width", "w":
			node.Rect.Width = parseLength(valueToString(val))
		case "height", "h":
			node.Rect.Height = parseLength(valueToString(val))
		case "role":
			node.Role = valueToString(val)
		case "prompt":
			node.Prompt = valueToString(val)
		case "src", "fit", "natural":
			if node.Media == nil {
				return VisualNode{}, fmt.Errorf("%s 不是 image 节点，不支持 %s", name, key)
			}
			applyMediaProp(node.Media, key, val)
		default:
			applyStyleProp(&node.Style, key, valueToString(val))
		}
	}

	if node.Rect.Width < 0 || node.Rect.Height < 0 {
		return VisualNode{}, fmt.Errorf("%s 的尺寸不能为负数", name)
	}
	if node.Kind == KindText {
		node.Text = strings.TrimSpace(extractText(cmd.Block))
	}
	return node, nil
}

func applyMediaProp(media *MediaInfo, key string, val *dsl.Value) {
	switch key {
	case "src":
		media.Source = valueToString(val)
	case "fit":
		media.FitMode = ParseFitMode(strings.ToLower(valueToString(val)))
	case "natural":
		if vals := valueToPixels(val); len(vals) == 2 {
			media.NaturalWidth, media.NaturalHeight = vals[0], vals[1]
		}
	}
}

// applyStyleProp 接受 CSS 风格的属性名，未知属性忽略。
func applyStyleProp(style *ComputedStyle, key, val string) {
	if val == "" {
		return
	}
	switch key {
	case "color":
		style.Color = normalizeColorValue(val)
	case "background-color", "background":
		style.BackgroundColor = normalizeColorValue(val)
	case "font-size", "size":
		if px, ok := ParsePixels(val); ok && px > 0 {
			style.FontSizePx = px
		}
	case "font-weight", "weight":
		style.FontWeight = strings.ToLower(val)
	case "font-style":
		style.FontStyle = strings.ToLower(val)
	case "text-decoration", "text-decoration-line", "decoration":
		style.TextDecoration = strings.ToLower(val)
	case "text-align", "align":
		style.TextAlign = strings.ToLower(val)
	}
}

// normalizeColorValue 把 #rgb/#rrggbb/#rrggbbaa 转为计算样式使用的 rgb()/rgba() 形式。
func normalizeColorValue(val string) string {
	if !strings.HasPrefix(val, "#") {
		return val
	}
	hex := strings.TrimPrefix(val, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 && len(hex) != 8 {
		return val
	}
	r, g, b := mustHex(hex[0:2]), mustHex(hex[2:4]), mustHex(hex[4:6])
	if len(hex) == 8 {
		a := float64(mustHex(hex[6:8])) / 255
		return fmt.Sprintf("rgba(%d, %d, %d, %s)", r, g, b, strconv.FormatFloat(a, 'f', 3, 64))
	}
	return fmt.Sprintf("rgb(%d, %d, %d)", r, g, b)
}

func collectMeta(doc *dsl.Document) Meta {
	meta := Meta{Template: doc.Name}
	for _, section := range doc.Sections {
		if section.Meta == nil || section.Meta.Block == nil {
			continue
		}
		for _, stmt := range section.Meta.Block.Statements {
			if stmt.Assignment == nil {
				continue
			}
			switch strings.ToLower(stmt.Assignment.Key) {
			case "title":
				meta.Title = valueToString(stmt.Assignment.Value)
			case "author":
				meta.Author = valueToString(stmt.Assignment.Value)
			case "template":
				meta.Template = valueToString(stmt.Assignment.Value)
			}
		}
	}
	return meta
}

// Style 是可继承的样式类。Props 保持书写顺序，继承时父类属性在前。
type Style struct {
	Name    string `json:"name"`
	Extends string `json:"extends,omitempty"`
	Props   []Prop `json:"props"`
}

// Prop 是一条样式声明。
type Prop struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func collectStyles(doc *dsl.Document) (map[string]Style, error) {
	raw := map[string]Style{}
	for _, section := range doc.Sections {
		if section.Styles == nil || section.Styles.Block == nil {
			continue
		}
		for _, stmt := range section.Styles.Block.Statements {
			if stmt.Command == nil || stmt.Command.Name != "style" {
				continue
			}
			style := parseStyleResource(stmt.Command)
			if style.Name != "" {
				raw[style.Name] = style
			}
		}
	}
	return resolveStyles(raw)
}

func parseStyleResource(cmd *dsl.Command) Style {
	if len(cmd.Args) == 0 {
		return Style{}
	}
	style := Style{Name: cmd.Args[0].Value}
	if len(cmd.Args) >= 3 && strings.EqualFold(cmd.Args[1].Value, "extends") {
		style.Extends = cmd.Args[2].Value
	}
	if cmd.Block == nil {
		return style
	}
	for _, stmt := range cmd.Block.Statements {
		if stmt.Assignment == nil {
			continue
		}
		if val := valueToString(stmt.Assignment.Value); val != "" {
			style.Props = append(style.Props, Prop{Key: strings.ToLower(stmt.Assignment.Key), Value: val})
		}
	}
	return style
}

func resolveStyles(styles map[string]Style) (map[string]Style, error) {
	resolved := map[string]Style{}
	visiting := map[string]bool{}

	var dfs func(name string) (Style, error)
	dfs = func(name string) (Style, error) {
		if style, ok := resolved[name]; ok {
			return style, nil
		}
		style, ok := styles[name]
		if !ok {
			return Style{}, fmt.Errorf("style %s 未定义", name)
		}
		if visiting[name] {
			return Style{}, fmt.Errorf("style 继承存在循环：%s", name)
		}
		visiting[name] = true

		var props []Prop
		if style.Extends != "" {
			parent, err := dfs(style.Extends)
			if err != nil {
				return Style{}, err
			}
			props = append(props, parent.Props...)
		}
		style.Props = append(props, style.Props...)
		resolved[name] = style
		delete(visiting, name)
		return style, nil
	}

	for name := range styles {
		if _, err := dfs(name); err != nil {
			return nil, err
		}
	}
	return resolved, nil
}

func firstCanvas(doc *dsl.Document) *dsl.CanvasSection {
	for _, section := range doc.Sections {
		if section.Canvas != nil {
			return section.Canvas
		}
	}
	return nil
}

// parseArgs 第一个参数为节点名，其余按 key value 成对解析，例如 `text title class Heading`。
func parseArgs(args []*dsl.Lexeme) (string, map[string]string) {
	result := map[string]string{}
	if len(args) == 0 {
		return "", result
	}
	name := args[0].Value
	for cursor := 1; cursor < len(args)-1; cursor += 2 {
		result[args[cursor].Value] = args[cursor+1].Value
	}
	return name, result
}

func extractText(block *dsl.Block) string {
	if block == nil {
		return ""
	}
	var lines []string
	for _, stmt := range block.Statements {
		if stmt.Text != nil {
			lines = append(lines, string(stmt.Text.Value))
		}
	}
	return strings.Join(lines, "\n")
}

func mustHex(s string) int {
	v, _ := strconv.ParseInt(s, 16, 64)
	return int(v)
}

func parseLength(value string) float64 {
	px, _ := ParsePixels(value)
	return px
}

func valueToPixels(val *dsl.Value) []float64 {
	items := valueToStringSlice(val)
	out := make([]float64, 0, len(items))
	for _, item := range items {
		px, ok := ParsePixels(item)
		if !ok {
			return nil
		}
		out = append(out, px)
	}
	return out
}

func valueToString(val *dsl.Value) string {
	if val == nil {
		return ""
	}
	switch {
	case val.String != nil:
		return string(*val.String)
	case val.Number != nil:
		return *val.Number
	case val.Color != nil:
		return *val.Color
	case val.Expr != nil:
		return val.Expr.String()
	default:
		return ""
	}
}

func valueToStringSlice(val *dsl.Value) []string {
	if val == nil {
		return nil
	}
	if val.Array != nil {
		out := make([]string, 0, len(val.Array.Values))
		for _, item := range val.Array.Values {
			if s := valueToString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	if s := valueToString(val); s != "" {
		return []string{s}
	}
	return nil
}
