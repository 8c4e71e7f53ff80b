package layout

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ByLCY/posterkit/dsl"
)

type stubProber struct {
	sizes map[string][2]int
	calls int
}

func (p *stubProber) Probe(_ context.Context, src string) (int, int, error) {
	p.calls++
	size, ok := p.sizes[src]
	if !ok {
		return 0, 0, errors.New("not found")
	}
	return size[0], size[1], nil
}

func buildPoster(t *testing.T, text string, opts BuildOptions) *Poster {
	t.Helper()
	doc, err := dsl.Parse(strings.NewReader(text))
	if err != nil {
		t.Fatalf("解析 DSL 失败: %v", err)
	}
	poster, err := Build(context.Background(), doc, opts)
	if err != nil {
		t.Fatalf("构建快照失败: %v", err)
	}
	return poster
}

const builderDSL = `
poster Launch v1 {
  meta {
    title: "Spring launch"
  }
  styles {
    style Heading {
      font-size: 32px
      font-weight: bold
      color: #ff0000
    }
    style Banner extends Heading {
      background-color: rgba(0, 0, 0, 0.4)
      text-align: center
    }
  }
  canvas 720 360 {
    origin: [10, 20]
    image background {
      rect: [0, 0, 720, 360]
      fit: contain
      natural: [1000, 500]
      src: "bg.png"
      role: logo
    }
    image hero {
      x: 20
      y: 30
      width: 200
      height: 100
      fit: contain
      src: "hero.png"
      prompt: "a bright hero image"
    }
    text title class Banner {
      rect: [100, 250, 500, 60]
      font-style: italic
      "Hello"
      "World"
    }
  }
}
`

func TestBuildSnapshot(t *testing.T) {
	prober := &stubProber{sizes: map[string][2]int{"hero.png": {300, 150}}}
	poster := buildPoster(t, builderDSL, BuildOptions{Prober: prober})

	if poster.Root != (Rect{X: 10, Y: 20, Width: 720, Height: 360}) {
		t.Fatalf("根矩形错误: %+v", poster.Root)
	}
	if poster.Meta.Title != "Spring launch" || poster.Meta.Template != "Launch" {
		t.Fatalf("元信息错误: %+v", poster.Meta)
	}
	if len(poster.Children) != 3 {
		t.Fatalf("期望 3 个子节点，实际 %d", len(poster.Children))
	}
	names := []string{poster.Children[0].Name, poster.Children[1].Name, poster.Children[2].Name}
	if strings.Join(names, ",") != "background,hero,title" {
		t.Fatalf("子节点顺序应与文档顺序一致，实际 %v", names)
	}

	bg := poster.Children[0]
	if !bg.IsMedia() || bg.Media.FitMode != FitContain || bg.Media.NaturalWidth != 1000 || bg.Role != "logo" {
		t.Fatalf("背景节点错误: %+v %+v", bg, bg.Media)
	}
	if bg.Rect != (Rect{X: 10, Y: 20, Width: 720, Height: 360}) {
		t.Fatalf("子节点坐标应换算到根节点坐标空间，实际 %+v", bg.Rect)
	}

	hero := poster.Children[1]
	if hero.Media.NaturalWidth != 300 || hero.Media.NaturalHeight != 150 {
		t.Fatalf("应通过 prober 补全固有尺寸，实际 %+v", hero.Media)
	}
	if hero.Rect != (Rect{X: 30, Y: 50, Width: 200, Height: 100}) || hero.Prompt != "a bright hero image" {
		t.Fatalf("hero 节点错误: %+v", hero)
	}
	if prober.calls != 1 {
		t.Fatalf("已声明 natural 的节点不应再探测，调用次数 %d", prober.calls)
	}

	title := poster.Children[2]
	if title.Kind != KindText || title.Text != "Hello\nWorld" {
		t.Fatalf("文本节点错误: %+v", title)
	}
	st := title.Style
	if st.FontSizePx != 32 || st.FontWeight != "bold" || st.Color != "rgb(255, 0, 0)" {
		t.Fatalf("继承样式未生效: %+v", st)
	}
	if st.BackgroundColor != "rgba(0,0,0,0.4)" || st.TextAlign != "center" || st.FontStyle != "italic" {
		t.Fatalf("样式错误: %+v", st)
	}
	if st.TextDecoration != "none" {
		t.Fatalf("未设置的属性应保持默认值: %+v", st)
	}
}

func TestBuildRecordsProbeFailure(t *testing.T) {
	text := `poster P { canvas 100 100 { image pic { rect: [0, 0, 100, 100]; fit: contain; src: "missing.png" } } }`
	poster := buildPoster(t, text, BuildOptions{Prober: &stubProber{}})
	if len(poster.Diagnostics) != 1 || !strings.Contains(poster.Diagnostics[0], "pic") {
		t.Fatalf("探测失败应记录诊断，实际 %v", poster.Diagnostics)
	}
	if poster.Children[0].Media.HasNaturalSize() {
		t.Fatalf("探测失败时不应设置固有尺寸")
	}
}

func TestBuildErrors(t *testing.T) {
	cases := map[string]string{
		"缺少 canvas":   `poster P { meta { title: "x" } }`,
		"未定义 style":   `poster P { canvas 10 10 { text a class Missing { "x" } } }`,
		"循环继承":        `poster P { styles { style A extends B { color: #fff }; style B extends A { color: #000 } } canvas 10 10 { } }`,
		"rect 数量错误":   `poster P { canvas 10 10 { box a { rect: [1, 2, 3] } } }`,
		"文本节点不支持 src": `poster P { canvas 10 10 { text a { src: "x.png" } } }`,
		"未知节点类型":      `poster P { canvas 10 10 { video a { } } }`,
	}
	for name, text := range cases {
		doc, err := dsl.ParseString(text)
		if err != nil {
			t.Fatalf("%s: 解析失败: %v", name, err)
		}
		if _, err := Build(context.Background(), doc, BuildOptions{}); err == nil {
			t.Fatalf("%s: 期望构建失败", name)
		}
	}
}

func TestStaticProviderReturnsCopy(t *testing.T) {
	src := &Poster{
		Root:     Rect{Width: 10, Height: 10},
		Children: []VisualNode{{Name: "a", Kind: KindMedia, Media: &MediaInfo{Source: "a.png"}}},
	}
	snap, err := StaticProvider{Poster: src}.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("快照失败: %v", err)
	}
	snap.Children[0].Media.Source = "b.png"
	if src.Children[0].Media.Source != "a.png" {
		t.Fatalf("修改快照不应影响原始数据")
	}
}

// TestBuildAppliesPropsInSourceOrder 同一属性的多种写法按书写顺序覆盖，多次构建结果一致。
func TestBuildAppliesPropsInSourceOrder(t *testing.T) {
	const text = `poster P {
  styles {
    style Base { size: 12px; background: #000000 }
    style Title extends Base { font-size: 20px; align: right; text-align: center }
  }
  canvas 200 200 {
    text a class Title { rect: [0, 0, 100, 100]; x: 50; size: 10px; font-size: 30px; "A" }
    text b { x: 50; rect: [5, 6, 70, 80]; font-size: 30px; size: 10px; background-color: #ff0000; background: #00ff00; "B" }
  }
}`
	for i := 0; i < 50; i++ {
		poster := buildPoster(t, text, BuildOptions{})
		a, b := poster.Children[0], poster.Children[1]
		if a.Rect.X != 50 || a.Rect.Width != 100 || a.Style.FontSizePx != 30 {
			t.Fatalf("第 %d 次构建 a 结果不符: rect=%+v size=%g", i, a.Rect, a.Style.FontSizePx)
		}
		if a.Style.TextAlign != "center" || a.Style.BackgroundColor != "rgb(0, 0, 0)" {
			t.Fatalf("第 %d 次构建 a 的样式类结果不符: %+v", i, a.Style)
		}
		if b.Rect.X != 5 || b.Rect.Y != 6 || b.Style.FontSizePx != 10 {
			t.Fatalf("第 %d 次构建 b 结果不符: rect=%+v size=%g", i, b.Rect, b.Style.FontSizePx)
		}
		if b.Style.BackgroundColor != "rgb(0, 255, 0)" {
			t.Fatalf("第 %d 次构建 b 背景色期望 rgb(0, 255, 0)，实际 %s", i, b.Style.BackgroundColor)
		}
	}
}

func TestDocumentProviderBuildsFreshSnapshot(t *testing.T) {
	doc, err := dsl.ParseString(`poster P { canvas 100 50 { text t { "x" } } }`)
	if err != nil {
		t.Fatalf("解析 DSL 失败: %v", err)
	}
	provider := DocumentProvider{Doc: doc}
	first, err := provider.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("快照失败: %v", err)
	}
	first.Children[0].Text = "changed"
	second, err := provider.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("快照失败: %v", err)
	}
	if second.Children[0].Text != "x" || second.Root.Width != 100 {
		t.Fatalf("每次快照应重新构建，实际 %+v", second)
	}
}
