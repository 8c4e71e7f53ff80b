package layout

import (
	"context"

	"github.com/ByLCY/posterkit/dsl"
)

// BuildOptions 配置快照构建阶段所需的依赖，例如媒体尺寸探测。
type BuildOptions struct {
	Prober Prober
}

// Prober 负责读取媒体资源的固有像素尺寸。
type Prober interface {
	Probe(ctx context.Context, src string) (width, height int, err error)
}

// StyleProvider 提供导出时刻的几何与样式快照。
type StyleProvider interface {
	Snapshot(ctx context.Context) (*Poster, error)
}

// StaticProvider 直接返回给定快照，常用于测试或已捕获的快照。
type StaticProvider struct {
	Poster *Poster
}

func (p StaticProvider) Snapshot(context.Context) (*Poster, error) {
	return p.Poster.Clone(), nil
}

// DocumentProvider 每次调用都从已解析的 DSL 文档重新构建快照。
type DocumentProvider struct {
	Doc     *dsl.Document
	Options BuildOptions
}

func (p DocumentProvider) Snapshot(ctx context.Context) (*Poster, error) {
	return Build(ctx, p.Doc, p.Options)
}
