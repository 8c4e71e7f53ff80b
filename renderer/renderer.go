package renderer

import (
	"context"
	"image"
	"io"

	"github.com/ByLCY/posterkit/layout"
	"github.com/ByLCY/posterkit/slide"
)

// Snapshotter 把整个海报子树绘制为一张透明背景的位图。
type Snapshotter interface {
	Snapshot(ctx context.Context, poster *layout.Poster) (image.Image, error)
}

// DocumentWriter 把组装好的幻灯片文档序列化到 w，例如 PPTX。
type DocumentWriter interface {
	WriteDocument(ctx context.Context, doc *slide.Document, w io.Writer) error
}
