// Package pptx 把幻灯片文档序列化为 Office Open XML 演示文稿（.pptx）。
package pptx

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/ByLCY/posterkit/assets"
	"github.com/ByLCY/posterkit/layout"
	"github.com/ByLCY/posterkit/renderer"
	"github.com/ByLCY/posterkit/slide"
)

// Source 提供图片形状引用的资源字节；内联数据与外部地址都通过它读取并嵌入文件。
type Source interface {
	Load(ctx context.Context, src string) (*assets.Asset, error)
}

// Options 配置 PPTX 写出器。
type Options struct {
	Source      Source
	Application string
	Now         func() time.Time
}

// Writer 写出单页演示文稿。
type Writer struct {
	source      Source
	application string
	now         func() time.Time
}

var _ renderer.DocumentWriter = (*Writer)(nil)

func NewWriter(opts Options) *Writer {
	w := &Writer{source: opts.Source, application: opts.Application, now: opts.Now}
	if w.source == nil {
		w.source = &assets.Loader{}
	}
	if w.application == "" {
		w.application = "posterkit"
	}
	if w.now == nil {
		w.now = time.Now
	}
	return w
}

// WriteDocument 先读取全部图片，成功后才开始写压缩包，避免输出半成品。
func (w *Writer) WriteDocument(ctx context.Context, doc *slide.Document, out io.Writer) error {
	if doc == nil {
		return fmt.Errorf("文档为空")
	}
	media, err := w.loadMedia(ctx, doc)
	if err != nil {
		return err
	}

	zw := zip.NewWriter(out)
	cx := clampSlideEMU(layout.Inch(doc.PageWidth))
	cy := clampSlideEMU(layout.Inch(doc.PageHeight))

	steps := []func() error{
		func() error { return w.writeContentTypes(zw, media) },
		func() error { return w.writeRootRels(zw) },
		func() error { return w.writeAppProperties(zw) },
		func() error { return w.writeCoreProperties(zw, doc.Title, doc.Author) },
		func() error { return w.writePresentation(zw, cx, cy) },
		func() error { return w.writePresentationProps(zw) },
		func() error { return w.writeSlideMaster(zw) },
		func() error { return w.writeSlideLayout(zw) },
		func() error { return w.writeTheme(zw) },
		func() error { return w.writeSlide(zw, doc, media) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	for _, m := range media {
		if err := writeBinaryToZip(zw, m.partName(), m.data); err != nil {
			return err
		}
	}
	return zw.Close()
}

func (w *Writer) loadMedia(ctx context.Context, doc *slide.Document) ([]mediaPart, error) {
	var media []mediaPart
	for _, shape := range doc.Shapes {
		if shape.Kind != slide.ShapeMedia {
			continue
		}
		if shape.Payload == nil || shape.Payload.Source() == "" {
			return nil, fmt.Errorf("图片 %s 缺少资源", shape.Name)
		}
		asset, err := w.source.Load(ctx, shape.Payload.Source())
		if err != nil {
			return nil, fmt.Errorf("读取图片 %s 失败: %w", shape.Name, err)
		}
		if !asset.IsImage() {
			return nil, fmt.Errorf("图片 %s 的资源类型 %s 不是图片", shape.Name, asset.MIME)
		}
		media = append(media, mediaPart{
			index:       len(media) + 1,
			ext:         strings.TrimPrefix(asset.Ext, "."),
			contentType: asset.MIME,
			data:        asset.Data,
		})
	}
	return media, nil
}
