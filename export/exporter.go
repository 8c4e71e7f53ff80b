package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"

	"github.com/disintegration/imaging"

	"github.com/ByLCY/posterkit/renderer"
)

const (
	DefaultPNGName  = "poster.png"
	DefaultPPTXName = "poster.pptx"

	ContentTypePNG  = "image/png"
	ContentTypePPTX = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
)

// Artifact 是一次导出的结果文件。
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Options 配置 Exporter。
type Options struct {
	Snapshotter renderer.Snapshotter
	Writer      renderer.DocumentWriter
	Logger      *log.Logger
	PNGName     string
	PPTXName    string
}

// Exporter 对每个请求独立构造文档并立即交给序列化器，不保存任何中间状态。
type Exporter struct {
	snapshotter renderer.Snapshotter
	writer      renderer.DocumentWriter
	logger      *log.Logger
	pngName     string
	pptxName    string
}

func New(opts Options) *Exporter {
	e := &Exporter{
		snapshotter: opts.Snapshotter,
		writer:      opts.Writer,
		logger:      opts.Logger,
		pngName:     opts.PNGName,
		pptxName:    opts.PPTXName,
	}
	if e.logger == nil {
		e.logger = log.New(io.Discard, "", 0)
	}
	if e.pngName == "" {
		e.pngName = DefaultPNGName
	}
	if e.pptxName == "" {
		e.pptxName = DefaultPPTXName
	}
	return e
}

// ExportPNG 栅格化整个海报并编码为 PNG。
func (e *Exporter) ExportPNG(ctx context.Context, req Request) (*Artifact, error) {
	if e.snapshotter == nil {
		return nil, fmt.Errorf("未配置栅格渲染器")
	}
	poster := req.Poster()
	if poster == nil {
		return nil, fmt.Errorf("请求 %s 缺少海报快照", req.ID)
	}
	e.logDiagnostics(req, poster.Diagnostics)

	img, err := e.snapshotter.Snapshot(ctx, poster)
	if err != nil {
		e.logger.Printf("[%s] 快照失败: %v", req.ID, err)
		return nil, &BoundaryError{Stage: StageSnapshot, RequestID: req.ID, Err: err}
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, &BoundaryError{Stage: StageSnapshot, RequestID: req.ID, Err: fmt.Errorf("PNG 编码失败: %w", err)}
	}
	e.logger.Printf("[%s] 已导出 %s（%d 字节）", req.ID, e.pngName, buf.Len())
	return &Artifact{Filename: e.pngName, ContentType: ContentTypePNG, Data: buf.Bytes()}, nil
}

// ExportPPTX 组装单页文档并交给 DocumentWriter 序列化。
func (e *Exporter) ExportPPTX(ctx context.Context, req Request) (*Artifact, error) {
	if e.writer == nil {
		return nil, fmt.Errorf("未配置文档序列化器")
	}
	doc := req.Document()
	if doc == nil {
		return nil, fmt.Errorf("请求 %s 缺少海报快照", req.ID)
	}
	e.logDiagnostics(req, req.poster.Diagnostics)

	var buf bytes.Buffer
	if err := e.writer.WriteDocument(ctx, doc, &buf); err != nil {
		e.logger.Printf("[%s] 序列化失败: %v", req.ID, err)
		return nil, &BoundaryError{Stage: StageSerialize, RequestID: req.ID, Err: err}
	}
	e.logger.Printf("[%s] 已导出 %s：%d 个形状，%d 字节", req.ID, e.pptxName, len(doc.Shapes), buf.Len())
	return &Artifact{Filename: e.pptxName, ContentType: ContentTypePPTX, Data: buf.Bytes()}, nil
}

func (e *Exporter) logDiagnostics(req Request, diags []string) {
	for _, d := range diags {
		e.logger.Printf("[%s] 诊断: %s", req.ID, d)
	}
}
