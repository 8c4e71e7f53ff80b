package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ByLCY/posterkit/api"
	"github.com/ByLCY/posterkit/assets"
	"github.com/ByLCY/posterkit/config"
	"github.com/ByLCY/posterkit/export"
	"github.com/ByLCY/posterkit/layout"
	canvasrenderer "github.com/ByLCY/posterkit/renderer/canvas"
	"github.com/ByLCY/posterkit/renderer/pptx"
)

// Version 在构建时通过 -ldflags 注入。
var Version = "dev"

func main() {
	input := flag.String("in", "examples/poster.dsl", "海报 DSL 文件路径")
	outDir := flag.String("out", "", "输出目录，默认取配置中的 export.output_dir")
	format := flag.String("format", "both", "导出格式：png、pptx 或 both")
	configPath := flag.String("config", "", "YAML 配置文件路径")
	dataJSON := flag.String("data", "", "绑定到 DSL 的 JSON 数据")
	paramsPath := flag.String("params", "", "按节点名覆盖内容的 JSON 文件（{\"节点名\": \"文本或资源地址\"}）")
	debug := flag.String("debug", "", "快照与幻灯片文档的调试 JSON 输出路径")
	serve := flag.Bool("serve", false, "以 HTTP 服务方式运行")
	brand := flag.String("brand", "", "品牌名称")
	brief := flag.String("brief", "", "海报简介")
	template := flag.String("template", "", "模板名称")
	author := flag.String("author", "", "文档作者")
	logo := flag.String("logo", "", "替换 role 为 logo 的媒体节点的资源地址")
	scale := flag.Float64("scale", 0, "PNG 每个海报像素对应的位图像素数，默认取配置")
	texts := map[string]string{}
	flag.Func("text", "更新单个文本节点，格式 名称=文本，可重复", func(v string) error {
		name, text, ok := strings.Cut(v, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return fmt.Errorf("需要 名称=文本 格式")
		}
		texts[strings.TrimSpace(name)] = text
		return nil
	})
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	if *outDir != "" {
		cfg.Export.OutputDir = *outDir
	}
	if *scale > 0 {
		cfg.Export.Scale = *scale
	}
	if cfg.Assets.BaseDir == "" {
		if *serve {
			cfg.Assets.BaseDir = "."
		} else {
			cfg.Assets.BaseDir = filepath.Dir(*input)
		}
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("配置无效: %v", err)
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)
	preparer, exporter := newPipeline(cfg, logger)

	if *serve {
		if err := runServer(cfg, &api.Dependencies{
			Preparer: preparer,
			Exporter: exporter,
			Logger:   logger,
			Version:  Version,
		}); err != nil {
			log.Fatalf("服务异常退出: %v", err)
		}
		return
	}

	src, err := loadSource(*input, *dataJSON, *paramsPath)
	if err != nil {
		log.Fatalf("%v", err)
	}
	src.Texts = texts
	src.Logo = *logo
	src.Info = export.Info{Template: *template, Brand: *brand, Brief: *brief, Author: *author}

	written, err := run(context.Background(), preparer, exporter, src, *format, cfg.Export.OutputDir, *debug)
	if err != nil {
		log.Fatalf("导出失败: %v", err)
	}
	for _, path := range written {
		fmt.Printf("已导出：%s\n", path)
	}
}

// newPipeline 按配置组装资源读取、栅格渲染与 PPTX 序列化。
func newPipeline(cfg config.Config, logger *log.Logger) (*export.Preparer, *export.Exporter) {
	loader := &assets.Loader{
		BaseDir:  cfg.Assets.BaseDir,
		Timeout:  cfg.Assets.Timeout,
		MaxBytes: cfg.Assets.MaxBytes,

		DisableFiles:  !cfg.Assets.AllowFiles,
		DisableRemote: !cfg.Assets.AllowRemote,
		AllowedHosts:  cfg.Assets.AllowedHosts,
	}
	exporter := export.New(export.Options{
		Snapshotter: canvasrenderer.NewRenderer(canvasrenderer.Options{Scale: cfg.Export.Scale, Source: loader}),
		Writer:      pptx.NewWriter(pptx.Options{Source: loader}),
		Logger:      logger,
		PNGName:     cfg.Export.PNGName,
		PPTXName:    cfg.Export.PPTXName,
	})
	return &export.Preparer{Prober: loader, Author: cfg.Export.Author}, exporter
}

func loadSource(inputPath, dataJSON, paramsPath string) (export.Source, error) {
	var src export.Source
	content, err := os.ReadFile(inputPath)
	if err != nil {
		return src, fmt.Errorf("无法读取 DSL 文件 %s: %w", inputPath, err)
	}
	src.DSL = string(content)

	if dataJSON != "" {
		if err := json.Unmarshal([]byte(dataJSON), &src.Data); err != nil {
			return src, fmt.Errorf("解析 data JSON 失败: %w", err)
		}
	}
	if paramsPath != "" {
		raw, err := os.ReadFile(paramsPath)
		if err != nil {
			return src, fmt.Errorf("无法读取参数文件 %s: %w", paramsPath, err)
		}
		if err := json.Unmarshal(raw, &src.Params); err != nil {
			return src, fmt.Errorf("解析参数文件失败: %w", err)
		}
	}
	return src, nil
}

// run 串联构建与导出，返回写出的文件路径。
func run(ctx context.Context, preparer *export.Preparer, exporter *export.Exporter, src export.Source, format, outDir, debugPath string) ([]string, error) {
	var exports []func(context.Context, export.Request) (*export.Artifact, error)
	switch format {
	case "png":
		exports = append(exports, exporter.ExportPNG)
	case "pptx":
		exports = append(exports, exporter.ExportPPTX)
	case "both":
		exports = append(exports, exporter.ExportPNG, exporter.ExportPPTX)
	default:
		return nil, fmt.Errorf("不支持的导出格式 %q", format)
	}

	req, err := preparer.Prepare(ctx, src)
	if err != nil {
		return nil, err
	}
	if debugPath != "" {
		if err := writeDebug(req, debugPath); err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("创建输出目录失败: %w", err)
	}
	var written []string
	for _, fn := range exports {
		art, err := fn(ctx, req)
		if err != nil {
			return written, err
		}
		path := filepath.Join(outDir, art.Filename)
		if err := os.WriteFile(path, art.Data, 0o644); err != nil {
			return written, fmt.Errorf("写入 %s 失败: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}

func writeDebug(req export.Request, debugPath string) error {
	if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	dump := map[string]any{
		"request":  req.ID,
		"poster":   req.Poster(),
		"document": req.Document(),
	}
	if err := layout.WriteDebugJSON(dump, debugPath); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}

func runServer(cfg config.Config, deps *api.Dependencies) error {
	e := api.NewServer(cfg.Server, deps)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		deps.Logger.Printf("posterkit %s 监听 %s", deps.Version, cfg.Server.Addr)
		if err := e.Start(cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
