// Package assets 负责读取海报引用的媒体资源：data: URI、本地文件与 http(s) 地址。
package assets

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

const (
	DefaultTimeout  = 15 * time.Second
	DefaultMaxBytes = 20 << 20
)

var (
	// ErrTooLarge 表示资源超过 Loader.MaxBytes。
	ErrTooLarge = errors.New("资源超过大小上限")
	// ErrForbidden 表示资源地址被 Loader 的访问限制拒绝。
	ErrForbidden = errors.New("资源地址不被允许")
)

// Asset 是读取到内存中的资源。
type Asset struct {
	Data []byte
	MIME string
	// Ext 带前导点，例如 ".png"。
	Ext string
}

// IsImage 判断资源是否为图片。
func (a *Asset) IsImage() bool {
	return strings.HasPrefix(a.MIME, "image/")
}

// Loader 读取资源。零值可用：相对路径按当前目录解析，http 使用默认客户端。
// 设置 BaseDir 后本地文件只能位于该目录内，绝对路径与跳出目录的相对路径都会被拒绝。
type Loader struct {
	BaseDir  string
	Client   *http.Client
	Timeout  time.Duration
	MaxBytes int64

	DisableFiles  bool
	DisableRemote bool
	// AllowedHosts 非空时只允许访问这些主机（含重定向目标）。
	AllowedHosts []string
}

// Load 根据 src 的形式读取资源并识别 MIME 类型。
func (l *Loader) Load(ctx context.Context, src string) (*Asset, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, fmt.Errorf("资源地址为空")
	}

	var (
		data []byte
		err  error
	)
	switch {
	case strings.HasPrefix(src, "data:"):
		data, err = DecodeDataURI(src)
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		data, err = l.fetch(ctx, src)
	default:
		data, err = l.readFile(src)
	}
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > l.maxBytes() {
		return nil, fmt.Errorf("%s: %w", shorten(src), ErrTooLarge)
	}

	mt := mimetype.Detect(data)
	return &Asset{Data: data, MIME: mt.String(), Ext: mt.Extension()}, nil
}

// Probe 读取图片的固有像素尺寸，实现 layout.Prober。
func (l *Loader) Probe(ctx context.Context, src string) (int, int, error) {
	asset, err := l.Load(ctx, src)
	if err != nil {
		return 0, 0, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(asset.Data))
	if err != nil {
		return 0, 0, fmt.Errorf("读取图片尺寸失败（%s）: %w", asset.MIME, err)
	}
	return cfg.Width, cfg.Height, nil
}

func (l *Loader) fetch(ctx context.Context, src string) ([]byte, error) {
	if l.DisableRemote {
		return nil, fmt.Errorf("%s: 远程资源已禁用: %w", shorten(src), ErrForbidden)
	}
	u, err := url.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("无效的资源地址 %s: %w", shorten(src), err)
	}
	if !l.hostAllowed(u.Hostname()) {
		return nil, fmt.Errorf("主机 %s 不在允许列表中: %w", u.Hostname(), ErrForbidden)
	}

	timeout := l.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("构造请求失败: %w", err)
	}
	resp, err := l.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("下载 %s 失败: %w", src, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("下载 %s 失败: HTTP %d", src, resp.StatusCode)
	}
	return readLimited(resp.Body, l.maxBytes(), src)
}

func (l *Loader) readFile(src string) ([]byte, error) {
	if l.DisableFiles {
		return nil, fmt.Errorf("%s: 本地文件已禁用: %w", shorten(src), ErrForbidden)
	}
	path := src
	if strings.HasPrefix(path, "file://") {
		u, err := url.Parse(path)
		if err != nil {
			return nil, fmt.Errorf("无效的文件地址 %s: %w", src, err)
		}
		path = u.Path
	}
	if l.BaseDir == "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("打开资源失败: %w", err)
		}
		defer f.Close()
		return readLimited(f, l.maxBytes(), src)
	}

	path = filepath.Clean(filepath.FromSlash(path))
	if filepath.IsAbs(path) || !filepath.IsLocal(path) {
		return nil, fmt.Errorf("%s 位于资源目录之外: %w", shorten(src), ErrForbidden)
	}
	// os.Root 同时拦截经由符号链接跳出目录的路径
	root, err := os.OpenRoot(l.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("打开资源目录失败: %w", err)
	}
	defer root.Close()
	f, err := root.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开资源失败: %w", err)
	}
	defer f.Close()
	return readLimited(f, l.maxBytes(), src)
}

func (l *Loader) hostAllowed(host string) bool {
	if len(l.AllowedHosts) == 0 {
		return true
	}
	for _, allowed := range l.AllowedHosts {
		if strings.EqualFold(strings.TrimSpace(allowed), host) {
			return true
		}
	}
	return false
}

func (l *Loader) client() *http.Client {
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	if len(l.AllowedHosts) == 0 {
		return client
	}
	restricted := *client
	next := client.CheckRedirect
	restricted.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if !l.hostAllowed(req.URL.Hostname()) {
			return fmt.Errorf("重定向到 %s 不被允许: %w", req.URL.Hostname(), ErrForbidden)
		}
		if next != nil {
			return next(req, via)
		}
		if len(via) >= 10 {
			return errors.New("重定向次数过多")
		}
		return nil
	}
	return &restricted
}

func (l *Loader) maxBytes() int64 {
	if l.MaxBytes <= 0 {
		return DefaultMaxBytes
	}
	return l.MaxBytes
}

func readLimited(r io.Reader, limit int64, src string) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("读取 %s 失败: %w", shorten(src), err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%s: %w", shorten(src), ErrTooLarge)
	}
	return data, nil
}

// DecodeDataURI 解析 data:[<mediatype>][;base64],<data>。
func DecodeDataURI(src string) ([]byte, error) {
	rest, ok := strings.CutPrefix(src, "data:")
	if !ok {
		return nil, fmt.Errorf("不是 data URI")
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, fmt.Errorf("data URI 缺少逗号分隔符")
	}
	if strings.HasSuffix(strings.ToLower(header), ";base64") {
		payload = strings.Map(func(r rune) rune {
			if r == ' ' || r == '\n' || r == '\r' || r == '\t' {
				return -1
			}
			return r
		}, payload)
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			// 部分生成器会省略 padding
			data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
			if err != nil {
				return nil, fmt.Errorf("base64 解码失败: %w", err)
			}
		}
		return data, nil
	}
	data, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("data URI 解码失败: %w", err)
	}
	return []byte(data), nil
}

func shorten(src string) string {
	if len(src) > 64 {
		return src[:64] + "..."
	}
	return src
}
