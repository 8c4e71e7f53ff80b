// Package export 串联快照、文档组装与序列化，产出可下载的 PNG 与 PPTX。
package export

import (
	"strings"

	"github.com/google/uuid"

	"github.com/ByLCY/posterkit/layout"
	"github.com/ByLCY/posterkit/slide"
)

// DefaultAuthor 在请求与海报都未指定作者时使用。
const DefaultAuthor = "PosterGen"

// Info 是触发导出时选定的模板、品牌与简介。
type Info struct {
	Template string `json:"template" yaml:"template"`
	Brand    string `json:"brand" yaml:"brand"`
	Brief    string `json:"brief" yaml:"brief"`
	Author   string `json:"author" yaml:"author"`
}

// Request 是一次导出的不可变输入，在触发时构造并沿整个流程传递。
type Request struct {
	ID     string
	Info   Info
	poster *layout.Poster
}

// NewRequest 深拷贝快照，之后对原快照的修改不会影响本次导出。
func NewRequest(poster *layout.Poster, info Info) Request {
	return Request{
		ID:     uuid.NewString(),
		Info:   info,
		poster: poster.Clone(),
	}
}

// Poster 返回快照副本。
func (r Request) Poster() *layout.Poster {
	return r.poster.Clone()
}

// Title 形如 "<brand> <brief>. Template: <template>"；品牌与简介都为空时使用海报自身的标题。
func (r Request) Title() string {
	head := strings.TrimSpace(strings.Join(nonEmpty(r.Info.Brand, r.Info.Brief), " "))
	if head == "" && r.poster != nil {
		head = r.poster.Meta.Title
	}
	template := r.Info.Template
	if template == "" && r.poster != nil {
		template = r.poster.Meta.Template
	}
	if template == "" {
		return head
	}
	if head == "" {
		return "Template: " + template
	}
	return head + ". Template: " + template
}

// Author 依次取请求、海报元信息与默认值。
func (r Request) Author() string {
	if r.Info.Author != "" {
		return r.Info.Author
	}
	if r.poster != nil && r.poster.Meta.Author != "" {
		return r.poster.Meta.Author
	}
	return DefaultAuthor
}

// Document 组装幻灯片文档，不涉及任何 I/O。
func (r Request) Document() *slide.Document {
	if r.poster == nil {
		return nil
	}
	return slide.FromPoster(r.poster, slide.Meta{Title: r.Title(), Author: r.Author()})
}

func nonEmpty(values ...string) []string {
	out := values[:0:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
