package export

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/ByLCY/posterkit/binding"
	"github.com/ByLCY/posterkit/dsl"
	"github.com/ByLCY/posterkit/layout"
)

// ErrInvalidSource 表示海报描述无法解析或构建，属于调用方输入错误。
var ErrInvalidSource = errors.New("海报描述无效")

// LogoRole 是品牌标志节点使用的角色名。
const LogoRole = "logo"

// Source 是一次导出的原始输入：DSL 文本（或现成的快照来源）、绑定数据、按节点名覆盖的内容以及品牌信息。
type Source struct {
	DSL string
	// Provider 非空时直接从它取快照，忽略 DSL。
	Provider layout.StyleProvider
	Data     any
	// Params 按节点名更新内容：文本节点替换文本，媒体节点替换资源。
	Params map[string]string
	// Texts 只更新文本节点，指向媒体节点或不存在的节点时记为诊断。
	Texts map[string]string
	Logo  string
	Info  Info
}

// Preparer 把 Source 整理为导出请求。
type Preparer struct {
	Prober layout.Prober
	// Author 在请求与海报都未指定作者时使用。
	Author string
}

// Prepare 解析并构建快照，依次应用数据绑定、节点参数、文本更新与品牌标志，最后探测媒体固有尺寸。
// 替换过资源的媒体节点会重新探测，所以探测放在所有修改之后统一进行。
func (p *Preparer) Prepare(ctx context.Context, src Source) (Request, error) {
	provider := src.Provider
	if provider == nil {
		doc, err := dsl.ParseString(src.DSL)
		if err != nil {
			return Request{}, fmt.Errorf("%w: 解析 DSL 失败: %w", ErrInvalidSource, err)
		}
		provider = layout.DocumentProvider{Doc: doc}
	}
	poster, err := provider.Snapshot(ctx)
	if err != nil {
		return Request{}, fmt.Errorf("%w: %w", ErrInvalidSource, err)
	}
	if poster == nil {
		return Request{}, fmt.Errorf("%w: 快照为空", ErrInvalidSource)
	}

	if src.Data != nil {
		binding.Bind(poster, src.Data)
	}
	for _, d := range binding.Apply(poster, src.Params) {
		poster.Diagnostics = append(poster.Diagnostics, d.String())
	}
	for _, name := range sortedKeys(src.Texts) {
		if err := binding.UpdateText(poster, name, src.Texts[name]); err != nil {
			poster.Diagnostics = append(poster.Diagnostics, fmt.Sprintf("%s: %v", name, err))
		}
	}
	if src.Logo != "" && binding.ReplaceRole(poster, LogoRole, src.Logo) == 0 {
		poster.Diagnostics = append(poster.Diagnostics, "logo: 海报中没有角色为 logo 的媒体节点，已忽略")
	}
	poster.Diagnostics = append(poster.Diagnostics, layout.ProbeNaturalSizes(ctx, poster, p.Prober)...)

	info := src.Info
	if info.Author == "" && poster.Meta.Author == "" {
		info.Author = p.Author
	}
	return NewRequest(poster, info), nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
