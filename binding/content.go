package binding

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ByLCY/posterkit/layout"
)

// Diagnostic 描述一次未能应用的内容更新，处理会继续进行。
type Diagnostic struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.Name, d.Message)
}

// Bind 对快照中所有文本节点执行 ${path} 插值，data 通常是解码后的 JSON 值。
func Bind(poster *layout.Poster, data any) {
	if poster == nil || data == nil {
		return
	}
	for i := range poster.Children {
		node := &poster.Children[i]
		if node.Kind == layout.KindText && node.Text != "" {
			node.Text = Interpolate(node.Text, data)
		}
	}
}

// Apply 按节点名称更新内容：文本节点替换文本，媒体节点替换资源并清空固有尺寸（需要重新探测）。
// 更新按名称排序依次处理，找不到的名称记入诊断并跳过。
func Apply(poster *layout.Poster, params map[string]string) []Diagnostic {
	if poster == nil || len(params) == 0 {
		return nil
	}
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var diags []Diagnostic
	for _, name := range names {
		idx, ok := poster.Find(name)
		if !ok {
			diags = append(diags, Diagnostic{Name: name, Message: "节点不存在，已跳过"})
			continue
		}
		node := &poster.Children[idx]
		value := params[name]
		if node.IsMedia() {
			setSource(node, value)
			continue
		}
		node.Text = value
	}
	return diags
}

// UpdateText 只允许更新文本节点，目标为媒体节点时返回错误。
func UpdateText(poster *layout.Poster, name, text string) error {
	idx, ok := poster.Find(name)
	if !ok {
		return fmt.Errorf("节点 %s 不存在", name)
	}
	node := &poster.Children[idx]
	if node.IsMedia() {
		return fmt.Errorf("节点 %s 是媒体节点，不能更新文本", name)
	}
	node.Text = text
	return nil
}

// ReplaceRole 把带有指定角色的所有媒体节点替换为新的资源，返回被替换的节点数量。
func ReplaceRole(poster *layout.Poster, role, src string) int {
	if poster == nil || role == "" || src == "" {
		return 0
	}
	count := 0
	for i := range poster.Children {
		node := &poster.Children[i]
		if node.Role != role || !node.IsMedia() {
			continue
		}
		setSource(node, src)
		count++
	}
	return count
}

// ComponentsPrompt 列出带有 prompt 的节点，每行一个 `name: prompt`，用于向生成服务描述可替换组件。
func ComponentsPrompt(poster *layout.Poster) string {
	if poster == nil {
		return ""
	}
	var lines []string
	for _, node := range poster.Children {
		if node.Prompt == "" {
			continue
		}
		lines = append(lines, node.Name+": "+node.Prompt)
	}
	return strings.Join(lines, "\n")
}

func setSource(node *layout.VisualNode, src string) {
	if node.Media.Source == src {
		return
	}
	node.Media.Source = src
	node.Media.NaturalWidth = 0
	node.Media.NaturalHeight = 0
}
