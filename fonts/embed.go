// Package fonts 提供渲染所用的内置字体。字体来自 golang.org/x/image/font/gofont，无需额外文件。
package fonts

import (
	"fmt"
	"strings"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
)

// Face 标识同一字族中的一个字形变体。
type Face struct {
	Bold   bool
	Italic bool
}

// Name 返回变体名称，例如 "Go-BoldItalic"。
func (f Face) Name() string {
	switch {
	case f.Bold && f.Italic:
		return "Go-BoldItalic"
	case f.Bold:
		return "Go-Bold"
	case f.Italic:
		return "Go-Italic"
	default:
		return "Go-Regular"
	}
}

var builtin = map[string][]byte{
	"Go-Regular":    goregular.TTF,
	"Go-Bold":       gobold.TTF,
	"Go-Italic":     goitalic.TTF,
	"Go-BoldItalic": gobolditalic.TTF,
}

// FaceData 返回变体对应的 TTF 数据。
func FaceData(f Face) []byte {
	return builtin[f.Name()]
}

// Load 返回内置字体的字节数据，name 可写为 "embed:Go-Bold" 或 "Go-Bold.ttf"。
func Load(name string) ([]byte, error) {
	name = strings.TrimPrefix(name, "embed:")
	name = strings.TrimSuffix(name, ".ttf")
	data, ok := builtin[name]
	if !ok {
		return nil, fmt.Errorf("读取内置字体 %s 失败: 不存在", name)
	}
	return data, nil
}
