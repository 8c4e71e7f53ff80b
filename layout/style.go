package layout

import (
	"image/color"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// 样式归一化：把计算样式转换为与目标格式无关的属性。所有函数都不会失败，异常输入返回固定的回退值。

const fallbackHex = "#000000"

var (
	numberPattern = regexp.MustCompile(`\d*\.?\d+`)
	rgbaPattern   = regexp.MustCompile(`rgba?\(\s*([\d.]+)\s*,\s*([\d.]+)\s*,\s*([\d.]+)\s*(?:,\s*([\d.]+)(%?)\s*)?\)`)
)

// ParseColor 取颜色字符串中的前三个数值分量，格式化为 #rrggbb。不足三个分量时返回 #000000。
func ParseColor(s string) string {
	nums := numberPattern.FindAllString(s, 4)
	if len(nums) < 3 {
		return fallbackHex
	}
	var channels [3]float64
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(nums[i], 64)
		if err != nil {
			return fallbackHex
		}
		channels[i] = math.Round(clamp(v, 0, 255)) / 255
	}
	return colorful.Color{R: channels[0], G: channels[1], B: channels[2]}.Hex()
}

// ParseAlpha 读取 rgba(...) 中显式的第四个分量，返回透明度百分比 round((1-alpha)*100)。
// 没有 alpha 分量或无法解析时返回 0（完全不透明）。
func ParseAlpha(s string) int {
	m := rgbaPattern.FindStringSubmatch(s)
	if m == nil || m[4] == "" {
		return 0
	}
	alpha, err := strconv.ParseFloat(m[4], 64)
	if err != nil {
		return 0
	}
	if m[5] == "%" {
		alpha /= 100
	}
	alpha = clamp(alpha, 0, 1)
	return int(math.Round((1 - alpha) * 100))
}

// ToNRGBA 组合 ParseColor 与 ParseAlpha，供光栅渲染器使用。
func ToNRGBA(s string) color.NRGBA {
	c, err := colorful.Hex(ParseColor(s))
	if err != nil {
		return color.NRGBA{A: 255}
	}
	r, g, b := c.RGB255()
	opacity := float64(100-ParseAlpha(s)) / 100
	return color.NRGBA{R: r, G: g, B: b, A: uint8(math.Round(opacity * 255))}
}

// HexDigits 去掉 # 前缀并转为大写，便于写入 srgbClr。
func HexDigits(hex string) string {
	return strings.ToUpper(strings.TrimPrefix(hex, "#"))
}

// NormalizeWeight 判断字重是否为粗体：关键字 bold，或数值不小于 700。
func NormalizeWeight(raw string) bool {
	v := strings.TrimSpace(strings.ToLower(raw))
	if v == "bold" {
		return true
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return false
	}
	return n >= 700
}

// NormalizeItalic 仅在 font-style 为 italic 时返回 true。
func NormalizeItalic(raw string) bool {
	return strings.TrimSpace(strings.ToLower(raw)) == "italic"
}

// NormalizeUnderline 判断装饰线中是否包含 underline，其它装饰（如删除线）忽略。
func NormalizeUnderline(raw string) bool {
	return strings.Contains(strings.ToLower(raw), "underline")
}

// NormalizeAlign 返回 left/right/center/justify 之一，未设置或无法识别时为 left。
func NormalizeAlign(raw string) string {
	switch v := strings.TrimSpace(strings.ToLower(raw)); v {
	case "left", "right", "center", "justify":
		return v
	case "start":
		return "left"
	case "end":
		return "right"
	default:
		return "left"
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
