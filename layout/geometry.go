package layout

import "fmt"

// ResolveMediaRect 计算媒体在容器内实际显示的矩形。
//
// FitNone 原样返回容器；FitContain 保持媒体宽高比，填满一条轴并在另一条轴上居中。
// 前置条件：FitContain 时 naturalW、naturalH 必须大于 0。调用方应先检查 MediaInfo.HasNaturalSize，
// 不满足时改用 FitNone。违反前置条件属于调用方的 bug，这里直接 panic。
func ResolveMediaRect(container Rect, naturalW, naturalH float64, fit FitMode) Rect {
	switch fit {
	case FitContain:
		if naturalW <= 0 || naturalH <= 0 {
			panic(fmt.Sprintf("layout: contain 适配缺少固有尺寸 %gx%g", naturalW, naturalH))
		}
		return containRect(container, naturalW/naturalH)
	default:
		return container
	}
}

func containRect(container Rect, mediaRatio float64) Rect {
	containerRatio := container.Width / container.Height
	if mediaRatio > containerRatio {
		// 媒体相对更宽：占满宽度，垂直居中
		h := container.Width / mediaRatio
		return Rect{
			X:      container.X,
			Y:      container.Y + (container.Height-h)/2,
			Width:  container.Width,
			Height: h,
		}
	}
	// 媒体相对更高（或等比）：占满高度，水平居中
	w := container.Height * mediaRatio
	return Rect{
		X:      container.X + (container.Width-w)/2,
		Y:      container.Y,
		Width:  w,
		Height: container.Height,
	}
}

// DisplayedRect 返回媒体节点的显示矩形；固有尺寸不可用时退化为 FitNone。
func DisplayedRect(node VisualNode) Rect {
	if !node.IsMedia() {
		return node.Rect
	}
	if node.Media.FitMode == FitContain && node.Media.HasNaturalSize() {
		return ResolveMediaRect(node.Rect, node.Media.NaturalWidth, node.Media.NaturalHeight, FitContain)
	}
	return node.Rect
}
