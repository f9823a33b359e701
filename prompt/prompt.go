// Package prompt 定义交互式分割的提示: 前景/背景点与框选
package prompt

import (
	"fmt"
	"image"
)

// Label 点的标签, 取值与 SAM2 decoder 的 input_labels 一致
type Label int

const (
	Background Label = 0 // 背景/排除
	Foreground Label = 1 // 前景/点击
)

func (l Label) String() string {
	switch l {
	case Background:
		return "background"
	case Foreground:
		return "foreground"
	default:
		return fmt.Sprintf("Label(%d)", int(l))
	}
}

// Point 带标签的像素坐标, 创建后不可变
//
// 不做越界检查, 越界的点原样交给模型处理
type Point struct {
	X, Y  int
	Label Label
}

// NewPoint 创建提示点
func NewPoint(x, y int, label Label) Point {
	return Point{X: x, Y: y, Label: label}
}

// Box 框选区域, 经 Normalize 后满足 X1 <= X2 且 Y1 <= Y2
type Box struct {
	X1, Y1, X2, Y2 int
}

// NewBox 由任意顺序的两个角点创建规范化的框
func NewBox(ax, ay, bx, by int) Box {
	return Box{X1: ax, Y1: ay, X2: bx, Y2: by}.Normalize()
}

// Normalize 返回 (min_x, min_y, max_x, max_y) 形式的框, 幂等
func (b Box) Normalize() Box {
	return Box{
		X1: min(b.X1, b.X2),
		Y1: min(b.Y1, b.Y2),
		X2: max(b.X1, b.X2),
		Y2: max(b.Y1, b.Y2),
	}
}

// Degenerate 宽或高为 0 的框, 仍是合法输入, 是否拒绝由模型决定
func (b Box) Degenerate() bool {
	n := b.Normalize()
	return n.X1 == n.X2 || n.Y1 == n.Y2
}

// Rect 转换为 image.Rectangle
func (b Box) Rect() image.Rectangle {
	n := b.Normalize()
	return image.Rect(n.X1, n.Y1, n.X2, n.Y2)
}

func (b Box) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", b.X1, b.Y1, b.X2, b.Y2)
}

// Prompt 一次模型查询的提示: 点集或框, 两者都为空表示自动分割
type Prompt struct {
	Points []Point
	Box    *Box
}

// Empty 没有任何用户提示
func (p Prompt) Empty() bool {
	return len(p.Points) == 0 && p.Box == nil
}

// Foreground 返回前景点
func (p Prompt) Foreground() []Point {
	return p.filter(Foreground)
}

// Background 返回背景点
func (p Prompt) Background() []Point {
	return p.filter(Background)
}

func (p Prompt) filter(label Label) []Point {
	var out []Point
	for _, pt := range p.Points {
		if pt.Label == label {
			out = append(out, pt)
		}
	}
	return out
}

// FromPoints 由前景点和背景点组成提示, 前景在前
func FromPoints(fg, bg []Point) Prompt {
	pts := make([]Point, 0, len(fg)+len(bg))
	pts = append(pts, fg...)
	pts = append(pts, bg...)
	return Prompt{Points: pts}
}

// FromBox 由框组成提示
func FromBox(b Box) Prompt {
	n := b.Normalize()
	return Prompt{Box: &n}
}
