// Package mask 定义分割结果、排序与落盘编码
package mask

import (
	"errors"
	"image"
	"image/color"
)

// ErrEmptyMask 宽或高为 0 的 Mask
var ErrEmptyMask = errors.New("mask 宽高不能为 0")

// Mask 与原图同尺寸的逐像素结果, 按行存储, 首行为图像顶部
//
// 取值可以是阈值化后的 {0, 1}, 也可以是模型输出的原始 logits
type Mask struct {
	Width  int
	Height int
	Data   []float32
}

// New 创建全 0 的 Mask
func New(width, height int) *Mask {
	return &Mask{
		Width:  width,
		Height: height,
		Data:   make([]float32, width*height),
	}
}

// Empty 宽或高为 0
func (m *Mask) Empty() bool {
	return m == nil || m.Width <= 0 || m.Height <= 0
}

// At 返回 (x, y) 处的值, 越界返回 0
func (m *Mask) At(x, y int) float32 {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return 0
	}
	return m.Data[y*m.Width+x]
}

// Set 设置 (x, y) 处的值, 越界忽略
func (m *Mask) Set(x, y int, v float32) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	m.Data[y*m.Width+x] = v
}

// Foreground (x, y) 是否属于前景 (值 > 0)
func (m *Mask) Foreground(x, y int) bool {
	return m.At(x, y) > 0
}

// Area 前景像素个数
func (m *Mask) Area() int {
	n := 0
	for _, v := range m.Data {
		if v > 0 {
			n++
		}
	}
	return n
}

// Binary 转换为单通道 8 位图, 前景 255, 背景 0
func (m *Mask) Binary() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, v := range m.Data {
		if v > 0 {
			img.Pix[i] = 255
		}
	}
	return img
}

// FromGray 由灰度图创建 Mask, 非 0 像素记为 1
func FromGray(img *image.Gray) *Mask {
	b := img.Bounds()
	m := New(b.Dx(), b.Dy())
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if img.GrayAt(b.Min.X+x, b.Min.Y+y) != (color.Gray{}) {
				m.Data[y*m.Width+x] = 1
			}
		}
	}
	return m
}

// IoU 两个 Mask 前景的交并比, 尺寸不同返回 0
func IoU(a, b *Mask) float32 {
	if a.Width != b.Width || a.Height != b.Height {
		return 0
	}
	inter, union := 0, 0
	for i := range a.Data {
		fa, fb := a.Data[i] > 0, b.Data[i] > 0
		if fa && fb {
			inter++
		}
		if fa || fb {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float32(inter) / float32(union)
}

// Scored 带置信度的 Mask, 分数只用于同一次查询内的相对排序
type Scored struct {
	Mask  *Mask
	Score float32
}
