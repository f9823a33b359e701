package output

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"path/filepath"

	sam2tools "github.com/getcharzp/sam2-tools"
	"github.com/getcharzp/sam2-tools/mask"
	"github.com/up-zero/gotool/imageutil"
)

// OverlayColor 叠加图中前景的颜色
var OverlayColor = color.RGBA{R: 255, A: 255}

// overlayAlpha 前景叠加的不透明度 (0-255)
const overlayAlpha = 128

// RenderOverlay 将 Mask 以半透明红色叠加到原图上
//
// # Params:
//
//	src: 原图
//	m: 与原图同尺寸的 Mask
//	caption: 左上角标注的文本, 为空或 drawer 为 nil 时不标注
//	drawer: 文本绘制工具
func RenderOverlay(src image.Image, m *mask.Mask, caption string, drawer *sam2tools.TextDrawer) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)

	for y := 0; y < min(m.Height, b.Dy()); y++ {
		for x := 0; x < min(m.Width, b.Dx()); x++ {
			if !m.Foreground(x, y) {
				continue
			}
			dst.SetRGBA(x, y, blend(dst.RGBAAt(x, y), OverlayColor, overlayAlpha))
		}
	}

	if drawer != nil && caption != "" {
		drawer.DrawLabel(dst, caption, 4, 4, color.White, color.RGBA{A: 160})
	}
	return dst
}

// WriteOverlay 写出 <base>_overlay.jpg
func (w *Writer) WriteOverlay(src image.Image, best mask.Scored, drawer *sam2tools.TextDrawer) (string, error) {
	path, err := UniquePath(filepath.Join(w.Dir, w.Base+"_overlay.jpg"))
	if err != nil {
		return "", err
	}
	img := RenderOverlay(src, best.Mask, fmt.Sprintf("score %.3f", best.Score), drawer)
	if err := imageutil.Save(path, img, 95); err != nil {
		return "", fmt.Errorf("写出叠加图失败: %w", err)
	}
	w.Logger.Debug("overlay saved", "path", path)
	return path, nil
}

func blend(dst, src color.RGBA, alpha uint8) color.RGBA {
	a := uint16(alpha)
	mix := func(d, s uint8) uint8 {
		return uint8((uint16(s)*a + uint16(d)*(255-a)) / 255)
	}
	return color.RGBA{
		R: mix(dst.R, src.R),
		G: mix(dst.G, src.G),
		B: mix(dst.B, src.B),
		A: 255,
	}
}
