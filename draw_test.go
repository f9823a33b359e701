package sam2tools

import (
	"image"
	"image/color"
	"testing"

	"golang.org/x/image/font/gofont/goregular"
)

func TestTextDrawer_DrawLabel(t *testing.T) {
	d, err := NewTextDrawerFromBytes(goregular.TTF)
	if err != nil {
		t.Fatalf("创建 TextDrawer 失败: %v", err)
	}
	defer d.Close()

	img := image.NewRGBA(image.Rect(0, 0, 200, 60))
	bg := color.RGBA{A: 255}
	rect := d.DrawLabel(img, "score 0.97", 4, 4, color.White, bg)
	if rect.Empty() {
		t.Fatal("标签区域为空")
	}
	if got := img.RGBAAt(rect.Min.X, rect.Min.Y); got != bg {
		t.Fatalf("标签底色错误: %v", got)
	}

	lit := false
	for y := rect.Min.Y; y < rect.Max.Y && !lit; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			if img.RGBAAt(x, y).R > 0 {
				lit = true
				break
			}
		}
	}
	if !lit {
		t.Fatal("标签文字未绘制")
	}
}

func TestTextDrawer_SetSizeKeepsFace(t *testing.T) {
	d, err := NewTextDrawerFromBytes(goregular.TTF)
	if err != nil {
		t.Fatalf("创建 TextDrawer 失败: %v", err)
	}
	defer d.Close()

	if err := d.SetSize(24); err != nil {
		t.Fatalf("调整字体大小失败: %v", err)
	}
	face := d.face
	if err := d.SetSize(24); err != nil {
		t.Fatalf("调整字体大小失败: %v", err)
	}
	if d.face != face {
		t.Fatal("相同字号不应重建 Face")
	}
}

func TestDefaultLibraryPath(t *testing.T) {
	if DefaultLibraryPath() == "" {
		t.Fatal("默认动态库路径为空")
	}
}

func TestOnnxConfig_NewRequiresLibrary(t *testing.T) {
	cfg := new(OnnxConfig)
	if err := cfg.New(); err != ErrEmptyLibraryPath {
		t.Fatalf("期望 ErrEmptyLibraryPath, 实际: %v", err)
	}
	cfg.OnnxRuntimeLibPath = t.TempDir() + "/missing.so"
	if err := cfg.New(); err == nil {
		t.Fatal("动态库不存在时应返回错误")
	}
}
