package output

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/getcharzp/sam2-tools/mask"
)

// Artifact 已写出的文件
type Artifact struct {
	Path   string
	Format mask.Format
	Score  float32
}

// Writer 将 Mask 依次写入输出目录
//
// 逐个写出, 中途失败时已写出的文件保留在磁盘上
type Writer struct {
	Dir    string      // 输出目录
	Base   string      // 文件名前缀, 一般为输入图片的文件名 (不含扩展名)
	Format mask.Format // 落盘格式
	Logger *slog.Logger
}

// NewWriter 创建写出器, 输出目录不存在时创建
func NewWriter(dir, base string, format mask.Format, logger *slog.Logger) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建输出目录失败: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Writer{Dir: dir, Base: base, Format: format, Logger: logger}, nil
}

// WriteSingle 写出单个结果, 文件名为 <base>_mask.<ext>
func (w *Writer) WriteSingle(m mask.Scored) (Artifact, error) {
	return w.write(fmt.Sprintf("%s_mask%s", w.Base, w.Format.Ext()), m)
}

// WriteAll 按顺序写出多个结果, 文件名为 <base>_mask_<i>.<ext>
func (w *Writer) WriteAll(masks []mask.Scored) ([]Artifact, error) {
	artifacts := make([]Artifact, 0, len(masks))
	for i, m := range masks {
		a, err := w.write(fmt.Sprintf("%s_mask_%d%s", w.Base, i, w.Format.Ext()), m)
		if err != nil {
			return artifacts, err
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, nil
}

func (w *Writer) write(name string, m mask.Scored) (Artifact, error) {
	path, err := UniquePath(filepath.Join(w.Dir, name))
	if err != nil {
		return Artifact{}, err
	}
	if err := mask.Encode(m.Mask, path, w.Format); err != nil {
		return Artifact{}, fmt.Errorf("写出 %s 失败: %w", path, err)
	}
	w.Logger.Debug("mask saved", "path", path, "format", w.Format.String(), "score", m.Score)
	return Artifact{Path: path, Format: w.Format, Score: m.Score}, nil
}
