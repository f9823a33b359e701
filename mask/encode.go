package mask

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/up-zero/gotool/imageutil"
)

// Format 落盘格式
type Format int

const (
	FormatPNG Format = iota // 8 位二值图, 只保留前景/背景
	FormatPFM               // 32 位浮点图, 保留原始值
)

// Ext 文件扩展名 (含点)
func (f Format) Ext() string {
	if f == FormatPFM {
		return ".pfm"
	}
	return ".png"
}

func (f Format) String() string {
	if f == FormatPFM {
		return "pfm"
	}
	return "png"
}

// Encode 将 Mask 写入 path, 成功时恰好写出一个文件
//
// # Params:
//
//	m: 待写出的 Mask
//	path: 目标路径, 调用方负责保证唯一
//	f: 落盘格式
func Encode(m *Mask, path string, f Format) error {
	if m.Empty() {
		return ErrEmptyMask
	}

	switch f {
	case FormatPFM:
		return encodePFMFile(m, path)
	default:
		if err := imageutil.Save(path, m.Binary(), 100); err != nil {
			return fmt.Errorf("写入 PNG 失败: %w", err)
		}
		return nil
	}
}

func encodePFMFile(m *Mask, path string) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建 PFM 文件失败: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("关闭 PFM 文件失败: %w", cerr)
		}
	}()

	w := bufio.NewWriter(file)
	if err := WritePFM(w, m, binary.LittleEndian); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("写入 PFM 文件失败: %w", err)
	}
	return nil
}
