package mask

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ErrUnsupportedPFM 非单通道 (PF) 或格式错误的 PFM
var ErrUnsupportedPFM = errors.New("不支持的 PFM 文件")

// WritePFM 按 Portable Float Map 格式写出单通道 Mask
//
// 头部: "Pf\n<width> <height>\n<scale>\n", scale 为负表示小端, 为正表示大端;
// 之后是 width*height 个 float32, 行顺序自底向上, 每行从左到右
func WritePFM(w io.Writer, m *Mask, order binary.ByteOrder) error {
	if m.Empty() {
		return ErrEmptyMask
	}

	scale := 1.0
	if littleEndian(order) {
		scale = -1.0
	}
	if _, err := fmt.Fprintf(w, "Pf\n%d %d\n%f\n", m.Width, m.Height, scale); err != nil {
		return fmt.Errorf("写入 PFM 头部失败: %w", err)
	}

	row := make([]byte, 4*m.Width)
	for y := m.Height - 1; y >= 0; y-- {
		line := m.Data[y*m.Width : (y+1)*m.Width]
		for x, v := range line {
			order.PutUint32(row[4*x:], math.Float32bits(v))
		}
		if _, err := w.Write(row); err != nil {
			return fmt.Errorf("写入 PFM 数据失败: %w", err)
		}
	}
	return nil
}

// littleEndian 按实际字节布局判断, binary.NativeEndian 等也能正确识别
func littleEndian(order binary.ByteOrder) bool {
	var b [2]byte
	order.PutUint16(b[:], 1)
	return b[0] == 1
}

// ReadPFM 读取单通道 PFM, 返回按自然顺序 (首行为顶部) 排列的 Mask
func ReadPFM(r io.Reader) (*Mask, error) {
	br := bufio.NewReader(r)

	magic, err := readToken(br)
	if err != nil {
		return nil, fmt.Errorf("读取 PFM 头部失败: %w", err)
	}
	if magic != "Pf" {
		return nil, fmt.Errorf("%w: magic %q", ErrUnsupportedPFM, magic)
	}

	var fields [3]string
	for i := range fields {
		if fields[i], err = readToken(br); err != nil {
			return nil, fmt.Errorf("读取 PFM 头部失败: %w", err)
		}
	}
	width, err := strconv.Atoi(fields[0])
	if err != nil || width <= 0 {
		return nil, fmt.Errorf("%w: width %q", ErrUnsupportedPFM, fields[0])
	}
	height, err := strconv.Atoi(fields[1])
	if err != nil || height <= 0 {
		return nil, fmt.Errorf("%w: height %q", ErrUnsupportedPFM, fields[1])
	}
	scale, err := strconv.ParseFloat(fields[2], 64)
	if err != nil || scale == 0 {
		return nil, fmt.Errorf("%w: scale %q", ErrUnsupportedPFM, fields[2])
	}

	var order binary.ByteOrder = binary.BigEndian
	if scale < 0 {
		order = binary.LittleEndian
	}

	m := New(width, height)
	row := make([]byte, 4*width)
	for y := height - 1; y >= 0; y-- {
		if _, err := io.ReadFull(br, row); err != nil {
			return nil, fmt.Errorf("读取 PFM 数据失败: %w", err)
		}
		line := m.Data[y*width : (y+1)*width]
		for x := range line {
			line[x] = math.Float32frombits(order.Uint32(row[4*x:]))
		}
	}
	return m, nil
}

// readToken 读取一个空白分隔的头部字段, 并吞掉紧随其后的一个空白字符
func readToken(br *bufio.Reader) (string, error) {
	var sb strings.Builder
	for {
		c, err := br.ReadByte()
		if err != nil {
			if err == io.EOF && sb.Len() > 0 {
				return sb.String(), nil
			}
			return "", err
		}
		if c == ' ' || c == '\n' || c == '\r' || c == '\t' {
			if sb.Len() == 0 {
				continue
			}
			return sb.String(), nil
		}
		sb.WriteByte(c)
	}
}
