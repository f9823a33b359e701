// Package app 把前端收集到的参数组装成一次完整的分割流程
package app

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/getcharzp/sam2-tools/mask"
	"github.com/getcharzp/sam2-tools/prompt"
)

// Mode 分割模式
type Mode int

const (
	ModeBox    Mode = iota // 框选, 可由 Request.Box 直接给出
	ModePoints             // 点选
	ModeAuto               // 自动分割, 不需要交互
)

func (m Mode) String() string {
	switch m {
	case ModeBox:
		return "box"
	case ModePoints:
		return "points"
	case ModeAuto:
		return "auto"
	default:
		return "unknown"
	}
}

// ParseMode 解析模式名称, 不区分大小写
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "box":
		return ModeBox, nil
	case "points", "point":
		return ModePoints, nil
	case "auto":
		return ModeAuto, nil
	}
	return 0, &InputError{Field: "mode", Reason: fmt.Sprintf("未知模式 %q", s)}
}

// Request 一次分割请求
type Request struct {
	Input    string      // 输入图片
	Output   string      // 输出目录, 为空时使用输入图片所在目录
	Mode     Mode        // 分割模式
	NumMasks int         // 保留的 Mask 数量 (框选/自动)
	ModelID  int         // 模型编号 1-4
	Box      *prompt.Box // 框选模式下直接给出的框, 为 nil 时交互选择
	PFM      bool        // 保存为 PFM 浮点图, 否则保存为 PNG
	Overlay  bool        // 额外保存半透明叠加图
}

// Format 落盘格式
func (r Request) Format() mask.Format {
	if r.PFM {
		return mask.FormatPFM
	}
	return mask.FormatPNG
}

// InputError 请求参数不合法, 在产生任何副作用之前返回
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("参数 %s 不合法: %s", e.Field, e.Reason)
}

// Validate 校验请求参数
func (r Request) Validate() error {
	if strings.TrimSpace(r.Input) == "" {
		return &InputError{Field: "input", Reason: "未指定输入图片"}
	}
	if r.ModelID < 1 || r.ModelID > 4 {
		return &InputError{Field: "model", Reason: fmt.Sprintf("模型编号 %d 不在 1-4 之间", r.ModelID)}
	}
	if r.Mode != ModePoints && r.NumMasks < 1 {
		return &InputError{Field: "num-masks", Reason: fmt.Sprintf("保留数量 %d 必须大于 0", r.NumMasks)}
	}
	if r.Mode < ModeBox || r.Mode > ModeAuto {
		return &InputError{Field: "mode", Reason: r.Mode.String()}
	}
	return nil
}

// ParseBox 解析 "x1,y1,x2,y2" 形式的框, 两个角点可以任意顺序
func ParseBox(s string) (prompt.Box, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return prompt.Box{}, &InputError{Field: "box", Reason: fmt.Sprintf("需要 4 个整数, 实际为 %q", s)}
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			return prompt.Box{}, &InputError{Field: "box", Reason: fmt.Sprintf("坐标 %q 不是非负整数", p)}
		}
		v[i] = n
	}
	return prompt.NewBox(v[0], v[1], v[2], v[3]), nil
}
