// Package form 把桌面表单的字段转换为分割请求
//
// 表单控件在 tkform 中实现, 这里只做解析和校验, 不依赖 Tk
package form

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/getcharzp/sam2-tools/internal/app"
	"github.com/getcharzp/sam2-tools/internal/config"
)

// 下拉框选项
var (
	ModelChoices   = modelNames()
	ModeChoices    = []string{"Box", "Auto", "Points"}
	FormatChoices  = []string{"PNG", "PFM"}
	OverlayChoices = []string{"No", "Yes"}
)

// Fields 表单原始输入
type Fields struct {
	Input    string
	Output   string
	Model    string
	Mode     string
	NumMasks string
	Format   string
	Overlay  string
	Box      string // 可选, x1,y1,x2,y2
}

// Defaults 表单初始值
func Defaults() Fields {
	return Fields{
		Model:    ModelChoices[0],
		Mode:     ModeChoices[0],
		NumMasks: "3",
		Format:   FormatChoices[0],
		Overlay:  OverlayChoices[0],
	}
}

// Request 解析并校验表单
func (f Fields) Request() (app.Request, error) {
	req := app.Request{
		Input:   strings.TrimSpace(f.Input),
		Output:  strings.TrimSpace(f.Output),
		PFM:     f.Format == "PFM",
		Overlay: f.Overlay == "Yes",
	}

	id, ok := config.ModelByName(f.Model)
	if !ok {
		return app.Request{}, &app.InputError{Field: "model", Reason: fmt.Sprintf("未知模型 %q", f.Model)}
	}
	req.ModelID = id

	mode, err := app.ParseMode(f.Mode)
	if err != nil {
		return app.Request{}, err
	}
	req.Mode = mode

	n, err := strconv.Atoi(strings.TrimSpace(f.NumMasks))
	if err != nil {
		return app.Request{}, &app.InputError{Field: "num-masks", Reason: fmt.Sprintf("%q 不是整数", f.NumMasks)}
	}
	req.NumMasks = n

	if s := strings.TrimSpace(f.Box); s != "" && mode == app.ModeBox {
		b, err := app.ParseBox(s)
		if err != nil {
			return app.Request{}, err
		}
		req.Box = &b
	}

	if err := req.Validate(); err != nil {
		return app.Request{}, err
	}
	return req, nil
}

// Index 选项在列表中的位置, 找不到时为 0
func Index(choices []string, v string) int {
	for i, c := range choices {
		if c == v {
			return i
		}
	}
	return 0
}

func modelNames() []string {
	names := make([]string, 0, len(config.Models))
	for _, m := range config.Models {
		names = append(names, m.Name)
	}
	return names
}
