// Package tkform 桌面表单, 收集一次分割请求的参数
//
// 导入该包会初始化 Tk, 只应在桌面入口中使用
package tkform

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/getcharzp/sam2-tools/internal/app"
	"github.com/getcharzp/sam2-tools/internal/form"

	tk "modernc.org/tk9.0"
)

type view struct {
	logger *slog.Logger

	input, output, numMasks, box *tk.TextWidget

	model, mode, format, overlay *tk.TComboboxWidget
	choices                      map[*tk.TComboboxWidget][]string

	status *tk.LabelWidget

	req app.Request
	ok  bool
}

// Show 显示表单并阻塞到窗口关闭
//
// 点击 Run 且参数合法时返回请求和 true; 直接关闭窗口返回 false
func Show(initial form.Fields, logger *slog.Logger) (app.Request, bool) {
	v := &view{logger: logger, choices: make(map[*tk.TComboboxWidget][]string)}
	tk.App.WmTitle("SAM2 Segmentation")
	tk.WmProtocol(tk.App, "WM_DELETE_WINDOW", func() { tk.Destroy(tk.App) })

	v.build(initial)
	tk.App.Wait()
	return v.req, v.ok
}

func (v *view) build(f form.Fields) {
	row := 0
	label := func(text string) {
		tk.Grid(tk.Label(tk.Txt(text), tk.Anchor("w")), tk.Row(row), tk.Column(0), tk.Sticky("w"), tk.Padx("0.4m"), tk.Pady("0.15m"))
	}
	textRow := func(text, value string) *tk.TextWidget {
		label(text)
		w := tk.Text(tk.Height(1), tk.Width(40))
		tk.Grid(w, tk.Row(row), tk.Column(1), tk.Sticky("we"), tk.Padx("0.4m"), tk.Pady("0.15m"))
		w.Delete("1.0", tk.END)
		w.Insert("1.0", value)
		return w
	}
	comboRow := func(text string, values []string, current string) *tk.TComboboxWidget {
		label(text)
		w := tk.TCombobox(tk.Values(values), tk.Width(16))
		tk.Grid(w, tk.Row(row), tk.Column(1), tk.Sticky("w"), tk.Padx("0.4m"), tk.Pady("0.15m"))
		w.Current(form.Index(values, current))
		v.choices[w] = values
		row++
		return w
	}

	v.input = textRow("Input image", f.Input)
	tk.Grid(tk.Button(tk.Txt("Browse"), tk.Command(v.browseInput)), tk.Row(row), tk.Column(2), tk.Padx("0.4m"))
	row++
	v.output = textRow("Output folder", f.Output)
	tk.Grid(tk.Button(tk.Txt("Browse"), tk.Command(v.browseOutput)), tk.Row(row), tk.Column(2), tk.Padx("0.4m"))
	row++

	v.model = comboRow("Model", form.ModelChoices, f.Model)
	v.mode = comboRow("Mode", form.ModeChoices, f.Mode)
	v.numMasks = textRow("Number of masks", f.NumMasks)
	row++
	v.format = comboRow("Save format", form.FormatChoices, f.Format)
	v.overlay = comboRow("Overlay", form.OverlayChoices, f.Overlay)
	v.box = textRow("Box x1,y1,x2,y2 (optional)", f.Box)
	row++

	v.status = tk.Label(tk.Txt(""), tk.Anchor("w"))
	tk.Grid(v.status, tk.Row(row), tk.Column(0), tk.Columnspan(3), tk.Sticky("we"), tk.Padx("0.4m"), tk.Pady("0.3m"))
	row++

	tk.Grid(tk.Button(tk.Txt("Run"), tk.Command(v.submit)), tk.Row(row), tk.Column(0), tk.Sticky("we"), tk.Padx("0.4m"), tk.Pady("0.3m"))
	tk.Grid(tk.Button(tk.Txt("Cancel"), tk.Command(func() { tk.Destroy(tk.App) })), tk.Row(row), tk.Column(1), tk.Sticky("w"), tk.Padx("0.4m"), tk.Pady("0.3m"))
}

func (v *view) browseInput() {
	files := tk.GetOpenFile(tk.Title("Select image"))
	if len(files) == 0 || files[0] == "" {
		return
	}
	setText(v.input, files[0])
}

func (v *view) browseOutput() {
	if dir := tk.ChooseDirectory(tk.Title("Select output folder")); dir != "" {
		setText(v.output, dir)
	}
}

func (v *view) submit() {
	f := form.Fields{
		Input:    text(v.input),
		Output:   text(v.output),
		Model:    v.selected(v.model),
		Mode:     v.selected(v.mode),
		NumMasks: text(v.numMasks),
		Format:   v.selected(v.format),
		Overlay:  v.selected(v.overlay),
		Box:      text(v.box),
	}
	req, err := f.Request()
	if err != nil {
		v.status.Configure(tk.Txt(err.Error()))
		return
	}
	if v.logger != nil {
		v.logger.Debug("form submitted", "input", req.Input, "mode", req.Mode.String(), "model", req.ModelID)
	}
	v.req, v.ok = req, true
	tk.Destroy(tk.App)
}

// selected 下拉框当前选项的文本
func (v *view) selected(w *tk.TComboboxWidget) string {
	values := v.choices[w]
	idx, err := strconv.Atoi(w.Current(nil))
	if err != nil || idx < 0 || idx >= len(values) {
		return ""
	}
	return values[idx]
}

func text(w *tk.TextWidget) string {
	return strings.TrimSpace(strings.Join(w.Get("1.0", tk.END), ""))
}

func setText(w *tk.TextWidget, s string) {
	w.Delete("1.0", tk.END)
	w.Insert("1.0", s)
}
