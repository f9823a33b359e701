// Package tui 提供终端中的交互选区界面
//
// 图片用半块字符 "▀" 渲染, 每个字符单元对应上下两个像素.
// 鼠标和键盘事件被翻译成 session 事件交给状态机, 界面只负责按 Render 重绘.
package tui

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"
	"github.com/up-zero/gotool/imageutil"
	xdraw "golang.org/x/image/draw"

	"github.com/getcharzp/sam2-tools/internal/app"
	"github.com/getcharzp/sam2-tools/prompt"
	"github.com/getcharzp/sam2-tools/session"
)

// ErrNotTerminal 标准输入不是终端, 无法交互
var ErrNotTerminal = errors.New("标准输入不是终端, 无法进行交互选择")

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	messageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("178")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

// 叠加层颜色
var (
	previewColor    = color.RGBA{R: 255, A: 255}
	foregroundColor = color.RGBA{G: 255, A: 255}
	backgroundColor = color.RGBA{R: 255, B: 255, A: 255}
	boxColor        = color.RGBA{R: 255, G: 215, A: 255}
	cursorColor     = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// 标题占一行, 状态和帮助各占一行
const (
	headerRows = 1
	footerRows = 2
)

// Model 交互界面
type Model struct {
	machine session.Machine
	src     image.Image
	boxMode bool

	keys keyMap
	help help.Model

	width, height int
	base          *image.RGBA // 缩放后的底图, 宽 pw 高 ph 像素
	pw, ph        int
	cursor        image.Point // 键盘光标, 单位为字符单元
	dragging      bool

	render session.Render
	notice string // 非致命的提示, 如当前状态不接受该操作
	err    error  // 致命错误, 退出后由 Run 返回
}

// New 创建交互界面
//
// # Params:
//
//	m: 点选或框选会话
//	src: 原图
//	boxMode: 是否为框选
func New(m session.Machine, src image.Image, boxMode bool) Model {
	return Model{
		machine: m,
		src:     src,
		boxMode: boxMode,
		keys:    newKeyMap(boxMode),
		help:    help.New(),
		render:  m.Render(),
	}
}

// Init 实现 tea.Model
func (m Model) Init() tea.Cmd { return nil }

// Update 实现 tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.layout()
		return m, nil

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	pt, inside := m.cellToImage(msg.X, msg.Y-headerRows)

	if m.boxMode {
		switch {
		case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft && inside:
			return m.beginDrag(pt)
		case msg.Action == tea.MouseActionMotion && m.dragging:
			return m.dispatch(session.UpdateDrag{X: pt.X, Y: pt.Y})
		case msg.Action == tea.MouseActionRelease && m.dragging:
			m.dragging = false
			return m.dispatch(session.EndDrag{X: pt.X, Y: pt.Y})
		}
		return m, nil
	}

	if msg.Action != tea.MouseActionPress || !inside {
		return m, nil
	}
	switch msg.Button {
	case tea.MouseButtonLeft:
		return m.dispatch(session.AddPoint{X: pt.X, Y: pt.Y, Label: prompt.Foreground})
	case tea.MouseButtonRight, tea.MouseButtonMiddle:
		return m.dispatch(session.AddPoint{X: pt.X, Y: pt.Y, Label: prompt.Background})
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		return m.dispatch(session.Cancel{})
	case key.Matches(msg, m.keys.Confirm):
		return m.dispatch(session.Confirm{})
	case key.Matches(msg, m.keys.Reset):
		m.dragging = false
		return m.dispatch(session.Reset{})
	case key.Matches(msg, m.keys.Up):
		return m.moveCursor(0, -1)
	case key.Matches(msg, m.keys.Down):
		return m.moveCursor(0, 1)
	case key.Matches(msg, m.keys.Left):
		return m.moveCursor(-1, 0)
	case key.Matches(msg, m.keys.Right):
		return m.moveCursor(1, 0)
	}

	pt, inside := m.cellToImage(m.cursor.X, m.cursor.Y)
	if !inside {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Foreground):
		return m.dispatch(session.AddPoint{X: pt.X, Y: pt.Y, Label: prompt.Foreground})
	case key.Matches(msg, m.keys.Background):
		return m.dispatch(session.AddPoint{X: pt.X, Y: pt.Y, Label: prompt.Background})
	case key.Matches(msg, m.keys.Drag):
		if m.dragging {
			m.dragging = false
			return m.dispatch(session.EndDrag{X: pt.X, Y: pt.Y})
		}
		return m.beginDrag(pt)
	}
	return m, nil
}

// beginDrag 状态机接受 BeginDrag 后才进入拖拽
func (m Model) beginDrag(pt image.Point) (tea.Model, tea.Cmd) {
	next, cmd := m.dispatch(session.BeginDrag{X: pt.X, Y: pt.Y})
	nm := next.(Model)
	nm.dragging = nm.render.State == session.Dragging
	return nm, cmd
}

func (m Model) moveCursor(dx, dy int) (tea.Model, tea.Cmd) {
	cols, rows := m.pw, m.ph/2
	if cols == 0 || rows == 0 {
		return m, nil
	}
	m.cursor.X = min(max(m.cursor.X+dx, 0), cols-1)
	m.cursor.Y = min(max(m.cursor.Y+dy, 0), rows-1)
	if m.dragging {
		pt, _ := m.cellToImage(m.cursor.X, m.cursor.Y)
		return m.dispatch(session.UpdateDrag{X: pt.X, Y: pt.Y})
	}
	return m, nil
}

// dispatch 把事件交给状态机, 会话结束时退出
func (m Model) dispatch(ev session.Event) (tea.Model, tea.Cmd) {
	r, err := m.machine.Handle(ev)
	m.render = r
	m.notice = ""
	switch {
	case errors.Is(err, session.ErrInvalidTransition):
		m.notice = err.Error()
	case err != nil:
		m.err = err
		return m, tea.Quit
	}

	// 点选在没有预览时确认, 结果为 NoMask 但状态不变, 同样退出
	if m.machine.Terminal() || m.machine.Outcome().NoMask {
		return m, tea.Quit
	}
	return m, nil
}

// layout 按窗口大小缩放底图
func (m *Model) layout() {
	b := m.src.Bounds()
	cols := m.width
	rows := m.height - headerRows - footerRows
	if cols <= 0 || rows <= 0 || b.Dx() == 0 || b.Dy() == 0 {
		m.base, m.pw, m.ph = nil, 0, 0
		return
	}

	scale := min(float64(cols)/float64(b.Dx()), float64(2*rows)/float64(b.Dy()))
	m.pw = min(max(int(float64(b.Dx())*scale), 1), cols)
	m.ph = min(max(int(float64(b.Dy())*scale), 2), 2*rows)
	m.ph += m.ph % 2

	m.base = image.NewRGBA(image.Rect(0, 0, m.pw, m.ph))
	xdraw.ApproxBiLinear.Scale(m.base, m.base.Bounds(), m.src, b, xdraw.Src, nil)
	m.cursor.X = min(m.cursor.X, m.pw-1)
	m.cursor.Y = min(m.cursor.Y, m.ph/2-1)
}

// cellToImage 字符单元坐标转换为原图坐标, 取单元中心
func (m Model) cellToImage(cx, cy int) (image.Point, bool) {
	if m.pw == 0 || m.ph == 0 {
		return image.Point{}, false
	}
	inside := cx >= 0 && cy >= 0 && cx < m.pw && cy < m.ph/2
	cx = min(max(cx, 0), m.pw-1)
	cy = min(max(cy, 0), m.ph/2-1)

	b := m.src.Bounds()
	x := int((float64(cx) + 0.5) * float64(b.Dx()) / float64(m.pw))
	y := int(float64(2*cy+1) * float64(b.Dy()) / float64(m.ph))
	return image.Pt(min(x, b.Dx()-1), min(y, b.Dy()-1)), inside
}

// imageToPixel 原图坐标转换为底图像素坐标
func (m Model) imageToPixel(x, y int) image.Point {
	b := m.src.Bounds()
	return image.Pt(x*m.pw/b.Dx(), y*m.ph/b.Dy())
}

// frame 在底图上叠加预览 Mask, 点和框
func (m Model) frame() *image.RGBA {
	dst := image.NewRGBA(m.base.Bounds())
	draw.Draw(dst, dst.Bounds(), m.base, image.Point{}, draw.Src)
	b := m.src.Bounds()

	if p := m.render.Preview; !p.Empty() {
		for py := 0; py < m.ph; py++ {
			for px := 0; px < m.pw; px++ {
				if p.Foreground(px*b.Dx()/m.pw, py*b.Dy()/m.ph) {
					c := dst.RGBAAt(px, py)
					dst.SetRGBA(px, py, color.RGBA{
						R: uint8((uint16(c.R) + uint16(previewColor.R)) / 2),
						G: c.G / 2,
						B: c.B / 2,
						A: 255,
					})
				}
			}
		}
	}

	if box := m.render.Box; box != nil {
		n := box.Normalize()
		rect := image.Rectangle{Min: m.imageToPixel(n.X1, n.Y1), Max: m.imageToPixel(n.X2, n.Y2)}
		imageutil.DrawThickRectOutline(dst, rect, boxColor, 1)
	}
	for _, pt := range m.render.Foreground {
		imageutil.DrawFilledCircle(dst, m.imageToPixel(pt.X, pt.Y), 1, foregroundColor)
	}
	for _, pt := range m.render.Background {
		imageutil.DrawFilledCircle(dst, m.imageToPixel(pt.X, pt.Y), 1, backgroundColor)
	}

	dst.SetRGBA(m.cursor.X, 2*m.cursor.Y, cursorColor)
	dst.SetRGBA(m.cursor.X, 2*m.cursor.Y+1, cursorColor)
	return dst
}

// View 实现 tea.Model
func (m Model) View() string {
	mode := "points"
	if m.boxMode {
		mode = "box"
	}
	title := titleStyle.Width(max(m.width, 1)).Render("sam2seg  " + mode)
	if m.base == nil {
		return title + "\n窗口太小, 无法显示图片"
	}

	var sb strings.Builder
	sb.WriteString(title)
	sb.WriteByte('\n')
	writeHalfBlocks(&sb, m.frame())

	sb.WriteString(m.statusLine())
	sb.WriteByte('\n')
	sb.WriteString(m.help.View(m.keys))
	return sb.String()
}

func (m Model) statusLine() string {
	r := m.render
	status := fmt.Sprintf("state: %s  fg: %d  bg: %d", r.State, len(r.Foreground), len(r.Background))
	if r.Box != nil {
		status += "  box: " + r.Box.String()
	}
	line := statusStyle.Render(status)
	switch {
	case m.err != nil:
		line += "  " + errorStyle.Render(m.err.Error())
	case m.notice != "":
		line += "  " + errorStyle.Render(m.notice)
	case r.Message != "":
		line += "  " + messageStyle.Render(r.Message)
	}
	return line
}

// writeHalfBlocks 每两行像素输出一行 "▀", 前景色为上方像素, 背景色为下方像素
func writeHalfBlocks(sb *strings.Builder, img *image.RGBA) {
	b := img.Bounds()
	for y := b.Min.Y; y+1 < b.Max.Y; y += 2 {
		for x := b.Min.X; x < b.Max.X; x++ {
			style := lipgloss.NewStyle().
				Foreground(hexColor(img.RGBAAt(x, y))).
				Background(hexColor(img.RGBAAt(x, y+1)))
			sb.WriteString(style.Render("▀"))
		}
		sb.WriteByte('\n')
	}
}

func hexColor(c color.RGBA) lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B))
}

// Err 退出时的致命错误
func (m Model) Err() error { return m.err }

// Interact 在终端中驱动会话直到确认或取消, 可直接作为 app.Interactor
func Interact(machine session.Machine, img image.Image, mode app.Mode) error {
	if !term.IsTerminal(os.Stdin.Fd()) {
		return ErrNotTerminal
	}
	p := tea.NewProgram(New(machine, img, mode == app.ModeBox), tea.WithAltScreen(), tea.WithMouseCellMotion())
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("终端界面运行失败: %w", err)
	}
	if fm, ok := final.(Model); ok {
		return fm.Err()
	}
	return nil
}

var _ app.Interactor = Interact
