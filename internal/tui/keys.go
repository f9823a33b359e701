package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap 键盘操作, 鼠标不可用时也能完成选择
type keyMap struct {
	Up         key.Binding
	Down       key.Binding
	Left       key.Binding
	Right      key.Binding
	Foreground key.Binding
	Background key.Binding
	Drag       key.Binding
	Confirm    key.Binding
	Reset      key.Binding
	Cancel     key.Binding
}

func newKeyMap(boxMode bool) keyMap {
	k := keyMap{
		Up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Left:       key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "left")),
		Right:      key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "right")),
		Foreground: key.NewBinding(key.WithKeys("f", " "), key.WithHelp("f/space", "foreground")),
		Background: key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "background")),
		Drag:       key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "start/end box")),
		Confirm:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
		Reset:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset")),
		Cancel:     key.NewBinding(key.WithKeys("esc", "ctrl+c"), key.WithHelp("esc", "cancel")),
	}
	// 点选和框选只启用各自的按键
	k.Drag.SetEnabled(boxMode)
	k.Foreground.SetEnabled(!boxMode)
	k.Background.SetEnabled(!boxMode)
	return k
}

// ShortHelp 实现 help.KeyMap
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Foreground, k.Background, k.Drag, k.Confirm, k.Reset, k.Cancel}
}

// FullHelp 实现 help.KeyMap
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		k.ShortHelp(),
	}
}
