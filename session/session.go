// Package session 实现交互式选区的状态机
//
// 点选会话 (PointSession) 每次加点都用完整的累计点集重新查询模型;
// 框选会话 (BoxSession) 只在确认时查询一次. 两者都通过 Handle 接收类型化事件,
// 每次状态迁移返回一个 Render, 事件循环只负责分发事件与按 Render 重绘.
package session

import (
	"errors"
	"log/slog"

	"github.com/getcharzp/sam2-tools/mask"
	"github.com/getcharzp/sam2-tools/prompt"
)

var (
	// ErrTerminated 会话已确认或取消
	ErrTerminated = errors.New("会话已结束")
	// ErrInvalidTransition 当前状态不接受该事件
	ErrInvalidTransition = errors.New("当前状态不支持该操作")
)

// Predictor 分割模型的调用边界
//
// 调用前模型必须已设置当前图片; multi 为 true 时返回多个候选, 否则只返回最佳结果.
// 返回空切片表示没有结果, 不是错误
type Predictor interface {
	Predict(p prompt.Prompt, multi bool) ([]mask.Scored, error)
}

// PredictorFunc 函数形式的 Predictor
type PredictorFunc func(p prompt.Prompt, multi bool) ([]mask.Scored, error)

// Predict 实现 Predictor
func (f PredictorFunc) Predict(p prompt.Prompt, multi bool) ([]mask.Scored, error) {
	return f(p, multi)
}

// State 会话状态
type State int

const (
	Idle State = iota
	Previewing
	Dragging
	Defined
	Confirmed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Previewing:
		return "previewing"
	case Dragging:
		return "dragging"
	case Defined:
		return "defined"
	case Confirmed:
		return "confirmed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal 是否为终止状态
func (s State) Terminal() bool {
	return s == Confirmed || s == Cancelled
}

// Render 一次状态迁移后的重绘请求
type Render struct {
	State      State
	Foreground []prompt.Point
	Background []prompt.Point
	Box        *prompt.Box // 已确定的框, 或拖拽中的实时框
	Preview    *mask.Mask  // 最近一次的预览 Mask, 可能为 nil
	Message    string
}

// Outcome 会话的最终结果
type Outcome struct {
	Masks  []mask.Scored
	NoMask bool // 确认时没有可用的 Mask
}

// Event 由事件循环分发给状态机的类型化事件
type Event interface {
	event()
}

type (
	// AddPoint 添加前景/背景点
	AddPoint struct {
		X, Y  int
		Label prompt.Label
	}
	// BeginDrag 按下指针, 记录锚点
	BeginDrag struct{ X, Y int }
	// UpdateDrag 拖拽中, 更新对角点
	UpdateDrag struct{ X, Y int }
	// EndDrag 松开指针, 固定框
	EndDrag struct{ X, Y int }
	// Reset 清空当前选择
	Reset struct{}
	// Confirm 确认
	Confirm struct{}
	// Cancel 取消, 不产生输出
	Cancel struct{}
)

func (AddPoint) event()   {}
func (BeginDrag) event()  {}
func (UpdateDrag) event() {}
func (EndDrag) event()    {}
func (Reset) event()      {}
func (Confirm) event()    {}
func (Cancel) event()     {}

// Machine 事件循环驱动的状态机
type Machine interface {
	Handle(ev Event) (Render, error)
	Render() Render
	Outcome() Outcome
	Terminal() bool
}

// Option 会话选项
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger 设置状态迁移日志
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
