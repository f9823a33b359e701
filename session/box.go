package session

import (
	"fmt"
	"log/slog"

	"github.com/getcharzp/sam2-tools/mask"
	"github.com/getcharzp/sam2-tools/prompt"
)

// BoxSession 框选会话: Idle -> Dragging -> Defined -> Confirmed | Cancelled
//
// 拖拽过程中不查询模型, 只在 Confirm 时发起一次多候选查询
type BoxSession struct {
	predictor Predictor
	logger    *slog.Logger
	keep      int

	state   State
	anchorX int
	anchorY int
	box     *prompt.Box
	message string
	outcome Outcome
}

// NewBoxSession 创建框选会话
//
// # Params:
//
//	p: 分割模型
//	keep: 确认后保留的 Mask 数量
func NewBoxSession(p Predictor, keep int, opts ...Option) *BoxSession {
	o := buildOptions(opts)
	return &BoxSession{predictor: p, logger: o.logger, keep: keep, state: Idle}
}

// State 当前状态
func (s *BoxSession) State() State { return s.state }

// Terminal 是否已结束
func (s *BoxSession) Terminal() bool { return s.state.Terminal() }

// Outcome 最终结果
func (s *BoxSession) Outcome() Outcome { return s.outcome }

// Box 当前的框, 未定义时为 nil
func (s *BoxSession) Box() *prompt.Box {
	if s.box == nil {
		return nil
	}
	b := *s.box
	return &b
}

// BeginDrag 记录锚点并进入 Dragging
func (s *BoxSession) BeginDrag(x, y int) (Render, error) {
	if err := s.expect(Idle, Defined); err != nil {
		return s.Render(), err
	}
	s.anchorX, s.anchorY = x, y
	b := prompt.NewBox(x, y, x, y)
	s.box = &b
	s.message = ""
	s.transition(Dragging)
	return s.Render(), nil
}

// UpdateDrag 更新对角点, 仅用于预览
func (s *BoxSession) UpdateDrag(x, y int) (Render, error) {
	if err := s.expect(Dragging); err != nil {
		return s.Render(), err
	}
	b := prompt.NewBox(s.anchorX, s.anchorY, x, y)
	s.box = &b
	return s.Render(), nil
}

// EndDrag 固定对角点, 规范化后进入 Defined
func (s *BoxSession) EndDrag(x, y int) (Render, error) {
	if err := s.expect(Dragging); err != nil {
		return s.Render(), err
	}
	b := prompt.NewBox(s.anchorX, s.anchorY, x, y)
	s.box = &b
	s.transition(Defined)
	return s.Render(), nil
}

// SetBox 直接使用给定坐标的框, 进入 Defined
func (s *BoxSession) SetBox(b prompt.Box) (Render, error) {
	if err := s.expect(Idle, Defined); err != nil {
		return s.Render(), err
	}
	n := b.Normalize()
	s.box = &n
	s.message = ""
	s.transition(Defined)
	return s.Render(), nil
}

// Reset 清除框回到 Idle
func (s *BoxSession) Reset() (Render, error) {
	if s.Terminal() {
		return s.Render(), ErrTerminated
	}
	s.box = nil
	s.message = ""
	s.transition(Idle)
	return s.Render(), nil
}

// Confirm 用框查询多个候选, 排序截取后结束会话
//
// 模型没有返回结果时同样结束, 结果标记为 NoMask
func (s *BoxSession) Confirm() (Render, error) {
	if err := s.expect(Defined); err != nil {
		return s.Render(), err
	}

	results, err := s.predictor.Predict(prompt.FromBox(*s.box), true)
	if err != nil {
		return s.Render(), fmt.Errorf("模型查询失败: %w", err)
	}

	ranked := mask.Rank(results, s.keep)
	s.outcome = Outcome{Masks: ranked, NoMask: len(ranked) == 0}
	if s.outcome.NoMask {
		s.message = "No masks returned."
	}
	s.transition(Confirmed)
	return s.Render(), nil
}

// Cancel 取消会话
func (s *BoxSession) Cancel() (Render, error) {
	if s.Terminal() {
		return s.Render(), ErrTerminated
	}
	s.outcome = Outcome{}
	s.transition(Cancelled)
	return s.Render(), nil
}

// Handle 分发事件
func (s *BoxSession) Handle(ev Event) (Render, error) {
	switch e := ev.(type) {
	case BeginDrag:
		return s.BeginDrag(e.X, e.Y)
	case UpdateDrag:
		return s.UpdateDrag(e.X, e.Y)
	case EndDrag:
		return s.EndDrag(e.X, e.Y)
	case Reset:
		return s.Reset()
	case Confirm:
		return s.Confirm()
	case Cancel:
		return s.Cancel()
	default:
		if s.Terminal() {
			return s.Render(), ErrTerminated
		}
		return s.Render(), fmt.Errorf("%w: %T", ErrInvalidTransition, ev)
	}
}

// Render 当前状态的重绘请求
func (s *BoxSession) Render() Render {
	r := Render{State: s.state, Box: s.Box(), Message: s.message}
	if s.state == Confirmed && len(s.outcome.Masks) > 0 {
		r.Preview = s.outcome.Masks[0].Mask
	}
	return r
}

func (s *BoxSession) expect(states ...State) error {
	if s.Terminal() {
		return ErrTerminated
	}
	for _, st := range states {
		if s.state == st {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrInvalidTransition, s.state)
}

func (s *BoxSession) transition(next State) {
	prev := s.state
	s.state = next
	attrs := []any{"from", prev.String(), "to", next.String()}
	if s.box != nil {
		attrs = append(attrs, "box", s.box.String())
	}
	s.logger.Debug("box session transition", attrs...)
}

var _ Machine = (*BoxSession)(nil)
