package session

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/getcharzp/sam2-tools/mask"
	"github.com/getcharzp/sam2-tools/prompt"
)

// PointSession 点选会话: Idle -> Previewing -> Confirmed | Cancelled
type PointSession struct {
	predictor Predictor
	logger    *slog.Logger

	state   State
	fg, bg  []prompt.Point
	preview *mask.Scored
	message string
	outcome Outcome
}

// NewPointSession 创建点选会话, predictor 由多个会话共享
func NewPointSession(p Predictor, opts ...Option) *PointSession {
	o := buildOptions(opts)
	return &PointSession{predictor: p, logger: o.logger, state: Idle}
}

// State 当前状态
func (s *PointSession) State() State { return s.state }

// Terminal 是否已结束
func (s *PointSession) Terminal() bool { return s.state.Terminal() }

// Outcome 最终结果
func (s *PointSession) Outcome() Outcome { return s.outcome }

// AddForeground 添加前景点并重新查询
func (s *PointSession) AddForeground(x, y int) (Render, error) {
	return s.addPoint(prompt.NewPoint(x, y, prompt.Foreground))
}

// AddBackground 添加背景点并重新查询
func (s *PointSession) AddBackground(x, y int) (Render, error) {
	return s.addPoint(prompt.NewPoint(x, y, prompt.Background))
}

// addPoint 追加点后用完整点集查询单个最佳 Mask; 查询失败时撤销本次追加
func (s *PointSession) addPoint(pt prompt.Point) (Render, error) {
	if s.Terminal() {
		return s.Render(), ErrTerminated
	}

	fg, bg := s.fg, s.bg
	if pt.Label == prompt.Foreground {
		s.fg = append(slices.Clip(s.fg), pt)
	} else {
		s.bg = append(slices.Clip(s.bg), pt)
	}

	results, err := s.predictor.Predict(prompt.FromPoints(s.fg, s.bg), false)
	if err != nil {
		s.fg, s.bg = fg, bg
		return s.Render(), fmt.Errorf("模型查询失败: %w", err)
	}

	s.message = ""
	if len(results) > 0 {
		best := results[0]
		s.preview = &best
	} else {
		s.preview = nil
		s.message = "No mask returned."
	}
	s.transition(Previewing)
	return s.Render(), nil
}

// Reset 清空点集与预览, 回到 Idle
func (s *PointSession) Reset() (Render, error) {
	if s.Terminal() {
		return s.Render(), ErrTerminated
	}
	s.fg, s.bg = nil, nil
	s.preview = nil
	s.message = ""
	s.transition(Idle)
	return s.Render(), nil
}

// Confirm 以当前预览作为唯一结果结束会话
//
// 没有预览时不迁移状态, 结果标记为 NoMask
func (s *PointSession) Confirm() (Render, error) {
	if s.Terminal() {
		return s.Render(), ErrTerminated
	}
	if s.preview == nil {
		s.outcome = Outcome{NoMask: true}
		s.message = "No mask generated."
		return s.Render(), nil
	}
	s.outcome = Outcome{Masks: []mask.Scored{*s.preview}}
	s.message = ""
	s.transition(Confirmed)
	return s.Render(), nil
}

// Cancel 取消会话
func (s *PointSession) Cancel() (Render, error) {
	if s.Terminal() {
		return s.Render(), ErrTerminated
	}
	s.outcome = Outcome{}
	s.transition(Cancelled)
	return s.Render(), nil
}

// Handle 分发事件
func (s *PointSession) Handle(ev Event) (Render, error) {
	switch e := ev.(type) {
	case AddPoint:
		return s.addPoint(prompt.NewPoint(e.X, e.Y, e.Label))
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
func (s *PointSession) Render() Render {
	r := Render{
		State:      s.state,
		Foreground: slices.Clone(s.fg),
		Background: slices.Clone(s.bg),
		Message:    s.message,
	}
	if s.preview != nil {
		r.Preview = s.preview.Mask
	}
	return r
}

func (s *PointSession) transition(next State) {
	prev := s.state
	s.state = next
	s.logger.Debug("point session transition",
		"from", prev.String(), "to", next.String(),
		"foreground", len(s.fg), "background", len(s.bg))
}

var _ Machine = (*PointSession)(nil)
