package tui

import (
	"errors"
	"fmt"
	"image"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getcharzp/sam2-tools/mask"
	"github.com/getcharzp/sam2-tools/prompt"
	"github.com/getcharzp/sam2-tools/session"
)

type recorder struct {
	prompts []prompt.Prompt
	err     error
}

func (r *recorder) Predict(p prompt.Prompt, multi bool) ([]mask.Scored, error) {
	r.prompts = append(r.prompts, p)
	if r.err != nil {
		return nil, r.err
	}
	m := mask.New(20, 20)
	m.Set(5, 5, 1)
	return []mask.Scored{{Mask: m, Score: 0.9}}, nil
}

// sized 20x20 的图片在 20x13 的窗口中刚好占满 20 列 10 行
func sized(t *testing.T, machine session.Machine, boxMode bool) Model {
	t.Helper()
	m := New(machine, image.NewRGBA(image.Rect(0, 0, 20, 20)), boxMode)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 20, Height: 13})
	return next.(Model)
}

func send(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func press(x, y int, b tea.MouseButton) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionPress, Button: b}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_LayoutFitsWindow(t *testing.T) {
	m := sized(t, session.NewPointSession(&recorder{}), false)
	assert.Equal(t, 20, m.pw)
	assert.Equal(t, 20, m.ph)
	assert.Contains(t, m.View(), "points")
}

func TestModel_PointClicks(t *testing.T) {
	rec := &recorder{}
	sess := session.NewPointSession(rec)
	m := sized(t, sess, false)

	m, cmd := send(t, m, press(5, headerRows+2, tea.MouseButtonLeft))
	assert.Nil(t, cmd)
	m, _ = send(t, m, press(10, headerRows, tea.MouseButtonRight))

	require.Len(t, rec.prompts, 2)
	last := rec.prompts[1]
	assert.Equal(t, []prompt.Point{{X: 5, Y: 5, Label: prompt.Foreground}}, last.Foreground())
	assert.Equal(t, []prompt.Point{{X: 10, Y: 1, Label: prompt.Background}}, last.Background())
	assert.Equal(t, session.Previewing, m.render.State)
	assert.NotNil(t, m.render.Preview)

	// 标题栏上的点击被忽略
	_, _ = send(t, m, press(3, 0, tea.MouseButtonLeft))
	assert.Len(t, rec.prompts, 2)
}

func TestModel_ConfirmQuits(t *testing.T) {
	sess := session.NewPointSession(&recorder{})
	m := sized(t, sess, false)

	m, _ = send(t, m, press(5, headerRows+2, tea.MouseButtonLeft))
	_, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, session.Confirmed, sess.State())
	assert.Len(t, sess.Outcome().Masks, 1)
}

func TestModel_ConfirmWithoutPointsQuits(t *testing.T) {
	sess := session.NewPointSession(&recorder{})
	m := sized(t, sess, false)

	m, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, sess.Outcome().NoMask)
	assert.Equal(t, session.Idle, sess.State())
	assert.NoError(t, m.Err())
}

func TestModel_KeyboardPoints(t *testing.T) {
	rec := &recorder{}
	m := sized(t, session.NewPointSession(rec), false)

	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyRight})
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyRight})
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = send(t, m, runes("f"))
	_, _ = send(t, m, runes("b"))

	require.Len(t, rec.prompts, 2)
	assert.Equal(t, []prompt.Point{{X: 2, Y: 3, Label: prompt.Foreground}}, rec.prompts[1].Foreground())
	assert.Len(t, rec.prompts[1].Background(), 1)
}

func TestModel_BoxDrag(t *testing.T) {
	rec := &recorder{}
	sess := session.NewBoxSession(rec, 3)
	m := sized(t, sess, true)

	m, _ = send(t, m, press(2, headerRows+1, tea.MouseButtonLeft))
	assert.Equal(t, session.Dragging, m.render.State)
	m, _ = send(t, m, tea.MouseMsg{X: 8, Y: headerRows + 4, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft})
	require.NotNil(t, m.render.Box)
	m, _ = send(t, m, tea.MouseMsg{X: 8, Y: headerRows + 4, Action: tea.MouseActionRelease})
	assert.Equal(t, session.Defined, m.render.State)
	assert.Empty(t, rec.prompts)

	_, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	require.Len(t, rec.prompts, 1)
	assert.Equal(t, prompt.Box{X1: 2, Y1: 3, X2: 8, Y2: 9}, *rec.prompts[0].Box)
	assert.Equal(t, session.Confirmed, sess.State())
}

func TestModel_KeyboardBox(t *testing.T) {
	rec := &recorder{}
	sess := session.NewBoxSession(rec, 1)
	m := sized(t, sess, true)

	m, _ = send(t, m, runes("v"))
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyRight})
	m, _ = send(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, _ = send(t, m, runes("v"))
	assert.Equal(t, session.Defined, sess.State())
	assert.Equal(t, prompt.Box{X1: 0, Y1: 1, X2: 1, Y2: 3}, *sess.Box())
}

func TestModel_InvalidTransitionIsNotice(t *testing.T) {
	sess := session.NewBoxSession(&recorder{}, 1)
	m := sized(t, sess, true)

	m, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.NotEmpty(t, m.notice)
	assert.NoError(t, m.Err())
}

func TestModel_CancelQuits(t *testing.T) {
	sess := session.NewBoxSession(&recorder{}, 1)
	m := sized(t, sess, true)

	_, cmd := send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, session.Cancelled, sess.State())
}

func TestModel_OracleFailureIsFatal(t *testing.T) {
	rec := &recorder{err: errors.New("out of memory")}
	m := sized(t, session.NewPointSession(rec), false)

	m, cmd := send(t, m, press(1, headerRows, tea.MouseButtonLeft))
	require.NotNil(t, cmd)
	assert.ErrorContains(t, m.Err(), "out of memory")
}

func TestModel_TinyWindow(t *testing.T) {
	m := New(session.NewPointSession(&recorder{}), image.NewRGBA(image.Rect(0, 0, 20, 20)), false)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 10, Height: 2})
	assert.Contains(t, next.(Model).View(), "窗口太小")
}

// rejectingMachine 拒绝所有事件, 并记录收到的事件
type rejectingMachine struct {
	events []session.Event
}

func (r *rejectingMachine) Handle(ev session.Event) (session.Render, error) {
	r.events = append(r.events, ev)
	return session.Render{State: session.Idle}, fmt.Errorf("%w: %T", session.ErrInvalidTransition, ev)
}

func (r *rejectingMachine) Render() session.Render   { return session.Render{State: session.Idle} }
func (r *rejectingMachine) Outcome() session.Outcome { return session.Outcome{} }
func (r *rejectingMachine) Terminal() bool           { return false }

func TestModel_RejectedBeginDragDoesNotDrag(t *testing.T) {
	machine := &rejectingMachine{}
	m := sized(t, machine, true)

	m, cmd := send(t, m, press(2, headerRows+1, tea.MouseButtonLeft))
	assert.Nil(t, cmd)
	assert.False(t, m.dragging)
	assert.NotEmpty(t, m.notice)

	m, _ = send(t, m, tea.MouseMsg{X: 6, Y: headerRows + 3, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft})
	_, _ = send(t, m, tea.MouseMsg{X: 6, Y: headerRows + 3, Action: tea.MouseActionRelease})
	require.Len(t, machine.events, 1)
	assert.IsType(t, session.BeginDrag{}, machine.events[0])

	// 键盘 v 同样不会进入拖拽
	m, _ = send(t, m, runes("v"))
	assert.False(t, m.dragging)
	_, _ = send(t, m, runes("v"))
	require.Len(t, machine.events, 3)
	assert.IsType(t, session.BeginDrag{}, machine.events[2])
}
