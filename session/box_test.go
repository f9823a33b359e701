package session

import (
	"testing"

	"github.com/getcharzp/sam2-tools/mask"
	"github.com/getcharzp/sam2-tools/prompt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoxSession_DragFlow(t *testing.T) {
	p := &recordingPredictor{}
	s := NewBoxSession(p, 3)

	r, err := s.BeginDrag(50, 40)
	require.NoError(t, err)
	assert.Equal(t, Dragging, r.State)

	r, err = s.UpdateDrag(10, 60)
	require.NoError(t, err)
	assert.Equal(t, &prompt.Box{X1: 10, Y1: 40, X2: 50, Y2: 60}, r.Box)
	assert.Empty(t, p.calls, "no query while dragging")

	r, err = s.EndDrag(20, 5)
	require.NoError(t, err)
	assert.Equal(t, Defined, r.State)
	assert.Equal(t, &prompt.Box{X1: 20, Y1: 5, X2: 50, Y2: 40}, r.Box)
	assert.Empty(t, p.calls)
}

func TestBoxSession_ConfirmRanksAndTruncates(t *testing.T) {
	p := &recordingPredictor{reply: func(prompt.Prompt, bool) ([]mask.Scored, error) {
		return []mask.Scored{scoredMask(0.3), scoredMask(0.9), scoredMask(0.6)}, nil
	}}
	s := NewBoxSession(p, 2)

	_, err := s.SetBox(prompt.Box{X1: 9, Y1: 9, X2: 1, Y2: 1})
	require.NoError(t, err)
	r, err := s.Confirm()
	require.NoError(t, err)

	require.Len(t, p.calls, 1)
	assert.True(t, p.calls[0].multi)
	require.NotNil(t, p.calls[0].prompt.Box)
	assert.Equal(t, prompt.Box{X1: 1, Y1: 1, X2: 9, Y2: 9}, *p.calls[0].prompt.Box)

	assert.Equal(t, Confirmed, r.State)
	out := s.Outcome()
	require.Len(t, out.Masks, 2)
	assert.Equal(t, float32(0.9), out.Masks[0].Score)
	assert.Equal(t, float32(0.6), out.Masks[1].Score)
	assert.NotNil(t, r.Preview)
}

func TestBoxSession_ConfirmEmptyReply(t *testing.T) {
	p := &recordingPredictor{reply: func(prompt.Prompt, bool) ([]mask.Scored, error) {
		return nil, nil
	}}
	s := NewBoxSession(p, 3)

	_, err := s.SetBox(prompt.NewBox(0, 0, 4, 4))
	require.NoError(t, err)
	r, err := s.Confirm()
	require.NoError(t, err)
	assert.Equal(t, Confirmed, r.State)
	assert.True(t, s.Outcome().NoMask)
	assert.Empty(t, s.Outcome().Masks)
}

func TestBoxSession_ConfirmOnlyFromDefined(t *testing.T) {
	p := &recordingPredictor{}
	s := NewBoxSession(p, 1)

	_, err := s.Confirm()
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = s.BeginDrag(1, 1)
	require.NoError(t, err)
	_, err = s.Confirm()
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, Dragging, s.State())
	assert.Empty(t, p.calls)
}

func TestBoxSession_OracleErrorPropagates(t *testing.T) {
	p := &recordingPredictor{reply: func(prompt.Prompt, bool) ([]mask.Scored, error) {
		return nil, errOracle
	}}
	s := NewBoxSession(p, 1)

	_, err := s.SetBox(prompt.NewBox(0, 0, 4, 4))
	require.NoError(t, err)
	_, err = s.Confirm()
	assert.ErrorIs(t, err, errOracle)
	assert.Equal(t, Defined, s.State())
}

func TestBoxSession_Reset(t *testing.T) {
	s := NewBoxSession(&recordingPredictor{}, 1)

	_, err := s.BeginDrag(1, 1)
	require.NoError(t, err)
	r, err := s.Reset()
	require.NoError(t, err)
	assert.Equal(t, Idle, r.State)
	assert.Nil(t, r.Box)

	_, err = s.SetBox(prompt.NewBox(1, 1, 5, 5))
	require.NoError(t, err)
	r, err = s.Reset()
	require.NoError(t, err)
	assert.Equal(t, Idle, r.State)
	assert.Nil(t, s.Box())
}

func TestBoxSession_CancelFromAnyState(t *testing.T) {
	setups := map[string]func(s *BoxSession){
		"idle":     func(*BoxSession) {},
		"dragging": func(s *BoxSession) { _, _ = s.BeginDrag(1, 1) },
		"defined":  func(s *BoxSession) { _, _ = s.SetBox(prompt.NewBox(1, 1, 3, 3)) },
	}
	for name, setup := range setups {
		t.Run(name, func(t *testing.T) {
			p := &recordingPredictor{}
			s := NewBoxSession(p, 1)
			setup(s)

			r, err := s.Cancel()
			require.NoError(t, err)
			assert.Equal(t, Cancelled, r.State)
			assert.Empty(t, s.Outcome().Masks)
			assert.Empty(t, p.calls)

			_, err = s.Handle(Reset{})
			assert.ErrorIs(t, err, ErrTerminated)
		})
	}
}

func TestBoxSession_HandleDispatch(t *testing.T) {
	p := &recordingPredictor{}
	var m Machine = NewBoxSession(p, 3)

	steps := []Event{BeginDrag{X: 4, Y: 4}, UpdateDrag{X: 8, Y: 2}, EndDrag{X: 0, Y: 9}, Confirm{}}
	for _, ev := range steps {
		_, err := m.Handle(ev)
		require.NoError(t, err, "%T", ev)
	}
	assert.True(t, m.Terminal())
	require.Len(t, p.calls, 1)
	assert.Equal(t, prompt.Box{X1: 0, Y1: 4, X2: 4, Y2: 9}, *p.calls[0].prompt.Box)

	_, err := NewBoxSession(p, 1).Handle(AddPoint{X: 1, Y: 1})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "previewing", Previewing.String())
	assert.True(t, Cancelled.Terminal())
	assert.False(t, Defined.Terminal())
}
