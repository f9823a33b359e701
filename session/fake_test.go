package session

import (
	"errors"

	"github.com/getcharzp/sam2-tools/mask"
	"github.com/getcharzp/sam2-tools/prompt"
)

// recordingPredictor 记录每次查询的提示, 并按 reply 返回结果
type recordingPredictor struct {
	calls []call
	reply func(p prompt.Prompt, multi bool) ([]mask.Scored, error)
}

type call struct {
	prompt prompt.Prompt
	multi  bool
}

func (r *recordingPredictor) Predict(p prompt.Prompt, multi bool) ([]mask.Scored, error) {
	r.calls = append(r.calls, call{prompt: p, multi: multi})
	if r.reply != nil {
		return r.reply(p, multi)
	}
	return []mask.Scored{scoredMask(0.9)}, nil
}

func scoredMask(score float32) mask.Scored {
	m := mask.New(8, 8)
	m.Set(2, 2, 1)
	return mask.Scored{Mask: m, Score: score}
}

var errOracle = errors.New("out of memory")
