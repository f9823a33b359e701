package mask

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestRank_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		scores := rapid.SliceOfN(rapid.IntRange(0, 5), 0, 12).Draw(t, "scores")
		k := rapid.IntRange(-2, 15).Draw(t, "k")

		in := make([]Scored, len(scores))
		for i, s := range scores {
			// Width 记录原始下标, 用于校验稳定性
			in[i] = Scored{Mask: &Mask{Width: i}, Score: float32(s)}
		}

		out := Rank(in, k)
		if out == nil {
			t.Fatal("rank returned nil")
		}
		want := min(max(k, 0), len(in))
		if len(out) != want {
			t.Fatalf("len = %d, want %d", len(out), want)
		}
		for i := 1; i < len(out); i++ {
			if out[i-1].Score < out[i].Score {
				t.Fatalf("not sorted at %d: %v", i, out)
			}
			if out[i-1].Score == out[i].Score && out[i-1].Mask.Width > out[i].Mask.Width {
				t.Fatalf("equal scores reordered at %d", i)
			}
		}
	})
}

func TestRank_EmptyInput(t *testing.T) {
	out := Rank(nil, 3)
	require.NotNil(t, out)
	assert.Empty(t, out)
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	in := []Scored{{Score: 0.1}, {Score: 0.9}, {Score: 0.5}}
	out := Rank(in, 2)

	require.Len(t, out, 2)
	assert.Equal(t, float32(0.9), out[0].Score)
	assert.Equal(t, float32(0.5), out[1].Score)
	assert.Equal(t, float32(0.1), in[0].Score)
}
