package sam2

import (
	"fmt"
	"image"
	"sort"

	"github.com/getcharzp/sam2-tools/mask"
)

// geometry 原图与模型输入之间的尺寸换算
type geometry struct {
	origW, origH int
	scale        float32
	newW, newH   int
}

func newGeometry(origW, origH int) geometry {
	scale := float32(inputSize) / float32(max(origW, origH, 1))
	return geometry{
		origW: origW,
		origH: origH,
		scale: scale,
		newW:  max(int(float32(origW)*scale), 1),
		newH:  max(int(float32(origH)*scale), 1),
	}
}

// validMaskSize 低分辨率 Mask 中对应有效图像 (不含 padding) 的区域
func (g geometry) validMaskSize(logitsDim int) (int, int) {
	ratio := float32(logitsDim) / float32(inputSize)
	w := min(max(int(float32(g.newW)*ratio), 1), logitsDim)
	h := min(max(int(float32(g.newH)*ratio), 1), logitsDim)
	return w, h
}

// decoderPoint decoder 输入点 (原图坐标)
type decoderPoint struct {
	x, y  float32
	label int64
}

// hypothesis decoder 的一个候选, logits 只保留有效区域, 尺寸 validW x validH
type hypothesis struct {
	logits         []float32
	validW, validH int
	score          float32
}

// area 低分辨率下的前景像素数
func (h hypothesis) area(threshold float32) int {
	n := 0
	for _, v := range h.logits {
		if v > threshold {
			n++
		}
	}
	return n
}

// normalizeAndPad 归一化和填充
func normalizeAndPad(src image.Image, targetW, targetH int) []float32 {
	bounds := src.Bounds()
	w, h := min(bounds.Dx(), targetW), min(bounds.Dy(), targetH)
	plane := targetW * targetH
	data := make([]float32, 3*plane)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := src.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			// RGBA returns 0-65535
			rf := (float32(r)/65535.0 - MeanR) / StdR
			gf := (float32(g)/65535.0 - MeanG) / StdG
			bf := (float32(b)/65535.0 - MeanB) / StdB

			// 目标索引 (CHW)
			idx := y*targetW + x
			data[idx] = rf
			data[plane+idx] = gf
			data[2*plane+idx] = bf
		}
	}
	return data
}

// splitHypotheses 将 decoder 输出按候选拆分, 并裁剪掉 padding 区域
//
// # Params:
//
//	scores: iou_scores, 长度为候选数
//	logits: pred_masks, 每个候选 logitsDim*logitsDim
//	logitsDim: 低分辨率 Mask 的边长 (256)
//	geom: 尺寸换算
func splitHypotheses(scores, logits []float32, logitsDim int, geom geometry) ([]hypothesis, error) {
	perMask := logitsDim * logitsDim
	if perMask == 0 || len(logits) < len(scores)*perMask {
		return nil, fmt.Errorf("decoder 输出不匹配: %d 个分数, %d 个 logits", len(scores), len(logits))
	}

	validW, validH := geom.validMaskSize(logitsDim)
	hyps := make([]hypothesis, 0, len(scores))
	for i, score := range scores {
		src := logits[i*perMask : (i+1)*perMask]
		crop := make([]float32, validW*validH)
		for y := 0; y < validH; y++ {
			copy(crop[y*validW:(y+1)*validW], src[y*logitsDim:y*logitsDim+validW])
		}
		hyps = append(hyps, hypothesis{logits: crop, validW: validW, validH: validH, score: score})
	}
	return hyps, nil
}

// bestHypothesis 分数最高的候选, 同分取靠前的
func bestHypothesis(hyps []hypothesis) hypothesis {
	best := hyps[0]
	for _, h := range hyps[1:] {
		if h.score > best.score {
			best = h
		}
	}
	return best
}

// upscaleMaskLogits 双线性插值放大到原图尺寸
func upscaleMaskLogits(logits []float32, srcW, srcH, dstW, dstH int) *mask.Mask {
	out := mask.New(dstW, dstH)
	xRatio := float32(srcW) / float32(dstW)
	yRatio := float32(srcH) / float32(dstH)

	for y := 0; y < dstH; y++ {
		fy := max((float32(y)+0.5)*yRatio-0.5, 0)
		y0 := min(int(fy), srcH-1)
		y1 := min(y0+1, srcH-1)
		wy := fy - float32(y0)

		for x := 0; x < dstW; x++ {
			fx := max((float32(x)+0.5)*xRatio-0.5, 0)
			x0 := min(int(fx), srcW-1)
			x1 := min(x0+1, srcW-1)
			wx := fx - float32(x0)

			top := logits[y0*srcW+x0]*(1-wx) + logits[y0*srcW+x1]*wx
			bottom := logits[y1*srcW+x0]*(1-wx) + logits[y1*srcW+x1]*wx
			out.Data[y*dstW+x] = top*(1-wy) + bottom*wy
		}
	}
	return out
}

// binarize 阈值化为 {0, 1}
func binarize(m *mask.Mask, threshold float32) {
	for i, v := range m.Data {
		if v > threshold {
			m.Data[i] = 1
		} else {
			m.Data[i] = 0
		}
	}
}

// gridPoints 自动分割使用的均匀网格前景点
func gridPoints(w, h, perSide int) []decoderPoint {
	if perSide <= 0 {
		perSide = 1
	}
	pts := make([]decoderPoint, 0, perSide*perSide)
	for j := 0; j < perSide; j++ {
		for i := 0; i < perSide; i++ {
			pts = append(pts, decoderPoint{
				x:     (float32(i) + 0.5) * float32(w) / float32(perSide),
				y:     (float32(j) + 0.5) * float32(h) / float32(perSide),
				label: labelForeground,
			})
		}
	}
	return pts
}

// dedupe 非极大值抑制, 过滤掉 Mask 重叠度过高的候选
//
// # Params:
//
//	cands: 候选
//	threshold: 前景阈值
//	iouThresh: IoU 阈值
func dedupe(cands []hypothesis, threshold, iouThresh float32) []hypothesis {
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].score > cands[j].score
	})

	binary := make([]*mask.Mask, len(cands))
	for i, c := range cands {
		m := &mask.Mask{Width: c.validW, Height: c.validH, Data: make([]float32, len(c.logits))}
		for k, v := range c.logits {
			if v > threshold {
				m.Data[k] = 1
			}
		}
		binary[i] = m
	}

	keep := make([]hypothesis, 0)
	suppressed := make([]bool, len(cands))
	for i := range cands {
		if suppressed[i] {
			continue
		}
		keep = append(keep, cands[i])
		for j := i + 1; j < len(cands); j++ {
			if !suppressed[j] && mask.IoU(binary[i], binary[j]) > iouThresh {
				suppressed[j] = true
			}
		}
	}
	return keep
}
