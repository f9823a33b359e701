package sam2

import (
	"errors"
	"fmt"
	"image"
	"runtime"

	sam2tools "github.com/getcharzp/sam2-tools"
	"github.com/getcharzp/sam2-tools/mask"
	"github.com/getcharzp/sam2-tools/prompt"
	"github.com/getcharzp/sam2-tools/session"
	"github.com/up-zero/gotool/convertutil"
	"github.com/up-zero/gotool/imageutil"

	ort "github.com/yalue/onnxruntime_go"
)

// ErrContextDestroyed 图片特征已释放
var ErrContextDestroyed = errors.New("图片特征已销毁")

// Engine 持有 ONNX Session，负责创建 ImageContext
//
// 模型加载代价较高, 一个 Engine 可以依次为多张图片创建 ImageContext
type Engine struct {
	encoderSession *ort.DynamicAdvancedSession
	decoderSession *ort.DynamicAdvancedSession
	onnxConfig     *sam2tools.OnnxConfig
	config         Config
}

// NewEngine 初始化 sam2 引擎
func NewEngine(cfg Config) (*Engine, error) {
	onnxConfig := new(sam2tools.OnnxConfig)
	if err := convertutil.CopyProperties(cfg, onnxConfig); err != nil {
		return nil, fmt.Errorf("复制参数失败: %w", err)
	}
	// 初始化 ONNX
	if err := onnxConfig.New(); err != nil {
		return nil, err
	}

	// encoder session
	encInputs := []string{"pixel_values"}
	encOutputs := []string{"image_embeddings.0", "image_embeddings.1", "image_embeddings.2"}
	encSession, err := ort.NewDynamicAdvancedSession(cfg.EncodeModelPath, encInputs, encOutputs, onnxConfig.SessionOptions)
	if err != nil {
		onnxConfig.Destroy()
		return nil, fmt.Errorf("创建 Encoder ONNX 会话失败: %w", err)
	}

	// decoder session
	decInputs := []string{
		"input_points", "input_labels", "input_boxes",
		"image_embeddings.0", "image_embeddings.1", "image_embeddings.2",
	}
	decOutputs := []string{"iou_scores", "pred_masks", "object_score_logits"}
	decSession, err := ort.NewDynamicAdvancedSession(cfg.DecodeModelPath, decInputs, decOutputs, onnxConfig.SessionOptions)
	if err != nil {
		encSession.Destroy()
		onnxConfig.Destroy()
		return nil, fmt.Errorf("创建 Decoder ONNX 会话失败: %w", err)
	}

	return &Engine{
		encoderSession: encSession,
		decoderSession: decSession,
		onnxConfig:     onnxConfig,
		config:         cfg,
	}, nil
}

// Destroy 释放相关资源
func (e *Engine) Destroy() error {
	defer e.onnxConfig.Destroy()
	if e.encoderSession != nil {
		if err := e.encoderSession.Destroy(); err != nil {
			return fmt.Errorf("销毁 Encoder ONNX 会话失败: %w", err)
		}
	}
	if e.decoderSession != nil {
		if err := e.decoderSession.Destroy(); err != nil {
			return fmt.Errorf("销毁 Decoder ONNX 会话失败: %w", err)
		}
	}
	return nil
}

// ImageContext 包含特定图像的特征缓存和参数
//
// 由 EncodeImage 创建, 即"设置当前图片", 每张图片只需编码一次,
// 之后的点选/框选/自动分割都复用同一份特征
type ImageContext struct {
	engine          *Engine
	imageEmbeddings []ort.Value

	geom        geometry
	isDestroyed bool
}

// EncodeImage 图像特征提取
func (e *Engine) EncodeImage(img image.Image) (*ImageContext, error) {
	bounds := img.Bounds()
	geom := newGeometry(bounds.Dx(), bounds.Dy())

	resizedImg := imageutil.Resize(img, geom.newW, geom.newH)
	tensorData := normalizeAndPad(resizedImg, inputSize, inputSize)

	inputTensor, err := ort.NewTensor(ort.NewShape(1, 3, int64(inputSize), int64(inputSize)), tensorData)
	if err != nil {
		return nil, fmt.Errorf("创建图片 Input Tensor 失败: %w", err)
	}
	defer inputTensor.Destroy()

	// Encoder 推理
	outputs := make([]ort.Value, 3)
	if err := e.encoderSession.Run([]ort.Value{inputTensor}, outputs); err != nil {
		return nil, fmt.Errorf("encoder 推理失败: %w", err)
	}

	ctx := &ImageContext{
		engine:          e,
		imageEmbeddings: outputs,
		geom:            geom,
	}

	// 设置 Finalizer 以防用户忘记 Destroy
	runtime.SetFinalizer(ctx, func(c *ImageContext) { c.Destroy() })

	return ctx, nil
}

// Destroy 释放图像特征缓存
func (ctx *ImageContext) Destroy() {
	if ctx.isDestroyed {
		return
	}
	for _, v := range ctx.imageEmbeddings {
		if v != nil {
			v.Destroy()
		}
	}
	ctx.imageEmbeddings = nil
	ctx.isDestroyed = true
}

// Size 原图尺寸
func (ctx *ImageContext) Size() (width, height int) {
	return ctx.geom.origW, ctx.geom.origH
}

// Predict 按提示预测 Mask
//
// 点集使用 0/1 标签, 框转换为左上/右下两个标签为 2/3 的点;
// 提示为空时执行自动分割. multi 为 false 时只返回分数最高的结果
func (ctx *ImageContext) Predict(p prompt.Prompt, multi bool) ([]mask.Scored, error) {
	if ctx.isDestroyed {
		return nil, ErrContextDestroyed
	}
	if p.Empty() {
		return ctx.Generate()
	}

	hyps, err := ctx.decode(promptPoints(p))
	if err != nil {
		return nil, err
	}
	if !multi {
		hyps = []hypothesis{bestHypothesis(hyps)}
	}

	results := make([]mask.Scored, 0, len(hyps))
	for _, h := range hyps {
		results = append(results, ctx.toScored(h))
	}
	return results, nil
}

// Generate 自动分割: 在网格上逐点查询, 过滤低分候选并去重, 按分数降序返回
func (ctx *ImageContext) Generate() ([]mask.Scored, error) {
	if ctx.isDestroyed {
		return nil, ErrContextDestroyed
	}
	cfg := ctx.engine.config

	var cands []hypothesis
	for _, pt := range gridPoints(ctx.geom.origW, ctx.geom.origH, cfg.PointsPerSide) {
		hyps, err := ctx.decode([]decoderPoint{pt})
		if err != nil {
			return nil, err
		}
		for _, h := range hyps {
			if h.score >= cfg.PredIOUThresh && h.area(cfg.MaskThreshold) > 0 {
				cands = append(cands, h)
			}
		}
	}

	kept := dedupe(cands, cfg.MaskThreshold, cfg.DedupIOUThresh)
	results := make([]mask.Scored, 0, len(kept))
	for _, h := range kept {
		results = append(results, ctx.toScored(h))
	}
	return results, nil
}

// decode 运行 decoder, 返回全部候选 (低分辨率 logits)
func (ctx *ImageContext) decode(points []decoderPoint) ([]hypothesis, error) {
	if len(points) == 0 {
		return nil, errors.New("decoder 至少需要一个点")
	}

	// 坐标转换
	coords := make([]float32, 0, len(points)*2)
	labels := make([]int64, 0, len(points))
	for _, pt := range points {
		coords = append(coords, pt.x*ctx.geom.scale, pt.y*ctx.geom.scale)
		labels = append(labels, pt.label)
	}
	numPoints := int64(len(points))

	tPoints, err := ort.NewTensor(ort.NewShape(1, 1, numPoints, 2), coords)
	if err != nil {
		return nil, fmt.Errorf("创建 Decoder Points Tensor 失败: %w", err)
	}
	defer tPoints.Destroy()

	tLabels, err := ort.NewTensor(ort.NewShape(1, 1, numPoints), labels)
	if err != nil {
		return nil, fmt.Errorf("创建 Decoder Labels Tensor 失败: %w", err)
	}
	defer tLabels.Destroy()

	// box 通过 point 控制
	var emptyFloat []float32
	tBoxes, err := ort.NewTensor(ort.NewShape(1, 0, 4), emptyFloat)
	if err != nil {
		return nil, fmt.Errorf("创建 Decoder Boxes Tensor 失败: %w", err)
	}
	defer tBoxes.Destroy()

	inputs := []ort.Value{
		tPoints,
		tLabels,
		tBoxes,
		ctx.imageEmbeddings[0],
		ctx.imageEmbeddings[1],
		ctx.imageEmbeddings[2],
	}
	outputs := make([]ort.Value, 3)

	// Decoder 推理
	if err := ctx.engine.decoderSession.Run(inputs, outputs); err != nil {
		return nil, fmt.Errorf("decoder 推理失败: %w", err)
	}
	defer func() {
		for _, o := range outputs {
			if o != nil {
				o.Destroy()
			}
		}
	}()

	scoresTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, errors.New("iou_scores 类型错误")
	}
	masksTensor, ok := outputs[1].(*ort.Tensor[float32])
	if !ok {
		return nil, errors.New("pred_masks 类型错误")
	}

	// pred_masks: [1, 1, N, dim, dim]
	shape := masksTensor.GetShape()
	if len(shape) < 2 {
		return nil, fmt.Errorf("pred_masks 形状错误: %v", shape)
	}
	logitsDim := int(shape[len(shape)-1])

	return splitHypotheses(scoresTensor.GetData(), masksTensor.GetData(), logitsDim, ctx.geom)
}

// toScored 将低分辨率候选放大到原图尺寸
func (ctx *ImageContext) toScored(h hypothesis) mask.Scored {
	cfg := ctx.engine.config
	m := upscaleMaskLogits(h.logits, h.validW, h.validH, ctx.geom.origW, ctx.geom.origH)
	if !cfg.ReturnLogits {
		binarize(m, cfg.MaskThreshold)
	}
	return mask.Scored{Mask: m, Score: h.score}
}

// promptPoints 将提示转换为 decoder 的点
func promptPoints(p prompt.Prompt) []decoderPoint {
	var pts []decoderPoint
	for _, pt := range p.Points {
		label := labelBackground
		if pt.Label == prompt.Foreground {
			label = labelForeground
		}
		pts = append(pts, decoderPoint{x: float32(pt.X), y: float32(pt.Y), label: label})
	}
	if p.Box != nil {
		b := p.Box.Normalize()
		pts = append(pts,
			decoderPoint{x: float32(b.X1), y: float32(b.Y1), label: labelBoxTopLeft},
			decoderPoint{x: float32(b.X2), y: float32(b.Y2), label: labelBoxBotRight},
		)
	}
	return pts
}

var _ session.Predictor = (*ImageContext)(nil)
