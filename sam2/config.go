package sam2

import (
	"path/filepath"

	sam2tools "github.com/getcharzp/sam2-tools"
)

// decoder 的 input_labels 取值
const (
	labelBackground  int64 = 0 // 背景/排除
	labelForeground  int64 = 1 // 前景/点击
	labelBoxTopLeft  int64 = 2 // 框选左上
	labelBoxBotRight int64 = 3 // 框选右下
)

// 均值和方差常量
const (
	MeanR = 0.485
	MeanG = 0.456
	MeanB = 0.406

	StdR = 0.229
	StdG = 0.224
	StdB = 0.225
)

// inputSize 输入图片的长边尺寸
const inputSize = 1024

// 模型文件名, 一个 checkpoint 目录下包含这两个文件
const (
	EncoderFileName = "vision_encoder.onnx"
	DecoderFileName = "prompt_encoder_mask_decoder.onnx"
)

// Config 配置项
type Config struct {
	// 必填参数
	OnnxRuntimeLibPath string // onnxruntime.dll (或 .so, .dylib) 的路径
	EncodeModelPath    string // 图片特征提取模型
	DecodeModelPath    string // Mask解码模型

	// 推理参数
	MaskThreshold float32 // Mask 二值化阈值 (默认 0.0, 作用于 logits)
	ReturnLogits  bool    // 返回原始 logits 而不是 {0, 1}

	// 自动分割参数
	PointsPerSide  int     // 网格每边的采样点数 (默认 16)
	PredIOUThresh  float32 // 候选的最低分数 (默认 0.8)
	DedupIOUThresh float32 // 候选间 Mask IoU 超过该值视为重复 (默认 0.7)

	// 可选参数
	UseCuda    bool // (可选) 是否启用 CUDA
	NumThreads int  // (可选) ONNX 线程数, 默认由CPU核心数决定
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		OnnxRuntimeLibPath: sam2tools.DefaultLibraryPath(),
		EncodeModelPath:    filepath.Join("sam2_weights", EncoderFileName),
		DecodeModelPath:    filepath.Join("sam2_weights", DecoderFileName),
		MaskThreshold:      0.0,
		PointsPerSide:      16,
		PredIOUThresh:      0.8,
		DedupIOUThresh:     0.7,
	}
}

// CheckpointConfig 使用 checkpoint 目录下的模型文件
func CheckpointConfig(dir string) Config {
	cfg := DefaultConfig()
	cfg.EncodeModelPath = filepath.Join(dir, EncoderFileName)
	cfg.DecodeModelPath = filepath.Join(dir, DecoderFileName)
	return cfg
}
