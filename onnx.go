package sam2tools

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ErrEmptyLibraryPath OnnxRuntime 动态库路径为空
var ErrEmptyLibraryPath = errors.New("OnnxRuntimeLibPath 不能为空")

// OnnxConfig ONNX Runtime 运行环境配置
type OnnxConfig struct {
	SessionOptions *ort.SessionOptions

	// 必填参数
	OnnxRuntimeLibPath string // onnxruntime.dll (或 .so, .dylib) 的路径
	// 可选参数
	UseCuda    bool // (可选) 是否启用 CUDA
	NumThreads int  // (可选) ONNX 线程数, 默认由CPU核心数决定
}

var (
	initErr error
	once    sync.Once
)

// New 初始化 ONNX 环境并创建会话选项
//
// 运行环境在进程内只初始化一次, 多个引擎共享同一个环境
func (cfg *OnnxConfig) New() error {
	if cfg.OnnxRuntimeLibPath == "" {
		return ErrEmptyLibraryPath
	}
	if _, err := os.Stat(cfg.OnnxRuntimeLibPath); err != nil {
		return fmt.Errorf("ONNX Runtime 动态库不可用: %w", err)
	}
	once.Do(func() {
		ort.SetSharedLibraryPath(cfg.OnnxRuntimeLibPath)
		initErr = ort.InitializeEnvironment()
	})
	if initErr != nil {
		return fmt.Errorf("初始化 ONNX Runtime 环境失败: %w", initErr)
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return fmt.Errorf("创建 SessionOptions 失败: %w", err)
	}
	if cfg.NumThreads > 0 {
		if err := options.SetIntraOpNumThreads(cfg.NumThreads); err != nil {
			options.Destroy()
			return fmt.Errorf("设置线程数失败: %w", err)
		}
	}

	if cfg.UseCuda {
		cudaOptions, err := ort.NewCUDAProviderOptions()
		if err != nil {
			options.Destroy()
			return fmt.Errorf("创建 CUDAProviderOptions 失败: %w", err)
		}
		defer cudaOptions.Destroy()
		if err := options.AppendExecutionProviderCUDA(cudaOptions); err != nil {
			options.Destroy()
			return fmt.Errorf("添加 CUDA 执行提供者失败: %w", err)
		}
	}
	cfg.SessionOptions = options

	return nil
}

// Destroy 释放会话选项
func (cfg *OnnxConfig) Destroy() {
	if cfg.SessionOptions != nil {
		cfg.SessionOptions.Destroy()
		cfg.SessionOptions = nil
	}
}

// DefaultLibraryPath 根据运行时环境判断加载哪个库文件
func DefaultLibraryPath() string {
	baseDir := "lib"
	libName := "onnxruntime"

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(baseDir, libName+".dll")
	case "darwin":
		return filepath.Join(baseDir, fmt.Sprintf("%s_%s.dylib", libName, runtime.GOARCH))
	case "linux":
		return filepath.Join(baseDir, fmt.Sprintf("%s_%s.so", libName, runtime.GOARCH))
	default:
		return filepath.Join(baseDir, libName+"_amd64.so")
	}
}
