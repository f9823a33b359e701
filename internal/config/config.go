// Package config 管理模型编号到 checkpoint 的映射, 首次使用时自动创建
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	sam2tools "github.com/getcharzp/sam2-tools"
	"github.com/getcharzp/sam2-tools/sam2"
)

// ErrUnknownModel 配置中没有该模型编号
var ErrUnknownModel = errors.New("配置中没有该模型")

// relPath 配置文件相对 XDG 配置目录的路径
const relPath = "sam2-tools/config.yaml"

// Model 内置模型编号
type Model struct {
	ID   int
	Name string
	Dir  string // 默认的 checkpoint 目录名
}

// Models 编号 1-4 依次为 Large / Base+ / Small / Tiny
var Models = []Model{
	{ID: 1, Name: "Large", Dir: "sam2.1_hiera_large"},
	{ID: 2, Name: "Base+", Dir: "sam2.1_hiera_base_plus"},
	{ID: 3, Name: "Small", Dir: "sam2.1_hiera_small"},
	{ID: 4, Name: "Tiny", Dir: "sam2.1_hiera_tiny"},
}

// ModelByName 按显示名称查找模型编号
func ModelByName(name string) (int, bool) {
	for _, m := range Models {
		if m.Name == name {
			return m.ID, true
		}
	}
	return 0, false
}

// Store 配置文件内容
type Store struct {
	OnnxRuntimeLib string         `yaml:"onnxruntime_lib"`
	UseCuda        bool           `yaml:"use_cuda"`
	NumThreads     int            `yaml:"num_threads"`
	FontPath       string         `yaml:"font_path,omitempty"`
	PointsPerSide  int            `yaml:"points_per_side,omitempty"`
	Checkpoints    map[int]string `yaml:"checkpoints"`

	path string
}

// Checkpoint 模型编号对应的 checkpoint 目录
type Checkpoint struct {
	ModelID int
	Dir     string
}

// DefaultStore 默认配置, checkpoint 目录位于 XDG 数据目录下
func DefaultStore() *Store {
	base := filepath.Join(xdg.DataHome, "sam2-tools", "checkpoints")
	s := &Store{
		OnnxRuntimeLib: sam2tools.DefaultLibraryPath(),
		Checkpoints:    make(map[int]string, len(Models)),
	}
	for _, m := range Models {
		s.Checkpoints[m.ID] = filepath.Join(base, m.Dir)
	}
	return s
}

// DefaultPath 默认配置文件路径, 会创建所在目录
func DefaultPath() (string, error) {
	path, err := xdg.ConfigFile(relPath)
	if err != nil {
		return "", fmt.Errorf("解析配置路径失败: %w", err)
	}
	return path, nil
}

// LoadOrCreate 读取配置文件, 不存在时写入默认配置
//
// created 表示本次调用新建了配置文件
func LoadOrCreate(path string) (store *Store, created bool, err error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		store = DefaultStore()
		store.path = path
		if err := store.Save(); err != nil {
			return nil, false, err
		}
		return store, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("读取配置失败: %w", err)
	}

	store = &Store{}
	if err := yaml.Unmarshal(data, store); err != nil {
		return nil, false, fmt.Errorf("解析配置 %s 失败: %w", path, err)
	}
	store.path = path
	return store, false, nil
}

// Path 配置文件路径
func (s *Store) Path() string { return s.path }

// Save 写回配置文件
func (s *Store) Save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("创建配置目录失败: %w", err)
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("写入配置失败: %w", err)
	}
	return nil
}

// Lookup 查找模型编号对应的 checkpoint
func (s *Store) Lookup(modelID int) (Checkpoint, error) {
	dir, ok := s.Checkpoints[modelID]
	if !ok || dir == "" {
		return Checkpoint{}, fmt.Errorf("%w: %d (可用: %v)", ErrUnknownModel, modelID, s.ModelIDs())
	}
	return Checkpoint{ModelID: modelID, Dir: dir}, nil
}

// ModelIDs 已配置的模型编号, 升序
func (s *Store) ModelIDs() []int {
	ids := make([]int, 0, len(s.Checkpoints))
	for id := range s.Checkpoints {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// EngineConfig 生成模型编号对应的 sam2 引擎配置
func (s *Store) EngineConfig(modelID int) (sam2.Config, error) {
	ckpt, err := s.Lookup(modelID)
	if err != nil {
		return sam2.Config{}, err
	}
	cfg := sam2.CheckpointConfig(ckpt.Dir)
	if s.OnnxRuntimeLib != "" {
		cfg.OnnxRuntimeLibPath = s.OnnxRuntimeLib
	}
	cfg.UseCuda = s.UseCuda
	cfg.NumThreads = s.NumThreads
	if s.PointsPerSide > 0 {
		cfg.PointsPerSide = s.PointsPerSide
	}
	return cfg, nil
}
