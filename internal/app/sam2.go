package app

import (
	"fmt"
	"image"

	"github.com/getcharzp/sam2-tools/internal/config"
	"github.com/getcharzp/sam2-tools/sam2"
)

// sam2Predictor 持有引擎和当前图片的特征
type sam2Predictor struct {
	*sam2.ImageContext
	engine *sam2.Engine
}

// OpenSAM2 加载配置中的 checkpoint, 并对图片编码一次
func OpenSAM2(store *config.Store, modelID int, img image.Image) (Predictor, error) {
	cfg, err := store.EngineConfig(modelID)
	if err != nil {
		return nil, err
	}
	engine, err := sam2.NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	ctx, err := engine.EncodeImage(img)
	if err != nil {
		engine.Destroy()
		return nil, fmt.Errorf("设置当前图片失败: %w", err)
	}
	return &sam2Predictor{ImageContext: ctx, engine: engine}, nil
}

// Close 释放图片特征和引擎
func (p *sam2Predictor) Close() error {
	p.ImageContext.Destroy()
	return p.engine.Destroy()
}
