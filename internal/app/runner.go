package app

import (
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/up-zero/gotool/imageutil"
	"golang.org/x/image/font/gofont/goregular"

	// imageutil.Open 依赖 image.Decode, 注册额外的输入格式
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	sam2tools "github.com/getcharzp/sam2-tools"
	"github.com/getcharzp/sam2-tools/internal/config"
	"github.com/getcharzp/sam2-tools/mask"
	"github.com/getcharzp/sam2-tools/output"
	"github.com/getcharzp/sam2-tools/prompt"
	"github.com/getcharzp/sam2-tools/session"
)

// 输出的提示信息
const (
	MsgNoMaskGenerated = "No mask generated."
	MsgNoMasksReturned = "No masks returned."
)

// ErrNoInteract 需要交互但没有配置前端
var ErrNoInteract = errors.New("未配置交互前端")

// Predictor 已设置好当前图片的分割模型
type Predictor interface {
	session.Predictor
	Close() error
}

// Opener 加载模型并设置当前图片, 每次请求调用一次
type Opener func(store *config.Store, modelID int, img image.Image) (Predictor, error)

// Interactor 驱动状态机直到结束或用户退出
type Interactor func(m session.Machine, img image.Image, mode Mode) error

// Report 一次请求的结果
type Report struct {
	RunID     string
	Saved     []output.Artifact
	Overlay   string // 叠加图路径, 未生成时为空
	Cancelled bool
	NoMask    bool
}

// Runner 执行分割请求
type Runner struct {
	Store         *config.Store
	Logger        *slog.Logger
	Out           io.Writer // "Saved: ..." 等结果输出
	OpenPredictor Opener
	Interact      Interactor
}

// Run 执行一次请求
//
// 用户取消时返回 Cancelled 且不产生任何文件; 模型没有结果时返回 NoMask, 不是错误
func (r *Runner) Run(req Request) (*Report, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(req.Input); err != nil {
		return nil, &InputError{Field: "input", Reason: err.Error()}
	}
	if _, err := r.Store.Lookup(req.ModelID); err != nil {
		return nil, err
	}

	report := &Report{RunID: uuid.NewString()}
	logger := r.logger().With("run", report.RunID, "mode", req.Mode.String(), "model", req.ModelID)

	img, err := imageutil.Open(req.Input)
	if err != nil {
		return nil, fmt.Errorf("打开图片失败: %w", err)
	}
	logger.Debug("image loaded", "path", req.Input, "size", img.Bounds().Size().String())

	pred, err := r.OpenPredictor(r.Store, req.ModelID, img)
	if err != nil {
		return nil, fmt.Errorf("加载模型失败: %w", err)
	}
	defer func() {
		if err := pred.Close(); err != nil {
			logger.Warn("释放模型失败", "error", err)
		}
	}()

	var masks []mask.Scored
	switch req.Mode {
	case ModePoints:
		masks, err = r.runPoints(req, pred, img, logger, report)
	case ModeBox:
		masks, err = r.runBox(req, pred, img, logger, report)
	case ModeAuto:
		masks, err = r.runAuto(req, pred, logger, report)
	}
	if err != nil || report.Cancelled || report.NoMask {
		return report, err
	}

	if err := r.save(req, img, masks, logger, report); err != nil {
		return report, err
	}
	return report, nil
}

func (r *Runner) runPoints(req Request, pred Predictor, img image.Image, logger *slog.Logger, report *Report) ([]mask.Scored, error) {
	s := session.NewPointSession(pred, session.WithLogger(logger))
	if err := r.interact(s, img, req.Mode); err != nil {
		return nil, err
	}
	return r.collect(s, MsgNoMaskGenerated, report), nil
}

func (r *Runner) runBox(req Request, pred Predictor, img image.Image, logger *slog.Logger, report *Report) ([]mask.Scored, error) {
	s := session.NewBoxSession(pred, req.NumMasks, session.WithLogger(logger))
	if req.Box != nil {
		if _, err := s.SetBox(*req.Box); err != nil {
			return nil, err
		}
		if _, err := s.Confirm(); err != nil {
			return nil, err
		}
	} else if err := r.interact(s, img, req.Mode); err != nil {
		return nil, err
	}
	return r.collect(s, MsgNoMasksReturned, report), nil
}

func (r *Runner) runAuto(req Request, pred Predictor, logger *slog.Logger, report *Report) ([]mask.Scored, error) {
	results, err := pred.Predict(prompt.Prompt{}, true)
	if err != nil {
		return nil, fmt.Errorf("自动分割失败: %w", err)
	}
	logger.Debug("auto segmentation finished", "candidates", len(results))

	ranked := mask.Rank(results, req.NumMasks)
	if len(ranked) == 0 {
		report.NoMask = true
		r.println(MsgNoMasksReturned)
	}
	return ranked, nil
}

func (r *Runner) interact(m session.Machine, img image.Image, mode Mode) error {
	if r.Interact == nil {
		return ErrNoInteract
	}
	return r.Interact(m, img, mode)
}

// collect 读取会话结果; 未确认就退出的会话视为取消
func (r *Runner) collect(m session.Machine, noMaskMsg string, report *Report) []mask.Scored {
	out := m.Outcome()
	switch {
	case m.Render().State == session.Cancelled:
		report.Cancelled = true
	case out.NoMask || (m.Terminal() && len(out.Masks) == 0):
		report.NoMask = true
		r.println(noMaskMsg)
	case !m.Terminal():
		report.Cancelled = true
	}
	return out.Masks
}

// save 依次写出 Mask 和叠加图, 中途失败时保留已写出的文件
func (r *Runner) save(req Request, img image.Image, masks []mask.Scored, logger *slog.Logger, report *Report) error {
	dir := req.Output
	if dir == "" {
		dir = filepath.Dir(req.Input)
	}
	base := strings.TrimSuffix(filepath.Base(req.Input), filepath.Ext(req.Input))

	w, err := output.NewWriter(dir, base, req.Format(), logger)
	if err != nil {
		return err
	}

	var saved []output.Artifact
	if req.Mode == ModePoints {
		var a output.Artifact
		if a, err = w.WriteSingle(masks[0]); err == nil {
			saved = []output.Artifact{a}
		}
	} else {
		saved, err = w.WriteAll(masks)
	}
	report.Saved = saved
	r.printSaved(saved)
	if err != nil {
		return err
	}

	if req.Overlay {
		drawer, err := r.textDrawer()
		if err != nil {
			logger.Warn("加载字体失败, 叠加图不标注分数", "error", err)
		} else {
			defer drawer.Close()
		}
		path, err := w.WriteOverlay(img, masks[0], drawer)
		if err != nil {
			return err
		}
		report.Overlay = path
		r.println("Saved: " + path)
	}
	return nil
}

// textDrawer 优先使用配置的字体, 否则使用内置的 Go 字体
func (r *Runner) textDrawer() (*sam2tools.TextDrawer, error) {
	if r.Store != nil && r.Store.FontPath != "" {
		return sam2tools.NewTextDrawer(r.Store.FontPath)
	}
	return sam2tools.NewTextDrawerFromBytes(goregular.TTF)
}

func (r *Runner) printSaved(artifacts []output.Artifact) {
	for _, a := range artifacts {
		r.println("Saved: " + a.Path)
	}
}

func (r *Runner) println(msg string) {
	if r.Out != nil {
		fmt.Fprintln(r.Out, msg)
	}
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.Logger
}
