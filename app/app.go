// Package app 组装图片、分割后端、圆度分析、渲染与交互窗口
package app

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	fyneapp "fyne.io/fyne/v2/app"
	"github.com/rs/zerolog"

	"github.com/getcharzp/go-sphericity"
	"github.com/getcharzp/go-sphericity/geometry"
	"github.com/getcharzp/go-sphericity/prompt"
	"github.com/getcharzp/go-sphericity/render"
	"github.com/getcharzp/go-sphericity/roundness"
	"github.com/getcharzp/go-sphericity/sam2"
	"github.com/getcharzp/go-sphericity/segment"
	"github.com/getcharzp/go-sphericity/ui"
	"github.com/getcharzp/go-sphericity/yolov11"
)

const appID = "com.getcharzp.sphericity"

// App 一次交互会话所需的全部资源
type App struct {
	cfg        Config
	img        image.Image
	text       *sphericity.TextDrawer
	overlay    *render.Overlay
	controller *prompt.Controller
	closers    []func() error
	log        zerolog.Logger
}

// New 加载图片和模型并组装控制器，失败时已创建的资源会被释放
func New(cfg Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, log: sphericity.Logger("app")}

	img, err := sphericity.LoadImage(cfg.ImagePath)
	if err != nil {
		return nil, err
	}
	a.img = img

	predictor, err := a.newPredictor(img)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.text, err = sphericity.NewTextDrawer(cfg.FontPath)
	if err != nil {
		a.Close()
		return nil, err
	}
	if err := a.text.SetSize(cfg.FontSize); err != nil {
		a.Close()
		return nil, err
	}

	solver, fellBack := geometry.NewSolver(cfg.Solver)
	if fellBack {
		a.log.Warn().Str("solver", cfg.Solver).Msg("未使用 gocv 标签构建，回退到 welzl")
	}

	a.overlay = render.NewOverlay(img, a.text, nil)
	if cfg.Style != (render.Style{}) {
		a.overlay.SetStyle(cfg.Style)
	}
	a.controller = prompt.NewController(predictor, roundness.NewAnalyzer(solver), a.overlay,
		prompt.WithReport(os.Stdout))

	b := img.Bounds()
	a.log.Info().
		Str("image", cfg.ImagePath).
		Int("width", b.Dx()).
		Int("height", b.Dy()).
		Str("backend", string(cfg.Backend)).
		Msg("初始化完成")
	return a, nil
}

// newPredictor 按后端创建点提示分割器，并登记释放函数
func (a *App) newPredictor(img image.Image) (segment.Predictor, error) {
	switch a.cfg.Backend {
	case BackendSAM2:
		engine, err := sam2.NewEngine(a.cfg.SAM2)
		if err != nil {
			return nil, fmt.Errorf("初始化 SAM2 失败: %w", err)
		}
		a.closers = append(a.closers, engine.Destroy)

		imgCtx, err := engine.EncodeImage(img)
		if err != nil {
			return nil, fmt.Errorf("图片编码失败: %w", err)
		}
		a.closers = append(a.closers, func() error {
			imgCtx.Destroy()
			return nil
		})
		return sam2.NewSegmenter(imgCtx), nil

	case BackendYOLOv11:
		engine, err := yolov11.NewSegEngine(a.cfg.YOLOv11)
		if err != nil {
			return nil, fmt.Errorf("初始化 YOLOv11 失败: %w", err)
		}
		a.closers = append(a.closers, engine.Destroy)
		return yolov11.NewSegmenter(engine, img), nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, a.cfg.Backend)
	}
}

// Run 打开窗口并阻塞到窗口关闭
func (a *App) Run() {
	fa := fyneapp.NewWithID(appID)
	win := ui.NewWindow(fa, "Sphericity - "+filepath.Base(a.cfg.ImagePath), a.overlay.Frame(), a.controller)
	a.overlay.SetSink(win.Sink())

	win.ShowAndRun()
	// 等待进行中的推理结束再释放模型
	win.Wait()
}

// Close 按创建的逆序释放资源
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Error().Err(err).Msg("释放资源失败")
		}
	}
	a.closers = nil
	if a.text != nil {
		a.text.Close()
		a.text = nil
	}
}
