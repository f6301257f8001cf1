package app

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/getcharzp/go-sphericity"
	"github.com/getcharzp/go-sphericity/render"
	"github.com/getcharzp/go-sphericity/sam2"
	"github.com/getcharzp/go-sphericity/yolov11"
)

// Backend 分割后端
type Backend string

const (
	BackendSAM2    Backend = "sam2"
	BackendYOLOv11 Backend = "yolov11"
)

// 环境变量
const (
	EnvBackend  = "SPHERICITY_BACKEND"
	EnvLibrary  = "ONNXRUNTIME_LIB"
	EnvFont     = "SPHERICITY_FONT"
	EnvCuda     = "SPHERICITY_CUDA"
	EnvSolver   = "SPHERICITY_SOLVER"
	EnvLogLevel = "SPHERICITY_LOG_LEVEL"
)

var (
	ErrImageNotFound      = errors.New("图片不存在")
	ErrCheckpointNotFound = errors.New("模型文件不存在")
	ErrUnknownBackend     = errors.New("未知的分割后端")
)

// Config 应用配置
type Config struct {
	ImagePath          string  // 待分析图片
	Backend            Backend // 分割后端 (默认 sam2)
	OnnxRuntimeLibPath string  // ONNX Runtime 动态库路径
	FontPath           string  // (可选) 标注字体，为空使用内置点阵字体
	FontSize           float64 // 标注字号 (默认 18)
	UseCuda            bool    // (可选) 是否启用 CUDA
	Solver             string  // 最小外接圆求解器: welzl | opencv
	LogLevel           string  // 日志级别 (默认 info)

	Style render.Style // 叠加层样式，零值时使用 render.DefaultStyle

	SAM2    sam2.Config
	YOLOv11 yolov11.Config
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		Backend:            BackendSAM2,
		OnnxRuntimeLibPath: sphericity.DefaultLibraryPath(),
		FontSize:           18,
		Solver:             "welzl",
		LogLevel:           "info",
		Style:              render.DefaultStyle(),
		SAM2:               sam2.DefaultConfig(),
		YOLOv11:            yolov11.DefaultSegConfig(),
	}
}

// LoadConfig 以默认配置为基础读取环境变量
//
// # Params:
//
//	imagePath: 图片路径
//	getenv: 环境变量读取函数，nil 时使用 os.Getenv
func LoadConfig(imagePath string, getenv func(string) string) Config {
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg := DefaultConfig()
	cfg.ImagePath = imagePath

	if v := strings.ToLower(strings.TrimSpace(getenv(EnvBackend))); v != "" {
		cfg.Backend = Backend(v)
	}
	if v := getenv(EnvLibrary); v != "" {
		cfg.OnnxRuntimeLibPath = v
	}
	if v := getenv(EnvFont); v != "" {
		cfg.FontPath = v
	}
	switch strings.ToLower(getenv(EnvCuda)) {
	case "1", "true", "yes":
		cfg.UseCuda = true
	}
	if v := strings.ToLower(getenv(EnvSolver)); v != "" {
		cfg.Solver = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}

	cfg.SAM2.OnnxRuntimeLibPath = cfg.OnnxRuntimeLibPath
	cfg.SAM2.UseCuda = cfg.UseCuda
	cfg.YOLOv11.OnnxRuntimeLibPath = cfg.OnnxRuntimeLibPath
	cfg.YOLOv11.UseCuda = cfg.UseCuda
	return cfg
}

// ModelFiles 当前后端需要的模型文件
func (c Config) ModelFiles() ([]string, error) {
	switch c.Backend {
	case BackendSAM2:
		return c.SAM2.ModelFiles(), nil
	case BackendYOLOv11:
		return c.YOLOv11.ModelFiles(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend)
	}
}

// downloadURL 当前后端的模型获取地址
func (c Config) downloadURL() string {
	if c.Backend == BackendYOLOv11 {
		return yolov11.DownloadURL
	}
	return sam2.DownloadURL
}

// Validate 启动前检查图片和模型文件
func (c Config) Validate() error {
	if c.ImagePath == "" {
		return fmt.Errorf("%w: 未指定图片路径", ErrImageNotFound)
	}
	if fi, err := os.Stat(c.ImagePath); err != nil || fi.IsDir() {
		return fmt.Errorf("%w: %s", ErrImageNotFound, c.ImagePath)
	}

	files, err := c.ModelFiles()
	if err != nil {
		return err
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return fmt.Errorf("%w: %s，请从 %s 下载", ErrCheckpointNotFound, f, c.downloadURL())
		}
	}
	return nil
}

// 退出码
const (
	ExitOK              = 0
	ExitImageNotFound   = 1
	ExitCheckpointError = 2
	ExitInitFailed      = 3
)

// ExitCode 把错误映射为进程退出码
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrImageNotFound):
		return ExitImageNotFound
	case errors.Is(err, ErrCheckpointNotFound):
		return ExitCheckpointError
	default:
		return ExitInitFailed
	}
}
