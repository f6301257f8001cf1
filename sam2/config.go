package sam2

import "github.com/getcharzp/go-sphericity"

type Label int

const (
	LabelBackground  Label = 0 // 背景/排除
	LabelForeground  Label = 1 // 前景/点击
	LabelBoxTopLeft  Label = 2 // 框选左上
	LabelBoxBotRight Label = 3 // 框选右下
)

// 均值和方差常量
const (
	MeanG = 0.456
	MeanB = 0.406
	MeanR = 0.485

	StdG = 0.224
	StdB = 0.225
	StdR = 0.229
)

const (
	// inputSize 输入图片的长边尺寸
	inputSize = 1024
	// maskDim decoder 输出的低分辨率 mask 边长
	maskDim = 256
	// maskThreshold 阈值
	maskThreshold = 0.0
)

// DownloadURL SAM2 ONNX 导出权重 (vision_encoder / prompt_encoder_mask_decoder) 的获取地址
const DownloadURL = "https://huggingface.co/onnx-community"

type Point struct {
	X, Y  float32
	Label Label
}

// Config 配置项
type Config struct {
	// 必填参数
	OnnxRuntimeLibPath string // onnxruntime.dll (或 .so, .dylib) 的路径
	EncodeModelPath    string // 图片特征提取模型
	DecodeModelPath    string // Mask解码模型

	// 可选参数
	UseCuda    bool // (可选) 是否启用 CUDA
	NumThreads int  // (可选) ONNX 线程数, 默认由CPU核心数决定
}

// DefaultConfig 返回默认配置，模型路径相对于工作目录
func DefaultConfig() Config {
	return Config{
		OnnxRuntimeLibPath: sphericity.DefaultLibraryPath(),
		EncodeModelPath:    "./sam2_weights/vision_encoder.onnx",
		DecodeModelPath:    "./sam2_weights/prompt_encoder_mask_decoder.onnx",
	}
}

// ModelFiles 启动前需要存在的模型文件
func (c Config) ModelFiles() []string {
	return []string{c.EncodeModelPath, c.DecodeModelPath}
}
