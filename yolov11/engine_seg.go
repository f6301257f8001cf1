package yolov11

import (
	"fmt"
	"image"

	"github.com/up-zero/gotool/convertutil"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/getcharzp/go-sphericity"
	"github.com/getcharzp/go-sphericity/segment"
)

// SegEngine YOLOv11-seg Engine
type SegEngine struct {
	session *ort.DynamicAdvancedSession
	config  Config
}

// NewSegEngine 初始化分割引擎
func NewSegEngine(cfg Config) (*SegEngine, error) {
	oc := new(sphericity.OnnxConfig)
	if err := convertutil.CopyProperties(cfg, oc); err != nil {
		return nil, fmt.Errorf("复制参数失败: %w", err)
	}
	// 初始化 ONNX
	if err := oc.New(); err != nil {
		return nil, err
	}
	defer oc.Release()

	// 创建 Session
	session, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{"images"}, []string{"output0", "output1"}, oc.SessionOptions)
	if err != nil {
		return nil, fmt.Errorf("创建 ONNX 会话失败: %w", err)
	}

	log := sphericity.Logger("yolov11")
	log.Info().
		Str("model", cfg.ModelPath).
		Bool("cuda", cfg.UseCuda).
		Msg("YOLOv11-seg 引擎已加载")

	return &SegEngine{
		session: session,
		config:  cfg,
	}, nil
}

// Destroy 释放相关资源
func (e *SegEngine) Destroy() error {
	if e.session != nil {
		if err := e.session.Destroy(); err != nil {
			return fmt.Errorf("销毁 ONNX 会话失败: %w", err)
		}
		e.session = nil
	}
	return nil
}

// Predict 执行分割推理
func (e *SegEngine) Predict(img image.Image) ([]SegResult, error) {
	// 预处理
	inputTensor, params, err := preprocess(img, e.config.InputSize)
	if err != nil {
		return nil, fmt.Errorf("预处理失败: %w", err)
	}
	defer inputTensor.Destroy()

	// 推理
	outputs := make([]ort.Value, 2)
	if err := e.session.Run([]ort.Value{inputTensor}, outputs); err != nil {
		return nil, fmt.Errorf("推理失败: %w", err)
	}
	defer func() {
		for _, v := range outputs {
			if v != nil {
				v.Destroy()
			}
		}
	}()

	// output0: Detections [1, 116, 8400]
	// output1: Mask Protos [1, 32, 160, 160]
	out0, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("output0 类型错误: %T", outputs[0])
	}
	out1, ok := outputs[1].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("output1 类型错误: %T", outputs[1])
	}

	// 后处理
	return e.postprocess(out0.GetData(), out0.GetShape(), out1.GetData(), out1.GetShape(), params)
}

// postprocess 后处理
func (e *SegEngine) postprocess(data0 []float32, shape0 ort.Shape, data1 []float32, shape1 ort.Shape, params imageParams) ([]SegResult, error) {
	if len(shape0) != 3 || len(shape1) != 4 {
		return nil, fmt.Errorf("输出形状错误: %v %v", shape0, shape1)
	}
	numChannels := int(shape0[1]) // 4 (box) + 80 (cls) + 32 (mask) = 116
	numAnchors := int(shape0[2])  // 8400
	if len(data0) < numChannels*numAnchors {
		return nil, fmt.Errorf("output0 长度错误: %d", len(data0))
	}

	protoC, protoH, protoW := int(shape1[1]), int(shape1[2]), int(shape1[3])
	if len(data1) < protoC*protoH*protoW {
		return nil, fmt.Errorf("output1 长度错误: %d", len(data1))
	}

	// 解析候选框
	candidates := e.parseCandidates(data0, numChannels, numAnchors, params)
	// NMS
	keptIndices := nms(candidates, e.config.IOUThreshold)

	results := make([]SegResult, 0, len(keptIndices))

	// 生成 Mask
	for _, idx := range keptIndices {
		cand := candidates[idx]

		mask := e.decodeMask(cand, data1, protoC, protoH, protoW, params)
		results = append(results, SegResult{
			ClassID: cand.classID,
			Score:   cand.score,
			Box:     cand.origBox,
			Mask:    mask,
		})
	}

	return results, nil
}

// parseCandidates 解析候选框
//
// # Params:
//
//	data: 模型输出的数组
//		[x1, x2 ..., x8400]
//		[y1, y2 ..., y8400]
//		[w1, w2 ..., w8400]
//		[h1, h2 ..., h8400]
//		[c1_1, c1_2 ..., c1_8400]
//		[c2_1, c2_2 ..., c2_8400]
//		...
//		[m1, m2 ..., m8400]
//	channels: 模型输出的通道数
//	anchors: 模型输出的锚点数
//	params: 图片尺寸信息
func (e *SegEngine) parseCandidates(data []float32, channels, anchors int, params imageParams) []candidate {
	var cands []candidate

	// 检查通道数
	expectedChannels := 4 + e.config.NumClasses + e.config.NumMaskCoeffs
	if channels != expectedChannels {
		log := sphericity.Logger("yolov11")
		log.Warn().
			Int("channels", channels).
			Int("expected", expectedChannels).
			Msg("输出通道数与预期不匹配")
		return cands
	}

	for i := 0; i < anchors; i++ {
		// 找最大分类分数
		maxScore := float32(0.0)
		classID := -1
		for c := 0; c < e.config.NumClasses; c++ {
			score := data[(4+c)*anchors+i]
			if score > maxScore {
				maxScore = score
				classID = c
			}
		}
		if maxScore < e.config.ConfThreshold {
			continue
		}

		// 提取坐标
		cx := data[0*anchors+i]
		cy := data[1*anchors+i]
		w := data[2*anchors+i]
		h := data[3*anchors+i]

		// 提取 Mask 系数
		coeffs := make([]float32, e.config.NumMaskCoeffs)
		for j := 0; j < e.config.NumMaskCoeffs; j++ {
			coeffs[j] = data[(4+e.config.NumClasses+j)*anchors+i]
		}

		// 转换回原图矩形坐标
		origX1 := max(0, int((cx-w/2)/params.scale))
		origY1 := max(0, int((cy-h/2)/params.scale))
		origX2 := min(params.origW, int((cx+w/2)/params.scale))
		origY2 := min(params.origH, int((cy+h/2)/params.scale))

		cands = append(cands, candidate{
			origBox:    image.Rect(origX1, origY1, origX2, origY2),
			score:      maxScore,
			classID:    classID,
			maskCoeffs: coeffs,
		})
	}
	return cands
}

// decodeMask Mask解码
//
// # Params:
//
//	cand: 候选结果
//	protos: 模型输出的 Mask 原型图
//	c: 原型掩码的通道数
//	h: 单个原型掩码的高度
//	w: 单个原型掩码的宽度
//	params: 图片尺寸信息
func (e *SegEngine) decodeMask(cand candidate, protos []float32, c, h, w int, params imageParams) *segment.Mask {
	finalMask := segment.NewMask(params.origW, params.origH)

	// Mask 原型图相对于 InputSize(640) 的缩放比例
	maskStride := float32(e.config.InputSize) / float32(w)

	// 遍历原图上的 Box 区域
	origBox := cand.origBox
	coeffs := cand.maskCoeffs
	for y := origBox.Min.Y; y < origBox.Max.Y; y++ {
		for x := origBox.Min.X; x < origBox.Max.X; x++ {
			// 映射回 640 尺度
			inputX := float32(x) * params.scale
			inputY := float32(y) * params.scale

			// 映射回 160 Mask 尺度
			mx := int(inputX / maskStride)
			my := int(inputY / maskStride)

			if mx >= 0 && mx < w && my >= 0 && my < h {
				// 计算该像素的 Mask 值 (Dot Product)
				sum := float32(0.0)
				for k := 0; k < c; k++ {
					sum += coeffs[k] * protos[k*h*w+my*w+mx]
				}

				if sigmoid(sum) > e.config.MaskThreshold {
					finalMask.Set(x, y, true)
				}
			}
		}
	}
	return finalMask
}
