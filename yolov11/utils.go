package yolov11

import (
	"image"
	"math"
	"sort"

	"github.com/up-zero/gotool/imageutil"
	ort "github.com/yalue/onnxruntime_go"
)

// preprocess 预处理
func preprocess(img image.Image, inputSize int) (*ort.Tensor[float32], imageParams, error) {
	bounds := img.Bounds()
	params := imageParams{
		origW: bounds.Dx(),
		origH: bounds.Dy(),
	}

	scale := float32(inputSize) / float32(max(params.origW, params.origH))
	params.scale = scale

	newW := int(float32(params.origW) * scale)
	newH := int(float32(params.origH) * scale)

	resized := imageutil.Resize(img, newW, newH)
	data := tensorData(resized, inputSize)

	shape := ort.NewShape(1, 3, int64(inputSize), int64(inputSize))
	tensor, err := ort.NewTensor(shape, data)
	return tensor, params, err
}

// tensorData CHW 排列并归一化到 0-1，右侧和下方补 0
func tensorData(img image.Image, inputSize int) []float32 {
	b := img.Bounds()
	w, h := min(b.Dx(), inputSize), min(b.Dy(), inputSize)
	data := make([]float32, 3*inputSize*inputSize)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()

			idx := y*inputSize + x
			data[idx] = float32(r) / 65535.0                        // R
			data[inputSize*inputSize+idx] = float32(g) / 65535.0    // G
			data[2*inputSize*inputSize+idx] = float32(bl) / 65535.0 // B
		}
	}
	return data
}

func sigmoid(x float32) float32 {
	return 1.0 / (1.0 + float32(math.Exp(float64(-x))))
}

// nms 非极大值抑制，过滤掉重叠度过高的检测框
//
// # Params:
//
//	cands: 候选框，按分数降序原地排序
//	iouThresh: IOU 阈值
func nms(cands []candidate, iouThresh float32) []int {
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].score > cands[j].score
	})

	keep := make([]int, 0)
	suppressed := make([]bool, len(cands))

	for i := 0; i < len(cands); i++ {
		if suppressed[i] {
			continue
		}
		keep = append(keep, i)

		for j := i + 1; j < len(cands); j++ {
			if suppressed[j] {
				continue
			}
			if computeIOU(cands[i].origBox, cands[j].origBox) > iouThresh {
				suppressed[j] = true
			}
		}
	}
	return keep
}

func computeIOU(r1, r2 image.Rectangle) float32 {
	intersect := r1.Intersect(r2)
	if intersect.Empty() {
		return 0.0
	}

	interArea := intersect.Dx() * intersect.Dy()
	area1 := r1.Dx() * r1.Dy()
	area2 := r2.Dx() * r2.Dy()

	return float32(interArea) / float32(area1+area2-interArea)
}
