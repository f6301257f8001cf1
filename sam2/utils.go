package sam2

import (
	"fmt"
	"image"

	"github.com/getcharzp/go-sphericity/segment"
)

// normalizeAndPad 归一化和填充
func normalizeAndPad(src image.Image, targetW, targetH int) []float32 {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	data := make([]float32, 3*targetW*targetH)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := src.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			// RGBA returns 0-65535
			rf := (float32(r)/65535.0 - MeanR) / StdR
			gf := (float32(g)/65535.0 - MeanG) / StdG
			bf := (float32(b)/65535.0 - MeanB) / StdB

			// 目标索引 (CHW)
			idx := y*targetW + x
			data[idx] = rf
			data[targetW*targetH+idx] = gf
			data[2*targetW*targetH+idx] = bf
		}
	}
	return data
}

// upscaleMaskLogits 将低分辨率 logits 最近邻放大到原图尺寸并二值化
//
// # Params:
//
//	logits: 单个 mask 的 logits (logitsDim x logitsDim)
//	validW, validH: logits 中对应原图内容的有效区域（其余为填充）
//	dstW, dstH: 原图尺寸
func upscaleMaskLogits(logits []float32, logitsDim, validW, validH, dstW, dstH int) *segment.Mask {
	output := segment.NewMask(dstW, dstH)
	validW = max(1, min(validW, logitsDim))
	validH = max(1, min(validH, logitsDim))
	xRatio := float32(validW) / float32(dstW)
	yRatio := float32(validH) / float32(dstH)

	for y := 0; y < dstH; y++ {
		srcY := min(int(float32(y)*yRatio), validH-1)
		for x := 0; x < dstW; x++ {
			srcX := min(int(float32(x)*xRatio), validW-1)
			output.Pix[y*dstW+x] = logits[srcY*logitsDim+srcX] > maskThreshold
		}
	}
	return output
}

// splitCandidates 按 iou_scores 拆分 decoder 输出的多个 mask
func splitCandidates(scores, masks []float32, logitsDim, validW, validH, dstW, dstH int) ([]Result, error) {
	pixelsPerMask := logitsDim * logitsDim
	if len(masks) < len(scores)*pixelsPerMask {
		return nil, fmt.Errorf("mask 输出长度 %d 与分数个数 %d 不匹配", len(masks), len(scores))
	}

	results := make([]Result, len(scores))
	for i, score := range scores {
		start := i * pixelsPerMask
		results[i] = Result{
			Mask:  upscaleMaskLogits(masks[start:start+pixelsPerMask], logitsDim, validW, validH, dstW, dstH),
			Score: score,
		}
	}
	return results, nil
}
