package sam2

import (
	"fmt"

	"github.com/getcharzp/go-sphericity/segment"
)

// decoder 抽象 ImageContext 的解码，便于替换
type decoder interface {
	DecodeAll(points []Point) ([]Result, error)
}

// Segmenter 基于一张已编码图片的点提示分割，实现 segment.Predictor
type Segmenter struct {
	dec decoder
}

// NewSegmenter 创建分割器，imgCtx 的生命周期由调用方管理
func NewSegmenter(imgCtx *ImageContext) *Segmenter {
	return &Segmenter{dec: imgCtx}
}

// Predict 以单个前景点作为提示，返回全部候选 Mask
func (s *Segmenter) Predict(p segment.Point) ([]segment.Candidate, error) {
	results, err := s.dec.DecodeAll([]Point{{X: float32(p.X), Y: float32(p.Y), Label: LabelForeground}})
	if err != nil {
		return nil, fmt.Errorf("sam2 预测失败: %w", err)
	}

	cands := make([]segment.Candidate, len(results))
	for i, r := range results {
		cands[i] = segment.Candidate{Mask: r.Mask, Score: r.Score}
	}
	return cands, nil
}
