package yolov11

import (
	"fmt"
	"image"
	"sync"

	"github.com/getcharzp/go-sphericity/segment"
)

// instancer 整图实例分割
type instancer interface {
	Predict(img image.Image) ([]SegResult, error)
}

// Segmenter 把整图实例分割转换为点提示分割，实现 segment.Predictor
//
// 整图推理只执行一次，之后每次点击只在缓存的实例中查找包含该点的 Mask。
type Segmenter struct {
	engine instancer
	img    image.Image

	mu      sync.Mutex
	results []SegResult
	cached  bool
}

// NewSegmenter 创建分割器，engine 的生命周期由调用方管理
func NewSegmenter(engine *SegEngine, img image.Image) *Segmenter {
	return &Segmenter{engine: engine, img: img}
}

// Predict 返回所有包含该点的实例 Mask，分数为检测置信度。
// 没有实例包含该点时返回一个空 Mask。
func (s *Segmenter) Predict(p segment.Point) ([]segment.Candidate, error) {
	results, err := s.instances()
	if err != nil {
		return nil, err
	}

	px := p.Pixel()
	var cands []segment.Candidate
	for _, r := range results {
		if r.Mask != nil && r.Mask.At(px.X, px.Y) {
			cands = append(cands, segment.Candidate{Mask: r.Mask.Clone(), Score: r.Score})
		}
	}
	if len(cands) == 0 {
		b := s.img.Bounds()
		cands = append(cands, segment.Candidate{Mask: segment.NewMask(b.Dx(), b.Dy())})
	}
	return cands, nil
}

// instances 懒加载整图分割结果，失败时下次重试
func (s *Segmenter) instances() ([]SegResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached {
		return s.results, nil
	}
	results, err := s.engine.Predict(s.img)
	if err != nil {
		return nil, fmt.Errorf("yolov11 预测失败: %w", err)
	}
	s.results = results
	s.cached = true
	return results, nil
}
