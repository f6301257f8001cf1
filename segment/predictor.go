package segment

// Candidate 预测器输出的一个候选掩码及其置信度
type Candidate struct {
	Mask  *Mask
	Score float32
}

// Predictor 点提示分割模型
//
// Predict 仅接收一个前景点，返回全部候选掩码，掩码尺寸与原图一致。
type Predictor interface {
	Predict(p Point) ([]Candidate, error)
}

// PredictorFunc 函数形式的 Predictor
type PredictorFunc func(p Point) ([]Candidate, error)

// Predict 实现 Predictor
func (f PredictorFunc) Predict(p Point) ([]Candidate, error) {
	return f(p)
}

// Best 返回置信度最高的候选下标，分数相同时取下标最小者
//
// 没有可用候选（空列表或掩码均为 nil）时返回 ErrNoCandidates。
func Best(cands []Candidate) (int, error) {
	bestIdx := -1
	var bestScore float32
	for i, c := range cands {
		if c.Mask == nil {
			continue
		}
		if bestIdx < 0 || c.Score > bestScore {
			bestIdx = i
			bestScore = c.Score
		}
	}
	if bestIdx < 0 {
		return -1, ErrNoCandidates
	}
	return bestIdx, nil
}
