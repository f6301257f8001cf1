package prompt

import (
	"bytes"
	"errors"
	"image"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/getcharzp/go-sphericity/geometry"
	"github.com/getcharzp/go-sphericity/roundness"
	"github.com/getcharzp/go-sphericity/segment"
)

// fakePredictor 以点击点为中心生成 (2*half+1) 边长的方块掩码
type fakePredictor struct {
	w, h  int
	half  int
	calls []segment.Point
	err   error
}

func (f *fakePredictor) Predict(p segment.Point) ([]segment.Candidate, error) {
	f.calls = append(f.calls, p)
	if f.err != nil {
		return nil, f.err
	}
	m := segment.NewMask(f.w, f.h)
	c := p.Pixel()
	for y := c.Y - f.half; y <= c.Y+f.half; y++ {
		for x := c.X - f.half; x <= c.X+f.half; x++ {
			m.Set(x, y, true)
		}
	}
	return []segment.Candidate{{Mask: m, Score: 0.5}}, nil
}

type recordingRenderer struct {
	calls       int
	redraws     int
	points      []segment.Point
	mask        *segment.Mask
	circles     []geometry.Circle
	annotations []Annotation
}

func (r *recordingRenderer) ShowPoints(p []segment.Point) { r.calls++; r.points = p }
func (r *recordingRenderer) ShowMask(m *segment.Mask) { r.calls++; r.mask = m }
func (r *recordingRenderer) ShowCircles(c []geometry.Circle) { r.calls++; r.circles = c }
func (r *recordingRenderer) ShowAnnotations(a []Annotation) { r.calls++; r.annotations = a }
func (r *recordingRenderer) RequestRedraw() { r.calls++; r.redraws++ }

type countingSolver struct {
	calls int
}

func (s *countingSolver) Fit(points []image.Point) (geometry.Circle, error) {
	s.calls++
	return geometry.NewWelzl(1).Fit(points)
}

func newTestController(p segment.Predictor, r Renderer) *Controller {
	return NewController(p, nil, r, WithLogger(zerolog.Nop()))
}

func checkStacks(t *testing.T, c *Controller) {
	t.Helper()
	if len(c.Points()) != c.Len() || len(c.Circles()) != c.Len() || len(c.Annotations()) != c.Len() {
		t.Fatalf("栈长度不一致: points=%d circles=%d annotations=%d",
			len(c.Points()), len(c.Circles()), len(c.Annotations()))
	}
	if (c.Mask() != nil) != (c.Len() > 0) {
		t.Fatalf("掩码存在性与点数不一致: len=%d mask=%v", c.Len(), c.Mask() != nil)
	}
	if (c.State() == StateActive) != (c.Len() > 0) {
		t.Fatalf("状态错误: %v len=%d", c.State(), c.Len())
	}
}

func TestController_Single3x3Mask(t *testing.T) {
	pred := segment.PredictorFunc(func(p segment.Point) ([]segment.Candidate, error) {
		m := segment.NewMask(3, 3)
		for i := range m.Pix {
			m.Pix[i] = true
		}
		return []segment.Candidate{{Mask: m, Score: 0.9}}, nil
	})
	var report bytes.Buffer
	c := NewController(pred, nil, nil, WithLogger(zerolog.Nop()), WithReport(&report))

	if err := c.AddPoint(10, 10); err != nil {
		t.Fatal(err)
	}
	checkStacks(t, c)
	if c.Len() != 1 {
		t.Fatalf("点数错误: %d", c.Len())
	}
	res := c.Layers()[0].Result
	if res.PixelCount != 9 {
		t.Fatalf("像素数错误: %d", res.PixelCount)
	}
	if res.Circle.R < 1.4 || res.Circle.R > 1.5 {
		t.Fatalf("半径错误: %v", res.Circle.R)
	}
	want := 9 / (math.Pi * res.Circle.R * res.Circle.R)
	if math.Abs(res.Roundness-want) > 1e-12 {
		t.Fatalf("球形度错误: %v", res.Roundness)
	}
	if !strings.Contains(report.String(), "掩码像素: 9") {
		t.Fatalf("诊断输出错误: %q", report.String())
	}
}

func TestController_RemoveOnEmpty(t *testing.T) {
	pred := &fakePredictor{w: 50, h: 50, half: 2}
	r := &recordingRenderer{}
	c := newTestController(pred, r)

	if err := c.RemoveLastPoint(); err != nil {
		t.Fatalf("空栈撤销不应报错: %v", err)
	}
	checkStacks(t, c)
	if r.calls != 0 {
		t.Fatalf("空栈撤销不应触发显示: %d", r.calls)
	}
	if len(pred.calls) != 0 {
		t.Fatalf("空栈撤销不应调用模型: %d", len(pred.calls))
	}
	if c.State() != StateEmpty {
		t.Fatalf("状态错误: %v", c.State())
	}
}

func TestController_AddAddRemove(t *testing.T) {
	pred := &fakePredictor{w: 100, h: 100, half: 3}
	r := &recordingRenderer{}
	c := newTestController(pred, r)

	if err := c.AddPoint(20, 20); err != nil {
		t.Fatal(err)
	}
	first := c.Circles()[0]
	if err := c.AddPoint(60, 70); err != nil {
		t.Fatal(err)
	}
	second := c.Circles()[1]
	if first == second {
		t.Fatal("两个外接圆不应相同")
	}

	if err := c.RemoveLastPoint(); err != nil {
		t.Fatal(err)
	}
	checkStacks(t, c)
	if c.Len() != 1 || len(c.Circles()) != 1 {
		t.Fatalf("撤销后长度错误: %d", c.Len())
	}
	if c.Circles()[0] != first {
		t.Fatalf("剩余外接圆应为第一个: %+v vs %+v", c.Circles()[0], first)
	}

	// 撤销后掩码按剩余的点重新计算
	last := pred.calls[len(pred.calls)-1]
	if last != (segment.Point{X: 20, Y: 20}) {
		t.Fatalf("掩码应由剩余点重新计算, 实际提示点 %v", last)
	}
	if len(pred.calls) != 3 {
		t.Fatalf("模型调用次数错误: %d", len(pred.calls))
	}
	if !c.Mask().At(20, 20) || c.Mask().At(60, 70) {
		t.Fatal("当前掩码应覆盖第一个点")
	}

	if r.redraws != 3 {
		t.Fatalf("重绘次数错误: %d", r.redraws)
	}
	if len(r.points) != 1 || len(r.circles) != 1 || len(r.annotations) != 1 || r.mask != c.Mask() {
		t.Fatal("显示端内容与控制器不一致")
	}
}

func TestController_RemoveToEmpty(t *testing.T) {
	pred := &fakePredictor{w: 30, h: 30, half: 1}
	r := &recordingRenderer{}
	c := newTestController(pred, r)

	if err := c.AddPoint(5, 5); err != nil {
		t.Fatal(err)
	}
	if err := c.RemoveLastPoint(); err != nil {
		t.Fatal(err)
	}
	checkStacks(t, c)
	if len(pred.calls) != 1 {
		t.Fatalf("清空时不应调用模型: %d", len(pred.calls))
	}
	if r.mask != nil || len(r.points) != 0 || len(r.circles) != 0 || len(r.annotations) != 0 {
		t.Fatal("清空后显示端应无内容")
	}
	if r.redraws != 2 {
		t.Fatalf("重绘次数错误: %d", r.redraws)
	}
}

func TestController_AddRemoveRestoresPoints(t *testing.T) {
	pred := &fakePredictor{w: 64, h: 64, half: 2}
	c := newTestController(pred, nil)

	for _, p := range [][2]float64{{3, 4}, {10.5, 11.25}} {
		if err := c.AddPoint(p[0], p[1]); err != nil {
			t.Fatal(err)
		}
	}
	before := c.Points()
	if err := c.AddPoint(40, 41); err != nil {
		t.Fatal(err)
	}
	if err := c.RemoveLastPoint(); err != nil {
		t.Fatal(err)
	}
	after := c.Points()
	if len(before) != len(after) {
		t.Fatalf("长度不一致: %d vs %d", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("第 %d 个点不一致: %v vs %v", i, before[i], after[i])
		}
	}
}

func TestController_RandomSequence(t *testing.T) {
	pred := &fakePredictor{w: 80, h: 80, half: 4}
	c := newTestController(pred, &recordingRenderer{})
	rnd := rand.New(rand.NewSource(3))

	var model []segment.Point
	for i := 0; i < 300; i++ {
		if rnd.Intn(3) == 0 {
			if err := c.RemoveLastPoint(); err != nil {
				t.Fatal(err)
			}
			if len(model) > 0 {
				model = model[:len(model)-1]
			}
		} else {
			p := segment.Point{X: float64(rnd.Intn(80)), Y: float64(rnd.Intn(80))}
			if err := c.AddPoint(p.X, p.Y); err != nil {
				t.Fatal(err)
			}
			model = append(model, p)
		}
		checkStacks(t, c)
		if c.Len() != len(model) {
			t.Fatalf("第 %d 步: 长度 %d, 期望 %d", i, c.Len(), len(model))
		}
		if len(model) > 0 {
			top := model[len(model)-1]
			if !c.Mask().At(int(top.X), int(top.Y)) {
				t.Fatalf("第 %d 步: 掩码应来自栈顶点 %v", i, top)
			}
		}
	}
}

func TestController_PredictorErrorKeepsState(t *testing.T) {
	pred := &fakePredictor{w: 40, h: 40, half: 2}
	r := &recordingRenderer{}
	c := newTestController(pred, r)

	if err := c.AddPoint(10, 10); err != nil {
		t.Fatal(err)
	}
	if err := c.AddPoint(20, 20); err != nil {
		t.Fatal(err)
	}
	mask := c.Mask()
	redraws := r.redraws

	boom := errors.New("推理失败")
	pred.err = boom
	if err := c.AddPoint(30, 30); !errors.Is(err, boom) {
		t.Fatalf("期望包装后的模型错误, 得到 %v", err)
	}
	if err := c.RemoveLastPoint(); !errors.Is(err, boom) {
		t.Fatalf("撤销时期望模型错误, 得到 %v", err)
	}
	checkStacks(t, c)
	if c.Len() != 2 || c.Mask() != mask || r.redraws != redraws {
		t.Fatal("失败的操作不应改变状态")
	}
}

func TestController_NoCandidates(t *testing.T) {
	pred := segment.PredictorFunc(func(segment.Point) ([]segment.Candidate, error) {
		return nil, nil
	})
	c := newTestController(pred, nil)
	if err := c.AddPoint(1, 1); !errors.Is(err, segment.ErrNoCandidates) {
		t.Fatalf("期望 ErrNoCandidates, 得到 %v", err)
	}
	checkStacks(t, c)
}

func TestController_EmptyMaskSkipsAnalyzer(t *testing.T) {
	pred := segment.PredictorFunc(func(segment.Point) ([]segment.Candidate, error) {
		return []segment.Candidate{{Mask: segment.NewMask(10, 10), Score: 0.4}}, nil
	})
	solver := &countingSolver{}
	c := NewController(pred, roundness.NewAnalyzer(solver), nil, WithLogger(zerolog.Nop()))

	if err := c.AddPoint(4, 6); err != nil {
		t.Fatal(err)
	}
	checkStacks(t, c)
	if solver.calls != 0 {
		t.Fatalf("空掩码不应进入分析器: %d", solver.calls)
	}
	l := c.Layers()[0]
	if l.Result.Defined || l.Annotation.Text != "Sphericity: n/a" {
		t.Fatalf("空掩码结果应无定义: %+v", l)
	}
	if l.Annotation.Anchor != (segment.Point{X: 4, Y: 6}) {
		t.Fatalf("空掩码标注应指向点击位置: %+v", l.Annotation)
	}
}

func TestController_TieBreakFirstWins(t *testing.T) {
	a := segment.NewMask(10, 10)
	a.Set(1, 1, true)
	a.Set(3, 1, true)
	b := segment.NewMask(10, 10)
	b.Set(8, 8, true)
	pred := segment.PredictorFunc(func(segment.Point) ([]segment.Candidate, error) {
		return []segment.Candidate{{Mask: b, Score: 0.1}, {Mask: a, Score: 0.8}, {Mask: b, Score: 0.8}}, nil
	})
	c := newTestController(pred, nil)
	if err := c.AddPoint(2, 1); err != nil {
		t.Fatal(err)
	}
	if c.Mask() != a {
		t.Fatal("分数并列时应选下标最小的候选")
	}
}

func TestController_InvalidPoint(t *testing.T) {
	pred := &fakePredictor{w: 10, h: 10}
	c := newTestController(pred, nil)
	for _, p := range [][2]float64{{math.NaN(), 1}, {1, math.Inf(-1)}} {
		if err := c.AddPoint(p[0], p[1]); !errors.Is(err, ErrInvalidPoint) {
			t.Fatalf("期望 ErrInvalidPoint, 得到 %v", err)
		}
	}
	if len(pred.calls) != 0 {
		t.Fatal("无效坐标不应调用模型")
	}
	checkStacks(t, c)
}

func TestController_OutOfBoundsPassesThrough(t *testing.T) {
	pred := &fakePredictor{w: 10, h: 10, half: 1}
	c := newTestController(pred, nil)
	// 越界点交给模型处理，这里的模型返回空掩码
	if err := c.AddPoint(-50, 500); err != nil {
		t.Fatal(err)
	}
	if len(pred.calls) != 1 || c.Len() != 1 {
		t.Fatal("越界点应照常加入")
	}
	checkStacks(t, c)
}

func TestController_Annotation(t *testing.T) {
	pred := &fakePredictor{w: 100, h: 100, half: 5}
	c := newTestController(pred, nil)
	if err := c.AddPoint(50, 50); err != nil {
		t.Fatal(err)
	}
	l := c.Layers()[0]
	circle := l.Result.Circle
	if l.Annotation.Anchor.X != circle.X+circle.R || l.Annotation.Anchor.Y != circle.Y {
		t.Fatalf("锚点错误: %+v vs %+v", l.Annotation.Anchor, circle)
	}
	if l.Annotation.At.X != l.Annotation.Anchor.X+100 || l.Annotation.At.Y != l.Annotation.Anchor.Y-100 {
		t.Fatalf("文字位置错误: %+v", l.Annotation)
	}
	if l.Annotation.Text != l.Result.Label() {
		t.Fatalf("标注文本错误: %q", l.Annotation.Text)
	}
}
