// Package prompt 维护点提示栈，以及与之同步的掩码、外接圆和标注
//
// 每次加点只用最新的点作为前景提示重新分割；撤销时掩码按新的栈顶点重新计算，
// 而外接圆与标注只是出栈，保留之前各点对应的历史结果。
package prompt

import (
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/getcharzp/go-sphericity"
	"github.com/getcharzp/go-sphericity/geometry"
	"github.com/getcharzp/go-sphericity/roundness"
	"github.com/getcharzp/go-sphericity/segment"
)

// ErrInvalidPoint 坐标不是有限值
var ErrInvalidPoint = errors.New("无效的点坐标")

// 标注文字相对箭头锚点的偏移
const (
	annotationDX = 100
	annotationDY = -100
)

// State 控制器状态
type State int

const (
	StateEmpty  State = iota // 没有点，不显示掩码和外接圆
	StateActive              // 至少一个点
)

func (s State) String() string {
	if s == StateActive {
		return "active"
	}
	return "empty"
}

// Annotation 外接圆旁的文字标注，箭头从 Text 位置指向 Anchor
type Annotation struct {
	Text   string
	Anchor segment.Point // 圆的最右侧点
	At     segment.Point // 文字位置
}

// Layer 栈中一层：点、该点加入时的分析结果及其标注
type Layer struct {
	Point      segment.Point
	Result     roundness.Result
	Annotation Annotation
}

// Renderer 显示端，每个 Show 方法替换上一次的对应内容
type Renderer interface {
	ShowPoints(points []segment.Point)
	ShowMask(mask *segment.Mask) // nil 表示清除
	ShowCircles(circles []geometry.Circle)
	ShowAnnotations(annotations []Annotation)
	RequestRedraw()
}

// Controller 点提示栈控制器
//
// 非并发安全：同一时刻只能有一个 AddPoint/RemoveLastPoint 在执行。
type Controller struct {
	predictor segment.Predictor
	analyzer  *roundness.Analyzer
	renderer  Renderer

	layers []Layer
	mask   *segment.Mask

	report io.Writer
	log    zerolog.Logger
}

// Option 控制器可选项
type Option func(*Controller)

// WithLogger 指定日志
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithReport 每次加点输出一行诊断信息（外接圆面积、像素数、球形度）
func WithReport(w io.Writer) Option {
	return func(c *Controller) { c.report = w }
}

// NewController 创建控制器
//
// # Params:
//
//	predictor: 分割模型，进程内只初始化一次后注入
//	analyzer: 球形度分析器，nil 时使用默认求解器
//	renderer: 显示端，nil 时不显示
func NewController(predictor segment.Predictor, analyzer *roundness.Analyzer, renderer Renderer, opts ...Option) *Controller {
	if analyzer == nil {
		analyzer = roundness.NewAnalyzer(nil)
	}
	if renderer == nil {
		renderer = nopRenderer{}
	}
	c := &Controller{
		predictor: predictor,
		analyzer:  analyzer,
		renderer:  renderer,
		report:    io.Discard,
		log:       sphericity.Logger("prompt"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddPoint 加入一个点并以它为提示重新分割、拟合外接圆
//
// 失败时状态不变。
func (c *Controller) AddPoint(x, y float64) error {
	p := segment.Point{X: x, Y: y}
	if !p.IsFinite() {
		return fmt.Errorf("%w: (%v, %v)", ErrInvalidPoint, x, y)
	}

	mask, err := c.predictMask(p)
	if err != nil {
		return err
	}

	var res roundness.Result
	if mask.Empty() {
		// 全背景时不调用分析器，只记录无定义的结果以保持各栈等长
		c.log.Warn().Float64("x", x).Float64("y", y).Msg("分割结果为空掩码")
	} else {
		res, err = c.analyzer.Analyze(mask)
		if err != nil {
			return fmt.Errorf("球形度分析失败: %w", err)
		}
	}

	c.layers = append(c.layers, Layer{
		Point:      p,
		Result:     res,
		Annotation: annotate(p, res),
	})
	c.mask = mask

	fmt.Fprintln(c.report, res.String())
	c.log.Debug().
		Int("depth", len(c.layers)).
		Float64("x", x).Float64("y", y).
		Int("pixels", res.PixelCount).
		Float64("radius", res.Circle.R).
		Bool("defined", res.Defined).
		Float64("roundness", res.Roundness).
		Msg("已加入点")

	c.redraw()
	return nil
}

// RemoveLastPoint 撤销最新的点
//
// 栈为空时不做任何事。仍有剩余点时按新的栈顶点重新分割，外接圆与标注只出栈不重算。
func (c *Controller) RemoveLastPoint() error {
	n := len(c.layers)
	if n == 0 {
		return nil
	}

	var mask *segment.Mask
	if n > 1 {
		m, err := c.predictMask(c.layers[n-2].Point)
		if err != nil {
			return err
		}
		mask = m
	}

	c.layers[n-1] = Layer{}
	c.layers = c.layers[:n-1]
	c.mask = mask

	c.log.Debug().Int("depth", len(c.layers)).Msg("已撤销点")

	c.redraw()
	return nil
}

// predictMask 以单个前景点调用模型并选出置信度最高的掩码
func (c *Controller) predictMask(p segment.Point) (*segment.Mask, error) {
	cands, err := c.predictor.Predict(p)
	if err != nil {
		c.log.Warn().Err(err).Float64("x", p.X).Float64("y", p.Y).Msg("分割失败")
		return nil, fmt.Errorf("分割失败: %w", err)
	}
	idx, err := segment.Best(cands)
	if err != nil {
		return nil, err
	}
	c.log.Debug().Int("candidates", len(cands)).Int("best", idx).Float32("score", cands[idx].Score).Msg("选中掩码")
	return cands[idx].Mask, nil
}

func (c *Controller) redraw() {
	c.renderer.ShowMask(c.mask)
	c.renderer.ShowPoints(c.Points())
	c.renderer.ShowCircles(c.Circles())
	c.renderer.ShowAnnotations(c.Annotations())
	c.renderer.RequestRedraw()
}

// annotate 标注箭头指向圆的最右侧，文字位于右上方；没有外接圆时指向点击位置
func annotate(p segment.Point, res roundness.Result) Annotation {
	anchor := p
	if res.PixelCount > 0 {
		anchor = segment.Point{X: res.Circle.X + res.Circle.R, Y: res.Circle.Y}
	}
	return Annotation{
		Text:   res.Label(),
		Anchor: anchor,
		At:     segment.Point{X: anchor.X + annotationDX, Y: anchor.Y + annotationDY},
	}
}

// Len 当前点数
func (c *Controller) Len() int {
	return len(c.layers)
}

// State 当前状态
func (c *Controller) State() State {
	if len(c.layers) > 0 {
		return StateActive
	}
	return StateEmpty
}

// Mask 当前掩码，栈为空时为 nil
func (c *Controller) Mask() *segment.Mask {
	return c.mask
}

// Layers 栈的副本，下标 0 为最早加入的点
func (c *Controller) Layers() []Layer {
	out := make([]Layer, len(c.layers))
	copy(out, c.layers)
	return out
}

// Points 按加入顺序返回全部点
func (c *Controller) Points() []segment.Point {
	out := make([]segment.Point, len(c.layers))
	for i, l := range c.layers {
		out[i] = l.Point
	}
	return out
}

// Circles 按加入顺序返回每层的外接圆，空掩码对应的层为零值圆
func (c *Controller) Circles() []geometry.Circle {
	out := make([]geometry.Circle, len(c.layers))
	for i, l := range c.layers {
		out[i] = l.Result.Circle
	}
	return out
}

// Annotations 按加入顺序返回全部标注
func (c *Controller) Annotations() []Annotation {
	out := make([]Annotation, len(c.layers))
	for i, l := range c.layers {
		out[i] = l.Annotation
	}
	return out
}

type nopRenderer struct{}

func (nopRenderer) ShowPoints([]segment.Point) {}
func (nopRenderer) ShowMask(*segment.Mask) {}
func (nopRenderer) ShowCircles([]geometry.Circle) {}
func (nopRenderer) ShowAnnotations([]Annotation) {}
func (nopRenderer) RequestRedraw() {}
