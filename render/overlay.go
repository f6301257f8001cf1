// Package render 将点、掩码、外接圆和标注叠加到原图上
package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"sync"

	"github.com/up-zero/gotool/imageutil"

	"github.com/getcharzp/go-sphericity"
	"github.com/getcharzp/go-sphericity/geometry"
	"github.com/getcharzp/go-sphericity/prompt"
	"github.com/getcharzp/go-sphericity/segment"
)

// Sink 接收合成后的画面
type Sink func(frame image.Image)

// Style 叠加层样式
type Style struct {
	MaskColor   color.RGBA // 掩码颜色，A 为不透明度
	PointColor  color.RGBA
	PointRadius int
	CircleColor color.RGBA
	LineWidth   int
	TextColor   color.RGBA
	ArrowSize   float64 // 箭头两翼长度
}

// DefaultStyle 浅蓝半透明掩码、青色点、黑色外接圆和标注
func DefaultStyle() Style {
	return Style{
		MaskColor:   color.RGBA{R: 30, G: 144, B: 255, A: 153},
		PointColor:  color.RGBA{G: 255, B: 255, A: 255},
		PointRadius: 5,
		CircleColor: color.RGBA{A: 255},
		LineWidth:   2,
		TextColor:   color.RGBA{A: 255},
		ArrowSize:   10,
	}
}

// Overlay 实现 prompt.Renderer，RequestRedraw 时合成画面并交给 Sink
//
// 可在工作协程中调用 Show* 与 RequestRedraw，同时在界面线程读取 Frame。
type Overlay struct {
	mu    sync.Mutex
	base  *image.RGBA
	text  *sphericity.TextDrawer
	style Style
	sink  Sink

	points      []segment.Point
	mask        *segment.Mask
	circles     []geometry.Circle
	annotations []prompt.Annotation
	frame       *image.RGBA
}

// NewOverlay 创建叠加渲染器
//
// # Params:
//
//	base: 原图
//	text: 标注字体，nil 时使用内置点阵字体
//	sink: 画面接收方，可为 nil
func NewOverlay(base image.Image, text *sphericity.TextDrawer, sink Sink) *Overlay {
	b := base.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), base, b.Min, draw.Src)

	if text == nil {
		text, _ = sphericity.NewTextDrawer("")
	}
	o := &Overlay{
		base:  rgba,
		text:  text,
		style: DefaultStyle(),
		sink:  sink,
	}
	o.frame = o.compose()
	return o
}

// SetStyle 修改样式，下次重绘生效
func (o *Overlay) SetStyle(s Style) {
	o.mu.Lock()
	o.style = s
	o.mu.Unlock()
}

// SetSink 修改画面接收方
func (o *Overlay) SetSink(sink Sink) {
	o.mu.Lock()
	o.sink = sink
	o.mu.Unlock()
}

// ShowPoints 实现 prompt.Renderer
func (o *Overlay) ShowPoints(points []segment.Point) {
	o.mu.Lock()
	o.points = points
	o.mu.Unlock()
}

// ShowMask 实现 prompt.Renderer
func (o *Overlay) ShowMask(mask *segment.Mask) {
	o.mu.Lock()
	o.mask = mask
	o.mu.Unlock()
}

// ShowCircles 实现 prompt.Renderer
func (o *Overlay) ShowCircles(circles []geometry.Circle) {
	o.mu.Lock()
	o.circles = circles
	o.mu.Unlock()
}

// ShowAnnotations 实现 prompt.Renderer
func (o *Overlay) ShowAnnotations(annotations []prompt.Annotation) {
	o.mu.Lock()
	o.annotations = annotations
	o.mu.Unlock()
}

// RequestRedraw 实现 prompt.Renderer
func (o *Overlay) RequestRedraw() {
	o.mu.Lock()
	o.frame = o.compose()
	frame, sink := o.frame, o.sink
	o.mu.Unlock()

	if sink != nil {
		sink(frame)
	}
}

// Frame 最近一次合成的画面
func (o *Overlay) Frame() *image.RGBA {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.frame
}

// Size 原图尺寸
func (o *Overlay) Size() (int, int) {
	return o.base.Bounds().Dx(), o.base.Bounds().Dy()
}

// compose 调用方需持有锁
func (o *Overlay) compose() *image.RGBA {
	dst := image.NewRGBA(o.base.Bounds())
	copy(dst.Pix, o.base.Pix)

	if o.mask != nil {
		blendMask(dst, o.mask, o.style.MaskColor)
	}
	for _, p := range o.points {
		imageutil.DrawFilledCircle(dst, p.Pixel(), o.style.PointRadius, o.style.PointColor)
	}
	for _, c := range o.circles {
		if c.R <= 0 {
			continue
		}
		imageutil.DrawThickPolygonOutline(dst, circlePolygon(c), o.style.LineWidth, o.style.CircleColor)
	}
	for _, a := range o.annotations {
		o.drawAnnotation(dst, a)
	}
	return dst
}

// blendMask 按 MaskColor.A 的不透明度混合前景像素
func blendMask(dst *image.RGBA, mask *segment.Mask, c color.RGBA) {
	alpha := uint32(c.A)
	inv := 255 - alpha
	b := dst.Bounds()
	w := min(mask.Width, b.Dx())
	h := min(mask.Height, b.Dy())
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !mask.Pix[y*mask.Width+x] {
				continue
			}
			i := dst.PixOffset(x, y)
			px := dst.Pix[i : i+4 : i+4]
			px[0] = uint8((uint32(px[0])*inv + uint32(c.R)*alpha) / 255)
			px[1] = uint8((uint32(px[1])*inv + uint32(c.G)*alpha) / 255)
			px[2] = uint8((uint32(px[2])*inv + uint32(c.B)*alpha) / 255)
			px[3] = 255
		}
	}
}

// circlePolygon 将圆近似为正多边形，边长约 4 像素
func circlePolygon(c geometry.Circle) []image.Point {
	n := int(2 * math.Pi * c.R / 4)
	n = max(16, min(n, 720))
	pts := make([]image.Point, n)
	for i := range pts {
		theta := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = image.Pt(
			int(math.Round(c.X+c.R*math.Cos(theta))),
			int(math.Round(c.Y+c.R*math.Sin(theta))),
		)
	}
	return pts
}

// drawAnnotation 从文字位置画箭头指向锚点，再绘制文字
func (o *Overlay) drawAnnotation(dst *image.RGBA, a prompt.Annotation) {
	from := a.At.Pixel()
	to := a.Anchor.Pixel()
	imageutil.DrawThickLine(dst, from, to, o.style.LineWidth, o.style.CircleColor)

	dx, dy := float64(to.X-from.X), float64(to.Y-from.Y)
	if l := math.Hypot(dx, dy); l > 0 {
		ux, uy := dx/l, dy/l
		size := o.style.ArrowSize
		for _, sign := range []float64{1, -1} {
			// 两翼与箭杆成 30 度
			wx := -ux*math.Cos(math.Pi/6) - sign*uy*math.Sin(math.Pi/6)
			wy := -uy*math.Cos(math.Pi/6) + sign*ux*math.Sin(math.Pi/6)
			wing := image.Pt(to.X+int(math.Round(wx*size)), to.Y+int(math.Round(wy*size)))
			imageutil.DrawThickLine(dst, to, wing, o.style.LineWidth, o.style.CircleColor)
		}
	}

	_, h := o.text.Measure(a.Text)
	o.text.DrawText(dst, a.Text, from.X+2, from.Y-h/4, o.style.TextColor)
}
