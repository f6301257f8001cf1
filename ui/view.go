package ui

import (
	"image"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
)

// ImageView 显示合成帧并把鼠标点击换算为原图坐标
type ImageView struct {
	widget.BaseWidget

	image *canvas.Image

	mu         sync.RWMutex
	imgW, imgH int

	onPrimary   func(x, y float64) // 左键，原图坐标
	onSecondary func()             // 右键，不需要坐标
}

// NewImageView 创建图片视图，img 为初始帧
func NewImageView(img image.Image) *ImageView {
	v := &ImageView{
		image: canvas.NewImageFromImage(img),
	}
	v.image.FillMode = canvas.ImageFillContain
	v.image.ScaleMode = canvas.ImageScalePixels
	if img != nil {
		b := img.Bounds()
		v.imgW, v.imgH = b.Dx(), b.Dy()
	}
	v.ExtendBaseWidget(v)
	return v
}

// OnPrimary 设置左键回调
func (v *ImageView) OnPrimary(fn func(x, y float64)) { v.onPrimary = fn }

// OnSecondary 设置右键回调
func (v *ImageView) OnSecondary(fn func()) { v.onSecondary = fn }

// SetImage 替换显示的帧，需在 UI 线程调用
func (v *ImageView) SetImage(img image.Image) {
	b := img.Bounds()
	v.mu.Lock()
	v.imgW, v.imgH = b.Dx(), b.Dy()
	v.mu.Unlock()

	v.image.Image = img
	v.image.Refresh()
}

// Tapped 左键释放
func (v *ImageView) Tapped(ev *fyne.PointEvent) {
	if v.onPrimary == nil {
		return
	}
	if x, y, ok := v.toImage(ev.Position); ok {
		v.onPrimary(x, y)
	}
}

// TappedSecondary 右键释放，留白区域同样生效
func (v *ImageView) TappedSecondary(*fyne.PointEvent) {
	if v.onSecondary != nil {
		v.onSecondary()
	}
}

// MinSize 以原图尺寸作为最小尺寸
func (v *ImageView) MinSize() fyne.Size {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return fyne.NewSize(float32(v.imgW), float32(v.imgH))
}

func (v *ImageView) toImage(pos fyne.Position) (float64, float64, bool) {
	v.mu.RLock()
	w, h := v.imgW, v.imgH
	v.mu.RUnlock()
	return containToImage(pos, v.Size(), w, h)
}

// CreateRenderer implements fyne.Widget.
func (v *ImageView) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(v.image)
}

// containToImage 把 ImageFillContain 下的控件坐标换算为原图坐标
//
// # Params:
//
//	pos: 控件内坐标
//	size: 控件尺寸
//	imgW, imgH: 原图尺寸
//
// 点击落在留白区域时返回 false
func containToImage(pos fyne.Position, size fyne.Size, imgW, imgH int) (float64, float64, bool) {
	if imgW <= 0 || imgH <= 0 || size.Width <= 0 || size.Height <= 0 {
		return 0, 0, false
	}
	scale := min(float64(size.Width)/float64(imgW), float64(size.Height)/float64(imgH))
	offX := (float64(size.Width) - float64(imgW)*scale) / 2
	offY := (float64(size.Height) - float64(imgH)*scale) / 2

	x := (float64(pos.X) - offX) / scale
	y := (float64(pos.Y) - offY) / scale
	if x < 0 || y < 0 || x > float64(imgW) || y > float64(imgH) {
		return 0, 0, false
	}
	return x, y, true
}
