// Package ui 提供点提示交互窗口：左键添加提示点，右键撤销最后一个提示点
package ui

import (
	"fmt"
	"image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog"

	"github.com/getcharzp/go-sphericity"
)

const readyText = "左键添加提示点，右键撤销"

// Controller 窗口驱动的操作
type Controller interface {
	AddPoint(x, y float64) error
	RemoveLastPoint() error
}

// Window 主窗口
type Window struct {
	fyne.Window

	view     *ImageView
	status   *widget.Label
	ctrl     Controller
	dispatch *Dispatcher
	log      zerolog.Logger
}

// NewWindow 创建主窗口，frame 为初始帧
func NewWindow(a fyne.App, title string, frame image.Image, ctrl Controller) *Window {
	w := &Window{
		Window:   a.NewWindow(title),
		view:     NewImageView(frame),
		status:   widget.NewLabel(readyText),
		ctrl:     ctrl,
		dispatch: new(Dispatcher),
		log:      sphericity.Logger("ui"),
	}
	w.dispatch.OnError = w.showError

	w.view.OnPrimary(w.onPrimary)
	w.view.OnSecondary(w.onSecondary)

	w.SetContent(container.NewBorder(nil, container.NewPadded(w.status), nil, nil, w.view))
	if frame != nil {
		b := frame.Bounds()
		w.Resize(fyne.NewSize(float32(b.Dx()), float32(b.Dy())+40))
	}
	return w
}

// Sink 返回渲染输出，可在任意协程调用
func (w *Window) Sink() func(image.Image) {
	return func(img image.Image) {
		fyne.Do(func() {
			w.view.SetImage(img)
		})
	}
}

// Wait 等待后台操作结束
func (w *Window) Wait() {
	w.dispatch.Wait()
}

func (w *Window) onPrimary(x, y float64) {
	if !w.submit(fmt.Sprintf("分割中 (%.0f, %.0f) ...", x, y), func() error { return w.ctrl.AddPoint(x, y) }) {
		w.log.Debug().Float64("x", x).Float64("y", y).Msg("正在处理，忽略点击")
	}
}

func (w *Window) onSecondary() {
	if !w.submit("撤销中 ...", w.ctrl.RemoveLastPoint) {
		w.log.Debug().Msg("正在处理，忽略撤销")
	}
}

// submit 在后台执行 op，完成后恢复状态栏
func (w *Window) submit(status string, op func() error) bool {
	ok := w.dispatch.Submit(func() error {
		if err := op(); err != nil {
			return err
		}
		fyne.Do(func() {
			w.status.SetText(readyText)
		})
		return nil
	})
	if ok {
		w.status.SetText(status)
	}
	return ok
}

func (w *Window) showError(err error) {
	w.log.Error().Err(err).Msg("操作失败")
	fyne.Do(func() {
		w.status.SetText("操作失败: " + err.Error())
	})
}
