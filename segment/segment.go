// Package segment 定义点提示分割的公共类型：点、掩码、候选结果以及预测器接口。
package segment

import (
	"errors"
	"image"
	"math"
)

// ErrNoCandidates 预测器没有返回任何候选掩码
var ErrNoCandidates = errors.New("预测器未返回候选掩码")

// Point 用户点击的图像坐标（像素）
type Point struct {
	X, Y float64
}

// IsFinite 坐标是否为有限值
func (p Point) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Pixel 四舍五入到最近的像素
func (p Point) Pixel() image.Point {
	return image.Pt(int(math.Round(p.X)), int(math.Round(p.Y)))
}

// Mask 与原图同尺寸的二值掩码，按行存储
type Mask struct {
	Width  int
	Height int
	Pix    []bool
}

// NewMask 创建全背景掩码
func NewMask(width, height int) *Mask {
	return &Mask{
		Width:  width,
		Height: height,
		Pix:    make([]bool, width*height),
	}
}

// At 坐标越界时返回 false
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Pix[y*m.Width+x]
}

// Set 坐标越界时忽略
func (m *Mask) Set(x, y int, v bool) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	m.Pix[y*m.Width+x] = v
}

// Count 前景像素数
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v {
			n++
		}
	}
	return n
}

// Empty 是否不含任何前景像素
func (m *Mask) Empty() bool {
	for _, v := range m.Pix {
		if v {
			return false
		}
	}
	return true
}

// Bounds 掩码覆盖的图像范围
func (m *Mask) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.Width, m.Height)
}

// Gray 转为 0/255 灰度图，便于保存或显示
func (m *Mask) Gray() *image.Gray {
	img := image.NewGray(m.Bounds())
	for i, v := range m.Pix {
		if v {
			img.Pix[i] = 255
		}
	}
	return img
}

// Clone 深拷贝
func (m *Mask) Clone() *Mask {
	if m == nil {
		return nil
	}
	pix := make([]bool, len(m.Pix))
	copy(pix, m.Pix)
	return &Mask{Width: m.Width, Height: m.Height, Pix: pix}
}
