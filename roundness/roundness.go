// Package roundness 根据分割掩码计算最小外接圆与球形度
//
// 球形度 = 掩码像素数 / 外接圆面积。完美圆形区域接近 1.0，越细长或越不规则越小。
// 像素很少时外接圆由像素中心决定，离散化误差会让结果略大于 1.0，属正常数值噪声。
package roundness

import (
	"errors"
	"fmt"
	"image"

	"github.com/getcharzp/go-sphericity/geometry"
	"github.com/getcharzp/go-sphericity/segment"
)

var (
	// ErrEmptyMask 掩码没有前景像素，外接圆无定义
	ErrEmptyMask = errors.New("掩码不含前景像素")
	// ErrMalformedMask 掩码像素数与宽高不一致
	ErrMalformedMask = errors.New("掩码尺寸与像素数不一致")
)

// MinCircleArea 小于该面积时球形度视为无定义
const MinCircleArea = 1e-9

// Result 一次分析的结果
type Result struct {
	Circle     geometry.Circle
	PixelCount int
	CircleArea float64
	Roundness  float64
	// Defined 为 false 时 Roundness 无意义（外接圆面积接近 0 或掩码为空）
	Defined bool
}

// Label 标注文本
func (r Result) Label() string {
	if !r.Defined {
		return "Sphericity: n/a"
	}
	return fmt.Sprintf("Sphericity: %.2f", r.Roundness)
}

// String 诊断输出
func (r Result) String() string {
	if !r.Defined {
		return fmt.Sprintf("圆面积: %.2f, 掩码像素: %d, 球形度: n/a", r.CircleArea, r.PixelCount)
	}
	return fmt.Sprintf("圆面积: %.2f, 掩码像素: %d, 球形度: %.2f", r.CircleArea, r.PixelCount, r.Roundness)
}

// Analyzer 无状态的球形度分析器
type Analyzer struct {
	solver geometry.Solver
}

// NewAnalyzer 创建分析器，solver 为 nil 时使用 Welzl
func NewAnalyzer(solver geometry.Solver) *Analyzer {
	if solver == nil {
		solver = geometry.NewWelzl(geometry.DefaultSeed)
	}
	return &Analyzer{solver: solver}
}

// Analyze 拟合掩码前景像素的最小外接圆并计算球形度
func (a *Analyzer) Analyze(mask *segment.Mask) (Result, error) {
	if mask == nil {
		return Result{}, ErrEmptyMask
	}
	if mask.Width < 0 || mask.Height < 0 || len(mask.Pix) != mask.Width*mask.Height {
		return Result{}, fmt.Errorf("%w: %dx%d, len(Pix)=%d", ErrMalformedMask, mask.Width, mask.Height, len(mask.Pix))
	}
	points := foreground(mask)
	if len(points) == 0 {
		return Result{}, ErrEmptyMask
	}

	circle, err := a.solver.Fit(points)
	if err != nil {
		return Result{}, fmt.Errorf("拟合外接圆失败: %w", err)
	}

	res := Result{
		Circle:     circle,
		PixelCount: len(points),
		CircleArea: circle.Area(),
	}
	if res.CircleArea >= MinCircleArea {
		res.Roundness = float64(res.PixelCount) / res.CircleArea
		res.Defined = true
	}
	return res, nil
}

// foreground 逐像素扫描收集前景坐标
func foreground(mask *segment.Mask) []image.Point {
	points := make([]image.Point, 0, mask.Count())
	for y := 0; y < mask.Height; y++ {
		row := mask.Pix[y*mask.Width : (y+1)*mask.Width]
		for x, v := range row {
			if v {
				points = append(points, image.Pt(x, y))
			}
		}
	}
	return points
}
