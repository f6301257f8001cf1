// Package geometry 最小外接圆求解
package geometry

import (
	"errors"
	"image"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r2"
)

// ErrEmptyPointSet 点集为空，最小外接圆无定义
var ErrEmptyPointSet = errors.New("点集为空")

// containEps 包含判断的相对容差
const containEps = 1e-9

// Circle 圆心 (X, Y) 与半径 R，单位为像素
type Circle struct {
	X, Y, R float64
}

// Center 圆心
func (c Circle) Center() r2.Vec {
	return r2.Vec{X: c.X, Y: c.Y}
}

// Area 圆面积
func (c Circle) Area() float64 {
	return math.Pi * c.R * c.R
}

// Contains 点是否在圆内或圆上
func (c Circle) Contains(p r2.Vec) bool {
	return r2.Norm(r2.Sub(p, c.Center())) <= c.R*(1+containEps)+containEps
}

// ContainsPixel 像素坐标是否在圆内或圆上
func (c Circle) ContainsPixel(p image.Point) bool {
	return c.Contains(r2.Vec{X: float64(p.X), Y: float64(p.Y)})
}

// Solver 最小外接圆求解器
type Solver interface {
	Fit(points []image.Point) (Circle, error)
}

// Welzl 随机增量法求最小外接圆，期望时间 O(n)
//
// 打乱顺序使用固定种子，相同输入得到相同结果。
type Welzl struct {
	Seed int64
}

// NewWelzl 创建求解器
func NewWelzl(seed int64) *Welzl {
	return &Welzl{Seed: seed}
}

// Fit 实现 Solver
func (w *Welzl) Fit(points []image.Point) (Circle, error) {
	if len(points) == 0 {
		return Circle{}, ErrEmptyPointSet
	}

	pts := make([]r2.Vec, len(points))
	for i, p := range points {
		pts[i] = r2.Vec{X: float64(p.X), Y: float64(p.Y)}
	}
	rnd := rand.New(rand.NewSource(w.Seed))
	rnd.Shuffle(len(pts), func(i, j int) { pts[i], pts[j] = pts[j], pts[i] })

	return enclose(pts), nil
}

// enclose 三重循环形式的随机增量算法，pts 需已打乱
func enclose(pts []r2.Vec) Circle {
	c := Circle{X: pts[0].X, Y: pts[0].Y}
	for i := 1; i < len(pts); i++ {
		if c.Contains(pts[i]) {
			continue
		}
		// pts[i] 必在边界上
		c = Circle{X: pts[i].X, Y: pts[i].Y}
		for j := 0; j < i; j++ {
			if c.Contains(pts[j]) {
				continue
			}
			// pts[i], pts[j] 均在边界上
			c = circleFrom2(pts[i], pts[j])
			for k := 0; k < j; k++ {
				if c.Contains(pts[k]) {
					continue
				}
				c = circleFrom3(pts[i], pts[j], pts[k])
			}
		}
	}
	return c
}

// circleFrom2 以两点为直径的圆
func circleFrom2(a, b r2.Vec) Circle {
	m := r2.Scale(0.5, r2.Add(a, b))
	return Circle{X: m.X, Y: m.Y, R: r2.Norm(r2.Sub(a, m))}
}

// circleFrom3 三点外接圆，三点共线时退化为最远两点的直径圆
func circleFrom3(a, b, c r2.Vec) Circle {
	ab := r2.Sub(b, a)
	ac := r2.Sub(c, a)
	d := 2 * r2.Cross(ab, ac)
	if math.Abs(d) < 1e-12 {
		best := circleFrom2(a, b)
		for _, cand := range []Circle{circleFrom2(a, c), circleFrom2(b, c)} {
			if cand.R > best.R {
				best = cand
			}
		}
		return best
	}

	abN := r2.Norm2(ab)
	acN := r2.Norm2(ac)
	ux := (ac.Y*abN - ab.Y*acN) / d
	uy := (ab.X*acN - ac.X*abN) / d
	center := r2.Add(a, r2.Vec{X: ux, Y: uy})
	return Circle{X: center.X, Y: center.Y, R: math.Hypot(ux, uy)}
}
