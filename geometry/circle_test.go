package geometry

import (
	"errors"
	"image"
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

func near(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestWelzl_Empty(t *testing.T) {
	if _, err := NewWelzl(1).Fit(nil); !errors.Is(err, ErrEmptyPointSet) {
		t.Fatalf("期望 ErrEmptyPointSet, 得到 %v", err)
	}
}

func TestWelzl_SinglePoint(t *testing.T) {
	c, err := NewWelzl(1).Fit([]image.Point{{X: 4, Y: 7}})
	if err != nil {
		t.Fatal(err)
	}
	if c.X != 4 || c.Y != 7 || c.R != 0 {
		t.Fatalf("单点圆错误: %+v", c)
	}
}

func TestWelzl_KnownShapes(t *testing.T) {
	cases := []struct {
		name    string
		points  []image.Point
		x, y, r float64
	}{
		{"两点", []image.Point{{0, 0}, {6, 8}}, 3, 4, 5},
		{"共线三点", []image.Point{{0, 0}, {5, 0}, {10, 0}}, 5, 0, 5},
		{"直角三角形", []image.Point{{0, 0}, {4, 0}, {0, 3}}, 2, 1.5, 2.5},
		{"等边附近的锐角三角形", []image.Point{{0, 0}, {10, 0}, {5, 8}}, 5, 2.4375, 5.5625},
		{"钝角三角形由最长边决定", []image.Point{{0, 0}, {10, 0}, {5, 1}}, 5, 0, 5},
		{"3x3 方块", block(0, 0, 3, 3), 1, 1, math.Sqrt2},
		{"重复点", []image.Point{{2, 2}, {2, 2}, {2, 2}}, 2, 2, 0},
	}
	for _, c := range cases {
		got, err := NewWelzl(7).Fit(c.points)
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		if !near(got.X, c.x, 1e-9) || !near(got.Y, c.y, 1e-9) || !near(got.R, c.r, 1e-9) {
			t.Fatalf("%s: 得到 %+v, 期望 (%v, %v, %v)", c.name, got, c.x, c.y, c.r)
		}
	}
}

func TestWelzl_RandomContainment(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	for round := 0; round < 50; round++ {
		n := 1 + rnd.Intn(300)
		pts := make([]image.Point, n)
		for i := range pts {
			pts[i] = image.Pt(rnd.Intn(200)-100, rnd.Intn(120)-60)
		}
		c, err := NewWelzl(int64(round)).Fit(pts)
		if err != nil {
			t.Fatal(err)
		}
		onBoundary := 0
		for _, p := range pts {
			if !c.ContainsPixel(p) {
				t.Fatalf("第 %d 轮: 点 %v 不在圆 %+v 内", round, p, c)
			}
			d := r2.Norm(r2.Sub(r2.Vec{X: float64(p.X), Y: float64(p.Y)}, c.Center()))
			if near(d, c.R, 1e-6) {
				onBoundary++
			}
		}
		// 最小外接圆由边界上至少两个点确定（单点或全部重合时半径为 0）
		if c.R > 0 && onBoundary < 2 {
			t.Fatalf("第 %d 轮: 边界点数 %d, 圆不是最小的", round, onBoundary)
		}
	}
}

func TestWelzl_Deterministic(t *testing.T) {
	pts := block(3, 5, 17, 9)
	a, _ := NewWelzl(11).Fit(pts)
	b, _ := NewWelzl(11).Fit(pts)
	if a != b {
		t.Fatalf("相同种子结果不一致: %+v vs %+v", a, b)
	}
}

func TestCircle_Area(t *testing.T) {
	c := Circle{R: 2}
	if !near(c.Area(), 4*math.Pi, 1e-12) {
		t.Fatalf("面积错误: %v", c.Area())
	}
}

func TestNewSolver(t *testing.T) {
	s, fellBack := NewSolver("welzl")
	if _, ok := s.(*Welzl); !ok || fellBack {
		t.Fatalf("默认求解器错误: %T %v", s, fellBack)
	}
	s, _ = NewSolver("")
	if _, ok := s.(*Welzl); !ok {
		t.Fatalf("空名称应返回 Welzl: %T", s)
	}
}

func block(x0, y0, w, h int) []image.Point {
	pts := make([]image.Point, 0, w*h)
	for y := y0; y < y0+h; y++ {
		for x := x0; x < x0+w; x++ {
			pts = append(pts, image.Pt(x, y))
		}
	}
	return pts
}
