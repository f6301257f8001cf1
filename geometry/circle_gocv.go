//go:build gocv

package geometry

import (
	"image"

	"gocv.io/x/gocv"
)

// OpenCV 使用 cv::minEnclosingCircle 求解，需以 -tags gocv 构建并安装 OpenCV
type OpenCV struct{}

// Fit 实现 Solver
func (OpenCV) Fit(points []image.Point) (Circle, error) {
	if len(points) == 0 {
		return Circle{}, ErrEmptyPointSet
	}
	pv := gocv.NewPointVectorFromPoints(points)
	defer pv.Close()

	x, y, r := gocv.MinEnclosingCircle(pv)
	return Circle{X: float64(x), Y: float64(y), R: float64(r)}, nil
}

func init() {
	openCVSolver = func() Solver { return OpenCV{} }
}
