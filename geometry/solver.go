package geometry

// openCVSolver 以 gocv 标签构建时由 circle_gocv.go 注册
var openCVSolver func() Solver

// DefaultSeed Welzl 打乱顺序使用的默认种子
const DefaultSeed = 1

// NewSolver 按名称创建求解器："welzl"（默认）或 "opencv"
//
// opencv 在未使用 gocv 标签构建时回退到 welzl，第二个返回值表示是否发生回退。
func NewSolver(name string) (Solver, bool) {
	switch name {
	case "opencv":
		if openCVSolver != nil {
			return openCVSolver(), false
		}
		return NewWelzl(DefaultSeed), true
	default:
		return NewWelzl(DefaultSeed), false
	}
}
