// Command sphericity 在图片上点选目标并实时显示其球形度。
//
// Usage: sphericity <image>
//
// 左键添加提示点，右键撤销最后一个提示点。
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/getcharzp/go-sphericity"
	"github.com/getcharzp/go-sphericity/app"
)

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "Usage: %s <image>\n\n", os.Args[0])
	fmt.Fprintln(out, "Environment:")
	fmt.Fprintf(out, "  %-22s 分割后端 sam2 | yolov11 (默认 sam2)\n", app.EnvBackend)
	fmt.Fprintf(out, "  %-22s ONNX Runtime 动态库路径\n", app.EnvLibrary)
	fmt.Fprintf(out, "  %-22s 标注字体 (ttf/otf)\n", app.EnvFont)
	fmt.Fprintf(out, "  %-22s 设为 1 启用 CUDA\n", app.EnvCuda)
	fmt.Fprintf(out, "  %-22s 外接圆求解器 welzl | opencv\n", app.EnvSolver)
	fmt.Fprintf(out, "  %-22s 日志级别 (默认 info)\n", app.EnvLogLevel)
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(app.ExitImageNotFound)
	}

	cfg := app.LoadConfig(flag.Arg(0), nil)
	sphericity.SetLogger(sphericity.NewConsoleLogger(sphericity.ParseLevel(cfg.LogLevel)))
	log := sphericity.Logger("main")

	a, err := app.New(cfg)
	if err != nil {
		log.Error().Err(err).Msg("启动失败")
		code := app.ExitCode(err)
		if code == app.ExitImageNotFound {
			flag.Usage()
		}
		os.Exit(code)
	}
	defer a.Close()

	a.Run()
}
