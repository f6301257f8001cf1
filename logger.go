package sphericity

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	baseMu     sync.RWMutex
	baseLogger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
)

// NewLogger 创建带时间戳的结构化日志
//
// # Params:
//
//	w: 日志输出
//	level: 最低日志级别
func NewLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// NewConsoleLogger 创建输出到 stderr 的彩色控制台日志
func NewConsoleLogger(level zerolog.Level) zerolog.Logger {
	return NewLogger(zerolog.ConsoleWriter{Out: os.Stderr}, level)
}

// SetLogger 替换全局日志，通常在 main 中调用一次
func SetLogger(l zerolog.Logger) {
	baseMu.Lock()
	baseLogger = l
	baseMu.Unlock()
}

// Logger 返回带 component 字段的子日志
func Logger(component string) zerolog.Logger {
	baseMu.RLock()
	defer baseMu.RUnlock()
	return baseLogger.With().Str("component", component).Logger()
}

// ParseLevel 解析日志级别，无法识别时返回 info
func ParseLevel(s string) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil || s == "" {
		return zerolog.InfoLevel
	}
	return level
}
