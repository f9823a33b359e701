// Package logging 命令行工具的 slog 日志
package logging

import (
	"io"
	"log/slog"
	"os"
)

// New 创建写到 Stderr 的日志, Stdout 只留给 "Saved: ..." 之类的结果输出
//
// 统一把 "error" 键改为 "err"
func New(level slog.Level) *slog.Logger {
	return NewWithWriter(os.Stderr, level)
}

// NewWithWriter 写到指定 Writer 的日志
func NewWithWriter(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	}))
}

// Level 根据 -v 开关选择日志级别
func Level(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}

// NewNop 丢弃所有输出的日志
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
