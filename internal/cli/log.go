// Package cli 实现 tagvalue 命令行：从 TSV 标注文件构建估计器，输出标签价值排名与实验结果。
//
// 所有命令支持 --verbose (-v) 打开 debug 日志；logger 通过 context.Context 传递给子命令。
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger 创建带时间戳的 logger，时间格式 "15:04:05.00"。
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress 记录操作开始时间，结束时输出耗时。单 goroutine 使用。
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done 输出 "msg (1.234s)"。
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

type ctxKey int

const loggerKey ctxKey = 0

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext 取出 context 中的 logger，没有时返回 log.Default()。
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
