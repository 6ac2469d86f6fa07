package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   log.Level
		logFunc func(*log.Logger)
		wantLog bool
	}{
		{name: "info at info level", level: log.InfoLevel, logFunc: func(l *log.Logger) { l.Info("test") }, wantLog: true},
		{name: "debug at info level", level: log.InfoLevel, logFunc: func(l *log.Logger) { l.Debug("test") }, wantLog: false},
		{name: "debug at debug level", level: log.DebugLevel, logFunc: func(l *log.Logger) { l.Debug("test") }, wantLog: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.logFunc(newLogger(&buf, tt.level))
			assert.Equal(t, tt.wantLog, buf.Len() > 0)
		})
	}
}

func TestLoggerContext(t *testing.T) {
	assert.Same(t, log.Default(), loggerFromContext(context.Background()))

	l := newLogger(&bytes.Buffer{}, log.InfoLevel)
	assert.Same(t, l, loggerFromContext(withLogger(context.Background(), l)))
}

func TestProgressDone(t *testing.T) {
	var buf bytes.Buffer
	newProgress(newLogger(&buf, log.InfoLevel)).done("Indexed 3 annotations")
	assert.Contains(t, buf.String(), "Indexed 3 annotations (")
}
