package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"multishop-server/config"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	appLogger *logrus.Logger
	mu        sync.Mutex
)

// Init 初始化应用日志：JSON 格式，同时输出到 stdout 与滚动文件
func Init(cfg config.Log) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("无效的日志级别 %q: %w", cfg.Level, err)
	}

	var out io.Writer = os.Stdout
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, fmt.Errorf("创建日志目录失败: %w", err)
		}
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		})
	}

	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(level)
	l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02 15:04:05.000"})

	mu.Lock()
	appLogger = l
	mu.Unlock()
	return l, nil
}

// GetAppLogger 返回全局日志，未初始化时返回一个输出到 stdout 的默认实例
func GetAppLogger() *logrus.Logger {
	mu.Lock()
	defer mu.Unlock()
	if appLogger == nil {
		appLogger = logrus.New()
		appLogger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02 15:04:05.000"})
	}
	return appLogger
}

// Component 带 component 字段的日志入口
func Component(name string) *logrus.Entry {
	return GetAppLogger().WithField("component", name)
}
