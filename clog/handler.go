package clog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// clogHandler 封装 slog.Handler，提供动态级别能力。
type clogHandler struct {
	slog.Handler
	levelVar *slog.LevelVar
}

// newHandler 创建并返回一个适配 clog 配置的 slog.Handler（内部使用）。
//
// 构造顺序：writer -> handler options -> base handler -> wrapper。
func newHandler(config *Config, options *options) (slog.Handler, error) {
	w, err := resolveWriter(config, options)
	if err != nil {
		return nil, err
	}

	levelVar := new(slog.LevelVar)
	levelVar.Set(slogLevelFromConfig(config.Level))

	opts := &slog.HandlerOptions{
		AddSource:   config.AddSource,
		Level:       levelVar,
		ReplaceAttr: newReplaceAttr(config),
	}

	var handler slog.Handler
	if strings.ToLower(config.Format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return &clogHandler{Handler: handler, levelVar: levelVar}, nil
}

// resolveWriter 根据配置创建输出 writer。
func resolveWriter(config *Config, options *options) (io.Writer, error) {
	if options.writer != nil {
		return options.writer, nil
	}
	switch strings.ToLower(config.Output) {
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		f, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, err
		}
		return f, nil
	}
}

// slogLevelFromConfig 将配置的 Level 映射为 slog.Level。
func slogLevelFromConfig(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "fatal":
		return slog.LevelError + 4
	default:
		return slog.LevelInfo
	}
}

// newReplaceAttr 统一处理 Level/Time/Source 等字段。
func newReplaceAttr(config *Config) func(groups []string, a slog.Attr) slog.Attr {
	return func(groups []string, a slog.Attr) slog.Attr {
		switch a.Key {
		case slog.LevelKey:
			level := a.Value.Any().(slog.Level)
			var levelStr string
			switch {
			case level <= slog.LevelDebug:
				levelStr = "DEBUG"
			case level <= slog.LevelInfo:
				levelStr = "INFO"
			case level <= slog.LevelWarn:
				levelStr = "WARN"
			case level <= slog.LevelError:
				levelStr = "ERROR"
			default:
				levelStr = "FATAL"
			}
			a.Value = slog.StringValue(levelStr)
		case slog.TimeKey:
			if a.Value.Kind() == slog.KindTime {
				a.Value = slog.StringValue(a.Value.Time().Format(timeFormat))
			}
		case slog.SourceKey:
			if source, ok := a.Value.Any().(*slog.Source); ok {
				fileName := trimSourcePath(source.File, config.SourceRoot)
				caller := fmt.Sprintf("%s:%d", fileName, source.Line)
				return slog.String("caller", caller)
			}
		}
		return a
	}
}

// trimSourcePath 根据 sourceRoot 和项目路径裁剪调用文件路径。
func trimSourcePath(fileName, sourceRoot string) string {
	if sourceRoot != "" {
		relPath, err := filepath.Rel(sourceRoot, fileName)
		if err == nil && !strings.HasPrefix(relPath, "..") {
			return relPath
		}
	}
	if idx := strings.Index(fileName, "resilience"); idx != -1 {
		return fileName[idx:]
	}
	return fileName
}

// SetLevel 动态调整日志级别。
func (h *clogHandler) SetLevel(level Level) error {
	var slogLevel slog.Level
	switch level {
	case DebugLevel:
		slogLevel = slog.LevelDebug
	case InfoLevel:
		slogLevel = slog.LevelInfo
	case WarnLevel:
		slogLevel = slog.LevelWarn
	case ErrorLevel:
		slogLevel = slog.LevelError
	case FatalLevel:
		slogLevel = slog.LevelError + 4
	default:
		slogLevel = slog.LevelInfo
	}

	h.levelVar.Set(slogLevel)
	return nil
}
