package logger

import (
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	Log   *zap.Logger
	Sugar *zap.SugaredLogger
)

// Logs go to logs/p2p-share.log in a human-readable console format. The
// level comes from P2P_LOG_LEVEL (or LOG_LEVEL), defaulting to info.
func init() {
	if err := os.MkdirAll("logs", 0755); err != nil {
		panic(err)
	}
	file, err := os.OpenFile("logs/p2p-share.log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		panic(err)
	}

	enc := zap.NewProductionEncoderConfig()
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	enc.EncodeCaller = zapcore.ShortCallerEncoder
	enc.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(t.Format("2006/01/02 15:04:05"))
	}

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(enc),
		zapcore.AddSync(file),
		levelFromEnv(),
	)

	Log = zap.New(core, zap.AddCaller())
	Sugar = Log.Sugar()
}

func levelFromEnv() zapcore.Level {
	level := zapcore.InfoLevel
	for _, key := range []string{"P2P_LOG_LEVEL", "LOG_LEVEL"} {
		if s := strings.TrimSpace(os.Getenv(key)); s != "" {
			_ = level.UnmarshalText([]byte(strings.ToLower(s)))
			break
		}
	}
	return level
}
