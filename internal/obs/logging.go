// Package obs contains observability utilities such as logging and tracing.
package obs

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fairyhunter13/order-management-api/internal/config"
)

// Logger is the global structured logger used by the service.
//
// It discards everything until InitLogger is called.
var Logger = zap.NewNop()

// InitLogger replaces Logger with a JSON logger on stdout at the given
// level. Unknown levels fall back to info.
func InitLogger(level string) {
	lvl := zapcore.InfoLevel
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}
	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(enc),
		zapcore.Lock(os.Stdout),
		lvl,
	)
	Logger = zap.New(core,
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(zap.String("service.name", config.ServiceName)),
	)
}

// Sync flushes buffered log entries.
func Sync() {
	_ = Logger.Sync()
}
