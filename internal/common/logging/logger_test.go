package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		env       string
		level     string
		wantErr   bool
		wantLevel zapcore.Level
	}{
		{name: "development", env: "LOCAL", level: "", wantLevel: zapcore.DebugLevel},
		{name: "production", env: "production", level: "", wantLevel: zapcore.InfoLevel},
		{name: "レベル指定", env: "production", level: "warn", wantLevel: zapcore.WarnLevel},
		{name: "不正なレベル", env: "LOCAL", level: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.env, tt.level)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewLogger() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !logger.Core().Enabled(tt.wantLevel) {
				t.Errorf("level %v should be enabled", tt.wantLevel)
			}
			if tt.wantLevel > zapcore.DebugLevel && logger.Core().Enabled(tt.wantLevel-1) {
				t.Errorf("level %v should be disabled", tt.wantLevel-1)
			}
		})
	}
}
