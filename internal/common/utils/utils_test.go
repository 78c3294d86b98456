package utils

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRunWithTimeout(t *testing.T) {
	errBoom := errors.New("boom")

	tests := []struct {
		name    string
		fn      func(context.Context) error
		wantErr error
	}{
		{
			name:    "時間内に完了",
			fn:      func(ctx context.Context) error { return nil },
			wantErr: nil,
		},
		{
			name:    "処理のエラーをそのまま返す",
			fn:      func(ctx context.Context) error { return errBoom },
			wantErr: errBoom,
		},
		{
			name: "タイムアウト",
			fn: func(ctx context.Context) error {
				<-ctx.Done()
				time.Sleep(10 * time.Millisecond)
				return nil
			},
			wantErr: context.DeadlineExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RunWithTimeout(context.Background(), 20*time.Millisecond, tt.fn)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("RunWithTimeout() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetStackWithError(t *testing.T) {
	if GetStackWithError(nil) != nil {
		t.Error("GetStackWithError(nil) should be nil")
	}

	base := errors.New("base")
	err := GetStackWithError(base)
	if !errors.Is(err, base) {
		t.Error("GetStackWithError() should wrap the original error")
	}
	if !strings.Contains(err.Error(), "Stack trace:") {
		t.Error("GetStackWithError() should include a stack trace")
	}
}

func TestRecoverToError(t *testing.T) {
	if RecoverToError(nil) != nil {
		t.Error("RecoverToError(nil) should be nil")
	}

	base := errors.New("nil map write")
	if err := RecoverToError(base); !errors.Is(err, base) {
		t.Errorf("RecoverToError(error) = %v, want wrapping %v", err, base)
	}
	if err := RecoverToError("oops"); err == nil || !strings.Contains(err.Error(), "panic: oops") {
		t.Errorf("RecoverToError(string) = %v", err)
	}
}
