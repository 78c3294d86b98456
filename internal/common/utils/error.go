package utils

import (
	"fmt"
	"runtime/debug"
)

// GetStackWithError は、エラーとスタックトレースを組み合わせて返します
func GetStackWithError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w\nStack trace:\n%s", err, debug.Stack())
}

// RecoverToError はrecover()の戻り値をスタックトレース付きのエラーに変換します
// rがnilの場合はnilを返します
func RecoverToError(r any) error {
	if r == nil {
		return nil
	}
	if err, ok := r.(error); ok {
		return GetStackWithError(fmt.Errorf("panic: %w", err))
	}
	return GetStackWithError(fmt.Errorf("panic: %v", r))
}
