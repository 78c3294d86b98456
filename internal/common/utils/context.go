package utils

import (
	"context"
	"fmt"
	"time"
)

// 指定されたタイムアウト時間内で処理を実行する
// タイムアウトを超えた場合は、コンテキストをキャンセルしてエラーを返す
// 返却されるエラーはcontext.DeadlineExceededをラップします
func RunWithTimeout(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	// タイムアウト付きのコンテキストを作成
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// エラーチャネルを作成
	errChan := make(chan error, 1)

	go func() {
		errChan <- fn(ctx)
	}()

	// 処理の完了またはタイムアウトを待機
	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		return fmt.Errorf("operation timed out after %v: %w", timeout, ctx.Err())
	}
}
