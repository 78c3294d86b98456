package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/google/uuid"
	"github.com/refereat/refereat-server/internal/model"
	"go.uber.org/zap"
)

// StartExecutionAPI はStep Functionsクライアントのうち利用するAPIです
type StartExecutionAPI interface {
	StartExecution(ctx context.Context, params *sfn.StartExecutionInput, optFns ...func(*sfn.Options)) (*sfn.StartExecutionOutput, error)
}

// SFNPublisher は台帳イベントをStep Functionsのステートマシン実行として発行します
type SFNPublisher struct {
	client          StartExecutionAPI
	stateMachineARN string
	logger          *zap.Logger
}

func NewSFNPublisher(client StartExecutionAPI, stateMachineARN string, logger *zap.Logger) *SFNPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SFNPublisher{client: client, stateMachineARN: stateMachineARN, logger: logger}
}

// Publish はイベントを入力としてステートマシンの実行を開始します
func (p *SFNPublisher) Publish(ctx context.Context, event model.Event) error {
	ctx, seg := xray.BeginSubsegment(ctx, "SFNPublisher.Publish")
	defer seg.Close(nil)

	// ローカルの場合やステートマシンが未設定の場合はStep Functionsの処理をスキップ
	if os.Getenv("ENV") == "LOCAL" || p.client == nil || p.stateMachineARN == "" {
		p.logger.Debug("step functions is not configured, skipping event", zap.String("type", string(event.Type)))
		return nil
	}

	input, err := json.Marshal(map[string]any{
		"event": event,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = p.client.StartExecution(ctx, &sfn.StartExecutionInput{
		StateMachineArn: aws.String(p.stateMachineARN),
		Name:            aws.String(fmt.Sprintf("%s-%s", event.Type, uuid.NewString())),
		Input:           aws.String(string(input)),
	})
	if err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to start execution for %s event: %w", event.Type, err)
	}
	p.logger.Debug("event published", zap.String("type", string(event.Type)))
	return nil
}
