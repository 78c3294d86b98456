package gemini

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/refereat/refereat-server/internal/model"
	"google.golang.org/genai"
)

// extractionPrompt は予約レポート・レシートから予約情報を抽出する指示です
const extractionPrompt = `Analyze the provided restaurant booking report or receipt.
Extract the following information:
- Guest Name (guestName)
- Date (bookingDate in ISO format)
- Number of Covers (covers) - number of people
- Total Spend (totalSpend) - numeric value, if available.

Return the result as a raw JSON object with keys: guestName, bookingDate, covers, totalSpend.
Do not include markdown formatting.`

// apiVersion はGemini APIのバージョンです
const apiVersion = "v1beta"

// Input は抽出対象です。ImageがあればImageを、なければTextを送ります
type Input struct {
	Text     string
	Image    []byte
	MimeType string
}

type Config struct {
	APIKey string
	Model  string
	// Endpoint はAPIのベースURLです。空の場合はSDKの既定値を使います
	Endpoint string
	Timeout  time.Duration
}

// Client はgenai SDKでGeminiのgenerateContentを呼び出すクライアントです
type Client struct {
	models *genai.Models
	model  string
}

// NewClient はクライアントを作成します
// APIキーが未設定の場合もエラーにはせず、ExtractBookingの呼び出しで失敗します
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	c := &Client{model: cfg.Model}
	if cfg.APIKey == "" {
		return c, nil
	}

	httpOptions := genai.HTTPOptions{APIVersion: apiVersion}
	if cfg.Endpoint != "" {
		httpOptions.BaseURL = strings.TrimRight(cfg.Endpoint, "/") + "/"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
		// X-Ray対応のHTTPクライアント
		HTTPClient:  xray.Client(&http.Client{Timeout: cfg.Timeout}),
		HTTPOptions: httpOptions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	c.models = client.Models
	return c, nil
}

// ExtractBooking はモデルに予約情報を抽出させます
// 失敗はすべてmodel.ErrExtractionFailedをラップして返し、再試行はしません
func (c *Client) ExtractBooking(ctx context.Context, in Input) (*model.BookingExtraction, error) {
	if c.models == nil {
		return nil, fmt.Errorf("%w: gemini api key is not configured", model.ErrExtractionFailed)
	}

	parts := []*genai.Part{genai.NewPartFromText(extractionPrompt)}
	switch {
	case len(in.Image) > 0:
		mimeType := in.MimeType
		if mimeType == "" {
			mimeType = http.DetectContentType(in.Image)
		}
		parts = append(parts, genai.NewPartFromBytes(in.Image, mimeType))
	case strings.TrimSpace(in.Text) != "":
		parts = append(parts, genai.NewPartFromText(in.Text))
	default:
		return nil, fmt.Errorf("%w: nothing to analyze", model.ErrExtractionFailed)
	}

	resp, err := c.models.GenerateContent(ctx, c.model,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %v", model.ErrExtractionFailed, err)
	}
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: model returned no candidates", model.ErrExtractionFailed)
	}
	return model.ParseBookingExtraction(resp.Text())
}
