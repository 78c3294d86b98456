package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// extractionDateLayouts はモデルが返す日付として受け付ける形式です
var extractionDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	time.DateOnly,
}

// BookingExtraction はAIが予約レポートやレシートから読み取った内容です
// BookingDateは解釈できればRFC3339に正規化され、そのまま予約確定の入力に使えます
type BookingExtraction struct {
	GuestName   string              `json:"guestName"`
	BookingDate string              `json:"bookingDate"`
	Covers      int                 `json:"covers"`
	TotalSpend  decimal.NullDecimal `json:"totalSpend"`
}

// ParseBookingExtraction はモデルの応答テキストをBookingExtractionに変換します
// 応答がmarkdownのコードブロックで囲まれていても受け付けます
func ParseBookingExtraction(text string) (*BookingExtraction, error) {
	cleaned := strings.ReplaceAll(text, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty model response", ErrExtractionFailed)
	}

	var out BookingExtraction
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return nil, fmt.Errorf("%w: malformed model response: %v", ErrExtractionFailed, err)
	}
	out.BookingDate = normalizeBookingDate(out.BookingDate)
	return &out, nil
}

// normalizeBookingDate は日付をRFC3339(UTC)に揃えます
// 解釈できない値は確認用にそのまま返します
func normalizeBookingDate(raw string) string {
	raw = strings.TrimSpace(raw)
	for _, layout := range extractionDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
	}
	return raw
}
