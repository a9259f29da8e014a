package lineutil

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

func TestTruncateRunes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		text string
		max  int
		want string
	}{
		{"Short", "大安區", 10, "大安區"},
		{"Exact", "大安區", 3, "大安區"},
		{"Cut", "台北市大安區房價", 6, "台北市..."},
		{"Tiny limit", "台北市大安區", 2, "台北"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := TruncateRunes(tt.text, tt.max); got != tt.want {
				t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tt.text, tt.max, got, tt.want)
			}
		})
	}
}

func TestNewTextMessage_Truncates(t *testing.T) {
	t.Parallel()
	msg := NewTextMessage(strings.Repeat("房", MaxTextMessageLength+10))

	if n := utf8.RuneCountInString(msg.Text); n != MaxTextMessageLength {
		t.Errorf("rune count = %d, want %d", n, MaxTextMessageLength)
	}
	if !strings.HasSuffix(msg.Text, "...") {
		t.Error("truncated text should end with ...")
	}
}

func TestNewTextMessageWithQuickReply(t *testing.T) {
	t.Parallel()

	plain := NewTextMessageWithQuickReply("hi")
	if plain.QuickReply != nil {
		t.Error("no items should leave QuickReply nil")
	}

	msg := NewTextMessageWithQuickReply("hi", QuickReplyQuery("平均房價", "台北市大安區的平均房價"))
	if msg.QuickReply == nil || len(msg.QuickReply.Items) != 1 {
		t.Fatalf("QuickReply = %+v, want one item", msg.QuickReply)
	}
	action, ok := msg.QuickReply.Items[0].Action.(*messaging_api.MessageAction)
	if !ok {
		t.Fatalf("action type = %T, want *MessageAction", msg.QuickReply.Items[0].Action)
	}
	if action.Label != "平均房價" || action.Text != "台北市大安區的平均房價" {
		t.Errorf("action = %+v", action)
	}
}

func TestNewQuickReply_Limit(t *testing.T) {
	t.Parallel()
	items := make([]QuickReplyItem, MaxQuickReplyItemCount+5)
	for i := range items {
		items[i] = QuickReplyQuery("q", "q")
	}

	if got := len(NewQuickReply(items).Items); got != MaxQuickReplyItemCount {
		t.Errorf("items = %d, want %d", got, MaxQuickReplyItemCount)
	}
}

func TestNewCarouselTemplate(t *testing.T) {
	t.Parallel()
	columns := make([]CarouselColumn, MaxCarouselColumnCount+2)
	for i := range columns {
		columns[i] = CarouselColumn{
			Title:   strings.Repeat("標", MaxTemplateTitleLength+5),
			Text:    strings.Repeat("文", MaxCarouselTemplateText+5),
			Actions: []Action{NewURIAction("查看物件", "https://www.sinyi.com.tw/buy/house/1")},
		}
	}
	columns[0].ThumbnailImageURL = "https://img.example/1.jpg"

	msg := NewCarouselTemplate(strings.Repeat("替", MaxAltTextLength+1), columns)

	carousel, ok := msg.Template.(*messaging_api.CarouselTemplate)
	if !ok {
		t.Fatalf("template type = %T", msg.Template)
	}
	if len(carousel.Columns) != MaxCarouselColumnCount {
		t.Errorf("columns = %d, want %d", len(carousel.Columns), MaxCarouselColumnCount)
	}
	first := carousel.Columns[0]
	if utf8.RuneCountInString(first.Title) != MaxTemplateTitleLength {
		t.Errorf("title runes = %d", utf8.RuneCountInString(first.Title))
	}
	if utf8.RuneCountInString(first.Text) != MaxCarouselTemplateText {
		t.Errorf("text runes = %d", utf8.RuneCountInString(first.Text))
	}
	if first.ThumbnailImageUrl != "https://img.example/1.jpg" || carousel.Columns[1].ThumbnailImageUrl != "" {
		t.Error("thumbnail should only be set on the first column")
	}
	if utf8.RuneCountInString(msg.AltText) != MaxAltTextLength {
		t.Errorf("alt text runes = %d", utf8.RuneCountInString(msg.AltText))
	}
}

func TestAddQuickReplyToMessages(t *testing.T) {
	t.Parallel()
	text := NewTextMessage("a")
	carousel := NewCarouselTemplate("b", []CarouselColumn{{Text: "c"}})
	messages := []messaging_api.MessageInterface{text, carousel}

	AddQuickReplyToMessages(messages, QuickReplyQuery("趨勢", "房價趨勢"))

	if text.QuickReply != nil {
		t.Error("only the last message should get quick replies")
	}
	if carousel.QuickReply == nil {
		t.Error("last message should get quick replies")
	}

	AddQuickReplyToMessages(nil, QuickReplyQuery("x", "y"))
}

func TestNewImageMessage_TakesQuickReply(t *testing.T) {
	t.Parallel()
	img := NewImageMessage("https://cdn.example/chart.png", "https://cdn.example/chart.png")
	if img.OriginalContentUrl != "https://cdn.example/chart.png" || img.PreviewImageUrl != img.OriginalContentUrl {
		t.Errorf("image = %+v", img)
	}

	AddQuickReplyToMessages([]messaging_api.MessageInterface{img}, QuickReplyQuery("趨勢", "房價趨勢"))
	if img.QuickReply == nil {
		t.Error("image message should accept quick replies")
	}
}
