package webhook

import (
	"strings"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/garyellow/realestate-linebot-go/internal/lineutil"
	"github.com/garyellow/realestate-linebot-go/internal/orchestrator"
	"github.com/garyellow/realestate-linebot-go/internal/region"
	"github.com/garyellow/realestate-linebot-go/internal/scraper"
)

// maxCarouselListings caps the listing carousel below the API maximum to
// keep replies compact.
const maxCarouselListings = 5

func textReply(text string, items ...lineutil.QuickReplyItem) []messaging_api.MessageInterface {
	return []messaging_api.MessageInterface{lineutil.NewTextMessageWithQuickReply(text, items...)}
}

// resultMessages renders a query result: the answer text, the chart image
// when imageURL is set, then a listing carousel when listings were found.
// Follow-up suggestions ride on the last message.
func resultMessages(res orchestrator.Result, imageURL string) []messaging_api.MessageInterface {
	messages := []messaging_api.MessageInterface{lineutil.NewTextMessage(res.Text)}
	if imageURL != "" {
		messages = append(messages, lineutil.NewImageMessage(imageURL, imageURL))
	}
	if columns := listingColumns(res.Listings); len(columns) > 0 {
		messages = append(messages, lineutil.NewCarouselTemplate("物件搜尋結果", columns))
	}

	var city, district string
	if res.Params != nil {
		city, district = res.Params.City, res.Params.District
	}
	lineutil.AddQuickReplyToMessages(messages, suggestions(city, district)...)
	return messages
}

// listingColumns turns listings with a link into carousel columns.
func listingColumns(listings []scraper.Listing) []lineutil.CarouselColumn {
	var columns []lineutil.CarouselColumn
	for _, l := range listings {
		if l.URL == "" || l.Name == "" {
			continue
		}
		col := lineutil.CarouselColumn{
			Title:   l.Name,
			Text:    listingText(l),
			Actions: []lineutil.Action{lineutil.NewURIAction("查看物件", l.URL)},
		}
		if strings.HasPrefix(l.ImageURL, "https://") {
			col.ThumbnailImageURL = l.ImageURL
		}
		columns = append(columns, col)
		if len(columns) == maxCarouselListings {
			break
		}
	}
	// LINE rejects a carousel that mixes columns with and without images.
	for _, c := range columns {
		if c.ThumbnailImageURL == "" {
			for i := range columns {
				columns[i].ThumbnailImageURL = ""
			}
			break
		}
	}
	return columns
}

func listingText(l scraper.Listing) string {
	var parts []string
	if l.Price != "" {
		parts = append(parts, l.Price+l.PriceUnit)
	}
	for _, s := range []string{l.Layout, l.TotalSize, l.Location} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return "信義房屋物件"
	}
	return strings.Join(parts, "｜")
}

// suggestions offers follow-up queries about the place the user asked
// about, or generic examples when there was none.
func suggestions(city, district string) []lineutil.QuickReplyItem {
	if district == "" {
		return defaultSuggestions()
	}
	if city == "" {
		city = region.CityOf(district)
	}
	place := city + district
	return []lineutil.QuickReplyItem{
		lineutil.QuickReplyQuery("💰 "+district+"房價", place+"的平均房價"),
		lineutil.QuickReplyQuery("📈 "+district+"趨勢", place+"近五年房價趨勢"),
		lineutil.QuickReplyQuery("🏠 找"+district+"物件", "幫我找"+district+"的房子"),
	}
}

func defaultSuggestions() []lineutil.QuickReplyItem {
	return []lineutil.QuickReplyItem{
		lineutil.QuickReplyQuery("💰 平均房價", "台北市大安區的平均房價"),
		lineutil.QuickReplyQuery("📈 房價趨勢", "新北市板橋區近五年房價趨勢"),
		lineutil.QuickReplyQuery("🏠 找物件", "幫我找信義區三房有車位的公寓"),
	}
}
