package lineutil

// LINE Messaging API limits, counted in runes.
// https://developers.line.biz/en/reference/messaging-api/
const (
	MaxTextMessageLength = 5000
	MaxAltTextLength     = 400

	MaxTemplateTitleLength  = 40
	MaxCarouselTemplateText = 60
	MaxCarouselColumnCount  = 10
	MaxTemplateActionCount  = 3 // carousel columns

	MaxQuickReplyItemCount = 13
	MaxQuickReplyLabel     = 20
	MaxActionLabel         = 20

	// MaxReplyMessages is how many messages one reply token can carry.
	MaxReplyMessages = 5
)
