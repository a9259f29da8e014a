package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/garyellow/realestate-linebot-go/internal/urlbuilder"
)

// previewListings is how many listings are spelled out in the reply text.
const previewListings = 3

// searchListings builds a Sinyi search URL from text and scrapes it. When
// nothing can be fetched the reply still points at the default search page.
func (o *Orchestrator) searchListings(ctx context.Context, text string) Result {
	params := o.extractor.ExtractWebParams(ctx, text).Normalize()
	searchURL := urlbuilder.Build(params, text)
	explanation := urlbuilder.Explain(params)

	log := o.log.WithField("url", searchURL)
	if o.searcher == nil {
		log.Debug("Listing search is not configured")
		return noListings(explanation)
	}

	listings, err := o.searcher.Search(ctx, searchURL, o.maxListings)
	if err != nil {
		log.WithError(err).Warn("Listing search failed")
		res := noListings(explanation)
		res.Err = err
		return res
	}
	if len(listings) == 0 {
		return noListings(explanation)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "找到 %d 筆符合條件的物件：\n\n%s\n\n", len(listings), explanation)
	for i, l := range listings[:min(previewListings, len(listings))] {
		b.WriteString(l.Summary(i + 1))
		b.WriteString("\n")
	}
	if rest := len(listings) - previewListings; rest > 0 {
		fmt.Fprintf(&b, "... 還有 %d 筆\n\n", rest)
	}
	fmt.Fprintf(&b, "查看更多：%s", searchURL)

	return Result{
		Success:     true,
		Message:     fmt.Sprintf("找到 %d 筆物件", len(listings)),
		Text:        b.String(),
		Listings:    listings,
		SearchURL:   searchURL,
		Explanation: explanation,
	}
}

func noListings(explanation string) Result {
	return Result{
		Success:     false,
		Message:     "找不到符合條件的物件",
		Text:        fmt.Sprintf("找不到符合條件的物件（%s）。您可以到信義房屋網站瀏覽更多物件：%s", explanation, urlbuilder.DefaultURL),
		SearchURL:   urlbuilder.DefaultURL,
		Explanation: explanation,
	}
}
