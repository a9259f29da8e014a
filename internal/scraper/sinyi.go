package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/singleflight"

	apperrors "github.com/garyellow/realestate-linebot-go/internal/errors"
	"github.com/garyellow/realestate-linebot-go/internal/sliceutil"
)

// Listing is one property card from a search result page.
type Listing struct {
	Name             string   `json:"property_name"`
	Community        string   `json:"community,omitempty"`
	Location         string   `json:"location,omitempty"`
	Age              string   `json:"age,omitempty"`
	Type             string   `json:"property_type,omitempty"`
	TotalSize        string   `json:"total_size,omitempty"`
	MainSize         string   `json:"main_size,omitempty"`
	Layout           string   `json:"layout,omitempty"`
	Floor            string   `json:"floor,omitempty"`
	Parking          string   `json:"parking,omitempty"`
	OriginalPrice    string   `json:"original_price,omitempty"`
	Price            string   `json:"current_price,omitempty"`
	PriceUnit        string   `json:"price_unit,omitempty"`
	Discount         string   `json:"discount_percentage,omitempty"`
	Features         []string `json:"features,omitempty"`
	InterestCount    string   `json:"interest_count,omitempty"`
	ManagerRecommend bool     `json:"manager_recommend,omitempty"`
	HasVR            bool     `json:"has_vr,omitempty"`
	ImageURL         string   `json:"image_url,omitempty"`
	URL              string   `json:"url,omitempty"`
}

// Summary renders the listing as a few indented lines for chat replies.
func (l Listing) Summary(n int) string {
	var b strings.Builder
	name := l.Name
	if name == "" {
		name = "物件"
	}
	fmt.Fprintf(&b, "%d. %s\n", n, name)
	fmt.Fprintf(&b, "   地點: %s\n", orNA(l.Location))
	fmt.Fprintf(&b, "   價格: %s\n", orNA(strings.TrimSpace(l.Price+" "+l.PriceUnit)))
	fmt.Fprintf(&b, "   坪數: %s\n", orNA(l.TotalSize))
	fmt.Fprintf(&b, "   格局: %s\n", orNA(l.Layout))
	if len(l.Features) > 0 {
		fmt.Fprintf(&b, "   特色: %s\n", strings.Join(l.Features, ", "))
	}
	if l.URL != "" {
		fmt.Fprintf(&b, "   %s\n", l.URL)
	}
	return b.String()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// Searcher finds listings behind a search URL.
type Searcher interface {
	Search(ctx context.Context, searchURL string, limit int) ([]Listing, error)
}

// Sinyi scrapes the Sinyi buy listing pages.
type Sinyi struct {
	client *Client
	group  singleflight.Group
}

// NewSinyi creates a Sinyi scraper on top of client.
func NewSinyi(client *Client) *Sinyi {
	return &Sinyi{client: client}
}

// Search returns up to limit listings from searchURL. Concurrent searches
// for the same URL share one fetch. An empty page is ErrScrapeFailed.
func (s *Sinyi) Search(ctx context.Context, searchURL string, limit int) ([]Listing, error) {
	v, err, _ := s.group.Do(searchURL, func() (any, error) {
		doc, err := s.client.GetDocument(ctx, searchURL)
		if err != nil {
			return nil, err
		}
		return ParseListings(doc, searchURL), nil
	})
	if err != nil {
		return nil, err
	}

	listings := v.([]Listing)
	if len(listings) == 0 {
		return nil, apperrors.NewScraperError(searchURL, 0, apperrors.ErrScrapeFailed)
	}
	if limit > 0 && len(listings) > limit {
		listings = listings[:limit]
	}
	// Callers share the slice from singleflight.
	return append([]Listing(nil), listings...), nil
}

// ParseListings extracts listing cards from a result page. Relative detail
// links are resolved against pageURL.
func ParseListings(doc *goquery.Document, pageURL string) []Listing {
	base, _ := url.Parse(pageURL)

	var listings []Listing
	doc.Find("div.buy-list-item").Each(func(_ int, card *goquery.Selection) {
		l := parseCard(card)
		if href, ok := card.Find("a[href]").First().Attr("href"); ok {
			l.URL = resolve(base, href)
		}
		if l.Name == "" && l.URL == "" {
			return
		}
		listings = append(listings, l)
	})

	return sliceutil.Deduplicate(listings, func(l Listing) string {
		if l.URL != "" {
			return l.URL
		}
		return l.Name + "|" + l.Location
	})
}

func parseCard(card *goquery.Selection) Listing {
	l := Listing{
		Name:      text(card.Find(`div[class*="LongInfoCard_Type_Name"]`)),
		Community: text(card.Find(`span[class*="longInfoCard_communityName"]`)),
		Parking:   text(card.Find(`span[class*="LongInfoCard_Type_Parking"] span`)),
		Discount:  text(card.Find(`div[class*="longInfoCard_lowprice"] span`).Not(`[style*="color"]`)),
		InterestCount: text(card.Find(`span[class*="longInfoCard_clicks"] span`).
			Filter(`[style*="rgb(222, 37, 37)"]`)),
		ManagerRecommend: card.Find(`div[class*="longInfoCard_bossgreat"]`).Length() > 0,
		HasVR:            card.Find(`div[class*="LongInfoCard_VRicon"] img`).Length() > 0,
	}

	address := card.Find(`div[class*="LongInfoCard_Type_Address"] span`)
	l.Location = text(address.Eq(0))
	l.Age = text(address.Eq(1))
	l.Type = text(address.Eq(2))

	info := card.Find(`div[class*="LongInfoCard_Type_HouseInfo"] span`)
	l.TotalSize = text(info.Eq(0))
	info.Each(func(i int, span *goquery.Selection) {
		if i == 0 {
			return
		}
		v := text(span)
		switch {
		case l.MainSize == "" && strings.Contains(v, "主 + 陽"):
			l.MainSize = v
		case l.Layout == "" && strings.Contains(v, "房"):
			l.Layout = v
		case l.Floor == "" && strings.Contains(v, "樓"):
			l.Floor = v
		}
	})

	l.OriginalPrice = text(card.Find(`span[style*="line-through"]`))
	price := card.Find(`span[style*="font-weight: 500"]`).Filter(`[style*="rgb(221, 37, 37)"]`).First()
	l.Price = text(price)
	l.PriceUnit = text(price.Next())

	card.Find(`span[class*="longInfoCard_specificTag"]`).Each(func(_ int, tag *goquery.Selection) {
		if v := text(tag); v != "" {
			l.Features = append(l.Features, v)
		}
	})
	l.Features = sliceutil.DeduplicateStrings(l.Features)

	if src, ok := card.Find(`div[class*="longInfoCard_largeImg"] img`).First().Attr("src"); ok {
		l.ImageURL = strings.TrimSpace(src)
	}
	return l
}

func text(s *goquery.Selection) string {
	return strings.Join(strings.Fields(s.First().Text()), " ")
}

func resolve(base *url.URL, href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}
