package router

import "regexp"

// PriceKeywords signal an average-price question.
var PriceKeywords = []string{
	"房價", "價格", "行情", "均價", "單價", "多少錢",
	"價位", "平均", "值多少", "房子多少", "一坪", "每坪",
}

// PlotKeywords signal a chart or trend question. They win over price
// keywords.
var PlotKeywords = []string{
	"圖表", "統計圖", "長條圖", "折線圖", "圓餅圖", "視覺化",
	"趨勢圖", "分布圖", "比較圖", "走勢", "顯示", "製圖",
	"畫出", "繪製", "視覺呈現", "圖形", "趨勢", "變化",
	"漲跌", "成長", "歷史",
}

// WebSearchKeywords signal a listing search.
var WebSearchKeywords = []string{
	"搜尋", "找", "物件", "房屋", "公寓", "大樓", "套房", "別墅",
	"透天", "辦公", "車位", "台北", "新北", "捷運", "學區", "近",
	"信義房屋", "網站", "有沒有", "網路", "查詢", "找到",
}

// With a place in the text these words tip the plan towards one tool.
var (
	webBoostWords  = []string{"找", "物件", "房屋", "公寓", "查詢"}
	dataBoostWords = []string{"房價", "價格", "行情", "均價", "圖表", "趨勢"}
)

// pricePatterns pair a place with a price word in either order.
var pricePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(新北市|台北市|臺北市).*?(房價|價格|行情|均價|單價|多少錢)`),
	regexp.MustCompile(`(房價|價格|行情|均價|單價).*?(新北市|台北市|臺北市)`),
	regexp.MustCompile(`(大安|信義|中正|松山|大同|萬華|文山|南港|內湖|士林|北投|板橋|三重|中和|永和|新莊|新店|汐止|淡水).*?(房價|價格|行情|均價|單價)`),
	regexp.MustCompile(`(房價|價格|行情|均價|單價).*?(大安|信義|中正|松山|大同|萬華|文山|南港|內湖|士林|北投|板橋|三重|中和|永和|新莊|新店|汐止|淡水)`),
	regexp.MustCompile(`(大安區|信義區|中正區|松山區|大同區|萬華區|文山區|南港區|內湖區|士林區|北投區|板橋區|三重區|中和區|永和區|新莊區|新店區|汐止區|淡水區).*?(多少|如何)`),
}

// shortQueryRunes is the length under which a query naming a place is
// read as an implicit price lookup.
const shortQueryRunes = 25
