package extractor

import (
	"strconv"
	"strings"

	"github.com/garyellow/realestate-linebot-go/internal/region"
)

// Field names in the model's JSON answer. They match the dataset column
// names so the answer reads like the data it filters.
const (
	fieldCity        = "城市"
	fieldDistrict    = "鄉鎮市區"
	fieldTimeRange   = "時間範圍"
	fieldRooms       = "建物現況格局-房"
	fieldLivingRooms = "建物現況格局-廳"
	fieldBathrooms   = "建物現況格局-衛"
	fieldElevator    = "電梯"
	fieldAge         = "屋齡"
)

// queryPrompt is the system prompt for parameter extraction. Placeholders
// are filled by buildQueryPrompt.
const queryPrompt = `你是台灣房地產實價登錄查詢的參數擷取助手。請從使用者的問題中擷取查詢條件，只輸出一個 JSON 物件。

## 欄位說明
- "城市"：字串，只能是「台北市」或「新北市」。例如：「台北市」
- "鄉鎮市區"：字串，行政區全名。例如：「大安區」、「板橋區」
- "時間範圍"：物件 {"start_year": 整數, "end_year": 整數, "description": 字串}。例如：{"start_year": 2020, "end_year": 2024, "description": "2020年至2024年"}
- "建物現況格局-房"：整數，房間數。例如：3
- "建物現況格局-廳"：整數，客廳數。例如：2
- "建物現況格局-衛"：整數，衛浴數。例如：1
- "電梯"：字串，只能是「有」或「無」
- "屋齡"：整數，建物年齡（年）。例如：15

## 格式規則
1. 數字一律使用阿拉伯數字，不可使用中文數字
2. 城市名稱使用「台北市」，不可寫成「臺北市」
3. 電梯只能填「有」或「無」
4. 房、廳、衛必須是整數
5. 使用者沒有提到的欄位一律填 null，不要猜測，也不要填預設值

## 時間範圍規則
今年是 {current_year} 年。
1. 明確的年份或區間（如「2020年」、「2018到2022年」）直接擷取
2. 「近X年」換算成實際年份，例如「近兩年」是 {last_year} 年至 {current_year} 年
3. 完全沒有提到時間時，「時間範圍」填 null

## 有效的城市與行政區
城市：台北市、新北市
台北市行政區：{taipei_districts}
新北市行政區：{new_taipei_districts}

## 範例
問題：台北市大安區近三年有電梯的三房兩廳一衛、屋齡15年的房價
{"城市": "台北市", "鄉鎮市區": "大安區", "時間範圍": {"start_year": {three_years_start}, "end_year": {current_year}, "description": "近三年（{three_years_start}年至{current_year}年）"}, "建物現況格局-房": 3, "建物現況格局-廳": 2, "建物現況格局-衛": 1, "電梯": "有", "屋齡": 15}

問題：淡水的房價
{"城市": "新北市", "鄉鎮市區": "淡水區", "時間範圍": null, "建物現況格局-房": null, "建物現況格局-廳": null, "建物現況格局-衛": null, "電梯": null, "屋齡": null}

只輸出 JSON，不要加入任何說明文字。`

// webPrompt is the system prompt for listing-search parameter extraction.
const webPrompt = `你是房屋物件搜尋條件的擷取助手。請從使用者的問題中擷取以下參數：

1. city：城市，只能是「台北市」或「新北市」
2. district：行政區，例如「大安區」、「板橋區」
3. property_type：房屋類型，可為「公寓」、「大樓」、「套房」、「別墅」、「透天」、「辦公」，可多選
4. price_range：價格範圍，例如「200萬以上」、「500-1000萬」
5. area_range：坪數範圍，例如「10坪以上」、「20-30坪」
6. rooms：房間數，例如「3」、「2-3」、「3房以上」
7. floor：樓層，例如「1樓以上」、「5樓以下」
8. year：屋齡，例如「5年以下」、「10年以上」
9. special_conditions：特殊條件清單，例如「有車位」、「無車位」、「排除4樓」
10. amenities：設施清單，例如「近捷運」、「近公園」、「游泳池」、「健身房」
11. keyword：關鍵字，例如捷運站名或學區名

只輸出一個 JSON 物件，而且只包含問題中明確提到的參數，不要自行補上假設的條件。`

func buildQueryPrompt(currentYear int) string {
	year := strconv.Itoa(currentYear)
	r := strings.NewReplacer(
		"{current_year}", year,
		"{last_year}", strconv.Itoa(currentYear-1),
		"{three_years_start}", strconv.Itoa(currentYear-2),
		"{taipei_districts}", strings.Join(region.TaipeiDistricts, "、"),
		"{new_taipei_districts}", strings.Join(region.NewTaipeiDistricts, "、"),
	)
	return r.Replace(queryPrompt)
}
