package region

// CityCodes maps city names and their short forms to listing-site city codes.
var CityCodes = map[string]string{
	"台北":  "Taipei-city",
	"台北市": "Taipei-city",
	"新北":  "NewTaipei-city",
	"新北市": "NewTaipei-city",
}

// DefaultCityCode is used when no city is given.
const DefaultCityCode = "NewTaipei-city"

// ZipCodes maps district names (short or full) to postal codes.
var ZipCodes = map[string]string{
	// 台北市
	"中正區": "100", "大同區": "103", "中山區": "104", "松山區": "105",
	"大安區": "106", "萬華區": "108", "信義區": "110", "士林區": "111",
	"北投區": "112", "內湖區": "114", "南港區": "115", "文山區": "116",

	// 新北市
	"萬里區": "207", "金山區": "208", "板橋區": "220", "汐止區": "221",
	"深坑區": "222", "石碇區": "223", "瑞芳區": "224", "平溪區": "226",
	"雙溪區": "227", "貢寮區": "228", "新店區": "231", "坪林區": "232",
	"烏來區": "233", "永和區": "234", "中和區": "235", "土城區": "236",
	"三峽區": "237", "樹林區": "238", "鶯歌區": "239", "三重區": "241",
	"新莊區": "242", "泰山區": "243", "林口區": "244", "蘆洲區": "247",
	"五股區": "248", "八里區": "249", "淡水區": "251", "三芝區": "252",
	"石門區": "253",
}

// CityCode returns the listing-site code for city, or DefaultCityCode.
func CityCode(city string) string {
	if code, ok := CityCodes[city]; ok {
		return code
	}
	if code, ok := CityCodes[NormalizeCity(city)]; ok {
		return code
	}
	return DefaultCityCode
}

// ZipCode returns the postal code for a district in short or full form.
func ZipCode(district string) (string, bool) {
	zip, ok := ZipCodes[NormalizeDistrict(district)]
	return zip, ok
}
