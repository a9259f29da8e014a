package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/realestate-linebot-go/internal/analysis"
	"github.com/garyellow/realestate-linebot-go/internal/chart"
	"github.com/garyellow/realestate-linebot-go/internal/dataset"
	apperrors "github.com/garyellow/realestate-linebot-go/internal/errors"
	"github.com/garyellow/realestate-linebot-go/internal/extractor"
	"github.com/garyellow/realestate-linebot-go/internal/genai"
	"github.com/garyellow/realestate-linebot-go/internal/memory"
	"github.com/garyellow/realestate-linebot-go/internal/region"
	"github.com/garyellow/realestate-linebot-go/internal/router"
	"github.com/garyellow/realestate-linebot-go/internal/scraper"
	"github.com/garyellow/realestate-linebot-go/internal/urlbuilder"
)

const testYear = 2025

func tx(district string, year, month int, unit float64) dataset.Transaction {
	date := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	nan := math.NaN()
	return dataset.Transaction{
		City:         region.Taipei,
		District:     district,
		RawTradeDate: date.Format("2006-01-02"),
		TradeDate:    date,
		TradeYear:    float64(year),
		UnitPrice:    unit,
		TotalPrice:   unit * 30,
		AreaPing:     30,
		UnitPriceSqm: nan,
		Age:          nan,
		Rooms:        nan,
		LivingRooms:  nan,
		Bathrooms:    nan,
	}
}

func taipeiTable() *dataset.Table {
	return dataset.NewTable([]dataset.Transaction{
		tx("大安區", 2020, 3, 800_000),
		tx("大安區", 2021, 5, 850_000),
		tx("大安區", 2022, 5, 900_000),
		tx("大安區", 2023, 7, 1_000_000),
		tx("信義區", 2023, 8, 1_100_000),
		tx("信義區", 2024, 2, 1_200_000),
	}, nil)
}

type fakeLoader struct {
	tables map[string]*dataset.Table
	err    error
	panics bool
}

func (f *fakeLoader) Load(_ context.Context, city string) (*dataset.Table, error) {
	if f.panics {
		panic("corrupt table")
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.tables[city], nil
}

type fakeLLM struct {
	mu       sync.Mutex
	reply    string
	err      error
	messages [][]genai.Message
}

func (f *fakeLLM) Complete(_ context.Context, messages []genai.Message, _ genai.Options) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, messages)
	return f.reply, f.err
}

func (f *fakeLLM) Provider() genai.Provider { return genai.ProviderGroq }
func (f *fakeLLM) Close() error             { return nil }

// stuckLLM never answers until release is closed, whatever its context.
type stuckLLM struct {
	release chan struct{}
}

func (f *stuckLLM) Complete(context.Context, []genai.Message, genai.Options) (string, error) {
	<-f.release
	return "這是一個很晚才回來的模型回覆，不應該被使用。", nil
}

func (f *stuckLLM) Provider() genai.Provider { return genai.ProviderGemini }
func (f *stuckLLM) Close() error             { return nil }

type fakeSearcher struct {
	listings []scraper.Listing
	err      error
	urls     []string
}

func (f *fakeSearcher) Search(_ context.Context, searchURL string, limit int) ([]scraper.Listing, error) {
	f.urls = append(f.urls, searchURL)
	if f.err != nil {
		return nil, f.err
	}
	return f.listings[:min(limit, len(f.listings))], nil
}

type stubRenderer struct{}

func (stubRenderer) Render(_ context.Context, s chart.Series, _ chart.Kind) (chart.Artifact, error) {
	return chart.Artifact{Data: []byte(s.Title), ContentType: chart.ContentTypePNG}, nil
}

func listings(n int) []scraper.Listing {
	out := make([]scraper.Listing, n)
	for i := range out {
		out[i] = scraper.Listing{
			Name:      fmt.Sprintf("物件%d", i+1),
			Location:  "台北市大安區",
			Price:     "2,000",
			PriceUnit: "萬",
			URL:       fmt.Sprintf("https://www.sinyi.com.tw/buy/house/%d", i+1),
		}
	}
	return out
}

type fixture struct {
	loader   *fakeLoader
	searcher *fakeSearcher
	llm      genai.Completer
}

func newOrchestrator(f fixture) *Orchestrator {
	if f.loader == nil {
		f.loader = &fakeLoader{tables: map[string]*dataset.Table{region.Taipei: taipeiTable()}}
	}
	opts := Options{
		Data:      f.loader,
		Extractor: extractor.New(extractor.Options{CurrentYear: testYear, SpanYears: 10}),
		Router:    router.New(router.Options{}),
		Trends:    analysis.NewTrendBuilder(stubRenderer{}, testYear, 10, nil),
		LLM:       f.llm,
	}
	if f.searcher != nil {
		opts.Searcher = f.searcher
	}
	return New(opts)
}

func TestProcess_Price(t *testing.T) {
	t.Parallel()
	o := newOrchestrator(fixture{})

	res := o.Process(context.Background(), "u1", "台北市大安區的平均房價")

	assert.True(t, res.Success, res.Text)
	assert.Equal(t, RoutePrice, res.Route)
	assert.Contains(t, res.Text, "台北市大安區")
	require.NotNil(t, res.Classification)
	assert.Equal(t, router.IntentPrice, res.Classification.Intent)
	require.NotNil(t, res.Params)
	assert.Equal(t, "大安區", res.Params.District)
}

func TestProcess_PriceLoadFailure(t *testing.T) {
	t.Parallel()
	o := newOrchestrator(fixture{loader: &fakeLoader{err: apperrors.ErrNoData}})

	res := o.Process(context.Background(), "", "新北市板橋區的平均房價")

	assert.False(t, res.Success)
	assert.Equal(t, RoutePrice, res.Route)
	assert.Equal(t, "無法加載 新北市 的數據或數據為空", res.Message)
	assert.Equal(t, "抱歉，我找不到 新北市 的房價數據。", res.Text)
	assert.ErrorIs(t, res.Err, apperrors.ErrNoData)

	var wrapped *apperrors.WrappedError
	require.ErrorAs(t, res.Err, &wrapped)
	assert.Equal(t, "load_table", wrapped.Operation)
	assert.Equal(t, res.Text, wrapped.UserMessage)
}

func TestProcess_EmptyTable(t *testing.T) {
	t.Parallel()
	empty := dataset.NewTable(nil, nil)
	o := newOrchestrator(fixture{loader: &fakeLoader{tables: map[string]*dataset.Table{region.Taipei: empty}}})

	res := o.Process(context.Background(), "", "台北市大安區的平均房價")

	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, apperrors.ErrNoData)
	assert.Equal(t, "抱歉，我找不到 台北市 的房價數據。", res.Text)
}

func TestHandlePrice_MissingCity(t *testing.T) {
	t.Parallel()
	o := newOrchestrator(fixture{})

	res := o.handlePrice(context.Background(), extractor.Params{}, router.Classification{Intent: router.IntentPrice})

	assert.False(t, res.Success)
	assert.Equal(t, missingCityMessage, res.Message)
	assert.Equal(t, missingCityText, res.Text)
	assert.ErrorIs(t, res.Err, apperrors.ErrMissingCity)
	assert.Equal(t, missingCityText, apperrors.GetUserMessage(res.Err))
}

func TestPlace(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name         string
		params       extractor.Params
		c            router.Classification
		wantCity     string
		wantDistrict string
	}{
		{"Params win", extractor.Params{City: "新北市"}, router.Classification{City: "台北市"}, "新北市", ""},
		{"Classification fills gaps", extractor.Params{}, router.Classification{City: "台北市", District: "大安區"}, "台北市", "大安區"},
		{"District implies city", extractor.Params{District: "板橋區"}, router.Classification{}, "新北市", "板橋區"},
		{"Nothing", extractor.Params{}, router.Classification{}, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			city, district := place(tt.params, tt.c)
			assert.Equal(t, tt.wantCity, city)
			assert.Equal(t, tt.wantDistrict, district)
		})
	}
}

func TestProcess_Plot(t *testing.T) {
	t.Parallel()
	o := newOrchestrator(fixture{})

	res := o.Process(context.Background(), "u1", "台北市大安區房價趨勢")

	assert.True(t, res.Success, res.Text)
	assert.Equal(t, RoutePlot, res.Route)
	assert.True(t, res.HasChart())
	require.NotNil(t, res.Table)
	assert.NotEmpty(t, res.Table.Rows)
}

func TestProcess_PlotSinglePoint(t *testing.T) {
	t.Parallel()
	table := dataset.NewTable([]dataset.Transaction{tx("大安區", 2023, 7, 1_000_000)}, nil)
	o := newOrchestrator(fixture{loader: &fakeLoader{tables: map[string]*dataset.Table{region.Taipei: table}}})

	res := o.Process(context.Background(), "", "台北市大安區房價趨勢")

	assert.False(t, res.Success)
	assert.Equal(t, RoutePlot, res.Route)
	assert.False(t, res.HasChart())
	assert.Contains(t, res.Text, "資料點不足以分析趨勢")
	assert.ErrorIs(t, res.Err, apperrors.ErrInsufficientData)
	assert.Equal(t, res.Text, apperrors.GetUserMessage(res.Err))
}

func TestChartType(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "bar", chartType("畫一張大安區的長條圖"))
	assert.Equal(t, "line", chartType("大安區房價趨勢"))
}

func TestProcess_OtherWithoutModel(t *testing.T) {
	t.Parallel()
	o := newOrchestrator(fixture{})

	res := o.Process(context.Background(), "u1", "我想了解一下購屋時需要準備哪些文件以及貸款流程大概要多久時間")

	assert.True(t, res.Success)
	assert.Equal(t, RouteOther, res.Route)
	assert.True(t, strings.HasPrefix(res.Text, "無法生成詳細分析，但這裡是基本統計信息："), res.Text)
	assert.Contains(t, res.Text, "數據筆數: 6")
}

func TestProcess_OtherModelOutlivesContext(t *testing.T) {
	t.Parallel()
	llm := &stuckLLM{release: make(chan struct{})}
	t.Cleanup(func() { close(llm.release) })
	o := newOrchestrator(fixture{llm: llm})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan Result, 1)
	go func() {
		done <- o.Process(ctx, "", "我想了解一下購屋時需要準備哪些文件以及貸款流程大概要多久時間")
	}()

	select {
	case res := <-done:
		assert.True(t, res.Success)
		assert.Contains(t, res.Text, "基本統計信息")
	case <-time.After(5 * time.Second):
		t.Fatal("Process waited for a model call whose context had ended")
	}
}

func TestComplete_NoModel(t *testing.T) {
	t.Parallel()
	o := newOrchestrator(fixture{})

	_, err := o.complete(context.Background(), []genai.Message{genai.UserMessage("hi")}, genai.Options{})

	assert.ErrorIs(t, err, apperrors.ErrLLMUnavailable)
}

func TestProcess_OtherShortModelReplyFallsBack(t *testing.T) {
	t.Parallel()
	o := newOrchestrator(fixture{llm: &fakeLLM{reply: "好"}})

	res := o.Process(context.Background(), "", "我想了解一下購屋時需要準備哪些文件以及貸款流程大概要多久時間")

	assert.True(t, res.Success)
	assert.Contains(t, res.Text, "基本統計信息")
}

func TestProcess_HistoryReachesModel(t *testing.T) {
	t.Parallel()
	llm := &fakeLLM{reply: "根據資料，台北市近年房價整體呈現上升走勢，建議多比較。"}
	o := newOrchestrator(fixture{llm: llm})
	ctx := context.Background()
	question := "我想了解一下購屋時需要準備哪些文件以及貸款流程大概要多久時間"

	first := o.Process(ctx, "u1", question)
	require.Equal(t, llm.reply, first.Text)
	o.Process(ctx, "u1", question)

	msgs, err := o.Memory().Messages(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, memory.RoleUser, msgs[0].Role)
	assert.Equal(t, memory.RoleAssistant, msgs[1].Role)

	// The last model call carries the first turn before the new question.
	last := llm.messages[len(llm.messages)-1]
	var contents []string
	for _, m := range last {
		contents = append(contents, m.Content)
	}
	assert.Contains(t, contents, question)
	assert.Contains(t, contents, first.Text)
}

func TestProcess_SessionsAreIsolated(t *testing.T) {
	t.Parallel()
	o := newOrchestrator(fixture{})
	ctx := context.Background()

	o.Process(ctx, "a", "台北市大安區的平均房價")
	o.Process(ctx, "b", "台北市信義區的平均房價")
	o.Process(ctx, "", "台北市信義區的平均房價")

	a, err := o.Memory().Messages(ctx, "a")
	require.NoError(t, err)
	b, err := o.Memory().Messages(ctx, "b")
	require.NoError(t, err)
	assert.Len(t, a, 2)
	assert.Len(t, b, 2)
	assert.Equal(t, "台北市大安區的平均房價", a[0].Content)
}

func TestProcess_EmptyQuery(t *testing.T) {
	t.Parallel()
	o := newOrchestrator(fixture{})

	res := o.Process(context.Background(), "u1", "   ")

	assert.False(t, res.Success)
	assert.Equal(t, RouteRejected, res.Route)
	assert.Equal(t, emptyQueryText, res.Text)
	msgs, _ := o.Memory().Messages(context.Background(), "u1")
	assert.Empty(t, msgs)
}

func TestProcess_PanicBecomesApology(t *testing.T) {
	t.Parallel()
	o := newOrchestrator(fixture{loader: &fakeLoader{panics: true}})

	res := o.Process(context.Background(), "u1", "台北市大安區的平均房價")

	assert.False(t, res.Success)
	assert.Equal(t, apperrors.GenericApology, res.Text)
	msgs, _ := o.Memory().Messages(context.Background(), "u1")
	assert.Len(t, msgs, 2)
}

func TestSearchListings(t *testing.T) {
	t.Parallel()

	t.Run("Found", func(t *testing.T) {
		t.Parallel()
		s := &fakeSearcher{listings: listings(5)}
		o := newOrchestrator(fixture{searcher: s})

		res := o.searchListings(context.Background(), "台北市大安區的公寓")

		assert.True(t, res.Success)
		assert.Len(t, res.Listings, 5)
		assert.Contains(t, res.Text, "找到 5 筆符合條件的物件")
		assert.Contains(t, res.Text, "1. 物件1")
		assert.Contains(t, res.Text, "3. 物件3")
		assert.NotContains(t, res.Text, "4. 物件4")
		assert.Contains(t, res.Text, "... 還有 2 筆")
		require.Len(t, s.urls, 1)
		assert.Equal(t, s.urls[0], res.SearchURL)
		assert.True(t, strings.HasPrefix(res.SearchURL, urlbuilder.BaseURL))
	})

	t.Run("Search error uses default page", func(t *testing.T) {
		t.Parallel()
		s := &fakeSearcher{err: apperrors.NewScraperError("x", 503, apperrors.ErrScrapeFailed)}
		o := newOrchestrator(fixture{searcher: s})

		res := o.searchListings(context.Background(), "台北市大安區的公寓")

		assert.False(t, res.Success)
		assert.Equal(t, urlbuilder.DefaultURL, res.SearchURL)
		assert.Contains(t, res.Text, urlbuilder.DefaultURL)
	})

	t.Run("No searcher", func(t *testing.T) {
		t.Parallel()
		res := newOrchestrator(fixture{}).searchListings(context.Background(), "找公寓")
		assert.False(t, res.Success)
		assert.Equal(t, "找不到符合條件的物件", res.Message)
	})
}

func TestProcessMulti_BothTools(t *testing.T) {
	t.Parallel()
	s := &fakeSearcher{listings: listings(2)}
	o := newOrchestrator(fixture{searcher: s})

	res := o.ProcessMulti(context.Background(), "u1", "台北市大安區的房價，順便找公寓")

	assert.True(t, res.Success, res.Text)
	assert.Equal(t, RouteMulti, res.Route)
	require.NotNil(t, res.Plan)
	assert.True(t, res.Plan.Uses(router.ToolDataAnalysis))
	assert.True(t, res.Plan.Uses(router.ToolWebSearch))
	assert.Contains(t, res.Text, "📊 數據分析結果：")
	assert.Contains(t, res.Text, "🏠 物件搜尋結果：")
	assert.Len(t, res.Listings, 2)
}

func TestProcessMulti_ModelCombines(t *testing.T) {
	t.Parallel()
	llm := &fakeLLM{reply: "大安區每坪約九十萬元，另外找到兩筆公寓物件可以參考。"}
	o := newOrchestrator(fixture{searcher: &fakeSearcher{listings: listings(2)}})
	o.llm = llm

	res := o.ProcessMulti(context.Background(), "", "台北市大安區的房價，順便找公寓")

	assert.True(t, res.Success)
	assert.Equal(t, llm.reply, res.Text)
}

func TestProcessMulti_WebOnly(t *testing.T) {
	t.Parallel()
	o := newOrchestrator(fixture{searcher: &fakeSearcher{listings: listings(1)}})

	res := o.ProcessMulti(context.Background(), "", "幫我搜尋有車位的套房")

	assert.True(t, res.Success)
	assert.True(t, strings.HasPrefix(res.Text, "找到 1 筆符合條件的物件"), res.Text)
	assert.Nil(t, res.Table)
}

func TestProcessMulti_NothingFound(t *testing.T) {
	t.Parallel()
	o := newOrchestrator(fixture{
		loader:   &fakeLoader{err: errors.New("disk")},
		searcher: &fakeSearcher{err: apperrors.ErrScrapeFailed},
	})

	res := o.ProcessMulti(context.Background(), "", "台北市大安區的房價，順便找公寓")

	assert.False(t, res.Success)
	assert.Contains(t, res.Text, "抱歉，我無法找到相關的資訊")
	assert.Equal(t, urlbuilder.DefaultURL, res.SearchURL)
	assert.ErrorIs(t, res.Err, apperrors.ErrScrapeFailed)
	assert.ErrorContains(t, res.Err, "disk")
}

func TestProcessMulti_PanicBecomesApology(t *testing.T) {
	t.Parallel()
	o := newOrchestrator(fixture{loader: &fakeLoader{panics: true}})
	ctx := context.Background()

	var res Result
	require.NotPanics(t, func() {
		res = o.ProcessMulti(ctx, "u1", "台北市大安區的平均房價是多少")
	})

	assert.False(t, res.Success)
	assert.Equal(t, RouteMulti, res.Route)
	assert.NotEmpty(t, res.Text)
	assert.Error(t, res.Err)

	msgs, err := o.Memory().Messages(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestIsComplex(t *testing.T) {
	t.Parallel()
	assert.False(t, isComplex("大安區房價"))
	assert.True(t, isComplex("大安區房價，還有公寓"))
	assert.True(t, isComplex(strings.Repeat("房", complexQueryRunes+1)))
}
