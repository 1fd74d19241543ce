// Package fetch 封裝 Goodinfo 表格抓取：類股清單、個股日 K 與月營收，含請求節流。
package fetch

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"twstockai/internal/table"
)

// ErrFetch 來源不可用或頁面形狀不符；呼叫端取得空表後自行降級。
var ErrFetch = errors.New("fetch: source unavailable or unexpected page")

// Goodinfo 端點。
const (
	stockListURL = "https://goodinfo.tw/tw2/StockList.asp"
	kChartURL    = "https://goodinfo.tw/tw/ShowK_Chart.asp"
	saleMonURL   = "https://goodinfo.tw/tw/ShowSaleMonChart.asp"
)

// StockList 共同查詢參數。
const (
	marketCat   = "智慧選股"
	industryCat = "三大法人連買 – 日@@三大法人連續買超@@三大法人連續買超 – 日"
)

// Category 類股表類別（StockList 的 SHEET 變體）。
type Category int

const (
	CategoryCorporateFlow Category = iota // 法人買賣（三大法人）
	CategoryMovingAverage                 // 移動均線
	CategoryStreak                        // 法人連續買賣統計
	CategoryRevenue                       // 近 N 個月營收一覽
	CategoryMACD                          // MACD
)

func (c Category) String() string {
	switch c {
	case CategoryCorporateFlow:
		return "法人買賣_三大"
	case CategoryMovingAverage:
		return "移動均線"
	case CategoryStreak:
		return "法人連買連賣統計(日)"
	case CategoryRevenue:
		return "營收狀況_近N個月一覽"
	case CategoryMACD:
		return "MACD"
	default:
		return "未知類別"
	}
}

// 請求節流：固定間隔加抖動，降低被來源封鎖的機率。
const (
	defaultHTTPTimeout = 30 * time.Second
	requestGap         = 500 * time.Millisecond
	requestJitterMS    = 300
)

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36"

// Client 對 Goodinfo 的抓取客戶端。瀏覽器式請求頭（UA 與 Cookie）由設定注入。
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	Cookie     string

	lastReqMu   sync.Mutex
	lastReqTime time.Time
}

func NewClient(userAgent, cookie string) *Client {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		HTTPClient: &http.Client{Timeout: defaultHTTPTimeout},
		UserAgent:  userAgent,
		Cookie:     cookie,
	}
}

func (c *Client) paceRequest(ctx context.Context) {
	c.lastReqMu.Lock()
	elapsed := time.Since(c.lastReqTime)
	c.lastReqMu.Unlock()
	d := requestGap - elapsed + time.Duration(rand.Intn(requestJitterMS+1))*time.Millisecond
	if d > 0 {
		select {
		case <-ctx.Done():
			return
		case <-time.After(d):
		}
	}
	c.lastReqMu.Lock()
	c.lastReqTime = time.Now()
	c.lastReqMu.Unlock()
}

func (c *Client) get(ctx context.Context, rawURL string) (*goquery.Document, error) {
	c.paceRequest(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept-Language", "zh-TW,zh;q=0.9,en;q=0.8")
	if c.Cookie != "" {
		req.Header.Set("Cookie", c.Cookie)
	}
	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	resp, err := client.Do(req)
	if err != nil {
		// 二次 %w 讓 context.Canceled 留在錯誤鏈上，中斷時上層才能以退出碼 0 收尾
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: http %d", ErrFetch, resp.StatusCode)
	}
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	return doc, nil
}

// FetchCategory 抓取一張類股表（#tblStockList）。頁面缺表回空表與 ErrFetch。
func (c *Client) FetchCategory(ctx context.Context, cat Category) (table.RawTable, error) {
	q := url.Values{}
	q.Set("SEARCH_WORD", "")
	q.Set("MARKET_CAT", marketCat)
	q.Set("INDUSTRY_CAT", industryCat)
	q.Set("STOCK_CODE", "")
	q.Set("RANK", "0")
	q.Set("STEP", "DATA")
	if cat == CategoryStreak {
		q.Set("SHEET", CategoryCorporateFlow.String())
		q.Set("SHEET2", CategoryStreak.String())
	} else {
		q.Set("SHEET", cat.String())
	}
	doc, err := c.get(ctx, stockListURL+"?"+q.Encode())
	if err != nil {
		log.Warn().Err(err).Stringer("category", cat).Msg("類股表抓取失敗")
		return table.RawTable{}, err
	}
	sel := doc.Find("#tblStockList").First()
	if sel.Length() == 0 {
		log.Warn().Stringer("category", cat).Msg("頁面找不到 #tblStockList")
		return table.RawTable{}, fmt.Errorf("%w: 缺 #tblStockList (%s)", ErrFetch, cat)
	}
	raw := ParseTable(sel)
	log.Info().Stringer("category", cat).Int("rows", len(raw.Rows)).Msg("類股表抓取完成")
	return raw, nil
}

// FetchDailyK 抓取個股日 K（#tblDetail），lookback 以天數回推起日；一併回傳頁面標題中的股名。
func (c *Client) FetchDailyK(ctx context.Context, stockID string, days int) (table.RawTable, string, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -days)
	q := url.Values{}
	q.Set("STOCK_ID", stockID)
	q.Set("CHT_CAT", "DATE")
	q.Set("PRICE_ADJ", "F")
	q.Set("START_DT", start.Format("2006-01-02"))
	q.Set("END_DT", end.Format("2006-01-02"))
	doc, err := c.get(ctx, kChartURL+"?"+q.Encode())
	if err != nil {
		log.Warn().Err(err).Str("stock", stockID).Msg("日 K 抓取失敗")
		return table.RawTable{}, "", err
	}
	sel := doc.Find("#tblDetail").First()
	if sel.Length() == 0 {
		log.Warn().Str("stock", stockID).Msg("頁面找不到 #tblDetail")
		return table.RawTable{}, "", fmt.Errorf("%w: 缺 #tblDetail (%s)", ErrFetch, stockID)
	}
	name := stockNameFromTitle(doc, stockID)
	raw := ParseTable(sel)
	log.Info().Str("stock", stockID).Int("rows", len(raw.Rows)).Msg("日 K 抓取完成")
	return raw, name, nil
}

// FetchMonthlyRevenue 抓取個股月營收表（#tblDetail）。
func (c *Client) FetchMonthlyRevenue(ctx context.Context, stockID string) (table.RawTable, error) {
	q := url.Values{}
	q.Set("STOCK_ID", stockID)
	doc, err := c.get(ctx, saleMonURL+"?"+q.Encode())
	if err != nil {
		log.Warn().Err(err).Str("stock", stockID).Msg("月營收抓取失敗")
		return table.RawTable{}, err
	}
	sel := doc.Find("#tblDetail").First()
	if sel.Length() == 0 {
		log.Warn().Str("stock", stockID).Msg("個股無月營收資料")
		return table.RawTable{}, fmt.Errorf("%w: 缺月營收表 (%s)", ErrFetch, stockID)
	}
	raw := ParseTable(sel)
	log.Info().Str("stock", stockID).Int("rows", len(raw.Rows)).Msg("月營收抓取完成")
	return raw, nil
}

func stockNameFromTitle(doc *goquery.Document, fallback string) string {
	title := strings.TrimSpace(doc.Find("title").First().Text())
	parts := strings.Fields(title)
	if len(parts) > 1 {
		return parts[1]
	}
	return fallback
}

// ParseTable 將 HTML 表格展平為 RawTable。
// 表頭可能跨多列（th 搭配 rowspan/colspan），每欄取各表頭列去重後的片段串接為欄名。
// 表身每隔數十列重複的表頭列照樣輸出成資料列，交由清洗階段的完全重複刪除規則移除。
func ParseTable(sel *goquery.Selection) table.RawTable {
	var headerRows, bodyRows []*goquery.Selection
	sel.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		isHeader := tr.Find("th").Length() > 0 && tr.Find("td").Length() == 0
		if isHeader && len(bodyRows) == 0 {
			headerRows = append(headerRows, tr)
		} else {
			bodyRows = append(bodyRows, tr)
		}
	})

	grid := buildHeaderGrid(headerRows)
	columns := flattenHeader(grid)
	raw := table.RawTable{Columns: columns}
	for _, tr := range bodyRows {
		var cells []string
		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			text := strings.Join(strings.Fields(cell.Text()), " ")
			span := spanOf(cell, "colspan")
			for i := 0; i < span; i++ {
				cells = append(cells, text)
			}
		})
		if len(cells) == 0 {
			continue
		}
		// 與欄數對齊：多截少補，欄數不明時整列保留交由清洗階段判定。
		if len(columns) > 0 {
			for len(cells) < len(columns) {
				cells = append(cells, "")
			}
			cells = cells[:len(columns)]
		}
		raw.Rows = append(raw.Rows, cells)
	}
	return raw
}

// buildHeaderGrid 依 rowspan/colspan 將表頭鋪成矩陣。
func buildHeaderGrid(headerRows []*goquery.Selection) [][]string {
	grid := make([][]string, len(headerRows))
	occupied := make(map[[2]int]string)
	width := 0
	for r, tr := range headerRows {
		col := 0
		tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			for occupied[[2]int{r, col}] != "" {
				col++
			}
			text := strings.Join(strings.Fields(cell.Text()), " ")
			cs := spanOf(cell, "colspan")
			rs := spanOf(cell, "rowspan")
			for dr := 0; dr < rs && r+dr < len(headerRows); dr++ {
				for dc := 0; dc < cs; dc++ {
					occupied[[2]int{r + dr, col + dc}] = text
				}
			}
			col += cs
		})
		if col > width {
			width = col
		}
	}
	for r := range grid {
		grid[r] = make([]string, width)
		for c := 0; c < width; c++ {
			grid[r][c] = occupied[[2]int{r, c}]
		}
	}
	return grid
}

// flattenHeader 每欄收集各層文字，去重後串接成單一欄名。
func flattenHeader(grid [][]string) []string {
	if len(grid) == 0 {
		return nil
	}
	width := len(grid[0])
	cols := make([]string, width)
	for c := 0; c < width; c++ {
		var parts []string
		seen := make(map[string]bool)
		for r := range grid {
			p := strings.TrimSpace(grid[r][c])
			if p == "" || seen[p] {
				continue
			}
			seen[p] = true
			parts = append(parts, p)
		}
		cols[c] = strings.Join(parts, "")
	}
	return cols
}

func spanOf(cell *goquery.Selection, attr string) int {
	if v, ok := cell.Attr(attr); ok {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n > 1 {
			return n
		}
	}
	return 1
}
