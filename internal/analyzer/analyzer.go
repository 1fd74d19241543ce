// Package analyzer 串接完整流程：抓表、清洗合併、篩選、逐檔指標分析與通知。
package analyzer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"twstockai/internal/fetch"
	"twstockai/internal/indicator"
	"twstockai/internal/model"
	"twstockai/internal/screen"
	"twstockai/internal/table"
)

// 個股日 K 回看天數與敘事分析取用的近期列數。
const (
	dailyLookbackDays = 365
	recentBarCount    = 60
)

// Fetcher 表格來源。
type Fetcher interface {
	FetchCategory(ctx context.Context, cat fetch.Category) (table.RawTable, error)
	FetchDailyK(ctx context.Context, stockID string, days int) (table.RawTable, string, error)
	FetchMonthlyRevenue(ctx context.Context, stockID string) (table.RawTable, error)
}

// Narrator 個股敘事解讀。
type Narrator interface {
	Analyze(ctx context.Context, technical, revenue string) (string, error)
}

// Notifier 通知出口；--no-notification 時為 nil。
type Notifier interface {
	SendStockSummary(ctx context.Context, stocks []model.MergedStock) error
	SendStockAnalysis(ctx context.Context, code, name, analysis string) error
}

type Analyzer struct {
	Fetcher    Fetcher
	Narrator   Narrator
	Notifier   Notifier
	Conditions screen.Conditions

	// RevenueColumns 期望的近 12 個月營收欄名，僅取合併表實際存在者。
	RevenueColumns []string
}

// StockResult 單檔分析結果。
type StockResult struct {
	Code     string
	Name     string
	Bullish  bool
	Analysis string
	Err      error
}

// Results 整批結果。
type Results struct {
	Screened []model.MergedStock
	Stocks   []StockResult
	Started  time.Time
	Finished time.Time
}

// ScreenStocks 抓五張類股表，清洗、合併後套用市場面條件。
// 任一張表抓取或清洗失敗即中止，不以殘缺表合併。
func (a *Analyzer) ScreenStocks(ctx context.Context) ([]model.MergedStock, []string, error) {
	cats := []fetch.Category{
		fetch.CategoryCorporateFlow,
		fetch.CategoryMovingAverage,
		fetch.CategoryStreak,
		fetch.CategoryRevenue,
		fetch.CategoryMACD,
	}
	cleaned := make([]table.Table, len(cats))
	for i, cat := range cats {
		raw, err := a.Fetcher.FetchCategory(ctx, cat)
		if err != nil {
			return nil, nil, fmt.Errorf("抓取 %s 失敗: %w", cat, err)
		}
		t, err := table.Normalize(raw, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("清洗 %s 失敗: %w", cat, err)
		}
		cleaned[i] = t
	}

	merged, revenueCols, err := table.MergeStockTables(table.MergeInput{
		CorporateFlow: cleaned[0],
		MovingAverage: cleaned[1],
		Streak:        cleaned[2],
		Revenue:       cleaned[3],
		MACD:          cleaned[4],
	}, a.RevenueColumns)
	if err != nil {
		return nil, nil, fmt.Errorf("合併類股表失敗: %w", err)
	}

	stocks := model.MergedFromTable(merged, revenueCols)
	selected, codes := screen.Screen(stocks, a.Conditions)
	return selected, codes, nil
}

// AnalyzeStock 抓個股日 K、計算均線與 MACD 族指標，最新交易日偏多時再取月營收並請模型解讀。
func (a *Analyzer) AnalyzeStock(ctx context.Context, stockID string) StockResult {
	res := StockResult{Code: stockID}

	raw, name, err := a.Fetcher.FetchDailyK(ctx, stockID, dailyLookbackDays)
	if err != nil {
		res.Err = err
		return res
	}
	res.Name = name

	numeric := make(map[string]bool, len(raw.Columns))
	for _, col := range raw.Columns {
		cleaned := table.CleanColumnName(col)
		if cleaned != "交易日期" {
			numeric[cleaned] = true
		}
	}
	t, err := table.Normalize(raw, numeric)
	if err != nil {
		res.Err = fmt.Errorf("清洗日 K 失敗: %w", err)
		return res
	}

	series := model.DailySeriesFromTable(t, stockID, name)
	if len(series.Bars) == 0 {
		res.Err = fmt.Errorf("個股 %s 無有效日 K 資料", stockID)
		return res
	}
	indicator.Compute(&series)

	res.Bullish = screen.IsBullish(series.Latest())
	log.Info().Str("stock", stockID).Str("name", name).Bool("bullish", res.Bullish).Msg("個股指標判讀完成")
	if !res.Bullish {
		return res
	}

	revenueText := a.monthlyRevenueText(ctx, stockID)
	recent := series
	if len(recent.Bars) > recentBarCount {
		recent.Bars = recent.Bars[:recentBarCount]
	}
	analysis, err := a.Narrator.Analyze(ctx, recent.RenderText(), revenueText)
	if err != nil {
		log.Warn().Err(err).Str("stock", stockID).Msg("敘事分析失敗，沿用替代文字")
	}
	res.Analysis = analysis
	return res
}

// monthlyRevenueText 月營收抓不到時回空字串，敘事分析僅以技術面進行。
func (a *Analyzer) monthlyRevenueText(ctx context.Context, stockID string) string {
	raw, err := a.Fetcher.FetchMonthlyRevenue(ctx, stockID)
	if err != nil {
		return ""
	}
	t, err := table.Normalize(raw, nil)
	if err != nil {
		return ""
	}
	return t.RenderText()
}

// RunDailyAnalysis 每日主流程：篩選、摘要通知、逐檔循序分析與個股通知。
// 指定 onlyStockID 時跳過類股表篩選，直接分析該檔。
// 單檔失敗只記錄不中斷，通知失敗同樣不影響後續股票。
func (a *Analyzer) RunDailyAnalysis(ctx context.Context, onlyStockID string) (*Results, error) {
	res := &Results{Started: time.Now()}
	defer func() { res.Finished = time.Now() }()

	var codes []string
	if onlyStockID != "" {
		codes = []string{onlyStockID}
	} else {
		selected, screened, err := a.ScreenStocks(ctx)
		if err != nil {
			return res, err
		}
		res.Screened = selected
		codes = screened

		if a.Notifier != nil && len(selected) > 0 {
			if err := a.Notifier.SendStockSummary(ctx, selected); err != nil {
				log.Warn().Err(err).Msg("選股摘要通知失敗")
			}
		}
	}

	for _, code := range codes {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		sr := a.AnalyzeStock(ctx, code)
		res.Stocks = append(res.Stocks, sr)
		if sr.Err != nil {
			log.Error().Err(sr.Err).Str("stock", code).Msg("個股分析失敗")
			continue
		}
		if sr.Bullish && a.Notifier != nil {
			if err := a.Notifier.SendStockAnalysis(ctx, sr.Code, sr.Name, sr.Analysis); err != nil {
				log.Warn().Err(err).Str("stock", sr.Code).Msg("個股分析通知失敗")
			}
		}
	}
	return res, nil
}

// Summary 輸出整批報告文字。
func (r *Results) Summary() string {
	var sb strings.Builder
	sb.WriteString("=== 每日股票分析報告 ===\n")
	sb.WriteString(fmt.Sprintf("篩選結果: %d 檔符合市場面條件\n", len(r.Screened)))
	bullish := 0
	failed := 0
	for _, s := range r.Stocks {
		switch {
		case s.Err != nil:
			failed++
		case s.Bullish:
			bullish++
		}
	}
	sb.WriteString(fmt.Sprintf("個股分析: %d 檔完成，%d 檔偏多，%d 檔失敗\n", len(r.Stocks), bullish, failed))
	for _, s := range r.Stocks {
		switch {
		case s.Err != nil:
			sb.WriteString(fmt.Sprintf("  %s %s: 分析失敗 (%v)\n", s.Code, s.Name, s.Err))
		case s.Bullish:
			sb.WriteString(fmt.Sprintf("  %s %s: 偏多\n", s.Code, s.Name))
		default:
			sb.WriteString(fmt.Sprintf("  %s %s: 中性/偏空\n", s.Code, s.Name))
		}
	}
	sb.WriteString(fmt.Sprintf("耗時: %s\n", r.Finished.Sub(r.Started).Round(time.Second)))
	for _, s := range r.Stocks {
		if s.Bullish && s.Analysis != "" {
			sb.WriteString(fmt.Sprintf("\n--- %s %s ---\n%s\n", s.Code, s.Name, s.Analysis))
		}
	}
	return sb.String()
}
