// Package model 定義各階段的強型別資料：合併後個股寬紀錄、日線序列與指標欄。
package model

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"twstockai/internal/table"
)

// 合併寬表中對應欄名。
const (
	ColCode          = "代號"
	ColName          = "名稱"
	ColFlowDate      = "法人買賣日期"
	ColPrice         = "成交"
	ColChange        = "漲跌價"
	ColChangePct     = "漲跌幅"
	ColVolume        = "成交張數"
	ColNetBuyTotal   = "合計買賣超張數"
	ColStreakTotal   = "三大法人連續買賣日數"
	ColStreakForeign = "外資連續買賣日數"
	ColStreakDealer  = "自營商連續買賣日數"
	ColStreakTrust   = "投信連續買賣日數"
)

// MergedStock 一檔股票的合併紀錄：行情、法人動向、均線、MACD 三值與逐月營收。
// 缺漏的連接以 nil 表示，整列不會因缺漏被丟棄。
type MergedStock struct {
	Code     string
	Name     string
	FlowDate string

	Price     *float64
	Change    *float64
	ChangePct *float64
	Volume    *float64

	NetBuyTotal       *float64
	TotalStreakDays   *float64
	ForeignStreakDays *float64
	DealerStreakDays  *float64
	TrustStreakDays   *float64

	MA5   *float64
	MA10  *float64
	MA20  *float64
	MA60  *float64
	MA120 *float64
	MA240 *float64

	DIFDaily    *float64
	MACDDaily   *float64
	OSCDaily    *float64
	DIFWeekly   *float64
	MACDWeekly  *float64
	OSCWeekly   *float64
	DIFMonthly  *float64
	MACDMonthly *float64
	OSCMonthly  *float64

	RevenueColumns []string
	Revenues       map[string]*float64
}

// MergedFromTable 將合併寬表投影為型別化紀錄，每檔代號一列。
func MergedFromTable(t table.Table, revenueCols []string) []MergedStock {
	out := make([]MergedStock, 0, len(t.Rows))
	seen := make(map[string]bool, len(t.Rows))
	for i := range t.Rows {
		code := t.Text(i, ColCode)
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		s := MergedStock{
			Code:              code,
			Name:              t.Text(i, ColName),
			FlowDate:          t.Text(i, ColFlowDate),
			Price:             t.Num(i, ColPrice),
			Change:            t.Num(i, ColChange),
			ChangePct:         t.Num(i, ColChangePct),
			Volume:            t.Num(i, ColVolume),
			NetBuyTotal:       t.Num(i, ColNetBuyTotal),
			TotalStreakDays:   t.Num(i, ColStreakTotal),
			ForeignStreakDays: t.Num(i, ColStreakForeign),
			DealerStreakDays:  t.Num(i, ColStreakDealer),
			TrustStreakDays:   t.Num(i, ColStreakTrust),
			MA5:               t.Num(i, "5日均線"),
			MA10:              t.Num(i, "10日均線"),
			MA20:              t.Num(i, "20日均線"),
			MA60:              t.Num(i, "60日均線"),
			MA120:             t.Num(i, "120日均線"),
			MA240:             t.Num(i, "240日均線"),
			DIFDaily:          t.Num(i, "DIF(日)"),
			MACDDaily:         t.Num(i, "MACD(日)"),
			OSCDaily:          t.Num(i, "OSC(日)"),
			DIFWeekly:         t.Num(i, "DIF(週)"),
			MACDWeekly:        t.Num(i, "MACD(週)"),
			OSCWeekly:         t.Num(i, "OSC(週)"),
			DIFMonthly:        t.Num(i, "DIF(月)"),
			MACDMonthly:       t.Num(i, "MACD(月)"),
			OSCMonthly:        t.Num(i, "OSC(月)"),
			RevenueColumns:    revenueCols,
			Revenues:          make(map[string]*float64, len(revenueCols)),
		}
		for _, col := range revenueCols {
			s.Revenues[col] = t.Num(i, col)
		}
		out = append(out, s)
	}
	return out
}

// DailyBar 單一交易日的 K 線與衍生指標，未計出的指標為 nil。
type DailyBar struct {
	Date   time.Time
	Open   *float64
	High   *float64
	Low    *float64
	Close  *float64
	Volume *float64

	MA5    *float64
	MA20   *float64
	DIF    *float64
	Signal *float64
	MACD   *float64
	OSC    *float64
}

// DailySeries 一檔股票依日期排序的日線序列。
// 指標計算以升冪進行，計算完成後序列轉為降冪（第 0 列為最新交易日），下游依賴此排序。
type DailySeries struct {
	StockID   string
	StockName string
	Bars      []DailyBar
}

// 日線表欄名。
const (
	colTradeDate = "交易日期"
	colOpen      = "開盤"
	colHigh      = "最高"
	colLow       = "最低"
	colClose     = "收盤"
)

const tradeDateLayout = "06/01/02"

// DailySeriesFromTable 從清洗後的日線表建構序列；日期帶「'」前綴者先剝除，
// 無法解析日期的列直接略過。
func DailySeriesFromTable(t table.Table, stockID, stockName string) DailySeries {
	s := DailySeries{StockID: stockID, StockName: stockName}
	dateIdx := t.ColumnIndex(colTradeDate)
	if dateIdx < 0 {
		return s
	}
	for i := range t.Rows {
		raw := strings.ReplaceAll(t.Rows[i][dateIdx].Text, "'", "")
		d, err := time.Parse(tradeDateLayout, raw)
		if err != nil {
			continue
		}
		s.Bars = append(s.Bars, DailyBar{
			Date:   d,
			Open:   t.Num(i, colOpen),
			High:   t.Num(i, colHigh),
			Low:    t.Num(i, colLow),
			Close:  t.Num(i, colClose),
			Volume: t.Num(i, ColVolume),
		})
	}
	return s
}

// SortAscending 依日期升冪排序（指標計算前置條件）。
func (s *DailySeries) SortAscending() {
	sort.SliceStable(s.Bars, func(i, j int) bool { return s.Bars[i].Date.Before(s.Bars[j].Date) })
}

// SortDescending 依日期降冪排序（交付下游前置條件，第 0 列為最新）。
func (s *DailySeries) SortDescending() {
	sort.SliceStable(s.Bars, func(i, j int) bool { return s.Bars[i].Date.After(s.Bars[j].Date) })
}

// Latest 回傳最新一列（假設已降冪）；序列為空時回 nil。
func (s *DailySeries) Latest() *DailyBar {
	if len(s.Bars) == 0 {
		return nil
	}
	return &s.Bars[0]
}

// RenderText 將序列輸出為等寬文字表，供敘事分析使用。
func (s *DailySeries) RenderText() string {
	t := table.Table{Columns: []string{
		colTradeDate, colOpen, colHigh, colLow, colClose, ColVolume,
		"MA5", "MA20", "dif", "signal", "macd", "osc",
	}}
	for i := range s.Bars {
		b := &s.Bars[i]
		t.Rows = append(t.Rows, []table.Cell{
			{Text: b.Date.Format("2006-01-02")},
			numCell(b.Open), numCell(b.High), numCell(b.Low), numCell(b.Close), numCell(b.Volume),
			numCell(b.MA5), numCell(b.MA20), numCell(b.DIF), numCell(b.Signal), numCell(b.MACD), numCell(b.OSC),
		})
	}
	return t.RenderText()
}

func numCell(v *float64) table.Cell {
	if v == nil {
		return table.Cell{}
	}
	return table.Cell{Text: strconv.FormatFloat(*v, 'f', -1, 64), Num: v}
}
