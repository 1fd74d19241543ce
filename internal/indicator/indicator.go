// Package indicator 以日線收盤價計算均線與 MACD 三值。
package indicator

import (
	talib "github.com/markcheno/go-talib"

	"twstockai/internal/model"
)

// MACD 參數沿用 12/26/9。
const (
	maShort    = 5
	maLong     = 20
	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9
)

// Compute 就地為序列補上 MA5/MA20 與 DIF、Signal、MACD、OSC 欄。
// 先依日期升冪計算，完成後轉為降冪（第 0 列為最新交易日）再交還，
// 下游（多空判斷、敘事輸出）依賴此排序。
// 資料量不足只會留下 nil 欄位，不視為錯誤；每次呼叫重新計算，不保留增量狀態。
func Compute(s *model.DailySeries) {
	s.SortAscending()
	applyIndicators(s.Bars)
	s.SortDescending()
}

func applyIndicators(bars []model.DailyBar) {
	// 只對收盤價存在的列計算，缺收盤的列保持 nil 指標。
	var idx []int
	var closes []float64
	for i := range bars {
		if bars[i].Close != nil {
			idx = append(idx, i)
			closes = append(closes, *bars[i].Close)
		}
	}
	n := len(closes)

	if n >= maShort {
		sma := talib.Sma(closes, maShort)
		for k := maShort - 1; k < n; k++ {
			v := sma[k]
			bars[idx[k]].MA5 = &v
		}
	}
	if n >= maLong {
		sma := talib.Sma(closes, maLong)
		for k := maLong - 1; k < n; k++ {
			v := sma[k]
			bars[idx[k]].MA20 = &v
		}
	}

	// MACD 欄即 DIF−Signal（差離值減訊號線），OSC 再取 DIF−MACD。
	// 來源資料將二者視為獨立欄位，此處照實各自保留。
	if n >= macdSlow+macdSignal {
		dif, sig, _ := talib.Macd(closes, macdFast, macdSlow, macdSignal)
		warmup := macdSlow + macdSignal - 2
		for k := warmup; k < n; k++ {
			d, g := dif[k], sig[k]
			macd := d - g
			osc := d - macd
			b := &bars[idx[k]]
			b.DIF, b.Signal = &d, &g
			b.MACD, b.OSC = &macd, &osc
		}
	}
}
