// Package screen 定義市場面篩選條件（Criterion 與 And/Or 組合）及個股多空判斷。
package screen

import (
	"regexp"

	"github.com/rs/zerolog/log"

	"twstockai/internal/model"
)

// 預設篩選門檻。
const (
	defaultNetBuyMin        = 0    // 法人合計買超（嚴格大於）
	defaultForeignStreakMin = 5    // 外資連續買賣日數（≥）
	defaultDealerStreakMin  = 3    // 自營商連續買賣日數（≥）
	defaultTrustStreakMin   = 3    // 投信連續買賣日數（≥）
	defaultChangePctMin     = 0    // 當日漲跌幅（嚴格大於）
	defaultVolumeMin        = 5000 // 最小成交張數（≥）
)

var stockCodePattern = regexp.MustCompile(`^\d{4}$`)

// Conditions 市場面篩選門檻，呼叫端可覆寫任一欄。
// 均線排列（5日>20日、20日>60日）為固定條件，不在此結構內。
type Conditions struct {
	NetBuyMin        float64
	ForeignStreakMin float64
	DealerStreakMin  float64
	TrustStreakMin   float64
	ChangePctMin     float64
	VolumeMin        float64
}

// DefaultConditions 回傳預設門檻。
func DefaultConditions() Conditions {
	return Conditions{
		NetBuyMin:        defaultNetBuyMin,
		ForeignStreakMin: defaultForeignStreakMin,
		DealerStreakMin:  defaultDealerStreakMin,
		TrustStreakMin:   defaultTrustStreakMin,
		ChangePctMin:     defaultChangePctMin,
		VolumeMin:        defaultVolumeMin,
	}
}

// Criterion 單條條件：入參為合併紀錄，欄位缺漏（nil）一律視為不通過。
type Criterion func(*model.MergedStock) bool

func And(cs ...Criterion) Criterion {
	return func(s *model.MergedStock) bool {
		if s == nil {
			return false
		}
		for _, c := range cs {
			if c == nil {
				continue
			}
			if !c(s) {
				return false
			}
		}
		return true
	}
}

func Or(cs ...Criterion) Criterion {
	return func(s *model.MergedStock) bool {
		if s == nil {
			return false
		}
		for _, c := range cs {
			if c == nil {
				continue
			}
			if c(s) {
				return true
			}
		}
		return false
	}
}

func above(v *float64, min float64) bool   { return v != nil && *v > min }
func atLeast(v *float64, min float64) bool { return v != nil && *v >= min }
func greater(a, b *float64) bool           { return a != nil && b != nil && *a > *b }

func NetBuyAbove(min float64) Criterion {
	return func(s *model.MergedStock) bool { return above(s.NetBuyTotal, min) }
}

func ForeignStreakAtLeast(min float64) Criterion {
	return func(s *model.MergedStock) bool { return atLeast(s.ForeignStreakDays, min) }
}

func DealerStreakAtLeast(min float64) Criterion {
	return func(s *model.MergedStock) bool { return atLeast(s.DealerStreakDays, min) }
}

func TrustStreakAtLeast(min float64) Criterion {
	return func(s *model.MergedStock) bool { return atLeast(s.TrustStreakDays, min) }
}

func ChangePctAbove(min float64) Criterion {
	return func(s *model.MergedStock) bool { return above(s.ChangePct, min) }
}

func VolumeAtLeast(min float64) Criterion {
	return func(s *model.MergedStock) bool { return atLeast(s.Volume, min) }
}

func MA5AboveMA20(s *model.MergedStock) bool  { return greater(s.MA5, s.MA20) }
func MA20AboveMA60(s *model.MergedStock) bool { return greater(s.MA20, s.MA60) }

// MarketScreen 市場面複合條件：法人買超、三法人任一連買達標、當日上漲、
// 短均在上、量能達標、長期趨勢向上。
func MarketScreen(c Conditions) Criterion {
	return And(
		NetBuyAbove(c.NetBuyMin),
		Or(
			ForeignStreakAtLeast(c.ForeignStreakMin),
			DealerStreakAtLeast(c.DealerStreakMin),
			TrustStreakAtLeast(c.TrustStreakMin),
		),
		ChangePctAbove(c.ChangePctMin),
		MA5AboveMA20,
		VolumeAtLeast(c.VolumeMin),
		MA20AboveMA60,
	)
}

// Screen 對合併紀錄套用市場面條件，回傳入選紀錄與四位數代號清單。
// 代號非恰好四位數字者不進候選清單（即使整列通過條件）。
// 純函式、不拋例外；內部異常降級為「不入選」。
func Screen(stocks []model.MergedStock, c Conditions) ([]model.MergedStock, []string) {
	crit := MarketScreen(c)
	var selected []model.MergedStock
	var codes []string
	for i := range stocks {
		if !crit(&stocks[i]) {
			continue
		}
		selected = append(selected, stocks[i])
		if stockCodePattern.MatchString(stocks[i].Code) {
			codes = append(codes, stocks[i].Code)
		}
	}
	log.Info().Int("selected", len(selected)).Int("codes", len(codes)).Msg("市場面篩選完成")
	return selected, codes
}

// IsBullish 個股多空判斷：七個欄位（MA5、MA20、dif、signal、macd、osc、收盤）缺一即回 false，
// 全備時需同時滿足 MA5>MA20、dif>signal、macd>0、osc>0、收盤>MA20。
// macd 與 osc 為來源資料的兩個獨立欄位，兩條檢查照實各自保留。
func IsBullish(bar *model.DailyBar) bool {
	if bar == nil {
		return false
	}
	required := []*float64{bar.MA5, bar.MA20, bar.DIF, bar.Signal, bar.MACD, bar.OSC, bar.Close}
	for _, f := range required {
		if f == nil {
			log.Warn().Msg("缺少必要的技術指標欄位")
			return false
		}
	}
	return *bar.MA5 > *bar.MA20 &&
		*bar.DIF > *bar.Signal &&
		*bar.MACD > 0 &&
		*bar.OSC > 0 &&
		*bar.Close > *bar.MA20
}
