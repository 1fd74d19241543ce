package screen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twstockai/internal/model"
	"twstockai/internal/table"
)

func passingStock(code string) model.MergedStock {
	return model.MergedStock{
		Code:              code,
		Name:              "測試",
		NetBuyTotal:       table.Float(1200),
		ForeignStreakDays: table.Float(6),
		DealerStreakDays:  table.Float(0),
		TrustStreakDays:   table.Float(0),
		ChangePct:         table.Float(2.5),
		Volume:            table.Float(8000),
		MA5:               table.Float(105),
		MA20:              table.Float(100),
		MA60:              table.Float(95),
	}
}

func TestScreenSelectsQualifiedStock(t *testing.T) {
	selected, codes := Screen([]model.MergedStock{passingStock("2330")}, DefaultConditions())
	require.Len(t, selected, 1)
	assert.Equal(t, []string{"2330"}, codes)
}

func TestScreenRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*model.MergedStock)
	}{
		{"法人賣超", func(s *model.MergedStock) { s.NetBuyTotal = table.Float(-100) }},
		{"買超為零不過嚴格大於", func(s *model.MergedStock) { s.NetBuyTotal = table.Float(0) }},
		{"三法人連買皆未達標", func(s *model.MergedStock) {
			s.ForeignStreakDays = table.Float(4)
			s.DealerStreakDays = table.Float(2)
			s.TrustStreakDays = table.Float(2)
		}},
		{"當日收跌", func(s *model.MergedStock) { s.ChangePct = table.Float(-0.5) }},
		{"量能不足", func(s *model.MergedStock) { s.Volume = table.Float(100) }},
		{"短均在下", func(s *model.MergedStock) { s.MA5 = table.Float(99) }},
		{"長期趨勢向下", func(s *model.MergedStock) { s.MA60 = table.Float(120) }},
		{"欄位缺漏", func(s *model.MergedStock) { s.MA20 = nil }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := passingStock("2330")
			c.mutate(&s)
			selected, _ := Screen([]model.MergedStock{s}, DefaultConditions())
			assert.Empty(t, selected)
		})
	}
}

func TestScreenStreakAlternatives(t *testing.T) {
	// 外資未達標但投信連買 3 日即可通過 Or 分支
	s := passingStock("2330")
	s.ForeignStreakDays = table.Float(1)
	s.TrustStreakDays = table.Float(3)
	selected, _ := Screen([]model.MergedStock{s}, DefaultConditions())
	assert.Len(t, selected, 1)
}

func TestScreenCodeFilter(t *testing.T) {
	// 非四位數代號入選但不進候選清單
	etf := passingStock("00878")
	warrant := passingStock("233A")
	normal := passingStock("2317")
	selected, codes := Screen([]model.MergedStock{etf, warrant, normal}, DefaultConditions())
	assert.Len(t, selected, 3)
	assert.Equal(t, []string{"2317"}, codes)
}

func passingBar() model.DailyBar {
	return model.DailyBar{
		Close:  table.Float(110),
		MA5:    table.Float(106),
		MA20:   table.Float(100),
		DIF:    table.Float(3),
		Signal: table.Float(2),
		MACD:   table.Float(1),
		OSC:    table.Float(2),
	}
}

func TestIsBullish(t *testing.T) {
	b := passingBar()
	assert.True(t, IsBullish(&b))
}

func TestIsBullishRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*model.DailyBar)
	}{
		{"MA5 不在 MA20 之上", func(b *model.DailyBar) { b.MA5 = table.Float(99) }},
		{"DIF 未上穿訊號線", func(b *model.DailyBar) { b.DIF = table.Float(1.5) }},
		{"MACD 為負", func(b *model.DailyBar) { b.MACD = table.Float(-0.5) }},
		{"OSC 為負", func(b *model.DailyBar) { b.OSC = table.Float(-1) }},
		{"收盤跌破 MA20", func(b *model.DailyBar) { b.Close = table.Float(9) }},
		{"缺收盤價", func(b *model.DailyBar) { b.Close = nil }},
		{"缺 MACD 欄", func(b *model.DailyBar) { b.MACD = nil }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			b := passingBar()
			c.mutate(&b)
			assert.False(t, IsBullish(&b))
		})
	}
	assert.False(t, IsBullish(nil))
}
