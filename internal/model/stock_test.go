package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twstockai/internal/table"
)

func TestDailySeriesFromTable(t *testing.T) {
	src := table.Table{
		Columns: []string{"交易日期", "開盤", "最高", "最低", "收盤", "成交張數"},
		Rows: [][]table.Cell{
			{{Text: "'25/01/03"}, {Num: table.Float(101)}, {Num: table.Float(103)}, {Num: table.Float(100)}, {Num: table.Float(102)}, {Num: table.Float(9000)}},
			{{Text: "小計"}, {}, {}, {}, {}, {}}, // 日期欄非日期的列直接略過
			{{Text: "25/01/02"}, {Num: table.Float(100)}, {Num: table.Float(102)}, {Num: table.Float(99)}, {Num: table.Float(101)}, {Num: table.Float(8000)}},
		},
	}
	s := DailySeriesFromTable(src, "2330", "台積電")
	require.Len(t, s.Bars, 2)

	assert.Equal(t, time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC), s.Bars[0].Date)
	assert.Equal(t, 102.0, *s.Bars[0].Close)
	assert.Equal(t, 101.0, *s.Bars[1].Close)
}

func TestDailySeriesSorting(t *testing.T) {
	s := DailySeries{Bars: []DailyBar{
		{Date: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)},
		{Date: time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)},
		{Date: time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)},
	}}
	s.SortAscending()
	assert.Equal(t, 2, s.Bars[0].Date.Day())
	s.SortDescending()
	assert.Equal(t, 6, s.Bars[0].Date.Day())
	assert.Equal(t, 6, s.Latest().Date.Day())
}

func TestMergedFromTableDeduplicatesByCode(t *testing.T) {
	src := table.Table{
		Columns: []string{"代號", "名稱", "成交", "合計買賣超張數"},
		Rows: [][]table.Cell{
			{{Text: "2330"}, {Text: "台積電"}, {Num: table.Float(985)}, {Num: table.Float(4200)}},
			{{Text: "2330"}, {Text: "台積電"}, {Num: table.Float(985)}, {Num: table.Float(9999)}}, // 同代號重複列，只取第一列
			{{Text: ""}, {Text: "殘列"}, {}, {}},
			{{Text: "2317"}, {Text: "鴻海"}, {Num: table.Float(178)}, {}},
		},
	}
	stocks := MergedFromTable(src, nil)
	require.Len(t, stocks, 2)

	assert.Equal(t, "2330", stocks[0].Code)
	assert.Equal(t, 4200.0, *stocks[0].NetBuyTotal)
	assert.Equal(t, "2317", stocks[1].Code)
	assert.Nil(t, stocks[1].NetBuyTotal)
	assert.Nil(t, stocks[1].MA5)
}
