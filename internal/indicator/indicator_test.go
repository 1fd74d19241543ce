package indicator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"twstockai/internal/model"
	"twstockai/internal/table"
)

func seriesOf(closes []float64) model.DailySeries {
	s := model.DailySeries{StockID: "2330"}
	day := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	for _, c := range closes {
		s.Bars = append(s.Bars, model.DailyBar{Date: day, Close: table.Float(c)})
		day = day.AddDate(0, 0, 1)
	}
	return s
}

func TestComputeMovingAverages(t *testing.T) {
	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = float64(i + 1) // 1..25
	}
	s := seriesOf(closes)
	Compute(&s)

	// 計算後序列為降冪：第 0 列是最新（收盤 25）
	latest := s.Latest()
	require.NotNil(t, latest)
	assert.Equal(t, 25.0, *latest.Close)

	// MA5 = (21+..+25)/5, MA20 = (6+..+25)/20
	require.NotNil(t, latest.MA5)
	require.NotNil(t, latest.MA20)
	assert.InDelta(t, 23.0, *latest.MA5, 1e-9)
	assert.InDelta(t, 15.5, *latest.MA20, 1e-9)

	// 最舊一列（收盤 1）落在暖機期內，均線為 nil
	oldest := s.Bars[len(s.Bars)-1]
	assert.Equal(t, 1.0, *oldest.Close)
	assert.Nil(t, oldest.MA5)
	assert.Nil(t, oldest.MA20)

	// 升冪第 5 筆（收盤 5）是第一個有 MA5 的位置；MA20 自第 20 筆起
	assert.NotNil(t, s.Bars[len(s.Bars)-5].MA5)
	assert.Nil(t, s.Bars[len(s.Bars)-4].MA5)
	assert.NotNil(t, s.Bars[5].MA20) // 降冪索引 5 = 收盤 20
	assert.Nil(t, s.Bars[6].MA20)
}

func TestComputeMACDRelations(t *testing.T) {
	closes := make([]float64, 80)
	for i := range closes {
		closes[i] = 100 + float64(i)*0.5
	}
	s := seriesOf(closes)
	Compute(&s)

	latest := s.Latest()
	require.NotNil(t, latest.DIF)
	require.NotNil(t, latest.Signal)
	require.NotNil(t, latest.MACD)
	require.NotNil(t, latest.OSC)

	// MACD 欄恆等於 DIF−Signal，OSC 恆等於 DIF−MACD（即 Signal）
	assert.InDelta(t, *latest.DIF-*latest.Signal, *latest.MACD, 1e-9)
	assert.InDelta(t, *latest.Signal, *latest.OSC, 1e-9)
}

func TestComputeMACDWarmup(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	s := seriesOf(closes)
	Compute(&s)

	// 升冪索引 33 之前無 MACD 族欄位，33 起才有（降冪後以尾端檢查）
	asc := append([]model.DailyBar(nil), s.Bars...)
	for i, j := 0, len(asc)-1; i < j; i, j = i+1, j-1 {
		asc[i], asc[j] = asc[j], asc[i]
	}
	assert.Nil(t, asc[32].DIF)
	assert.Nil(t, asc[32].MACD)
	require.NotNil(t, asc[33].DIF)
	require.NotNil(t, asc[33].MACD)
}

func TestComputeInsufficientData(t *testing.T) {
	s := seriesOf([]float64{100, 101, 102})
	Compute(&s)

	for _, b := range s.Bars {
		assert.Nil(t, b.MA5)
		assert.Nil(t, b.MA20)
		assert.Nil(t, b.DIF)
		assert.Nil(t, b.MACD)
	}
}

func TestComputeSkipsMissingCloses(t *testing.T) {
	s := seriesOf([]float64{1, 2, 3, 4, 5, 6})
	s.Bars[2].Close = nil
	Compute(&s)

	// 缺收盤的列不參與計算也不得指標
	var missing *model.DailyBar
	for i := range s.Bars {
		if s.Bars[i].Close == nil {
			missing = &s.Bars[i]
		}
	}
	require.NotNil(t, missing)
	assert.Nil(t, missing.MA5)

	// 其餘 5 筆有效收盤，最新一筆應有 MA5
	assert.NotNil(t, s.Latest().MA5)
}
