package table

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMerge 合併階段任何失敗都折疊成此錯誤，呼叫端拿到空結果後自行降級。
var ErrMerge = errors.New("table: merge failure")

// 各表對的連接鍵。以具名常數固定下來，避免字串鍵名悄悄漂移。
var (
	joinKeyFlowMA = []string{"代號", "名稱", "成交", "漲跌價", "漲跌幅", "成交張數"}
	joinKeyStreak = []string{"法人買賣日期", "代號", "名稱", "成交", "漲跌價", "漲跌幅"}
	joinKeyWide   = []string{"代號", "名稱", "成交", "漲跌價", "漲跌幅"}
)

// 合併後統一做數值轉換的欄位。
var mergedNumericColumns = []string{
	"合計買賣超張數", "成交張數", "漲跌幅", "三大法人連續買賣日數",
	"外資連續買賣日數", "自營商連續買賣日數", "投信連續買賣日數",
	"5日均線", "10日均線", "15日均線", "20日均線", "50日均線",
	"60日均線", "100日均線", "120日均線", "200日均線", "240日均線",
	"DIF(日)", "MACD(日)", "OSC(日)", "DIF(週)", "MACD(週)",
	"OSC(週)", "DIF(月)", "MACD(月)", "OSC(月)",
}

// 合併後棄用的欄位：長週期均線以 60/120/240 取代，註記欄無篩選用途。缺少時不視為錯誤。
var supersededColumns = []string{"100日均線", "15日均線", "50日均線", "200日均線", "法人買賣超註記"}

// MergeInput 五張清洗後的類股表，依固定順序連接。
type MergeInput struct {
	CorporateFlow Table // 法人買賣（錨定表，左連接永遠保留其列）
	MovingAverage Table // 移動均線
	Streak        Table // 法人連續買賣
	Revenue       Table // 近 N 個月營收
	MACD          Table // MACD 指標
}

// MergeStockTables 依固定順序左連接五張表並整理欄位，回傳寬表與改寫後的營收欄名。
// expectedRevenue 為外部提供的 12 個「<年>年<月>月營收 (億)」標籤（依日曆推導，非由資料決定）。
// 任何一步失敗即回傳空表與空標籤清單，不向呼叫端拋出原始錯誤以外的狀態。
func MergeStockTables(in MergeInput, expectedRevenue []string) (Table, []string, error) {
	merged, err := joinFlowWithMovingAverage(in.CorporateFlow, in.MovingAverage)
	if err != nil {
		return Table{}, nil, err
	}
	merged, err = joinWithStreak(merged, in.Streak)
	if err != nil {
		return Table{}, nil, err
	}
	merged, err = joinWide(merged, in.Revenue)
	if err != nil {
		return Table{}, nil, err
	}
	merged, err = joinWide(merged, in.MACD)
	if err != nil {
		return Table{}, nil, err
	}

	CoerceColumns(&merged, mergedNumericColumns)
	merged.Columns = RelabelRevenueColumns(merged.Columns)

	revenueCols := make([]string, 0, len(expectedRevenue))
	for _, col := range expectedRevenue {
		if merged.HasColumn(col) {
			revenueCols = append(revenueCols, col)
		}
	}
	CoerceColumns(&merged, revenueCols)

	dropColumns(&merged, supersededColumns)
	return merged, revenueCols, nil
}

func joinFlowWithMovingAverage(flow, ma Table) (Table, error) {
	return leftJoin(flow, ma, joinKeyFlowMA)
}

func joinWithStreak(left, streak Table) (Table, error) {
	return leftJoin(left, streak, joinKeyStreak)
}

func joinWide(left, right Table) (Table, error) {
	return leftJoin(left, right, joinKeyWide)
}

// leftJoin 以 keys 做左連接：左表列永遠保留，右表未命中時補 null 欄。
// 右表一鍵多列時，左列會展開成多列（與來源合併行為一致）。
func leftJoin(left, right Table, keys []string) (Table, error) {
	leftKeyIdx := make([]int, len(keys))
	rightKeyIdx := make([]int, len(keys))
	for i, k := range keys {
		if leftKeyIdx[i] = left.ColumnIndex(k); leftKeyIdx[i] < 0 {
			return Table{}, fmt.Errorf("%w: 左表缺連接鍵 %q", ErrMerge, k)
		}
		if rightKeyIdx[i] = right.ColumnIndex(k); rightKeyIdx[i] < 0 {
			return Table{}, fmt.Errorf("%w: 右表缺連接鍵 %q", ErrMerge, k)
		}
	}
	isKey := make(map[int]bool, len(keys))
	for _, idx := range rightKeyIdx {
		isKey[idx] = true
	}
	var rightExtraIdx []int
	out := Table{Columns: append([]string(nil), left.Columns...)}
	for j, c := range right.Columns {
		if !isKey[j] {
			rightExtraIdx = append(rightExtraIdx, j)
			out.Columns = append(out.Columns, c)
		}
	}

	index := make(map[string][]int, len(right.Rows))
	for i, row := range right.Rows {
		k := joinKeyOf(row, rightKeyIdx)
		index[k] = append(index[k], i)
	}

	for _, lrow := range left.Rows {
		matches := index[joinKeyOf(lrow, leftKeyIdx)]
		if len(matches) == 0 {
			row := append(append([]Cell(nil), lrow...), make([]Cell, len(rightExtraIdx))...)
			out.Rows = append(out.Rows, row)
			continue
		}
		for _, m := range matches {
			row := append([]Cell(nil), lrow...)
			for _, j := range rightExtraIdx {
				row = append(row, right.Rows[m][j])
			}
			out.Rows = append(out.Rows, row)
		}
	}
	return out, nil
}

func joinKeyOf(row []Cell, idx []int) string {
	var b strings.Builder
	for _, i := range idx {
		b.WriteString(cellKey(row[i]))
		b.WriteByte(0x1f)
	}
	return b.String()
}

func dropColumns(t *Table, names []string) {
	drop := make(map[int]bool)
	for _, n := range names {
		if i := t.ColumnIndex(n); i >= 0 {
			drop[i] = true
		}
	}
	if len(drop) == 0 {
		return
	}
	var keep []int
	for i := range t.Columns {
		if !drop[i] {
			keep = append(keep, i)
		}
	}
	cols := make([]string, len(keep))
	for k, i := range keep {
		cols[k] = t.Columns[i]
	}
	rows := make([][]Cell, len(t.Rows))
	for r, row := range t.Rows {
		nr := make([]Cell, len(keep))
		for k, i := range keep {
			nr[k] = row[i]
		}
		rows[r] = nr
	}
	t.Columns, t.Rows = cols, rows
}
