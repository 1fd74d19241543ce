package table

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrParse 表格形狀不符或無法解析，呼叫端取得空表後可自行決定是否中止。
var ErrParse = errors.New("table: parse failure")

// 來源趨勢符號，數值轉換前逐一移除（精確子字串，非字元類別）。
var trendGlyphs = []string{"↗", "↘", "→"}

// Normalize 清洗單張原始表：欄名修整、趨勢符號剝除、數值轉換、完全重複列移除。
// numericCols 宣告哪些欄視為數值欄；解析失敗的格為 null 而非整體失敗。
// 任何形狀異常（欄列不齊）回傳空表與 ErrParse，不讓原始錯誤越過此邊界。
func Normalize(raw RawTable, numericCols map[string]bool) (Table, error) {
	cols := make([]string, len(raw.Columns))
	for i, c := range raw.Columns {
		cols[i] = CleanColumnName(c)
	}
	for _, row := range raw.Rows {
		if len(row) != len(cols) {
			return Table{}, fmt.Errorf("%w: 列寬 %d 與欄數 %d 不符", ErrParse, len(row), len(cols))
		}
	}
	t := Table{Columns: cols, Rows: make([][]Cell, 0, len(raw.Rows))}
	for _, row := range raw.Rows {
		cells := make([]Cell, len(cols))
		for j, v := range row {
			v = strings.TrimSpace(v)
			if numericCols[cols[j]] {
				cells[j] = coerceNumeric(v)
			} else {
				cells[j] = Cell{Text: v}
			}
		}
		t.Rows = append(t.Rows, cells)
	}
	t.Rows = dropDuplicateRows(t.Rows)
	return t, nil
}

// CleanColumnName 去除首尾空白並移除內部連續雙空白。
func CleanColumnName(name string) string {
	return strings.ReplaceAll(strings.TrimSpace(name), "  ", "")
}

// StripGlyphs 移除 ↗ ↘ → 三個趨勢符號。
func StripGlyphs(s string) string {
	for _, g := range trendGlyphs {
		s = strings.ReplaceAll(s, g, "")
	}
	return s
}

func coerceNumeric(s string) Cell {
	stripped := strings.TrimSpace(StripGlyphs(s))
	if stripped == "" {
		return Cell{Text: stripped}
	}
	if n, err := strconv.ParseFloat(stripped, 64); err == nil {
		return Cell{Text: stripped, Num: &n}
	}
	return Cell{Text: stripped}
}

// dropDuplicateRows 移除所有存在完全重複的列：兩份都刪，而非保留一份。
// 來源頁面每隔數十列重複一次表頭，靠此規則連同表頭複本一併清掉。
func dropDuplicateRows(rows [][]Cell) [][]Cell {
	count := make(map[string]int, len(rows))
	keys := make([]string, len(rows))
	for i, row := range rows {
		var b strings.Builder
		for _, c := range row {
			b.WriteString(cellKey(c))
			b.WriteByte(0x1f)
		}
		keys[i] = b.String()
		count[keys[i]]++
	}
	out := rows[:0]
	for i, row := range rows {
		if count[keys[i]] == 1 {
			out = append(out, row)
		}
	}
	return out
}

func cellKey(c Cell) string {
	if c.Num != nil {
		return "n:" + strconv.FormatFloat(*c.Num, 'f', -1, 64)
	}
	return "t:" + c.Text
}

// CoerceColumns 就地對既有表的指定欄做趨勢符號剝除與數值轉換，欄不存在時略過。
func CoerceColumns(t *Table, cols []string) {
	for _, name := range cols {
		idx := t.ColumnIndex(name)
		if idx < 0 {
			continue
		}
		for i := range t.Rows {
			c := &t.Rows[i][idx]
			if c.Num != nil {
				continue
			}
			*c = coerceNumeric(c.Text)
		}
	}
}

// RelabelRevenueColumns 將「<2位年>M<2位月>…營收(億)」欄名改寫為
// 「20<年>年<月>月營收 (億)」（月份不補零），其餘欄名原樣通過。
func RelabelRevenueColumns(cols []string) []string {
	out := make([]string, len(cols))
	for i, col := range cols {
		out[i] = relabelRevenueColumn(col)
	}
	return out
}

func relabelRevenueColumn(col string) string {
	if !strings.HasSuffix(col, "營收(億)") || len(col) < 5 {
		return col
	}
	if !isDigit(col[0]) || !isDigit(col[1]) || col[2] != 'M' || !isDigit(col[3]) || !isDigit(col[4]) {
		return col
	}
	month, err := strconv.Atoi(col[3:5])
	if err != nil {
		return col
	}
	return fmt.Sprintf("20%s年%d月營收 (億)", col[:2], month)
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
