// Package table 提供抓取表格的清洗、型別轉換、去重與合併（左連接）能力。
package table

import (
	"fmt"
	"strconv"
	"strings"
)

// RawTable 抓取階段的未定型表格：欄名依來源順序，列依來源順序，不保證任何約束。
type RawTable struct {
	Columns []string
	Rows    [][]string
}

// Empty 回傳無欄無列的表。
func (t RawTable) Empty() bool { return len(t.Columns) == 0 && len(t.Rows) == 0 }

// Cell 清洗後的儲存格：保留原始文字，數值欄解析成功時 Num 非 nil。
type Cell struct {
	Text string
	Num  *float64
}

// Table 清洗後的表格。宣告為數值的欄只含數字或 null（Num==nil）。
type Table struct {
	Columns []string
	Rows    [][]Cell
}

// Empty 回傳是否無資料列。
func (t Table) Empty() bool { return len(t.Rows) == 0 }

// ColumnIndex 依欄名找索引，找不到回 -1。
func (t Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumn 回傳欄名是否存在。
func (t Table) HasColumn(name string) bool { return t.ColumnIndex(name) >= 0 }

// Num 取第 row 列 name 欄的數值，欄不存在或為 null 時回 nil。
func (t Table) Num(row int, name string) *float64 {
	i := t.ColumnIndex(name)
	if i < 0 || row < 0 || row >= len(t.Rows) {
		return nil
	}
	return t.Rows[row][i].Num
}

// Text 取第 row 列 name 欄的文字，欄不存在時回空字串。
func (t Table) Text(row int, name string) string {
	i := t.ColumnIndex(name)
	if i < 0 || row < 0 || row >= len(t.Rows) {
		return ""
	}
	return t.Rows[row][i].Text
}

// AsRaw 還原為 RawTable：數值格以最短十進位字串輸出，保證再次清洗結果不變。
func (t Table) AsRaw() RawTable {
	raw := RawTable{Columns: append([]string(nil), t.Columns...)}
	raw.Rows = make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		r := make([]string, len(row))
		for j, c := range row {
			if c.Num != nil {
				r[j] = strconv.FormatFloat(*c.Num, 'f', -1, 64)
			} else {
				r[j] = c.Text
			}
		}
		raw.Rows[i] = r
	}
	return raw
}

// RenderText 以等寬欄位輸出整張表，供敘事分析當作純文字資料集。
func (t Table) RenderText() string {
	if len(t.Columns) == 0 {
		return ""
	}
	widths := make([]int, len(t.Columns))
	for i, c := range t.Columns {
		widths[i] = displayWidth(c)
	}
	cells := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		out := make([]string, len(t.Columns))
		for j := range t.Columns {
			if j < len(row) {
				out[j] = cellString(row[j])
			}
			if w := displayWidth(out[j]); w > widths[j] {
				widths[j] = w
			}
		}
		cells[i] = out
	}
	var b strings.Builder
	writePadded := func(vals []string) {
		for j, v := range vals {
			if j > 0 {
				b.WriteString("  ")
			}
			b.WriteString(v)
			for k := displayWidth(v); k < widths[j]; k++ {
				b.WriteByte(' ')
			}
		}
		b.WriteByte('\n')
	}
	writePadded(t.Columns)
	for _, row := range cells {
		writePadded(row)
	}
	return b.String()
}

func cellString(c Cell) string {
	if c.Num != nil {
		return strconv.FormatFloat(*c.Num, 'f', -1, 64)
	}
	if c.Text == "" {
		return "-"
	}
	return c.Text
}

// displayWidth 以 CJK 全形字寬 2 估算顯示寬度，讓中文欄名對齊。
func displayWidth(s string) int {
	w := 0
	for _, r := range s {
		if r >= 0x1100 {
			w += 2
		} else {
			w++
		}
	}
	return w
}

// Float 便於以常值建立 *float64。
func Float(v float64) *float64 { return &v }

func (t RawTable) String() string {
	return fmt.Sprintf("RawTable(%d欄 %d列)", len(t.Columns), len(t.Rows))
}
