package fetch

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tableSelection(t *testing.T, html string) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	sel := doc.Find("table").First()
	require.Equal(t, 1, sel.Length())
	return sel
}

func TestParseTableSimple(t *testing.T) {
	sel := tableSelection(t, `<table>
		<tr><th>代號</th><th>名稱</th><th>成交</th></tr>
		<tr><td>2330</td><td>台積電</td><td>985</td></tr>
		<tr><td>2317</td><td>鴻海</td><td>178.5</td></tr>
	</table>`)
	raw := ParseTable(sel)

	assert.Equal(t, []string{"代號", "名稱", "成交"}, raw.Columns)
	require.Len(t, raw.Rows, 2)
	assert.Equal(t, []string{"2330", "台積電", "985"}, raw.Rows[0])
}

func TestParseTableMultiRowHeader(t *testing.T) {
	// 兩層表頭：rowspan 的欄取單一文字，colspan 的群組名與子欄名串接
	sel := tableSelection(t, `<table>
		<tr>
			<th rowspan="2">代號</th>
			<th rowspan="2">名稱</th>
			<th colspan="2">外資</th>
		</tr>
		<tr><th>買賣超</th><th>連續日數</th></tr>
		<tr><td>2330</td><td>台積電</td><td>1200</td><td>5</td></tr>
	</table>`)
	raw := ParseTable(sel)

	assert.Equal(t, []string{"代號", "名稱", "外資買賣超", "外資連續日數"}, raw.Columns)
	require.Len(t, raw.Rows, 1)
	assert.Equal(t, []string{"2330", "台積電", "1200", "5"}, raw.Rows[0])
}

func TestParseTableRepeatedHeaderRowsKeptAsData(t *testing.T) {
	// 表身中段重複的表頭（th 列出現在資料列之後）照樣輸出，交由清洗階段去重
	sel := tableSelection(t, `<table>
		<tr><th>代號</th><th>名稱</th></tr>
		<tr><td>2330</td><td>台積電</td></tr>
		<tr><th>代號</th><th>名稱</th></tr>
		<tr><td>2317</td><td>鴻海</td></tr>
	</table>`)
	raw := ParseTable(sel)

	require.Len(t, raw.Rows, 3)
	assert.Equal(t, []string{"代號", "名稱"}, raw.Rows[1])
}

func TestParseTableRowAlignment(t *testing.T) {
	// 短列補空、長列截斷，使所有列與欄數對齊
	sel := tableSelection(t, `<table>
		<tr><th>代號</th><th>名稱</th><th>成交</th></tr>
		<tr><td>2330</td><td>台積電</td></tr>
	</table>`)
	raw := ParseTable(sel)

	require.Len(t, raw.Rows, 1)
	assert.Equal(t, []string{"2330", "台積電", ""}, raw.Rows[0])
}

func TestFetchKeepsContextCancellationInChain(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient("", "")
	_, err := c.FetchCategory(ctx, CategoryMACD)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetch)
	// 中斷必須留在錯誤鏈上，否則上層無法以退出碼 0 收尾
	assert.True(t, errors.Is(err, context.Canceled))

	_, _, err = c.FetchDailyK(ctx, "2330", 365)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestStockNameFromTitle(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<html><head><title>2330 台積電 個股K線圖</title></head><body></body></html>`))
	require.NoError(t, err)
	assert.Equal(t, "台積電", stockNameFromTitle(doc, "2330"))

	empty, err := goquery.NewDocumentFromReader(strings.NewReader(`<html><head></head></html>`))
	require.NoError(t, err)
	assert.Equal(t, "2330", stockNameFromTitle(empty, "2330"))
}
