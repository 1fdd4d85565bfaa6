package formatting

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSortRows_NumericAscending(t *testing.T) {
	rows := [][]any{
		{"Name", "Age"},
		{"Bob", "25"},
		{"Alice", "30"},
		{"Eve", "8"},
	}
	out := SortRows(rows, []SortSpec{{ColumnIndex: 1}}, true)
	require.Equal(t, []any{"Name", "Age"}, out[0])
	require.Equal(t, []any{"Eve", "8"}, out[1])
	require.Equal(t, []any{"Bob", "25"}, out[2])
	require.Equal(t, []any{"Alice", "30"}, out[3])
}

func TestSortRows_DescendingNumeric(t *testing.T) {
	rows := [][]any{
		{"2", "X"},
		{"1", "Y"},
		{"10", "Z"},
	}
	out := SortRows(rows, []SortSpec{{ColumnIndex: 0, Descending: true}}, false)
	require.Equal(t, []any{"10", "Z"}, out[0])
	require.Equal(t, []any{"2", "X"}, out[1])
	require.Equal(t, []any{"1", "Y"}, out[2])
}

func TestSortRows_ThousandsSeparator(t *testing.T) {
	rows := [][]any{
		{"1,000"},
		{"250"},
		{"20,000"},
	}
	out := SortRows(rows, []SortSpec{{ColumnIndex: 0}}, false)
	require.Equal(t, []any{"250"}, out[0])
	require.Equal(t, []any{"1,000"}, out[1])
	require.Equal(t, []any{"20,000"}, out[2])
}

func TestSortRows_StableOnEqualKeys(t *testing.T) {
	rows := [][]any{
		{"a", float64(1)},
		{"b", float64(1)},
		{"c", float64(1)},
	}
	out := SortRows(rows, []SortSpec{{ColumnIndex: 1}}, false)
	require.Equal(t, []any{"a", float64(1)}, out[0])
	require.Equal(t, []any{"b", float64(1)}, out[1])
	require.Equal(t, []any{"c", float64(1)}, out[2])
}

func TestResolveSortSpecs_ColumnNameRequiresHeader(t *testing.T) {
	_, err := ResolveSortSpecs("Name", nil, false, 2)
	require.Error(t, err)
}

func TestResolveSortSpecs_UnknownColumnName(t *testing.T) {
	_, err := ResolveSortSpecs("Missing", []any{"Name", "Age"}, true, 2)
	require.Error(t, err)
}

func TestResolveSortSpecs_IndexOutOfRange(t *testing.T) {
	_, err := ResolveSortSpecs(float64(5), nil, false, 2)
	require.Error(t, err)
}

func TestResolveSortSpecs_DictWithOrder(t *testing.T) {
	specs, err := ResolveSortSpecs(map[string]any{"column": "Age", "order": "desc"}, []any{"Name", "Age"}, true, 2)
	require.NoError(t, err)
	require.Equal(t, []SortSpec{{ColumnIndex: 1, Descending: true}}, specs)
}

func TestFormatNumber_EmptyAndNil(t *testing.T) {
	out, err := FormatNumber(nil, "currency:USD")
	require.NoError(t, err)
	require.Equal(t, "", out)

	out, err = FormatNumber("", "currency:USD")
	require.NoError(t, err)
	require.Equal(t, "", out)
}

func TestFormatNumber_NoSpecReturnsAsIs(t *testing.T) {
	out, err := FormatNumber(float64(42), "")
	require.NoError(t, err)
	require.Equal(t, "42", out)
}

func TestFormatNumber_NonNumericPassesThrough(t *testing.T) {
	out, err := FormatNumber("not-a-number", "integer")
	require.NoError(t, err)
	require.Equal(t, "not-a-number", out)
}

func TestFormatNumber_Accounting(t *testing.T) {
	out, err := FormatNumber(float64(-42.5), "accounting")
	require.NoError(t, err)
	require.Equal(t, "(42.50)", out)

	out, err = FormatNumber(float64(42.5), "accounting")
	require.NoError(t, err)
	require.Equal(t, "42.50", out)
}

func TestFormatNumber_InvalidCurrencyCode(t *testing.T) {
	_, err := FormatNumber(float64(10), "currency:ZZZ")
	require.Error(t, err)
}

func TestFormatNumber_UnknownSpec(t *testing.T) {
	_, err := FormatNumber(float64(10), "bogus")
	require.Error(t, err)
}

func TestValidateFormatSpec(t *testing.T) {
	require.True(t, ValidateFormatSpec(""))
	require.True(t, ValidateFormatSpec("percent"))
	require.True(t, ValidateFormatSpec("currency:USD"))
	require.True(t, ValidateFormatSpec("decimal:2"))
	require.False(t, ValidateFormatSpec("decimal:-1"))
	require.False(t, ValidateFormatSpec("currency:US"))
	require.False(t, ValidateFormatSpec("bogus"))
}
