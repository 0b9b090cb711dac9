package parsers

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/tablescope-inc/tablescope-engine/pkg/apperrors"
	"github.com/tablescope-inc/tablescope-engine/pkg/models"
)

func TestFactory(t *testing.T) {
	factory := NewFactory(zap.NewNop())

	for _, format := range []string{"csv", "SQL", "xls", "xlsx", "xml"} {
		if _, err := factory.Get(format); err != nil {
			t.Errorf("Get(%q) returned error: %v", format, err)
		}
	}

	_, err := factory.Get("parquet")
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedFormat)
}

func TestCSVParserTypedCells(t *testing.T) {
	input := "id,amount,name,notes\n1,10.5,Ada,\n2,20,Grace,NULL\n3,nan,Edsger,N/A\n"
	parser := NewCSVParser(zap.NewNop())

	table, err := parser.Parse("people", strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, "people", table.Name)
	// The all-null notes column is dropped.
	assert.Equal(t, []string{"id", "amount", "name"}, table.ColumnNames())
	assert.Equal(t, 3, table.RowCount())

	assert.Equal(t, int64(1), table.Column("id").Values[0])
	assert.Equal(t, 10.5, table.Column("amount").Values[0])
	assert.Equal(t, int64(20), table.Column("amount").Values[1])
	assert.Nil(t, table.Column("amount").Values[2])
	assert.Equal(t, "Ada", table.Column("name").Values[0])
}

func TestCSVParserSniffsSemicolon(t *testing.T) {
	input := "a;b;c\n1;2;3\n4;5;6\n"
	parser := NewCSVParser(zap.NewNop())

	table, err := parser.Parse("t", strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, table.ColumnNames())
	assert.Equal(t, 2, table.RowCount())
}

func TestCSVParserWindows1252Fallback(t *testing.T) {
	// 0xE9 is é in Windows-1252 and invalid as a standalone UTF-8 byte.
	input := append([]byte("name\ncaf"), 0xE9, '\n')
	parser := NewCSVParser(zap.NewNop())

	table, err := parser.Parse("t", bytes.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, "café", table.Column("name").Values[0])
}

func TestCSVParserDropsEmptyRows(t *testing.T) {
	input := "a,b\n1,2\n,\n3,4\n"
	parser := NewCSVParser(zap.NewNop())

	table, err := parser.Parse("t", strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, table.RowCount())
}

func TestCSVParserEmptyInput(t *testing.T) {
	parser := NewCSVParser(zap.NewNop())
	_, err := parser.Parse("t", strings.NewReader("  \n "))
	assert.True(t, errors.Is(err, apperrors.ErrNoData))
}

func TestSQLParser(t *testing.T) {
	input := `
CREATE TABLE customers (
    id INT PRIMARY KEY,
    name VARCHAR(50),
    balance DECIMAL(10,2)
);

INSERT INTO customers VALUES (1, 'Ada', 12.50), (2, 'Grace', 99.00);
INSERT INTO customers (id, name, balance) VALUES (3, 'Edsger', NULL);
`
	parser := NewSQLParser(zap.NewNop())

	table, err := parser.Parse("dump", strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, "dump", table.Name)
	assert.Equal(t, []string{"id", "name", "balance"}, table.ColumnNames())
	assert.Equal(t, 3, table.RowCount())
	assert.Equal(t, int64(1), table.Column("id").Values[0])
	assert.Equal(t, "Grace", table.Column("name").Values[1])
	assert.Equal(t, 12.5, table.Column("balance").Values[0])
	assert.Nil(t, table.Column("balance").Values[2])
}

func TestSQLParserSchemaOnly(t *testing.T) {
	input := "CREATE TABLE empty_table (a INT, b TEXT);"
	parser := NewSQLParser(zap.NewNop())

	table, err := parser.Parse("t", strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 0, table.RowCount())
}

func TestSQLParserNoTables(t *testing.T) {
	parser := NewSQLParser(zap.NewNop())
	_, err := parser.Parse("t", strings.NewReader("SELECT 1;"))
	assert.True(t, errors.Is(err, apperrors.ErrNoData))
}

func TestXMLParserRecordShape(t *testing.T) {
	input := `<?xml version="1.0"?>
<customers>
  <customer id="1"><name>Ada</name><city>London</city></customer>
  <customer id="2"><name>Grace</name><city>Arlington</city></customer>
  <customer id="3"><name>Edsger</name><city></city></customer>
</customers>`
	parser := NewXMLParser(zap.NewNop())

	table, err := parser.Parse("customers", strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "city", "customer_id"}, table.ColumnNames())
	assert.Equal(t, 3, table.RowCount())
	assert.Equal(t, "Ada", table.Column("name").Values[0])
	assert.Equal(t, int64(2), table.Column("customer_id").Values[1])
	assert.Nil(t, table.Column("city").Values[2])
}

func TestXMLParserRepeatedTagFallback(t *testing.T) {
	// Root has a single child, so the record-shape strategy does not apply;
	// the repeated <item> tag deeper in the tree becomes the row element.
	input := `<catalog><section>
  <item sku="A1">first</item>
  <item sku="B2">second</item>
  <item sku="C3">third</item>
</section></catalog>`
	parser := NewXMLParser(zap.NewNop())

	table, err := parser.Parse("catalog", strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 3, table.RowCount())
	require.NotNil(t, table.Column("item"))
	require.NotNil(t, table.Column("item_sku"))
	assert.Equal(t, "A1", table.Column("item_sku").Values[0])
}

func TestExcelParserPicksLargestSheet(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", "small"))
	require.NoError(t, f.SetSheetRow("small", "A1", &[]any{"x"}))
	require.NoError(t, f.SetSheetRow("small", "A2", &[]any{"only"}))

	_, err := f.NewSheet("data")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("data", "A1", &[]any{"id", "name"}))
	require.NoError(t, f.SetSheetRow("data", "A2", &[]any{1, "Ada"}))
	require.NoError(t, f.SetSheetRow("data", "A3", &[]any{2, "Grace"}))
	require.NoError(t, f.SetSheetRow("data", "A4", &[]any{3, "Edsger"}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	parser := NewExcelParser(zap.NewNop())
	table, err := parser.Parse("book", bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "name"}, table.ColumnNames())
	assert.Equal(t, 3, table.RowCount())
	assert.Equal(t, int64(1), table.Column("id").Values[0])
}

func TestTypedCell(t *testing.T) {
	tests := []struct {
		in   string
		want models.Value
	}{
		{"42", int64(42)},
		{"-7", int64(-7)},
		{"3.14", 3.14},
		{" hello ", "hello"},
		{"", nil},
		{"NULL", nil},
		{"N/A", nil},
		{"nan", nil},
	}
	for _, tt := range tests {
		if got := typedCell(tt.in); got != tt.want {
			t.Errorf("typedCell(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
