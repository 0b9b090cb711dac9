package parsers

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/tablescope-inc/tablescope-engine/pkg/apperrors"
	"github.com/tablescope-inc/tablescope-engine/pkg/models"
)

// ExcelParser parses .xls/.xlsx workbooks. When a workbook has several
// sheets, the one with the most data rows wins.
type ExcelParser struct {
	logger *zap.Logger
}

func NewExcelParser(logger *zap.Logger) *ExcelParser {
	return &ExcelParser{logger: logger.Named("excel-parser")}
}

func (p *ExcelParser) Parse(name string, r io.Reader) (*models.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var (
		bestSheet string
		bestRows  [][]string
	)
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			p.logger.Warn("Could not read sheet",
				zap.String("name", name),
				zap.String("sheet", sheet),
				zap.Error(err))
			continue
		}
		if len(rows) > len(bestRows) {
			bestSheet = sheet
			bestRows = rows
		}
	}

	if len(bestRows) == 0 {
		return nil, apperrors.ErrNoData
	}

	p.logger.Info("Parsed Excel workbook",
		zap.String("name", name),
		zap.String("sheet", bestSheet),
		zap.Int("rows", len(bestRows)-1))

	return tableFromRecords(name, bestRows[0], bestRows[1:]), nil
}
