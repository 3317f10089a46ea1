package xslsxGenerator

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/trading_terminal/internal/model"
	"github.com/KotFed0t/trading_terminal/internal/valuation"
	"github.com/KotFed0t/trading_terminal/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	SheetHoldings = "Holdings"
	SheetSummary  = "Summary"
)

type XSLSXGenerator struct{}

func New() *XSLSXGenerator {
	return &XSLSXGenerator{}
}

func (g *XSLSXGenerator) GeneratePortfolioReport(ctx context.Context, report model.PortfolioReport) (*bytes.Buffer, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XSLSXGenerator.GeneratePortfolioReport"

	slog.Debug("GeneratePortfolioReport start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("accountID", report.AccountID))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	if err := g.fillHoldings(f, report); err != nil {
		slog.Error("got error while filling holdings sheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}
	if err := g.fillSummary(f, report); err != nil {
		slog.Error("got error while filling summary sheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		slog.Error("got error while deleting Sheet1", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while Saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	slog.Debug("GeneratePortfolioReport completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf, nil
}

func headerStyle(f *excelize.File, color string) (int, error) {
	return f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{color},
		},
	})
}

func title(f *excelize.File, sheet, from, to, text, color string) error {
	if err := f.MergeCell(sheet, from, to); err != nil {
		return err
	}
	if err := f.SetCellStr(sheet, from, text); err != nil {
		return err
	}
	styleID, err := headerStyle(f, color)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, from, from, styleID); err != nil {
		return fmt.Errorf("apply style: %w", err)
	}
	return nil
}

// money cells are numbers rounded to 2 places
func setMoney(f *excelize.File, sheet, cell string, d decimal.Decimal) {
	_ = f.SetCellValue(sheet, cell, valuation.Round2(d).InexactFloat64())
}

func setNullMoney(f *excelize.File, sheet, cell string, d decimal.NullDecimal) {
	if !d.Valid {
		_ = f.SetCellStr(sheet, cell, valuation.Unavailable)
		return
	}
	setMoney(f, sheet, cell, d.Decimal)
}

func (g *XSLSXGenerator) fillHoldings(f *excelize.File, report model.PortfolioReport) error {
	sheet := SheetHoldings
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	if err := title(f, sheet, "A1", "G1", fmt.Sprintf("Holdings, %s", report.Currency), "#cfe2f3"); err != nil {
		return err
	}

	for col, name := range []string{"asset", "quantity", "buy price", "current price", "value", "profit", "profit %"} {
		cell, _ := excelize.CoordinatesToCellName(col+1, 2)
		_ = f.SetCellStr(sheet, cell, name)
	}

	for i, h := range report.Holdings {
		row := i + 3
		_ = f.SetCellStr(sheet, fmt.Sprintf("A%d", row), h.AssetName)
		_ = f.SetCellInt(sheet, fmt.Sprintf("B%d", row), int(h.Quantity))
		setNullMoney(f, sheet, fmt.Sprintf("C%d", row), h.BuyPrice)
		setNullMoney(f, sheet, fmt.Sprintf("D%d", row), h.CurrentPrice)
		setNullMoney(f, sheet, fmt.Sprintf("E%d", row), h.Value)
		if h.Available {
			setMoney(f, sheet, fmt.Sprintf("F%d", row), h.Profit)
			setMoney(f, sheet, fmt.Sprintf("G%d", row), h.ProfitPercentage)
		} else {
			_ = f.SetCellStr(sheet, fmt.Sprintf("F%d", row), valuation.Unavailable)
			_ = f.SetCellStr(sheet, fmt.Sprintf("G%d", row), valuation.Unavailable)
		}
	}

	totalRow := len(report.Holdings) + 3
	_ = f.SetCellStr(sheet, fmt.Sprintf("A%d", totalRow), "total")
	setMoney(f, sheet, fmt.Sprintf("E%d", totalRow), report.TotalValue)
	setMoney(f, sheet, fmt.Sprintf("F%d", totalRow), report.TotalProfit)
	setMoney(f, sheet, fmt.Sprintf("G%d", totalRow), report.ProfitPercentage)

	return nil
}

func (g *XSLSXGenerator) fillSummary(f *excelize.File, report model.PortfolioReport) error {
	sheet := SheetSummary
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	if err := title(f, sheet, "A1", "C1", "Summary", "#d9ead3"); err != nil {
		return err
	}

	_ = f.SetCellStr(sheet, "A2", "account")
	_ = f.SetCellInt(sheet, "B2", int(report.AccountID))
	_ = f.SetCellStr(sheet, "C2", report.UserName)
	_ = f.SetCellStr(sheet, "A3", "generated at")
	_ = f.SetCellStr(sheet, "B3", report.GeneratedAt.Format("2006-01-02 15:04:05"))

	funds := report.Funds
	rows := []struct {
		name  string
		value decimal.Decimal
	}{
		{"portfolio value", funds.PortfolioValue},
		{"total investment", report.TotalInvestment},
		{"total profit", report.TotalProfit},
		{"profit %", report.ProfitPercentage},
		{"backend total profit", funds.TotalProfit},
		{"backend profit %", funds.ProfitPercentage},
		{"equity value", funds.Allocation.EquityValue},
		{"commodity value", funds.Allocation.CommodityValue},
	}
	for i, r := range rows {
		_ = f.SetCellStr(sheet, fmt.Sprintf("A%d", i+5), r.name)
		setMoney(f, sheet, fmt.Sprintf("B%d", i+5), r.value)
	}

	fundsRow := len(rows) + 6
	if err := title(f, sheet, fmt.Sprintf("A%d", fundsRow), fmt.Sprintf("C%d", fundsRow), "Funds", "#f9cb9c"); err != nil {
		return err
	}
	fundsRow++
	_ = f.SetCellStr(sheet, fmt.Sprintf("B%d", fundsRow), string(model.Equity))
	_ = f.SetCellStr(sheet, fmt.Sprintf("C%d", fundsRow), string(model.Commodity))

	fundRows := []struct {
		name              string
		equity, commodity decimal.Decimal
	}{
		{"available funds", funds.Funds.Equity.AvailableFunds, funds.Funds.Commodity.AvailableFunds},
		{"utilized margin", funds.Funds.Equity.UtilizedMargin, funds.Funds.Commodity.UtilizedMargin},
		{"available margin", funds.Funds.Equity.AvailableMargin, funds.Funds.Commodity.AvailableMargin},
	}
	for _, r := range fundRows {
		fundsRow++
		_ = f.SetCellStr(sheet, fmt.Sprintf("A%d", fundsRow), r.name)
		setMoney(f, sheet, fmt.Sprintf("B%d", fundsRow), r.equity)
		setMoney(f, sheet, fmt.Sprintf("C%d", fundsRow), r.commodity)
	}

	return nil
}
