package chartGenerator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/KotFed0t/trading_terminal/internal/model"
	"github.com/KotFed0t/trading_terminal/internal/valuation"
	"github.com/KotFed0t/trading_terminal/utils"
	"github.com/shopspring/decimal"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

var ErrNotEnoughData = errors.New("need at least 2 data points")

type ChartGenerator struct{}

func New() *ChartGenerator {
	return &ChartGenerator{}
}

// PortfolioHistoryChart renders the value series as a PNG line chart.
func (g *ChartGenerator) PortfolioHistoryChart(ctx context.Context, history []model.PortfolioSnapshot, currency string) (*bytes.Buffer, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "ChartGenerator.PortfolioHistoryChart"

	slog.Debug("PortfolioHistoryChart start", slog.String("rqID", rqID), slog.String("op", op), slog.Int("points", len(history)))

	if len(history) < 2 {
		return nil, ErrNotEnoughData
	}

	xValues := make([]time.Time, len(history))
	yValues := make([]float64, len(history))
	lo, hi := history[0].Value, history[0].Value
	for i, p := range history {
		xValues[i] = p.Date
		yValues[i] = valuation.Round2(p.Value).InexactFloat64()
		lo = decimal.Min(lo, p.Value)
		hi = decimal.Max(hi, p.Value)
	}

	yAxis := chart.YAxis{
		ValueFormatter: func(v interface{}) string {
			if f, ok := v.(float64); ok {
				return valuation.FormatMoney(decimal.NewFromFloat(f), currency)
			}
			return ""
		},
	}
	// go-chart refuses a zero-height range
	if lo.Equal(hi) {
		mid := lo.InexactFloat64()
		yAxis.Range = &chart.ContinuousRange{Min: mid - 1, Max: mid + 1}
	}

	graph := chart.Chart{
		Title:  "Portfolio value",
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("02 Jan 06")
				}
				return ""
			},
		},
		YAxis: yAxis,
		Series: []chart.Series{
			chart.TimeSeries{
				Name: "Value",
				Style: chart.Style{
					StrokeColor: drawing.ColorFromHex("2563eb"),
					StrokeWidth: 2.5,
				},
				XValues: xValues,
				YValues: yValues,
			},
		},
	}

	buf := &bytes.Buffer{}
	if err := graph.Render(chart.PNG, buf); err != nil {
		slog.Error("got error while rendering chart", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, fmt.Errorf("render chart: %w", err)
	}

	slog.Debug("PortfolioHistoryChart completed", slog.String("rqID", rqID), slog.String("op", op), slog.Int("size", buf.Len()))

	return buf, nil
}
