package technical

import (
	"math"

	"github.com/seenimoa/stockqa/pkg/models"
)

// Compute calculates the latest value of every indicator carried by
// models.TechnicalIndicators: RSI(14), MACD(12,26,9), SMA 20/50, 20-session
// support/resistance and Bollinger(20,2). It returns nil for an empty series.
func Compute(candles []models.OHLCV) *models.TechnicalIndicators {
	if len(candles) == 0 {
		return nil
	}

	ti := &models.TechnicalIndicators{}
	if v, ok := RSILatest(candles, 14); ok {
		ti.RSI = round(v)
	}
	if m, ok := MACDLatest(candles, 12, 26, 9); ok {
		ti.MACD = round(m.MACD)
	}

	closes := Closes(candles)
	if v, ok := SMALatest(closes, 20); ok {
		ti.SMA20 = round(v)
	}
	if v, ok := SMALatest(closes, 50); ok {
		ti.SMA50 = round(v)
	}

	lv, ok := RecentLevels(candles, DefaultLevelWindow)
	if !ok {
		lv, ok = PivotLevels(candles)
	}
	if ok {
		ti.Support = round(lv.Support)
		ti.Resistance = round(lv.Resistance)
	}

	if b, ok := BollingerLatest(candles, 20, 2); ok {
		ti.BollingerUpper = round(b.Upper)
		ti.BollingerLower = round(b.Lower)
	}
	return ti
}

// Summarize condenses a price series into the key statistics rendered in
// stock_analysis documents. It returns nil for an empty series.
func Summarize(symbol, period string, candles []models.OHLCV) map[string]any {
	n := len(candles)
	if n == 0 {
		return nil
	}

	first, last := candles[0], candles[n-1]
	high, low := last.High, last.Low
	var volSum float64
	for _, c := range candles {
		high = math.Max(high, c.High)
		low = math.Min(low, c.Low)
		volSum += float64(c.Volume)
	}

	s := map[string]any{
		"symbol":         symbol,
		"period":         period,
		"data_points":    n,
		"start_date":     first.Timestamp.UTC().Format("2006-01-02"),
		"end_date":       last.Timestamp.UTC().Format("2006-01-02"),
		"current_price":  r4(last.Close),
		"period_high":    r4(high),
		"period_low":     r4(low),
		"average_volume": math.Round(volSum / float64(n)),
		"latest_volume":  last.Volume,
	}

	if n > 1 {
		prev := candles[n-2].Close
		s["previous_close"] = r4(prev)
		s["change"] = r4(last.Close - prev)
		if prev != 0 {
			s["change_percent"] = r4((last.Close - prev) / prev * 100)
		}
	}
	if first.Close != 0 {
		s["period_return_percent"] = r4((last.Close - first.Close) / first.Close * 100)
	}
	if v, ok := Volatility(candles); ok {
		s["volatility_annualized"] = r4(v)
	}
	if atr := ATR(candles, 14); len(atr) > 0 {
		s["atr_14"] = r4(atr[len(atr)-1])
	}
	if v, ok := VWAP(candles); ok {
		s["vwap"] = r4(v)
	}
	s["trend"] = trend(Closes(candles))

	return s
}

// trend compares the 20- and 50-session averages.
func trend(closes []float64) string {
	short, ok1 := SMALatest(closes, 20)
	long, ok2 := SMALatest(closes, 50)
	switch {
	case !ok1 || !ok2:
		return "insufficient data"
	case short > long*1.01:
		return "bullish"
	case short < long*0.99:
		return "bearish"
	default:
		return "sideways"
	}
}

func round(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	r := r4(v)
	return &r
}

func r4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
