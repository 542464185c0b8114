// Package technical implements the technical indicators attached to price
// history. All functions operate on []models.OHLCV candle slices ordered
// oldest first.
package technical

import (
	"math"

	"github.com/seenimoa/stockqa/pkg/models"
)

// RSI calculates the Relative Strength Index for the given period.
// Default period is 14. Returns values 0–100.
func RSI(candles []models.OHLCV, period int) []float64 {
	if period <= 0 {
		period = 14
	}
	n := len(candles)
	if n < period+1 {
		return nil
	}

	rsi := make([]float64, n)
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := candles[i].Close - candles[i-1].Close
		if change > 0 {
			avgGain += change
		} else {
			avgLoss += -change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	rsi[period] = rsiValue(avgGain, avgLoss)

	// Wilder's smoothing for subsequent values.
	for i := period + 1; i < n; i++ {
		change := candles[i].Close - candles[i-1].Close
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		rsi[i] = rsiValue(avgGain, avgLoss)
	}

	return rsi
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	return 100 - (100 / (1 + avgGain/avgLoss))
}

// RSILatest returns the most recent RSI value, false when history is too short.
func RSILatest(candles []models.OHLCV, period int) (float64, bool) {
	vals := RSI(candles, period)
	if len(vals) == 0 {
		return 0, false
	}
	return vals[len(vals)-1], true
}

// MACDResult holds a single MACD computation point.
type MACDResult struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// MACD calculates the Moving Average Convergence Divergence.
// Default parameters: fast=12, slow=26, signal=9.
func MACD(candles []models.OHLCV, fast, slow, signal int) []MACDResult {
	if fast <= 0 {
		fast = 12
	}
	if slow <= 0 {
		slow = 26
	}
	if signal <= 0 {
		signal = 9
	}

	closes := Closes(candles)
	if len(closes) < slow {
		return nil
	}

	fastEMA := emaCalc(closes, fast)
	slowEMA := emaCalc(closes, slow)

	n := len(closes)
	macdLine := make([]float64, n)
	for i := slow - 1; i < n; i++ {
		macdLine[i] = fastEMA[i] - slowEMA[i]
	}

	// The signal EMA is seeded from the first valid MACD point.
	signalLine := make([]float64, n)
	copy(signalLine[slow-1:], emaCalc(macdLine[slow-1:], signal))

	results := make([]MACDResult, n)
	for i := 0; i < n; i++ {
		results[i] = MACDResult{
			MACD:      macdLine[i],
			Signal:    signalLine[i],
			Histogram: macdLine[i] - signalLine[i],
		}
	}

	return results
}

// MACDLatest returns the most recent MACD values.
func MACDLatest(candles []models.OHLCV, fast, slow, signal int) (MACDResult, bool) {
	results := MACD(candles, fast, slow, signal)
	if len(results) == 0 {
		return MACDResult{}, false
	}
	return results[len(results)-1], true
}

// Band is one Bollinger Bands point.
type Band struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// BollingerBands calculates Bollinger Bands (upper, middle, lower).
// Default: period=20, stddev multiplier=2.
func BollingerBands(candles []models.OHLCV, period int, mult float64) []Band {
	if period <= 0 {
		period = 20
	}
	if mult <= 0 {
		mult = 2.0
	}

	closes := Closes(candles)
	n := len(closes)
	if n < period {
		return nil
	}

	result := make([]Band, n)
	for i := period - 1; i < n; i++ {
		window := closes[i-period+1 : i+1]
		mean := avg(window)
		sd := stddev(window, mean)
		result[i] = Band{
			Upper:  mean + mult*sd,
			Middle: mean,
			Lower:  mean - mult*sd,
		}
	}

	return result
}

// BollingerLatest returns the most recent Bollinger Bands values.
func BollingerLatest(candles []models.OHLCV, period int, mult float64) (Band, bool) {
	vals := BollingerBands(candles, period, mult)
	if len(vals) == 0 {
		return Band{}, false
	}
	return vals[len(vals)-1], true
}

// ATR calculates the Average True Range for the given period.
func ATR(candles []models.OHLCV, period int) []float64 {
	if period <= 0 {
		period = 14
	}
	n := len(candles)
	if n < period {
		return nil
	}

	tr := make([]float64, n)
	tr[0] = candles[0].High - candles[0].Low
	for i := 1; i < n; i++ {
		hl := candles[i].High - candles[i].Low
		hc := math.Abs(candles[i].High - candles[i-1].Close)
		lc := math.Abs(candles[i].Low - candles[i-1].Close)
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}

	atr := make([]float64, n)
	atr[period-1] = avg(tr[:period])
	for i := period; i < n; i++ {
		atr[i] = (atr[i-1]*float64(period-1) + tr[i]) / float64(period)
	}

	return atr
}

// Volatility returns the annualized standard deviation of daily log returns.
func Volatility(candles []models.OHLCV) (float64, bool) {
	closes := Closes(candles)
	if len(closes) < 3 {
		return 0, false
	}
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] <= 0 || closes[i] <= 0 {
			continue
		}
		returns = append(returns, math.Log(closes[i]/closes[i-1]))
	}
	if len(returns) < 2 {
		return 0, false
	}
	return stddev(returns, avg(returns)) * math.Sqrt(252), true
}

// --- helper functions ---

// Closes extracts the close series.
func Closes(candles []models.OHLCV) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}
	return closes
}

func avg(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range data {
		sum += v
	}
	return sum / float64(len(data))
}

func stddev(data []float64, mean float64) float64 {
	if len(data) == 0 {
		return 0
	}
	sumSq := 0.0
	for _, v := range data {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(data)))
}

func emaCalc(data []float64, period int) []float64 {
	n := len(data)
	ema := make([]float64, n)
	if n < period || period <= 0 {
		return ema
	}

	// Seed with SMA of first `period` values.
	k := 2.0 / float64(period+1)
	ema[period-1] = avg(data[:period])
	for i := period; i < n; i++ {
		ema[i] = data[i]*k + ema[i-1]*(1-k)
	}

	return ema
}
