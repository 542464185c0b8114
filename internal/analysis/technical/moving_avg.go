package technical

import (
	"github.com/seenimoa/stockqa/pkg/models"
)

// SMA calculates Simple Moving Average for the given period.
func SMA(data []float64, period int) []float64 {
	n := len(data)
	if n < period || period <= 0 {
		return nil
	}

	result := make([]float64, n)
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += data[i]
	}
	result[period-1] = sum / float64(period)

	for i := period; i < n; i++ {
		sum += data[i] - data[i-period]
		result[i] = sum / float64(period)
	}

	return result
}

// SMALatest returns the most recent SMA value.
func SMALatest(data []float64, period int) (float64, bool) {
	vals := SMA(data, period)
	if len(vals) == 0 {
		return 0, false
	}
	return vals[len(vals)-1], true
}

// VWAP returns the volume-weighted average price over the whole series.
func VWAP(candles []models.OHLCV) (float64, bool) {
	var cumVolume, cumTPV float64
	for _, c := range candles {
		tp := (c.High + c.Low + c.Close) / 3
		vol := float64(c.Volume)
		cumTPV += tp * vol
		cumVolume += vol
	}
	if cumVolume == 0 {
		return 0, false
	}
	return cumTPV / cumVolume, true
}
