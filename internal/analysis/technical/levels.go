package technical

import (
	"github.com/seenimoa/stockqa/pkg/models"
)

// DefaultLevelWindow is the number of recent sessions used for support and
// resistance.
const DefaultLevelWindow = 20

// Levels holds a support and a resistance price.
type Levels struct {
	Support    float64
	Resistance float64
}

// RecentLevels takes support as the lowest low and resistance as the highest
// high over the last window candles.
func RecentLevels(candles []models.OHLCV, window int) (Levels, bool) {
	if window <= 0 {
		window = DefaultLevelWindow
	}
	if len(candles) < window {
		return Levels{}, false
	}

	recent := candles[len(candles)-window:]
	lv := Levels{Support: recent[0].Low, Resistance: recent[0].High}
	for _, c := range recent[1:] {
		if c.Low < lv.Support {
			lv.Support = c.Low
		}
		if c.High > lv.Resistance {
			lv.Resistance = c.High
		}
	}
	return lv, true
}

// PivotLevels calculates classic pivot support (S1) and resistance (R1) from
// the last session.
func PivotLevels(candles []models.OHLCV) (Levels, bool) {
	if len(candles) == 0 {
		return Levels{}, false
	}
	last := candles[len(candles)-1]
	pp := (last.High + last.Low + last.Close) / 3
	return Levels{Support: 2*pp - last.High, Resistance: 2*pp - last.Low}, true
}
