package candles

import "github.com/Muhsin-Gun/aurora/pkg/models"

// Interval bucket sizes for display re-aggregation, in milliseconds.
const (
	OneMinuteMs     = 60 * 1000
	FiveMinuteMs    = 5 * 60 * 1000
	FifteenMinuteMs = 15 * 60 * 1000
	OneHourMs       = 60 * 60 * 1000
	FourHourMs      = 4 * 60 * 60 * 1000
	OneDayMs        = 24 * 60 * 60 * 1000
)

// IntervalMs maps a display interval label to its bucket size. Unknown
// labels return 0.
func IntervalMs(interval string) int64 {
	switch interval {
	case "1m":
		return OneMinuteMs
	case "5m":
		return FiveMinuteMs
	case "15m":
		return FifteenMinuteMs
	case "1h":
		return OneHourMs
	case "4h":
		return FourHourMs
	case "1d":
		return OneDayMs
	default:
		return 0
	}
}

// Aggregate rolls time-ordered one-minute candles up into a coarser
// interval. This is a display-level view; the underlying fold stays at
// one-minute buckets.
func Aggregate(oneMin []models.Candle, intervalMs int64) []models.Candle {
	if intervalMs <= 0 {
		return nil
	}

	var result []models.Candle
	var current *models.Candle

	for _, c := range oneMin {
		bucket := (c.Time / intervalMs) * intervalMs

		if current == nil || current.Time != bucket {
			if current != nil {
				result = append(result, *current)
			}
			current = &models.Candle{
				Time:   bucket,
				Open:   c.Open,
				High:   c.High,
				Low:    c.Low,
				Close:  c.Close,
				Volume: c.Volume,
			}
			continue
		}

		if c.High > current.High {
			current.High = c.High
		}
		if c.Low < current.Low {
			current.Low = c.Low
		}
		current.Close = c.Close
		current.Volume += c.Volume
	}

	if current != nil {
		result = append(result, *current)
	}
	return result
}
