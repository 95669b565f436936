package types

import (
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// Timeframe is one of the fixed windows used for entity signal scoring
type Timeframe string

const (
	Timeframe24h Timeframe = "24h"
	Timeframe7d  Timeframe = "7d"
	Timeframe30d Timeframe = "30d"
)

// AllTimeframes returns all signal scoring timeframes
func AllTimeframes() []Timeframe {
	return []Timeframe{Timeframe24h, Timeframe7d, Timeframe30d}
}

// IsValid checks if the timeframe is valid
func (tf Timeframe) IsValid() bool {
	switch tf {
	case Timeframe24h, Timeframe7d, Timeframe30d:
		return true
	default:
		return false
	}
}

// Duration returns the length of the timeframe window
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case Timeframe24h:
		return 24 * time.Hour
	case Timeframe7d:
		return 7 * 24 * time.Hour
	case Timeframe30d:
		return 30 * 24 * time.Hour
	default:
		return 0
	}
}

// String returns the string representation of the timeframe
func (tf Timeframe) String() string {
	return string(tf)
}

// ParseTimeframe parses a string into a Timeframe
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(s)
	if !tf.IsValid() {
		return "", goerr.New("invalid timeframe", goerr.V("value", s))
	}
	return tf, nil
}
