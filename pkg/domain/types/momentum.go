package types

import "github.com/m-mizutani/goerr/v2"

// Momentum represents the short-term trend in a narrative's publication rate
type Momentum string

const (
	MomentumGrowing   Momentum = "growing"
	MomentumDeclining Momentum = "declining"
	MomentumStable    Momentum = "stable"
	MomentumUnknown   Momentum = "unknown"
)

// IsValid checks if the momentum value is valid
func (m Momentum) IsValid() bool {
	switch m {
	case MomentumGrowing, MomentumDeclining, MomentumStable, MomentumUnknown:
		return true
	default:
		return false
	}
}

// String returns the string representation of the momentum
func (m Momentum) String() string {
	return string(m)
}

// ParseMomentum parses a string into a Momentum
func ParseMomentum(s string) (Momentum, error) {
	m := Momentum(s)
	if !m.IsValid() {
		return "", goerr.New("invalid momentum", goerr.V("value", s))
	}
	return m, nil
}
