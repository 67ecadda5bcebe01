package display

// Tier is the color classification of a utilization percentage.
type Tier int

const (
	Neutral Tier = iota
	Green
	Yellow
	Red
)

func (t Tier) String() string {
	switch t {
	case Green:
		return "green"
	case Yellow:
		return "yellow"
	case Red:
		return "red"
	default:
		return "neutral"
	}
}

func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ColorTier classifies pct: above 80 is red, 50 through 80 is yellow,
// anything lower is green.
func ColorTier(pct float64) Tier {
	switch {
	case pct > 80:
		return Red
	case pct >= 50:
		return Yellow
	default:
		return Green
	}
}
