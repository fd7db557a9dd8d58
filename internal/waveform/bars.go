package waveform

import "math/rand/v2"

const (
	BarCount      = 32
	MinBarPercent = 10
	MaxBarPercent = 100
)

// Bar is one decorative waveform bar.
type Bar struct {
	HeightPercent float64
	DelaySeconds  float64
}

// Bars produces n decorative bars with random heights in
// [MinBarPercent, MaxBarPercent) and a staggered 0.1s animation delay.
// A nil rnd uses the global source.
func Bars(n int, rnd *rand.Rand) []Bar {
	if n <= 0 {
		return nil
	}
	float := rand.Float64
	if rnd != nil {
		float = rnd.Float64
	}

	bars := make([]Bar, n)
	for i := range bars {
		bars[i] = Bar{
			HeightPercent: MinBarPercent + float()*(MaxBarPercent-MinBarPercent),
			DelaySeconds:  float64(i) * 0.1,
		}
	}
	return bars
}
