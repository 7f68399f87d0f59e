package stats

import "gonum.org/v1/gonum/stat/distuv"

var (
	Z95 = ZVal(95)
	Z98 = ZVal(98)
	Z99 = ZVal(99)
)

// ZVal is the two-tailed z-value for a confidence level given in percent.
func ZVal(confidence float64) float64 {
	dist := distuv.UnitNormal
	return dist.Quantile((1 + confidence/100) / 2)
}
