package trend

import (
	"errors"

	"gonum.org/v1/gonum/stat"

	"CoinDash/internal/domain/models"
	"CoinDash/pkg/util"
)

var (
	ErrInsufficientData = errors.New("trend: at least 2 points required")
	ErrDegenerate       = errors.New("trend: all timestamps are equal")
)

// Horizon is how far past the last point the line is evaluated, in seconds.
const Horizon = util.SecondsPerDay

// Point is one observation: Unix seconds and a value.
type Point struct {
	Time  int64
	Value float64
}

// Prediction is the fitted line evaluated at Target.
type Prediction struct {
	Target    int64
	Value     float64
	Slope     float64
	Intercept float64
	Points    int
}

// Estimate fits value = slope*time + intercept by least squares and evaluates it one
// Horizon after the last point. Points are expected in ascending time order.
func Estimate(points []Point) (Prediction, error) {
	n := len(points)
	if n < 2 {
		return Prediction{}, ErrInsufficientData
	}

	// Center the abscissa; Unix-second times squared lose precision otherwise.
	var tMean float64
	for _, p := range points {
		tMean += float64(p.Time)
	}
	tMean /= float64(n)

	xs := make([]float64, n)
	ys := make([]float64, n)
	spread := false
	for i, p := range points {
		xs[i] = float64(p.Time) - tMean
		ys[i] = p.Value
		spread = spread || p.Time != points[0].Time
	}
	if !spread {
		return Prediction{}, ErrDegenerate
	}

	// alpha is the fitted value at tMean
	alpha, slope := stat.LinearRegression(xs, ys, nil, false)
	target := points[n-1].Time + Horizon

	return Prediction{
		Target:    target,
		Value:     alpha + slope*(float64(target)-tMean),
		Slope:     slope,
		Intercept: alpha - slope*tMean,
		Points:    n,
	}, nil
}

// FromBars turns an OHLC series into (open time, close) points.
func FromBars(bars []models.OhlcBar) []Point {
	points := make([]Point, 0, len(bars))
	for _, b := range bars {
		points = append(points, Point{
			Time:  b.OpenTime.Unix(),
			Value: b.Close.InexactFloat64(),
		})
	}
	return points
}
