package landcover

import (
	"gonum.org/v1/gonum/stat"
)

// Scaler standardizes feature columns to zero mean and unit variance.
type Scaler struct {
	Mean []float64
	Std  []float64
}

// FitScaler computes per-column population statistics. A constant column
// gets a standard deviation of 1 so it maps to all zeros.
func FitScaler(columns [][]float64) *Scaler {
	s := &Scaler{
		Mean: make([]float64, len(columns)),
		Std:  make([]float64, len(columns)),
	}
	for k, col := range columns {
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 {
			std = 1
		}
		s.Mean[k], s.Std[k] = mean, std
	}
	return s
}

// Transform returns one standardized row per sample.
func (s *Scaler) Transform(columns [][]float64) [][]float64 {
	if len(columns) == 0 {
		return nil
	}
	n := len(columns[0])
	rows := make([][]float64, n)
	backing := make([]float64, n*len(columns))
	for i := range rows {
		rows[i] = backing[i*len(columns) : (i+1)*len(columns)]
		for k, col := range columns {
			rows[i][k] = (col[i] - s.Mean[k]) / s.Std[k]
		}
	}
	return rows
}
