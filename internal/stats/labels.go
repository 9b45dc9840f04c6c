package stats

import (
	"fmt"

	"github.com/forest-guardian/lulc-change/internal/change"
	"github.com/forest-guardian/lulc-change/internal/urban"
)

func ChangeLabels(v float64) string {
	return change.Class(v).String()
}

func UrbanLabels(v float64) string {
	if name := urban.ClassName(int(v)); name != "" {
		return name
	}
	return fmt.Sprintf("Class %d", int(v))
}

func ClusterLabels(v float64) string {
	if v == 0 {
		return "unclassified"
	}
	return fmt.Sprintf("cluster %d", int(v))
}

func TransitionLabels(v float64) string {
	if v == change.Changed {
		return "changed"
	}
	return "same"
}
