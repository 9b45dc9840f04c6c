package delivery

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/forest-guardian/lulc-change/internal/notification"
)

type Status string

const (
	StatusDone    Status = "done"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// UnitResult is the outcome of one unit of work.
type UnitResult struct {
	Name     string   `csv:"unit"`
	Analysis Analysis `csv:"analysis"`
	Year     string   `csv:"year"`
	Status   Status   `csv:"status"`
	Details  string   `csv:"details"`
	Seconds  float64  `csv:"seconds"`
	Outputs  []string `csv:"-"`
	Err      error    `csv:"-"`
	// Warning is set when the unit finished with a degraded result, such as
	// a clustering that did not converge.
	Warning error `csv:"-"`
}

type Report struct {
	Units   []*UnitResult
	Failed  int
	Skipped int
}

func (r *Report) add(u *UnitResult) {
	r.Units = append(r.Units, u)
	switch u.Status {
	case StatusFailed:
		r.Failed++
	case StatusSkipped:
		r.Skipped++
	}
}

// Unit returns the result of the named unit.
func (r *Report) Unit(name string) (*UnitResult, bool) {
	for _, u := range r.Units {
		if u.Name == name {
			return u, true
		}
	}
	return nil, false
}

// Err joins the errors of every failed unit.
func (r *Report) Err() error {
	var errs []error
	for _, u := range r.Units {
		if u.Status == StatusFailed && u.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", u.Name, u.Err))
		}
	}
	return errors.Join(errs...)
}

// SaveCSV writes one row per unit.
func (r *Report) SaveCSV(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return fmt.Errorf("failed to create report folder: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()
	if err := gocsv.MarshalFile(&r.Units, file); err != nil {
		return fmt.Errorf("failed to write run report: %w", err)
	}
	return nil
}

func (r *Report) notify(title string) error {
	units := make([]notification.UnitReport, 0, len(r.Units))
	for _, u := range r.Units {
		units = append(units, notification.UnitReport{
			Name:    u.Name,
			Status:  string(u.Status),
			Details: u.Details,
		})
	}
	return notification.SendRunSummary(title, units, r.Failed, r.Skipped)
}
