package ui

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/forest-guardian/lulc-change/internal/delivery"
	"github.com/forest-guardian/lulc-change/internal/indices"
	"github.com/forest-guardian/lulc-change/internal/utils"
)

// Runner executes an analysis run.
type Runner func(ctx context.Context, cfg delivery.Config) (*delivery.Report, error)

type menuOption struct {
	title   string
	handler func(ctx context.Context)
}

// Menu is the interactive front end over the analysis pipeline.
type Menu struct {
	cfg     delivery.Config
	console *Console
	run     Runner
}

func NewMenu(cfg delivery.Config, console *Console, run Runner) *Menu {
	return &Menu{cfg: cfg, console: console, run: run}
}

// Show displays the main menu until the user exits or input ends.
func (m *Menu) Show(ctx context.Context) {
	var exit bool
	options := []menuOption{
		{"Run every analysis for the configured years", m.RunAll},
		{"Compute a spectral index for one year", m.ComputeIndex},
		{"Classify land cover for one year", m.Classify},
		{"Extract urban areas for one year", m.ExtractUrban},
		{"Detect change between two years", m.DetectChange},
		{"View the list of available years", func(context.Context) { m.ListYears() }},
		{"Exit the application", func(context.Context) { exit = true }},
	}

	for !exit && ctx.Err() == nil {
		info.Fprintln(m.console.out, "===================")
		for i, opt := range options {
			info.Fprintf(m.console.out, "%d. %s\n", i+1, opt.title)
		}
		choice, err := m.console.ReadInt("Please enter your choice: ", 1, len(options))
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			m.console.PrintError(err.Error())
			continue
		}
		options[choice-1].handler(ctx)
	}
	fmt.Fprintln(m.console.out, "Exiting...")
}

func (m *Menu) selectYear(title string) (string, error) {
	years, err := AvailableYears(m.cfg.DataDir)
	if err != nil {
		return "", err
	}
	return m.console.Select(title, utils.GetSortedKeys(years, true))
}

func (m *Menu) execute(ctx context.Context, cfg delivery.Config) {
	report, err := m.run(ctx, cfg)
	if err != nil {
		m.console.PrintError(err.Error())
		return
	}
	for _, u := range report.Units {
		line := fmt.Sprintf("%s: %s %s", u.Name, u.Status, u.Details)
		switch u.Status {
		case delivery.StatusDone:
			success.Fprintln(m.console.out, line)
		case delivery.StatusSkipped:
			warning.Fprintln(m.console.out, line)
		default:
			failure.Fprintln(m.console.out, line)
		}
	}
	if report.Failed == 0 {
		m.console.PrintSuccess(fmt.Sprintf("Outputs written to %s", cfg.OutputDir))
	}
}

func (m *Menu) RunAll(ctx context.Context) {
	m.execute(ctx, m.cfg)
}

func (m *Menu) single(ctx context.Context, analysis delivery.Analysis, configure func(*delivery.Config)) {
	year, err := m.selectYear("Available years")
	if err != nil {
		m.console.PrintError(err.Error())
		return
	}
	cfg := m.cfg
	cfg.Years = []string{year}
	cfg.Analyses = []delivery.Analysis{analysis}
	if configure != nil {
		configure(&cfg)
	}
	m.execute(ctx, cfg)
}

func (m *Menu) ComputeIndex(ctx context.Context) {
	name, err := m.console.Select("Available indices", indices.Names())
	if err != nil {
		m.console.PrintError(err.Error())
		return
	}
	m.single(ctx, delivery.Index, func(cfg *delivery.Config) { cfg.Indices = []string{name} })
}

func (m *Menu) Classify(ctx context.Context) {
	m.single(ctx, delivery.Classification, nil)
}

func (m *Menu) ExtractUrban(ctx context.Context) {
	m.single(ctx, delivery.Urban, nil)
}

// DetectChange computes NDVI and the classification for both years, then
// compares them.
func (m *Menu) DetectChange(ctx context.Context) {
	earlier, err := m.selectYear("Earlier year")
	if err != nil {
		m.console.PrintError(err.Error())
		return
	}
	later, err := m.selectYear("Later year")
	if err != nil {
		m.console.PrintError(err.Error())
		return
	}
	if earlier == later {
		m.console.PrintError("pick two different years")
		return
	}
	cfg := m.cfg
	cfg.Years = []string{earlier, later}
	cfg.Analyses = []delivery.Analysis{delivery.Index, delivery.Classification, delivery.Change}
	cfg.Indices = []string{"ndvi"}
	m.execute(ctx, cfg)
}
