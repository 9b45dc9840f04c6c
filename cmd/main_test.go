package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forest-guardian/lulc-change/internal/archive"
	"github.com/forest-guardian/lulc-change/internal/delivery"
)

func TestCommandsAreRegistered(t *testing.T) {
	var names []string
	for _, cmd := range rootCmd.Commands() {
		names = append(names, cmd.Name())
	}
	for _, want := range []string{"run", "index", "classify", "change", "transitions", "urban", "stats", "extract-bands", "archive", "menu"} {
		assert.Contains(t, names, want)
	}
}

func TestRunConfigFlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("YEARS", "2019,2020")
	t.Setenv("WINDOW_SIZE", "64")
	t.Setenv("CLUSTERS", "4")

	require.NoError(t, runCmd.ParseFlags([]string{
		"--years", "2021,2025",
		"--analyses", "index,change",
		"--clusters", "6",
		"--threshold", "0",
		"--no-render",
	}))
	cfg, err := runConfig(runCmd)
	require.NoError(t, err)

	assert.Equal(t, []string{"2021", "2025"}, cfg.Years)
	assert.Equal(t, []delivery.Analysis{delivery.Index, delivery.Change}, cfg.Analyses)
	assert.Equal(t, 64, cfg.WindowSize)
	assert.Equal(t, 6, cfg.Classifier.Clusters)
	assert.Equal(t, 0.0, cfg.ChangeThreshold)
	assert.False(t, cfg.Render)
}

func TestOpenArchive(t *testing.T) {
	t.Setenv("ARCHIVE_DIR", t.TempDir())
	ctx := context.Background()

	store, closeStore, err := openArchive(ctx, "file")
	require.NoError(t, err)
	assert.IsType(t, &archive.FileStore{}, store)
	assert.NoError(t, closeStore(ctx))

	store, _, err = openArchive(ctx, "none")
	require.NoError(t, err)
	assert.Nil(t, store)

	t.Setenv("MONGO_URI", "")
	_, _, err = openArchive(ctx, "gridfs")
	assert.ErrorContains(t, err, "MONGO_URI")

	_, _, err = openArchive(ctx, "s3")
	assert.Error(t, err)
}

func TestLabelerFor(t *testing.T) {
	labeler, err := labelerFor("urban")
	require.NoError(t, err)
	assert.Equal(t, "Urban", labeler(1))

	_, err = labelerFor("forest")
	assert.Error(t, err)
}

func TestArgumentValidation(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"change", "only-one.tif"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	assert.Error(t, err)
}

func TestNoBannerRequested(t *testing.T) {
	assert.True(t, noBannerRequested([]string{"run", "--no-banner"}))
	assert.False(t, noBannerRequested([]string{"run"}))
}
