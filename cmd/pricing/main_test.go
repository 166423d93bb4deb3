package main

import (
	"bytes"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"pricingcli/internal/config"
	apierrors "pricingcli/internal/errors"
	"pricingcli/internal/services"
	"pricingcli/internal/shared/testutil"
)

// isolate points the configured root at a temp dir so commands never
// touch the working tree
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(config.EnvPrefix+"_PATHS_ROOT", dir)
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestInspectDB(t *testing.T) {
	dir := isolate(t)
	dbPath := filepath.Join(dir, "projeto.sqlite")

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	for _, stmt := range []string{
		"CREATE TABLE validacoes_cot (po_item TEXT, codigo TEXT)",
		"CREATE TABLE cotacoes_aba (codigo TEXT, descricao TEXT, valor_material REAL)",
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	out, err := execute(t, "inspect-db", "--db", dbPath)
	require.NoError(t, err)

	assert.Contains(t, out, "2 tables")
	assert.Contains(t, out, "cotacoes_aba")
	assert.Contains(t, out, "validacoes_cot")
	assert.Contains(t, out, "valor_material")
	assert.Contains(t, out, "REAL")
}

func TestInspectDBMissing(t *testing.T) {
	dir := isolate(t)

	_, err := execute(t, "inspect-db", "--db", filepath.Join(dir, "nope.sqlite"))
	var appErr *apierrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apierrors.ErrTypeNotFound, appErr.Type)
	assert.Contains(t, err.Error(), "nope.sqlite not found")
}

func TestCalculateOptionsApply(t *testing.T) {
	dir := t.TempDir()

	t.Run("flags override configuration", func(t *testing.T) {
		cfg := config.Default()
		opts := &calculateOptions{
			po:        filepath.Join(dir, "PO.xlsx"),
			out:       "exports",
			maxPasses: 20,
		}
		require.NoError(t, opts.apply(cfg))

		assert.Equal(t, filepath.Join(dir, "PO.xlsx"), cfg.Sources.PO)
		assert.Equal(t, 20, cfg.Engine.MaxPasses)
		assert.Equal(t, config.Default().Sources.SINAPI, cfg.Sources.SINAPI)

		paths, err := config.GetPaths(cfg)
		require.NoError(t, err)
		moved, err := opts.outputs(paths)
		require.NoError(t, err)
		assert.True(t, filepath.IsAbs(moved.OutputDir))
		assert.Equal(t, "exports", filepath.Base(moved.OutputDir))
		assert.Equal(t, filepath.Join(moved.OutputDir, config.ServicesCSV), moved.ServicesCSV)
		assert.Equal(t, paths.DataDir, moved.DataDir)
	})

	t.Run("negative pass cap is rejected", func(t *testing.T) {
		err := (&calculateOptions{maxPasses: -1}).apply(config.Default())
		var appErr *apierrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apierrors.ErrTypeValidation, appErr.Type)
	})

	t.Run("unset flags keep defaults", func(t *testing.T) {
		cfg := config.Default()
		require.NoError(t, (&calculateOptions{}).apply(cfg))
		assert.Equal(t, config.DefaultMaxPasses, cfg.Engine.MaxPasses)
	})

	t.Run("pass cap is validated", func(t *testing.T) {
		cfg := config.Default()
		assert.Error(t, (&calculateOptions{maxPasses: 5000}).apply(cfg))
	})
}

func TestCalculateWithoutBudget(t *testing.T) {
	dir := isolate(t)

	_, err := execute(t, "calculate",
		"--po", filepath.Join(dir, "missing.xlsx"),
		"--out", filepath.Join(dir, "out"),
		"--log-level", "error")

	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrBudgetMissing)
	assert.NoFileExists(t, filepath.Join(dir, "out", config.ServicesCSV))
}

func TestCalculate(t *testing.T) {
	dir := isolate(t)
	testutil.WriteBudgetFixtures(t, dir)
	out := filepath.Join(dir, "out")

	stdout, err := execute(t, "calculate", "--out", out, "--max-passes", "5", "--log-level", "error")
	require.NoError(t, err)

	assert.Contains(t, stdout, "completed")
	assert.Contains(t, stdout, "items: 4")
	assert.Contains(t, stdout, "skipped source: quotations")
	assert.FileExists(t, filepath.Join(out, config.ServicesCSV))
	assert.FileExists(t, filepath.Join(out, config.InsumosCSV))
	assert.FileExists(t, filepath.Join(out, config.ManifestJSON))
}

func TestPrintStatus(t *testing.T) {
	var out bytes.Buffer
	printStatus(&out, &services.RunStatus{
		RunID:   "run-1",
		State:   services.RunStateCompleted,
		Missing: []string{"CDHU"},
	})

	assert.Contains(t, out.String(), "run run-1 completed")
	assert.Contains(t, out.String(), "skipped source: CDHU")
}
