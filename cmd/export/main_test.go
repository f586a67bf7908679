package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exportCSV = `Gender,Monthly Income,s1,s2,t1,t2,p1
Female,Under RM100,4,5,3,4,3
Male,Over RM300,2,3,5,5,3
Female,RM100-RM300,5,4,2,3,3
Male,Under RM100,3,2,4,,3
`

const exportYAML = `
source:
  path: %s
constructs:
  - name: Scarcity
    items: [s1, s2]
  - name: Trust
    items: [t1, t2]
  - name: Price
    items: [p1]
pages:
  - name: overview
    title: Overview
    charts:
      - id: gender
        title: Gender
        kind: pie
        field: gender
      - id: trust-by-gender
        title: Trust by gender
        kind: box
        field: Trust
        groupField: gender
      - id: corr
        title: Scarcity and trust
        kind: heatmap
        field: Scarcity
        fieldB: Trust
      - id: flat
        title: Scarcity and price
        kind: heatmap
        field: Scarcity
        fieldB: Price
logging:
  level: error
`

func writeFixture(t *testing.T) (configPath, dataPath string) {
	t.Helper()
	dir := t.TempDir()
	dataPath = filepath.Join(dir, "survey.csv")
	require.NoError(t, os.WriteFile(dataPath, []byte(exportCSV), 0o600))

	configPath = filepath.Join(dir, "config.yaml")
	body := fmt.Sprintf(exportYAML, dataPath)
	require.NoError(t, os.WriteFile(configPath, []byte(body), 0o600))
	return configPath, dataPath
}

func TestRunExport(t *testing.T) {
	configPath, _ := writeFixture(t)
	out := t.TempDir()

	var stdout bytes.Buffer
	err := runExport(context.Background(), exportOptions{configPath: configPath, outDir: out}, &stdout)
	require.NoError(t, err)

	for _, name := range []string{"overview.xlsx", "overview/gender.png", "overview/trust-by-gender.png", "overview/corr.png"} {
		info, err := os.Stat(filepath.Join(out, name))
		require.NoError(t, err, name)
		assert.Positive(t, info.Size(), name)
	}

	// constant price scores have no correlation
	_, err = os.Stat(filepath.Join(out, "overview", "flat.png"))
	assert.True(t, os.IsNotExist(err))
	assert.Contains(t, stdout.String(), "skip  overview/flat")
}

func TestRunExportSkipsFormats(t *testing.T) {
	configPath, _ := writeFixture(t)
	out := t.TempDir()

	err := runExport(context.Background(), exportOptions{configPath: configPath, outDir: out, noPNG: true}, &bytes.Buffer{})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(out, "overview.xlsx"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(out, "overview"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunExportUnknownPage(t *testing.T) {
	configPath, _ := writeFixture(t)

	err := runExport(context.Background(), exportOptions{configPath: configPath, outDir: t.TempDir(), pages: []string{"nope"}}, &bytes.Buffer{})
	assert.ErrorContains(t, err, `failed to render page "nope"`)
}

func TestLoadConfigDataOverride(t *testing.T) {
	configPath, _ := writeFixture(t)

	cfg, err := loadConfig(exportOptions{configPath: configPath, dataPath: "/data/other.csv"})
	require.NoError(t, err)
	assert.Equal(t, "/data/other.csv", cfg.Source.Path)
}
