package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const planCSV = "Startdatum;Titel;Standortnamen;Mitwirkender;Gemeinden\n" +
	"08.06.2025 10:00;Gottesdienst;Albersdorf, St. Remigius Kirche;Pastor Keppel;KG Albersdorf\n" +
	"01.06.2025 09:30;Gottesdienst mit Abendmahl;Büsum, St. Clemens-Kirche;Pastorin Ulrike Verwold;KG Büsum\n" +
	";Gottesdienst;Heide;;\n"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestRunFormatsInputToStdout(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "plan.csv", planCSV)

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--config", filepath.Join(dir, "gdformat.yaml"), "--input", in}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())

	assert.Equal(t, "Sonntag, 1. Juni:\n"+
		"Büsum, St. Clemens-Kirche: 9.30 Uhr, Gd. m. A., Pn. Verwold\n"+
		"\n"+
		"Sonntag, 8. Juni:\n"+
		"Albersdorf, St. Remigius Kirche: 10 Uhr, Gd., P. Keppel\n", stdout.String())
	assert.Contains(t, stderr.String(), "1 Zeile(n) übersprungen")
	assert.Contains(t, stderr.String(), "plan.csv Zeile 4 (Gottesdienst): missing start")

	_, err := os.Stat(filepath.Join(dir, "gdformat.yaml"))
	assert.NoError(t, err, "first run writes a default config")
}

func TestRunWritesOutputFile(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "plan.csv", planCSV)
	out := filepath.Join(dir, "out", "gottesdienste.txt")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--config", filepath.Join(dir, "c.yaml"), "-i", in, "-o", out}, &stdout, &stderr)
	require.Equal(t, exitOK, code)
	assert.Empty(t, stdout.String())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Pn. Verwold")
}

func TestRunFullNameStyleFromConfig(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "plan.csv", planCSV)
	cfg := writeFile(t, dir, "c.yaml", "name_style: full\n")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--config", cfg, "--input", in}, &stdout, &stderr)
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout.String(), "Gd. m. A., Pn. Ulrike Verwold")
}

func TestRunUsesDefaultsWhenConfigUnwritable(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "plan.csv", planCSV)
	// The config dir is a dangling symlink: reading finds no file, creating it fails.
	cfgDir := filepath.Join(dir, "cfg")
	require.NoError(t, os.Symlink(filepath.Join(dir, "missing"), cfgDir))

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--config", filepath.Join(cfgDir, "c.yaml"), "--input", in}, &stdout, &stderr)
	require.Equal(t, exitOK, code, stderr.String())
	assert.Contains(t, stdout.String(), "Pn. Verwold")

	code = run(context.Background(), []string{"--config", filepath.Join(cfgDir, "c.yaml"), "--serve"}, &stdout, &stderr)
	assert.Equal(t, exitError, code)
}

func TestRunNothingToFormat(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "plan.csv", "Startdatum;Titel;Standortnamen;Mitwirkender;Gemeinden\n;Gottesdienst;Heide;;\n")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--config", filepath.Join(dir, "c.yaml"), "--input", in}, &stdout, &stderr)
	assert.Equal(t, exitNothing, code)
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "keine gültigen Gottesdienste")
}

func TestRunMissingColumns(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "plan.csv", "Startdatum;Titel\n01.06.2025 09:30;Gottesdienst\n")

	var stdout, stderr bytes.Buffer
	code := run(context.Background(), []string{"--config", filepath.Join(dir, "c.yaml"), "--input", in}, &stdout, &stderr)
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr.String(), "Fehlende Spalten")
}

func TestOptionValidation(t *testing.T) {
	cases := map[string][]string{
		"no mode":            {},
		"two modes":          {"--input", "a.csv", "--serve"},
		"month w/o source":   {"--input", "a.csv", "--month", "2025-06"},
		"org w/o churchdesk": {"--ics", "--org", "2729"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			opts, err := parseArgs(args)
			require.NoError(t, err)
			require.NotNil(t, opts)
			assert.Error(t, opts.validate())
		})
	}

	opts, err := parseArgs([]string{"--churchdesk", "--month", "2025-06", "--org", "2729", "--org", "6572"})
	require.NoError(t, err)
	require.NoError(t, opts.validate())
	assert.Equal(t, []int{2729, 6572}, opts.Orgs)

	var stdout, stderr bytes.Buffer
	assert.Equal(t, exitUsage, run(context.Background(), nil, &stdout, &stderr))
}
