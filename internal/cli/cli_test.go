package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/aimd54/engagement-engine/internal/config"
	"github.com/aimd54/engagement-engine/internal/service/analytics"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	content := `
database:
  driver: sqlite
  sqlite:
    path: ` + filepath.Join(dir, "engagement.db") + `
logging:
  level: error
  output: stderr
achievements:
  - id: first-steps
    title: First Steps
    description: Visit 2 pages
    points: 10
    max_progress: 2
    rarity: common
`
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCatalogCommand(t *testing.T) {
	out, err := run(t, "catalog", "--config", writeConfig(t))
	require.NoError(t, err)

	var parsed struct {
		Achievements []config.AchievementConfig `yaml:"achievements"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(out), &parsed))
	require.Len(t, parsed.Achievements, 1)
	assert.Equal(t, "first-steps", parsed.Achievements[0].ID)
	assert.Equal(t, 2, parsed.Achievements[0].MaxProgress)
}

func TestReportCommand_JSON(t *testing.T) {
	out, err := run(t, "report", "--config", writeConfig(t), "--period", "all", "--format", "json")
	require.NoError(t, err)

	var r analytics.Report
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, "all", r.Period)
	assert.Equal(t, 0, r.PageViews)
}

func TestReportCommand_CSV(t *testing.T) {
	out, err := run(t, "report", "--config", writeConfig(t), "--period", "7d", "--format", "csv")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Metric,Value\n"))
	assert.Contains(t, out, "Period,7d\n")
}

func TestReportCommand_InvalidFlags(t *testing.T) {
	_, err := run(t, "report", "--config", writeConfig(t), "--period", "7d", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported format")

	_, err = run(t, "report", "--config", writeConfig(t), "--period", "2w", "--format", "json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid period")
}

func TestPruneCommand(t *testing.T) {
	out, err := run(t, "prune", "--config", writeConfig(t))
	require.NoError(t, err)
	assert.Contains(t, out, "Pruned 0 records older than 26 months (0 remaining)")
}
