package cli

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aimd54/engagement-engine/internal/config"
)

func init() {
	rootCmd.AddCommand(catalogCmd)
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Print the effective achievement catalog as YAML",
	Long: `Print the achievement catalog the engine would load, in the same shape as the
achievements section of the config file. Useful as a starting point for customizing it.`,
	RunE: runCatalog,
}

func runCatalog(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	defer enc.Close()

	return enc.Encode(struct {
		Achievements []config.AchievementConfig `yaml:"achievements"`
	}{cfg.Achievements})
}
