package cmd

import (
	"fmt"

	"github.com/Justype/perfbench/internal/config"
	"github.com/Justype/perfbench/internal/efficiency"
	"github.com/Justype/perfbench/internal/utils"
	"github.com/spf13/cobra"
)

var platformsCmd = &cobra.Command{
	Use:   "platforms",
	Short: "List platforms with a known core formula",
	Long: `List the platform names accepted in platform_config.yaml and how each one
turns a node count into a core count. n is the node count, m the master-core
count set by MASTER_CORES in a Sunway script.

platform_config.yaml is searched in:
  1. --platform-config / platform_config in config.yaml
  2. ~/.perfbench/platform_config.yaml
  3. /etc/perfbench/platform_config.yaml
  4. the directory of the perfbench executable`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		active := config.DefaultPlatformName
		if platform, err := config.LoadPlatform(config.Global.PlatformConfig); err == nil {
			active = platform.PlatformName
		}

		fmt.Println(utils.StyleTitle("Platforms:"))
		for _, name := range efficiency.Platforms() {
			f, _ := efficiency.FormulaFor(name)
			marker := "  "
			if name == active {
				marker = utils.StyleSuccess("* ")
			}
			fmt.Printf("  %s%-14s %s\n", marker, name, f.Describe())
		}
	},
}

func init() {
	rootCmd.AddCommand(platformsCmd)
}
