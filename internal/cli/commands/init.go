package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/pcrbatch/internal/cli/config"
	"github.com/leapstack-labs/pcrbatch/internal/loader"
)

// ExampleBatchFile is the sample batch written by init.
const ExampleBatchFile = "batch.example.yaml"

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a pcrbatch.yaml and an example batch file",
		Long: `Initialize a directory for pcrbatch.

This creates:
  - pcrbatch.yaml with the default configuration
  - batch.example.yaml with a few sample reactions`,
		Example: `  # Initialize in current directory
  pcrbatch init

  # Initialize in a new directory
  pcrbatch init bench-2

  # Force overwrite existing files
  pcrbatch init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runInit(NewCommandContext(cmd), dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")

	return cmd
}

func runInit(cc *CommandContext, dir string, force bool) error {
	r := cc.Renderer

	if dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(dir, config.ConfigFileName)
	batchPath := filepath.Join(dir, ExampleBatchFile)
	if !force {
		for _, p := range []string{configPath, batchPath} {
			if _, err := os.Stat(p); err == nil {
				return fmt.Errorf("%s already exists. Use --force to overwrite", p)
			}
		}
	}

	if err := writeYAML(configPath, config.Default()); err != nil {
		return err
	}
	if err := writeYAML(batchPath, exampleBatch()); err != nil {
		return err
	}

	r.Success("created " + configPath)
	r.Success("created " + batchPath)
	r.Println("")
	r.Println("Next steps:")
	r.Println("  1. List your reactions in a batch file like " + ExampleBatchFile)
	r.Println("  2. Run 'pcrbatch plan " + ExampleBatchFile + "' to batch them onto thermocyclers")
	r.Println("  3. Run 'pcrbatch failures' to see requests to resubmit")
	return nil
}

func writeYAML(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func exampleBatch() loader.File {
	length := func(n int) *int { return &n }
	temp := func(v float64) *float64 { return &v }
	return loader.File{Requests: []loader.Entry{
		{ID: "pcr-001", Length: length(2000), ForwardAnneal: temp(60.0), ReverseAnneal: temp(61.5)},
		{ID: "pcr-002", Length: length(1800), ForwardAnneal: temp(62.0), ReverseAnneal: temp(60.2)},
		{ID: "pcr-003", Length: length(4000), AnnealTemperature: temp(65.0)},
		{ID: "pcr-004", Length: length(900), AnnealTemperature: temp(58.0), MissingPrimer: true},
	}}
}
