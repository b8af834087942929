package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/bitfantasy/mechai/internal/shop/itinerary"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize [file]",
	Short: "Normalize a raw model answer into the canonical itinerary JSON",
	Long: `Reads a model answer from a file, or stdin when no file is given, and
prints the canonical {"steps": [...], "total_cost": n} document. The answer is
not checked against any inventory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runNormalize,
}

func runNormalize(cmd *cobra.Command, args []string) error {
	in := cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	raw, err := io.ReadAll(in)
	if err != nil {
		return fmt.Errorf("read answer: %w", err)
	}

	res, err := itinerary.Normalize(string(raw))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "parsed via %s stage, %s layout, %d steps\n", res.Stage, res.Shape, len(res.Steps))
	return nil
}
