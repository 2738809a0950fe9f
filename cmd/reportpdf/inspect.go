package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/porticus-lab/reportpdf"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.pdf>",
	Short: "Validate a PDF and print its page sizes",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	info, err := reportpdf.Inspect(data)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	color.New(color.Bold).Fprintf(out, "%s\n", args[0])
	fmt.Fprintf(out, "  Size:  %d bytes\n", info.Size)
	if info.Title != "" {
		fmt.Fprintf(out, "  Title: %s\n", info.Title)
	}
	fmt.Fprintf(out, "  Pages: %d\n", info.Pages)
	for i, d := range info.Dims {
		fmt.Fprintf(out, "  %4d  %.2f x %.2f pt\n", i+1, d.Width, d.Height)
	}
	return nil
}
