package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"cvbuilder/internal/extract"
	"cvbuilder/internal/sanitize"
)

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

func sanitizeCmd() *cobra.Command {
	var report bool
	cmd := &cobra.Command{
		Use:   "sanitize <file|->",
		Short: "Strip field codes and layout noise from text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			if utf8.RuneCount(data) > sanitize.MaxInputChars {
				return fmt.Errorf("input exceeds %d characters", sanitize.MaxInputChars)
			}
			cleaned, rep := sanitize.Clean(string(data))
			fmt.Fprintln(cmd.OutOrStdout(), cleaned)
			if report {
				return writeReport(cmd, rep)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&report, "report", false, "print rule hits to stderr")
	return cmd
}

func extractCmd() *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Extract plain text from a PDF, DOCX or text file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			text, err := extract.ExtractTextFromBytes(data, "", filepath.Base(args[0]))
			if err != nil {
				return err
			}
			if !raw {
				text, _ = sanitize.Clean(text)
			}
			if text == "" {
				return extract.ErrEmptyText
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "skip sanitizing the extracted text")
	return cmd
}

func writeReport(cmd *cobra.Command, rep sanitize.Report) error {
	enc := json.NewEncoder(cmd.ErrOrStderr())
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}
