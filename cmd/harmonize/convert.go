package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Big-Life-Lab/cchsflow-sub003/pkg/missing"
)

func convertCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert FILE",
		Short: "Convert sentinel codes in a CSV column to tagged nulls",
		Long: `Rewrite one column of a CSV file so that raw sentinel codes become tagged
nulls (e.g. 996 -> NA(a)). Other cells are copied unchanged. The pattern is
detected from the column name unless --pattern is given. Use - to read stdin.

Example:
  harmonize convert --column HWTGBMI data.csv
  harmonize convert --column SMK_204 -p triple_digit_missing --out tagged.csv data.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			column, _ := cmd.Flags().GetString("column")
			explicit, _ := cmd.Flags().GetString("pattern")
			outPath, _ := cmd.Flags().GetString("out")

			name, err := a.detector.Resolve(column, explicit, "")
			if err != nil {
				return err
			}

			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", args[0], err)
				}
				defer f.Close()
				in = f
			}

			out := cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", outPath, err)
				}
				defer f.Close()
				out = f
			}

			n, err := convertColumn(in, out, column, func(values []missing.Value) ([]missing.Value, error) {
				return missing.ToTagged(a.registry, name, values)
			})
			if err != nil {
				return err
			}
			a.logger.Info("converted column",
				zap.String("column", column),
				zap.String("pattern", name),
				zap.Int("cells", n))
			return nil
		},
	}
	cmd.Flags().String("column", "", "Column to convert (required)")
	cmd.Flags().StringP("pattern", "p", "", "Missing-value pattern (detected from the column name when omitted)")
	cmd.Flags().StringP("out", "o", "", "Output file (default stdout)")
	_ = cmd.MarkFlagRequired("column")
	return cmd
}

// convertColumn copies CSV from r to w, passing the named column through
// conv. Only cells that conv turns into tagged nulls are rewritten. It
// returns the number of rewritten cells.
func convertColumn(r io.Reader, w io.Writer, column string, conv func([]missing.Value) ([]missing.Value, error)) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return 0, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) == 0 {
		return 0, fmt.Errorf("CSV input is empty")
	}

	idx := -1
	for i, h := range records[0] {
		if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")), column) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, fmt.Errorf("column %q not found in CSV header", column)
	}

	rows := records[1:]
	cells := make([]string, len(rows))
	for i, row := range rows {
		if idx < len(row) {
			cells[i] = row[idx]
		}
	}
	original := missing.ParseValues(cells)
	converted, err := conv(original)
	if err != nil {
		return 0, err
	}

	n := 0
	for i, v := range converted {
		if v.IsTagged() && !original[i].IsTagged() && idx < len(rows[i]) {
			rows[i][idx] = v.String()
			n++
		}
	}

	writer := csv.NewWriter(w)
	if err := writer.WriteAll(records); err != nil {
		return 0, fmt.Errorf("failed to write CSV: %w", err)
	}
	return n, nil
}
