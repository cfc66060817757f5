package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Big-Life-Lab/cchsflow-sub003/pkg/derive"
	"github.com/Big-Life-Lab/cchsflow-sub003/pkg/missing"
)

func patternsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patterns [name]",
		Short: "List missing-value patterns",
		Long: `List the loaded missing-value patterns, or show the categories of one.

Example:
  harmonize patterns
  harmonize patterns triple_digit_missing
  harmonize patterns --patterns my_patterns.yaml --watch`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			watch, _ := cmd.Flags().GetBool("watch")

			if err := printPatterns(cmd.OutOrStdout(), a.registry, args); err != nil {
				return err
			}
			if !watch && !a.cfg.Watch {
				return nil
			}
			return watchPatterns(cmd, a, args)
		},
	}
	cmd.Flags().Bool("watch", false, "Keep running and reprint when the patterns file changes")
	return cmd
}

func printPatterns(w io.Writer, reg *missing.Registry, args []string) error {
	if len(args) == 1 {
		p, err := reg.Pattern(args[0])
		if err != nil {
			return err
		}
		printPattern(w, p)
		return nil
	}

	names, err := reg.PatternNames()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Patterns (source: %s):\n", reg.Source())
	for _, name := range names {
		p, err := reg.Pattern(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  %-24s %d categories  %s\n", name, len(p.Rules()), p.Description)
	}
	return nil
}

func printPattern(w io.Writer, p *missing.Pattern) {
	fmt.Fprintf(w, "Pattern: %s\n", p.Name)
	if p.Description != "" {
		fmt.Fprintf(w, "  %s\n", p.Description)
	}
	fmt.Fprintf(w, "  %-8s %-16s %-28s %s\n", "priority", "category", "codes", "markers")
	for _, r := range p.Rules() {
		fmt.Fprintf(w, "  %-8d %-16s %-28s %s\n",
			r.Priority, r.Category, formatCodes(r.Codes), strings.Join(r.Markers, ", "))
	}
}

func formatCodes(codes []float64) string {
	if len(codes) == 0 {
		return "-"
	}
	parts := make([]string, len(codes))
	for i, c := range codes {
		parts[i] = strconv.FormatFloat(c, 'f', -1, 64)
	}
	return strings.Join(parts, ", ")
}

func watchPatterns(cmd *cobra.Command, a *app, args []string) error {
	changed := make(chan string, 1)
	a.registry.SetOnChange(func(path string) {
		select {
		case changed <- path:
		default:
		}
	})
	if err := a.registry.Watch(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "\nWatching for changes (Ctrl+C to stop)...")
	ctx := cmd.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case path := <-changed:
			fmt.Fprintf(out, "\n%s changed\n", path)
			if err := printPatterns(out, a.registry, args); err != nil {
				a.logger.Warn("reloading patterns failed", zap.Error(err))
			}
		}
	}
}

func detectCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "detect VARIABLE...",
		Short: "Detect the missing-value pattern of variables",
		Long: `Detect which missing-value pattern governs each variable. The variable
catalogue is consulted first, then the naming rules.

Example:
  harmonize detect HWTGBMI SMK_204 ALW_2A1
  harmonize detect --catalog variables.csv --explain DHH_SEX`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			explain, _ := cmd.Flags().GetBool("explain")
			out := cmd.OutOrStdout()

			if explain {
				for _, v := range args {
					fmt.Fprintln(out, a.detector.Explain(v))
				}
				return nil
			}
			for _, det := range a.detector.DetectAll(args) {
				fmt.Fprintln(out, det.String())
			}
			return nil
		},
	}
	cmd.Flags().Bool("explain", false, "Show how each pattern was chosen")
	return cmd
}

func classifyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify VALUE...",
		Short: "Classify values as present or missing",
		Long: `Classify each value under a missing-value pattern. Values are numbers,
tagged nulls written NA(a) or .a, or NA for an untyped null.

Example:
  harmonize classify -p triple_digit_missing 25.1 996 "NA(b)"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values := missing.ParseValues(args)
			h, err := a.handler(cmd, values)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Pattern: %s (format: %s)\n", h.Pattern().Name, h.Format())
			for i, v := range values {
				c, isMissing := h.Classify(v)
				switch {
				case !isMissing:
					fmt.Fprintf(out, "  %-12s present\n", args[i])
				case c == missing.CategoryUnknown:
					fmt.Fprintf(out, "  %-12s missing (untyped)\n", args[i])
				default:
					fmt.Fprintf(out, "  %-12s missing (%s)\n", args[i], c)
				}
			}
			return nil
		},
	}
	addHandlerFlags(cmd, false)
	return cmd
}

// parseSequences splits each comma-separated argument into values.
func parseSequences(args []string) [][]missing.Value {
	seqs := make([][]missing.Value, len(args))
	for i, arg := range args {
		seqs[i] = missing.ParseValues(strings.Split(arg, ","))
	}
	return seqs
}

func printValues(w io.Writer, values []missing.Value) {
	for _, v := range values {
		fmt.Fprintln(w, v.String())
	}
}

func propagateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "propagate SEQUENCE...",
		Short: "Combine operands and report the propagated missing value",
		Long: `Propagate missing values across operands row by row. Each argument is
one operand given as a comma-separated sequence; single values broadcast.
The highest-priority missing category present in a row wins.

Example:
  harmonize propagate -p triple_digit_missing 1.75,"NA(a)" 70,996
  harmonize propagate -p single_digit_missing --output tagged 9 6`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seqs := parseSequences(args)
			h, err := a.handler(cmd, seqs...)
			if err != nil {
				return err
			}
			out, err := h.PropagateAll(seqs...)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			}
			printValues(cmd.OutOrStdout(), out)
			return nil
		},
	}
	addHandlerFlags(cmd, true)
	return cmd
}

func addBoundsFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("min", 0, "Smallest plausible value")
	cmd.Flags().Float64("max", 0, "Largest plausible value")
	cmd.Flags().Float64Slice("allowed", nil, "Allowed categorical values")
}

func boundsFromFlags(cmd *cobra.Command) missing.Bounds {
	var b missing.Bounds
	if cmd.Flags().Changed("min") {
		lo, _ := cmd.Flags().GetFloat64("min")
		b.Min = &lo
	}
	if cmd.Flags().Changed("max") {
		hi, _ := cmd.Flags().GetFloat64("max")
		b.Max = &hi
	}
	b.Allowed, _ = cmd.Flags().GetFloat64Slice("allowed")
	return b
}

func validateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate VALUE...",
		Short: "Replace implausible values with missing data",
		Long: `Check values against plausibility bounds. Values outside the bounds become
the pattern's lowest-priority missing value; missing values pass through.

Example:
  harmonize validate -p triple_digit_missing --min 15 --max 50 22.5 61 996
  harmonize validate -p single_digit_missing --allowed 1,2 1 3 9`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values := missing.ParseValues(args)
			h, err := a.handler(cmd, values)
			if err != nil {
				return err
			}
			printValues(cmd.OutOrStdout(), h.ValidateAll(values, boundsFromFlags(cmd)))
			return nil
		},
	}
	addHandlerFlags(cmd, true)
	addBoundsFlags(cmd)
	return cmd
}

var deriveOps = map[string]derive.Func{
	"ratio":   derive.Ratio,
	"product": derive.Product,
	"sum":     derive.Sum,
}

func deriveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "derive SEQUENCE...",
		Short: "Compute a derived variable with missing-value propagation",
		Long: `Compute ratio, product or sum row by row over comma-separated operand
sequences. Rows with a missing operand propagate it; computed results outside
the bounds become missing data.

Example:
  harmonize derive -p triple_digit_missing --op ratio --min 0 --max 100 70,996 2,2`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opName, _ := cmd.Flags().GetString("op")
			opName = strings.ToLower(opName)
			fn, ok := deriveOps[opName]
			if !ok {
				return fmt.Errorf("unknown --op %q (want ratio, product or sum)", opName)
			}
			if opName == "ratio" && len(args) != 2 {
				return fmt.Errorf("ratio takes exactly two operands, got %d", len(args))
			}

			seqs := parseSequences(args)
			h, err := a.handler(cmd, seqs...)
			if err != nil {
				return err
			}
			out, err := derive.Apply(h, fn, boundsFromFlags(cmd), seqs...)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
			}
			printValues(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().String("op", "ratio", "Operation: ratio, product or sum")
	addHandlerFlags(cmd, true)
	addBoundsFlags(cmd)
	return cmd
}
