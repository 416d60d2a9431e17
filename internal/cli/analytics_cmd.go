package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/soyeahso/agentdash/internal/dashboard"
	"github.com/soyeahso/agentdash/internal/warehouse"
	"github.com/spf13/cobra"
)

func newAnalyticsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Show analytics sections and run warehouse actions",
	}

	cmd.AddCommand(newAnalyticsShowCmd())
	cmd.AddCommand(newAnalyticsRunCmd())
	return cmd
}

func newAnalyticsShowCmd() *cobra.Command {
	var (
		section   string
		minScore  float64
		retailers []string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the analytics sections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(nil)
			if err != nil {
				return err
			}
			if !cfg.Analytics.Enabled {
				return fmt.Errorf("analytics are disabled (analytics.enabled)")
			}
			a, err := newApp(cmd.Context(), cfg, appOptions{warehouse: true})
			if err != nil {
				return err
			}
			defer a.Close()

			f := defaultFilters(cfg.Analytics)
			if cmd.Flags().Changed("min-score") {
				f.MinScore = minScore
			}
			if cmd.Flags().Changed("retailer") {
				f.Retailers = retailers
			}
			if cmd.Flags().Changed("limit") {
				f.Limit = limit
			}

			result, err := a.renderer.Build(cmd.Context(), f)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if section != "" {
				s, ok := result.Section(section)
				if !ok {
					return fmt.Errorf("unknown section %q", section)
				}
				return printSection(out, s)
			}
			for i, s := range result.Sections {
				if i > 0 {
					fmt.Fprintln(out)
				}
				if err := printSection(out, s); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&section, "section", "", "print one section (metrics, candidates, final_matches, price_comparison, trends)")
	cmd.Flags().Float64Var(&minScore, "min-score", 0, "minimum similarity score")
	cmd.Flags().StringSliceVar(&retailers, "retailer", nil, "restrict to retailers (repeatable)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum rows per table")
	return cmd
}

func printSection(out io.Writer, s dashboard.Section) error {
	fmt.Fprintf(out, "== %s ==\n", s.Title)
	if s.Empty {
		fmt.Fprintln(out, s.Message)
		return nil
	}

	switch s.Kind {
	case dashboard.KindStats:
		for _, st := range s.Stats {
			if st.Note != "" {
				fmt.Fprintf(out, "%s: %s (%s)\n", st.Label, st.Value, st.Note)
			} else {
				fmt.Fprintf(out, "%s: %s\n", st.Label, st.Value)
			}
		}
	case dashboard.KindTable:
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, strings.Join(s.Table.Columns, "\t"))
		for _, row := range s.Table.Rows {
			fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
		return tw.Flush()
	case dashboard.KindChart:
		for _, b := range s.Chart.Bars {
			fmt.Fprintln(out, b.Title)
		}
	}
	return nil
}

func newAnalyticsRunCmd() *cobra.Command {
	var names []string
	for _, p := range warehouse.Procedures {
		names = append(names, p.Action)
	}

	return &cobra.Command{
		Use:       "run <action>",
		Short:     "Run a warehouse action (" + strings.Join(names, ", ") + ")",
		Args:      cobra.ExactArgs(1),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, ok := warehouse.LookupProcedure(args[0]); !ok {
				return fmt.Errorf("unknown action %q (want one of %s)", args[0], strings.Join(names, ", "))
			}
			cfg, err := loadConfig(nil)
			if err != nil {
				return err
			}
			if !cfg.Analytics.Enabled {
				return fmt.Errorf("analytics are disabled (analytics.enabled)")
			}
			a, err := newApp(cmd.Context(), cfg, appOptions{warehouse: true})
			if err != nil {
				return err
			}
			defer a.Close()

			res := a.renderer.RunAction(cmd.Context(), args[0])
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			if !res.OK {
				return fmt.Errorf("action %s failed", args[0])
			}
			return nil
		},
	}
}
