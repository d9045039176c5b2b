package main

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mandymgr/KRINS-Chronicle-Keeper-sub001/internal/config"
	"github.com/mandymgr/KRINS-Chronicle-Keeper-sub001/internal/impact"
)

// parseDate accepts a plain date or a full RFC 3339 timestamp.
func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD or RFC 3339)", raw)
	}
	return t, nil
}

// --- record ---

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record an observed impact of a decision",
	Long: `Record an observed impact of a decision.

Examples:
  adrpulse record --decision ADR-012 --category performance --polarity positive \
      --severity high --description "p95 latency halved after the cache rollout"
  adrpulse record --decision ADR-003 --category cost --polarity negative \
      --severity medium --measured 340 --expected 200 --unit usd/month`,
	RunE: func(cmd *cobra.Command, args []string) error {
		decision, _ := cmd.Flags().GetString("decision")
		if decision == "" {
			return fmt.Errorf("--decision is required")
		}
		category, _ := cmd.Flags().GetString("category")
		polarity, _ := cmd.Flags().GetString("polarity")
		severity, _ := cmd.Flags().GetString("severity")
		description, _ := cmd.Flags().GetString("description")
		source, _ := cmd.Flags().GetString("source")
		evidence, _ := cmd.Flags().GetString("evidence")
		unit, _ := cmd.Flags().GetString("unit")

		req := map[string]any{
			"decision_id": decision,
			"category":    category,
			"polarity":    polarity,
			"severity":    severity,
			"description": description,
			"source":      source,
			"evidence":    evidence,
			"unit":        unit,
		}
		if cmd.Flags().Changed("measured") {
			v, _ := cmd.Flags().GetFloat64("measured")
			req["measured_value"] = v
		}
		if cmd.Flags().Changed("expected") {
			v, _ := cmd.Flags().GetFloat64("expected")
			req["expected_value"] = v
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/impacts", req)
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Recorded impact %s for %s", result["id"], decision)
		return nil
	},
}

func init() {
	recordCmd.Flags().String("decision", "", "decision id the impact belongs to")
	recordCmd.Flags().String("category", "", "performance, security, maintainability, scalability, cost or developer_experience")
	recordCmd.Flags().String("polarity", "", "positive, negative or neutral")
	recordCmd.Flags().String("severity", "", "low, medium, high or critical")
	recordCmd.Flags().String("description", "", "what was observed")
	recordCmd.Flags().String("source", "cli", "where the observation came from")
	recordCmd.Flags().String("evidence", "", "pointer to supporting evidence")
	recordCmd.Flags().Float64("measured", 0, "measured value")
	recordCmd.Flags().Float64("expected", 0, "expected value")
	recordCmd.Flags().String("unit", "", "unit for measured/expected values")
}

// --- evaluate ---

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <decision-id>",
	Short: "Compute and store an effectiveness evaluation for a decision",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		dateRaw, _ := cmd.Flags().GetString("date")
		period, _ := cmd.Flags().GetInt("period")

		if dateRaw == "" {
			return fmt.Errorf("--date is required")
		}
		implDate, err := parseDate(dateRaw)
		if err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		req := map[string]any{
			"title":               title,
			"implementation_date": implDate.UTC().Format(time.RFC3339),
			"period_months":       period,
		}
		resp, err := client.post(cmd.Context(), "/decisions/"+url.PathEscape(args[0])+"/evaluate", req)
		if err != nil {
			return err
		}

		var ev impact.EffectivenessEvaluation
		if err := decodeJSON(resp, &ev); err != nil {
			return err
		}

		printSuccess("Evaluated %s", ev.DecisionID)
		printStatus("Rating", "%d/10", ev.OverallRating)
		printStatus("Problems solved", "%d", ev.Metrics.ProblemsSolved)
		printStatus("Problems created", "%d", ev.Metrics.ProblemsCreated)
		printStatus("Maintenance burden", "%s", ev.Metrics.MaintenanceBurden)
		printStatus("Adaptability", "%d/10", ev.Metrics.AdaptabilityScore)
		if ev.Recommendations.ShouldContinue {
			printStatus("Verdict", "keep going")
		} else {
			printStatus("Verdict", "reconsider")
		}
		for _, mod := range ev.Recommendations.SuggestedModifications {
			printStep("%s", mod)
		}
		return nil
	},
}

func init() {
	evaluateCmd.Flags().String("title", "", "human-readable decision title")
	evaluateCmd.Flags().String("date", "", "implementation date (YYYY-MM-DD or RFC 3339)")
	evaluateCmd.Flags().Int("period", impact.DefaultPeriodMonths, "nominal evaluation period in months")
}

// --- analytics ---

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Show aggregate analytics across all tracked decisions",
	RunE: func(cmd *cobra.Command, args []string) error {
		start, _ := cmd.Flags().GetString("start")
		end, _ := cmd.Flags().GetString("end")

		q := url.Values{}
		if start != "" {
			t, err := parseDate(start)
			if err != nil {
				return err
			}
			q.Set("start", t.UTC().Format(time.RFC3339))
		}
		if end != "" {
			t, err := parseDate(end)
			if err != nil {
				return err
			}
			q.Set("end", t.UTC().Format(time.RFC3339))
		}

		path := "/analytics"
		if len(q) > 0 {
			path += "?" + q.Encode()
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), path)
		if err != nil {
			return err
		}

		var a impact.ImpactAnalytics
		if err := decodeJSON(resp, &a); err != nil {
			return err
		}

		printStatus("Decisions tracked", "%d", a.TotalDecisionsTracked)
		printStatus("Impacts recorded", "%d", a.TotalImpacts)
		printStatus("Avg effectiveness", "%.1f/10", a.AverageEffectiveness)
		printStatus("Distribution", "%d positive / %d negative / %d neutral",
			a.ImpactDistribution.Positive, a.ImpactDistribution.Negative, a.ImpactDistribution.Neutral)

		if len(a.TopDecisions) > 0 {
			fmt.Fprintln(os.Stderr)
			printStep("Top decisions")
			for _, d := range a.TopDecisions {
				printStatus(d.DecisionID, "%d/10 %s", d.Rating, d.Title)
			}
		}
		if len(a.ProblematicDecisions) > 0 {
			fmt.Fprintln(os.Stderr)
			printStep("Problematic decisions")
			for _, d := range a.ProblematicDecisions {
				printStatus(d.DecisionID, "%d/10, %d negative impacts", d.Rating, d.NegativeImpacts)
			}
		}
		return nil
	},
}

func init() {
	analyticsCmd.Flags().String("start", "", "lower bound (YYYY-MM-DD or RFC 3339)")
	analyticsCmd.Flags().String("end", "", "upper bound (YYYY-MM-DD or RFC 3339)")
}

// --- timeline ---

var timelineCmd = &cobra.Command{
	Use:   "timeline <decision-id>",
	Short: "Show the chronological impact timeline for a decision",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/decisions/"+url.PathEscape(args[0])+"/timeline")
		if err != nil {
			return err
		}

		var result struct {
			DecisionID string                 `json:"decision_id"`
			Timeline   []impact.TimelineEntry `json:"timeline"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if len(result.Timeline) == 0 {
			fmt.Println("No impacts recorded.")
			return nil
		}

		for _, entry := range result.Timeline {
			trend := string(entry.CumulativeEffect)
			switch entry.CumulativeEffect {
			case impact.TrendImproving:
				trend = colorize(colorGreen, trend)
			case impact.TrendDeteriorating:
				trend = colorize(colorRed, trend)
			}
			desc := entry.Impact.Description
			if len(desc) > 80 {
				desc = desc[:80] + "..."
			}
			fmt.Printf("%s  %-13s %s/%s  %s\n",
				entry.Timestamp.Format("2006-01-02"),
				trend,
				entry.Impact.Category,
				entry.Impact.Polarity,
				desc,
			)
		}
		return nil
	},
}

// --- predict ---

var predictCmd = &cobra.Command{
	Use:   "predict <decision-id>",
	Short: "Project a decision's future effectiveness",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/decisions/"+url.PathEscape(args[0])+"/prediction")
		if err != nil {
			return err
		}

		var p impact.Prediction
		if err := decodeJSON(resp, &p); err != nil {
			return err
		}

		printStatus("Projected", "%d/10", p.ProjectedEffectiveness)
		printStatus("Confidence", "%.0f%%", p.Confidence*100)
		for _, rf := range p.RiskFactors {
			printWarning("%s", rf)
		}
		for _, rec := range p.Recommendations {
			printStep("%s", rec)
		}
		return nil
	},
}

// --- export ---

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the impact log and analytics",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/export?format="+url.QueryEscape(format))
		if err != nil {
			return err
		}

		var result struct {
			Success bool   `json:"success"`
			Format  string `json:"format"`
			Data    string `json:"data"`
			Error   string `json:"error"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		if !result.Success {
			return fmt.Errorf("export failed: %s", result.Error)
		}

		if output == "" {
			fmt.Print(result.Data)
			if !strings.HasSuffix(result.Data, "\n") {
				fmt.Println()
			}
			return nil
		}
		if err := os.WriteFile(output, []byte(result.Data), 0o644); err != nil {
			return fmt.Errorf("writing output file: %w", err)
		}
		printSuccess("Exported %s data to %s", result.Format, output)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("format", "json", "export format: json or csv")
	exportCmd.Flags().String("output", "", "output file path (default: stdout)")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
