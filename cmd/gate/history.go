package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fekuna/omnipos-catalog-gate/config"
	"github.com/fekuna/omnipos-catalog-gate/internal/model"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func runsCmd() *cobra.Command {
	var limit int
	var runID string
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show recent runs, or the product outcomes of one run",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.LoadEnv()
			ledgerRepo, err := openLedger(cmd.Context(), cfg.Ledger)
			if err != nil {
				return err
			}
			defer ledgerRepo.Close()

			if runID != "" {
				outcomes, err := ledgerRepo.Outcomes(cmd.Context(), runID)
				if err != nil {
					return err
				}
				renderOutcomes(cmd.OutOrStdout(), outcomes)
				return nil
			}
			runs, err := ledgerRepo.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			renderRuns(cmd.OutOrStdout(), runs)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to show")
	cmd.Flags().StringVar(&runID, "run", "", "run id to show product outcomes for")
	return cmd
}

func tenantsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tenants",
		Short: "List the built-in tenant profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Tenant", "Tax metafield", "Tax codes", "Regional catalog", "Main item handshake"})
			for _, name := range config.BuiltinTenants() {
				tenant, err := config.LoadTenant(name, "")
				if err != nil {
					return err
				}
				t.AppendRow(table.Row{name, tenant.Metafields.TaxRate, len(tenant.TaxCodes), tenant.RegionalCatalog, tenant.Rules.MainItemHandshake})
			}
			t.Render()
			return nil
		},
	}
}

func renderRuns(w io.Writer, runs []model.Run) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Run", "Tenant", "Status", "Started", "Duration", "Checked", "Passed", "Failed", "Errored", "API calls", "Throttled"})
	for _, r := range runs {
		duration := "-"
		if r.FinishedAt != nil {
			duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
		}
		t.AppendRow(table.Row{
			r.ID, r.Tenant, r.Status, r.StartedAt.Format(time.RFC3339), duration,
			r.Checked, r.Passed, r.Failed, r.Errored, r.APICalls, r.Throttled,
		})
	}
	t.Render()
}

func renderOutcomes(w io.Writer, outcomes []model.ProductOutcome) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Product", "Title", "Status", "Verdict", "Labels before", "Labels after", "Error"})
	for _, o := range outcomes {
		status := string(o.StatusBefore)
		if o.StatusAfter != o.StatusBefore {
			status = fmt.Sprintf("%s -> %s", o.StatusBefore, o.StatusAfter)
		}
		verdict := string(o.Verdict)
		if verdict == "" {
			verdict = "-"
		}
		t.AppendRow(table.Row{
			o.ProductID, o.Title, status, verdict,
			strings.Join(o.LabelsBefore, ", "), strings.Join(o.LabelsAfter, ", "), o.Error,
		})
	}
	t.Render()
}
