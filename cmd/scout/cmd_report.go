package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/prospect-labs/scout/internal/config"
	"github.com/prospect-labs/scout/internal/domain"
	"github.com/prospect-labs/scout/internal/engine"
	"github.com/prospect-labs/scout/internal/store"
)

var reportFlags struct {
	categories string
	jsonOut    bool
}

var reportCmd = &cobra.Command{
	Use:   "report <session-id>",
	Short: "Print the opportunity report for an archived session",
	Long: `Load an archived discovery session from the database and print its
opportunity report. Requires DATABASE_URL.`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	f := reportCmd.Flags()
	f.StringVar(&reportFlags.categories, "categories", "", "Path to a YAML category value table")
	f.BoolVar(&reportFlags.jsonOut, "json", false, "Print the full report as JSON")
}

func runReport(cmd *cobra.Command, args []string) error {
	sessionID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid session id: %w", err)
	}

	if err := config.Load(); err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	dbURL := config.DatabaseURL()
	if dbURL == "" {
		return fmt.Errorf("DATABASE_URL is required for report lookup")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	session, err := store.NewSessionStore(pool).GetByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	table := domain.DefaultCategoryTable()
	if path := reportFlags.categories; path != "" {
		table, err = domain.LoadCategoryTable(path)
		if err != nil {
			return fmt.Errorf("category table: %w", err)
		}
	}

	report := engine.BuildReport(session, table)

	if reportFlags.jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	printReport(os.Stdout, session, report)
	return nil
}

func printReport(w io.Writer, session *domain.Session, report domain.OpportunityReport) {
	fmt.Fprintf(w, "entity:     %s\n", report.EntityID)
	fmt.Fprintf(w, "session:    %s\n", report.SessionID)
	fmt.Fprintf(w, "terminated: %s after %d passes\n", report.Reason, len(session.Passes))
	fmt.Fprintf(w, "confidence: %.2f (%s)\n", report.Confidence, domain.ActionForConfidence(report.Confidence))
	fmt.Fprintln(w)

	if len(report.Opportunities) == 0 {
		fmt.Fprintln(w, "no opportunities surfaced")
		return
	}

	fmt.Fprintf(w, "%d opportunities, estimated value $%.0f\n", len(report.Opportunities), report.TotalEstimatedValue)
	fmt.Fprintln(w, strings.Repeat("-", 60))
	for i, opp := range report.Opportunities {
		fmt.Fprintf(w, "%2d. [%s] %s\n", i+1, opp.Category, opp.Claim)
		fmt.Fprintf(w, "    confidence %.2f | evidence %d | est. $%.0f | %s\n",
			opp.Confidence, opp.EvidenceCount, opp.EstimatedValue, opp.Action)
	}
}
