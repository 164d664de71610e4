// Command ranking prints the ranked candidates of a job as a terminal table.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/sirupsen/logrus"

	"scorecard-engine/application"
	"scorecard-engine/config"
	"scorecard-engine/domain"
	"scorecard-engine/infrastructure"
	"scorecard-engine/scoring"
)

func main() {
	jobID := flag.Uint("job", 0, "job id to rank")
	anonymize := flag.Bool("anonymize", false, "replace names with positional labels")
	flag.Parse()

	if *jobID == 0 {
		color.Red("-job is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		color.Red("Failed to load configuration: %v", err)
		os.Exit(1)
	}

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	log := infrastructure.WithModule(logger, "ranking")

	store, err := infrastructure.OpenStore(cfg, log)
	if err != nil {
		color.Red("Failed to open store: %v", err)
		os.Exit(1)
	}
	svc := application.NewService(application.Deps{
		Store:  store,
		Logger: log,
		Policy: cfg.Policy.Policy,
	})

	ctx := context.Background()
	job, err := svc.Job(ctx, uint(*jobID))
	if err != nil {
		color.Red("Failed to load job %d: %v", *jobID, err)
		os.Exit(1)
	}
	ranking, err := svc.Compare(ctx, job.ID, *anonymize)
	if err != nil {
		color.Red("Failed to rank job %d: %v", *jobID, err)
		os.Exit(1)
	}

	render(os.Stdout, *job, ranking)
}

func render(w io.Writer, job domain.Job, ranking scoring.Ranking) {
	color.New(color.FgCyan, color.Bold).Fprintf(w, "\n=== %s ===\n", job.Title)

	if len(ranking.Candidates) == 0 {
		color.New(color.FgYellow).Fprintln(w, "No completed scorecards for this job.")
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Rank", "Candidate", "Score", "Evaluators", "Top Criteria", "Confidence"})
	for _, c := range ranking.Candidates {
		top := make([]string, len(c.TopCriteria))
		for i, t := range c.TopCriteria {
			top[i] = fmt.Sprintf("%s %.1f", t.Criterion, t.Average)
		}
		confidence := "ok"
		if c.LowConfidence {
			confidence = "low"
		}
		table.Append([]string{
			fmt.Sprintf("%d", c.Rank),
			c.CandidateName,
			fmt.Sprintf("%.1f", c.TotalScoreAvg),
			fmt.Sprintf("%d", c.EvaluatorsCount),
			strings.Join(top, ", "),
			confidence,
		})
	}
	table.Render()

	if s := ranking.Stats; s != nil {
		color.New(color.FgYellow).Fprintln(w, "\nStatistics")
		stats := tablewriter.NewWriter(w)
		stats.SetHeader([]string{"Candidates", "Average", "Top", "Low"})
		stats.Append([]string{
			fmt.Sprintf("%d", s.TotalCandidates),
			fmt.Sprintf("%.0f", s.AverageScore),
			fmt.Sprintf("%.1f", s.TopScore),
			fmt.Sprintf("%.1f", s.LowScore),
		})
		stats.Render()
	}
}
