package infrastructure

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"scorecard-engine/domain"
	"scorecard-engine/scoring"
)

var titleCaser = cases.Title(language.Und)

// CategoryLabel turns a category key such as "hard_skills" into "Hard Skills".
func CategoryLabel(c scoring.Category) string {
	return titleCaser.String(strings.ReplaceAll(string(c), "_", " "))
}

// Workbook sheet names.
const (
	summarySheet    = "Summary"
	candidatesSheet = "Ranked Candidates"
	criteriaSheet   = "Criteria"
)

// WriteRankingWorkbook writes a job's ranking as an xlsx workbook to w.
func WriteRankingWorkbook(w io.Writer, job domain.Job, ranking scoring.Ranking, generatedAt time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return err
	}
	for _, name := range []string{candidatesSheet, criteriaSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return err
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}

	if err := writeSummarySheet(f, headerStyle, job, ranking, generatedAt); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}
	if err := writeCandidatesSheet(f, headerStyle, ranking); err != nil {
		return fmt.Errorf("failed to create ranked candidates sheet: %w", err)
	}
	if err := writeCriteriaSheet(f, headerStyle, ranking); err != nil {
		return fmt.Errorf("failed to create criteria sheet: %w", err)
	}

	return f.Write(w)
}

func writeSummarySheet(f *excelize.File, header int, job domain.Job, ranking scoring.Ranking, generatedAt time.Time) error {
	f.SetColWidth(summarySheet, "A", "A", 25)
	f.SetColWidth(summarySheet, "B", "B", 40)

	rows := [][]any{
		{"Job", job.Title},
		{"Generated", generatedAt.Format("2006-01-02 15:04:05")},
		{"Total Candidates", len(ranking.Candidates)},
	}
	if s := ranking.Stats; s != nil {
		rows = append(rows,
			[]any{"Average Score", s.AverageScore},
			[]any{"Top Score", s.TopScore},
			[]any{"Low Score", s.LowScore},
		)
	}

	if err := f.SetSheetRow(summarySheet, "A1", &[]any{"Ranking Report", ""}); err != nil {
		return err
	}
	if err := f.SetCellStyle(summarySheet, "A1", "B1", header); err != nil {
		return err
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+3)
		if err := f.SetSheetRow(summarySheet, cell, &r); err != nil {
			return err
		}
	}
	return nil
}

func writeCandidatesSheet(f *excelize.File, header int, ranking scoring.Ranking) error {
	headers := []any{"Rank", "Candidate", "Total Score", "Evaluators", "Low Confidence", "Top Criteria", "Last Evaluation"}
	for _, c := range scoring.Categories {
		headers = append(headers, CategoryLabel(c))
	}
	if err := f.SetSheetRow(candidatesSheet, "A1", &headers); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(candidatesSheet, "A1", last, header); err != nil {
		return err
	}
	f.SetColWidth(candidatesSheet, "B", "B", 30)
	f.SetColWidth(candidatesSheet, "F", "F", 40)

	for i, c := range ranking.Candidates {
		top := make([]string, len(c.TopCriteria))
		for j, t := range c.TopCriteria {
			top[j] = fmt.Sprintf("%s (%.1f)", t.Criterion, t.Average)
		}
		lastEval := ""
		if !c.LastEvaluationDate.IsZero() {
			lastEval = c.LastEvaluationDate.Format("2006-01-02")
		}

		row := []any{c.Rank, c.CandidateName, c.TotalScoreAvg, c.EvaluatorsCount, c.LowConfidence, strings.Join(top, ", "), lastEval}
		byCategory := make(map[scoring.Category]float64, len(c.CategoryBreakdown))
		for _, cb := range c.CategoryBreakdown {
			byCategory[cb.Category] = cb.Average
		}
		for _, cat := range scoring.Categories {
			if v, ok := byCategory[cat]; ok {
				row = append(row, v)
			} else {
				row = append(row, "")
			}
		}

		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(candidatesSheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func writeCriteriaSheet(f *excelize.File, header int, ranking scoring.Ranking) error {
	headers := []any{"Rank", "Candidate", "Criterion", "Category", "Average", "Weight", "Evaluations"}
	if err := f.SetSheetRow(criteriaSheet, "A1", &headers); err != nil {
		return err
	}
	if err := f.SetCellStyle(criteriaSheet, "A1", "G1", header); err != nil {
		return err
	}
	f.SetColWidth(criteriaSheet, "B", "C", 30)

	row := 2
	for _, c := range ranking.Candidates {
		for _, b := range c.Breakdown {
			values := []any{c.Rank, c.CandidateName, b.Criterion, CategoryLabel(b.Category), b.Average, b.Weight, b.Evaluations}
			cell, _ := excelize.CoordinatesToCellName(1, row)
			if err := f.SetSheetRow(criteriaSheet, cell, &values); err != nil {
				return err
			}
			row++
		}
	}
	return nil
}
