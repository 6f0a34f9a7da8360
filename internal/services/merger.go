package services

import (
	"fmt"
	"strings"

	"ai-research-platform/internal/models"
	"ai-research-platform/internal/utils"
)

// phaseTitles are the section headings of each research type
var phaseTitles = map[models.ResearchType]string{
	models.ResearchTypeValidation: "Business Idea Validation",
	models.ResearchTypeMarket:     "Market Research & Analysis",
	models.ResearchTypeFinancial:  "Financial Analysis & Projections",
	models.ResearchTypeCustom:     "Custom Research",
}

// reportTitles label a single-type document
var reportTitles = map[models.ResearchType]string{
	models.ResearchTypeValidation: "Idea Validation Report",
	models.ResearchTypeMarket:     "Market Research Report",
	models.ResearchTypeFinancial:  "Financial Analysis Report",
	models.ResearchTypeCustom:     "Research Report",
}

const executiveSummary = `## Executive Summary

This report examines the opportunity from three perspectives: idea validation, market analysis, and financial viability. The three research phases ran concurrently and are presented in a fixed order.

`

// MergeDocuments combines phase results into one comprehensive report.
// Sections always follow models.ComprehensivePhases; a phase absent from
// phases is treated as failed. Output depends only on the inputs.
func MergeDocuments(query string, phases []models.PhaseResult) (string, models.MergeMetrics) {
	byType := make(map[models.ResearchType]models.PhaseResult, len(phases))
	for _, p := range phases {
		if _, seen := byType[p.ResearchType]; !seen {
			byType[p.ResearchType] = p
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Comprehensive Research Report: %s\n\n", query)
	b.WriteString(executiveSummary)

	m := models.MergeMetrics{
		TotalPhases: len(models.ComprehensivePhases),
		Phases:      make([]models.PhaseMetrics, 0, len(models.ComprehensivePhases)),
	}

	for _, researchType := range models.ComprehensivePhases {
		p, ok := byType[researchType]
		if !ok {
			p = models.PhaseResult{ResearchType: researchType, Error: "phase did not run"}
		}

		fmt.Fprintf(&b, "## %s\n\n", phaseTitles[researchType])
		pm := models.PhaseMetrics{
			ResearchType:   researchType,
			Success:        p.Success,
			ElapsedSeconds: utils.RoundSeconds(p.Elapsed),
		}

		if p.Success {
			b.WriteString(strings.TrimSpace(p.Text))
			b.WriteString("\n\n")
			pm.Citations = p.Citations
			pm.WordCount = p.WordCount
			m.TotalCitations += p.Citations
			m.TotalWords += p.WordCount
			m.SuccessfulPhases++
		} else {
			reason := p.Error
			if reason == "" {
				reason = "unknown error"
			}
			fmt.Fprintf(&b, "> This research phase did not complete and is omitted from the report.\n>\n> Reason: %s\n\n", reason)
			pm.Error = reason
		}
		b.WriteString("---\n\n")
		m.Phases = append(m.Phases, pm)
	}

	b.WriteString("## Comprehensive Conclusion & Recommendations\n\n")
	fmt.Fprintf(&b, "%d of %d research phases completed.\n\n", m.SuccessfulPhases, m.TotalPhases)
	b.WriteString("### Next Steps\n")
	b.WriteString("1. **Immediate Actions**: act on the validation findings\n")
	b.WriteString("2. **Market Entry Strategy**: apply the market research insights\n")
	b.WriteString("3. **Financial Planning**: turn the financial projections into milestones\n")

	if m.TotalPhases > 0 {
		m.SuccessRate = float64(m.SuccessfulPhases) / float64(m.TotalPhases)
	}
	return b.String(), m
}

// FormatSingleDocument renders the report of a single-type task
func FormatSingleDocument(query string, p models.PhaseResult) (string, models.MergeMetrics) {
	title, ok := reportTitles[p.ResearchType]
	if !ok {
		title = reportTitles[models.ResearchTypeCustom]
	}

	m := models.MergeMetrics{
		TotalPhases: 1,
		Phases: []models.PhaseMetrics{{
			ResearchType:   p.ResearchType,
			Success:        p.Success,
			ElapsedSeconds: utils.RoundSeconds(p.Elapsed),
			Error:          p.Error,
		}},
	}
	if p.Success {
		m.TotalCitations = p.Citations
		m.TotalWords = p.WordCount
		m.SuccessfulPhases = 1
		m.SuccessRate = 1
		m.Phases[0].Citations = p.Citations
		m.Phases[0].WordCount = p.WordCount
	}

	return fmt.Sprintf("# %s: %s\n\n%s\n", title, query, strings.TrimSpace(p.Text)), m
}
