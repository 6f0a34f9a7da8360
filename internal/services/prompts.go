package services

import (
	"fmt"

	"ai-research-platform/internal/models"
)

const enrichmentInstructions = `You will be given a research task by a user. Produce a set of instructions
for a researcher who will complete the task. Do not complete the task yourself.

RESEARCH TYPE: %s

GUIDELINES:
1. Include every detail and preference the user gave, and list the key dimensions to cover.
2. Where an essential attribute is unstated, mark it as open-ended rather than inventing it.
3. Phrase the request in the first person, from the user's perspective.
4. Request tables where they help, and describe the expected headers and structure.
5. Name the sources to prioritize and ask for inline citations with full source metadata.`

const validationPrompt = `You are an idea validation analyst. Analyze the following startup or product idea:

%s

Write a validation report with these sections:

## 1. Idea Restatement
- Restate the idea in simple terms, the problem it solves, and who it serves
- Say whether it is a must-have or a nice-to-have

## 2. Problem Validation
- How significant is the problem, and how do current alternatives fall short
- Pain point severity (low, medium, high) and whether users actively search for solutions

## 3. Solution Validation
- Feasibility with current technology and the unique selling point
- Technical or adoption challenges, and how well the solution fits the problem

## 4. Customer Validation
- Customer personas, willingness to pay, and demand signals
- Early adopter segments

%s`

const marketPrompt = `You are a market research and strategy expert. Conduct market research for:

%s

Write a market research report with these sections:

## 1. Idea Summary
- The idea in plain language, the problem, the audience, and whether it is B2B, B2C, or B2B2C

## 2. Market Overview
- Market size (TAM, SAM, SOM where possible) and growth trends
- Key regions and any seasonality

## 3. Customer & Demand Analysis
- Primary customers, pain points, current alternatives, and price sensitivity

## 4. Competitive Landscape
- Direct and indirect competitors, substitutes, a competitor SWOT, and unaddressed gaps

## 5. Differentiation & Value Proposition
- Competitive advantages and barriers to entry

## 6. Business Model Potential
- Revenue models, acquisition channels, and retention strategies

## 7. Opportunities & Recommendations
- Entry strategy, beachhead segment, partnerships, and expansion paths

%s`

const financialPrompt = `You are a finance analyst specializing in startups. Conduct a financial analysis for:

%s

Write a financial analysis report with these sections:

## 1. Idea Summary
- The idea in financial terms and its revenue-generating potential

## 2. Market Financial Overview
- Addressable revenue, industry benchmarks, margins, and capital intensity

## 3. Revenue Model Analysis
- Revenue streams, ARPU or contract value, and pricing strategies

## 4. Key Metrics & KPIs
- CAC, LTV, churn, gross margin, burn rate and runway, CAC payback period

## 5. Scenario & Sensitivity Analysis
- Best, base, and worst case projections with their key assumptions

## 6. Strategic Recommendations
- Launch strategy, capital efficiency, and the path to profitability

%s`

// citationInstruction bounds the number of sources the model should use
func citationInstruction(maxCitations int) string {
	return fmt.Sprintf("IMPORTANT: Limit your research to the top %d most relevant and reliable sources. "+
		"Cite each one inline as a markdown link.", maxCitations)
}

// buildPrompt returns the research prompt for a phase type
func buildPrompt(researchType models.ResearchType, query string, maxCitations int) string {
	limit := citationInstruction(maxCitations)
	switch researchType {
	case models.ResearchTypeValidation:
		return fmt.Sprintf(validationPrompt, query, limit)
	case models.ResearchTypeMarket:
		return fmt.Sprintf(marketPrompt, query, limit)
	case models.ResearchTypeFinancial:
		return fmt.Sprintf(financialPrompt, query, limit)
	default:
		return query + "\n\n" + limit
	}
}
