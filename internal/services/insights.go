package services

import (
	"regexp"
	"strings"

	"ai-research-platform/internal/utils"
)

// ResearchScores are keyword-derived dashboard scores in [0, 100]
type ResearchScores struct {
	MarketOpportunity    float64
	TechnicalFeasibility float64
	CompetitiveAdvantage float64
}

type scoreRule struct {
	base     float64
	positive []string
	negative []string
}

var (
	marketRule = scoreRule{
		base:     70,
		positive: []string{"large market", "growing market", "opportunity", "demand", "potential"},
		negative: []string{"small market", "declining", "saturated", "competitive"},
	}
	feasibilityRule = scoreRule{
		base:     65,
		positive: []string{"feasible", "proven technology", "available tools", "straightforward"},
		negative: []string{"complex", "challenging", "difficult", "unproven", "experimental"},
	}
	advantageRule = scoreRule{
		base:     60,
		positive: []string{"unique", "innovative", "first-mover", "differentiated"},
		negative: []string{"crowded market", "many competitors", "commoditized"},
	}
)

// industryKeywords is checked in order; the first match wins
var industryKeywords = []struct {
	industry string
	keywords []string
}{
	{"technology", []string{"tech", "software", "ai", "blockchain", "iot", "cloud", "saas"}},
	{"healthcare", []string{"health", "medical", "hospital", "patient", "therapy", "wellness", "pharma"}},
	{"fintech", []string{"finance", "payment", "banking", "crypto", "trading", "investment", "loan"}},
	{"education", []string{"education", "learning", "student", "school", "university", "course", "teaching"}},
	{"e-commerce", []string{"ecommerce", "retail", "shopping", "marketplace", "store", "commerce"}},
	{"fitness", []string{"fitness", "workout", "exercise", "gym", "sports", "training"}},
	{"entertainment", []string{"game", "media", "music", "video", "streaming", "entertainment"}},
	{"food", []string{"food", "restaurant", "cooking", "delivery", "recipe", "meal"}},
}

var wordPattern = regexp.MustCompile(`[a-z0-9]+`)

var ideaNamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:idea|concept|startup|business)[^:]*:\s*(.+)`),
	regexp.MustCompile(`(?i)^(.+?)\s+(?:startup|idea|business|app|platform|service)\b`),
}

// ScoreResearch scores research text by counting indicator phrases
func ScoreResearch(text string) ResearchScores {
	content := strings.ToLower(text)
	return ResearchScores{
		MarketOpportunity:    marketRule.score(content),
		TechnicalFeasibility: feasibilityRule.score(content),
		CompetitiveAdvantage: advantageRule.score(content),
	}
}

func (r scoreRule) score(content string) float64 {
	s := r.base
	for _, kw := range r.positive {
		if strings.Contains(content, kw) {
			s += 5
		}
	}
	for _, kw := range r.negative {
		if strings.Contains(content, kw) {
			s -= 5
		}
	}
	return max(0, min(100, s))
}

// DetectIndustry classifies a query and its research by keyword, whole words only
func DetectIndustry(query, text string) string {
	words := make(map[string]struct{})
	for _, w := range wordPattern.FindAllString(strings.ToLower(query+" "+text), -1) {
		words[w] = struct{}{}
	}

	for _, entry := range industryKeywords {
		for _, kw := range entry.keywords {
			if _, ok := words[kw]; ok {
				return entry.industry
			}
		}
	}
	return "other"
}

// ExtractIdeaName derives a short idea name from a research query
func ExtractIdeaName(query string) string {
	query = strings.TrimSpace(query)
	for _, p := range ideaNamePatterns {
		if m := p.FindStringSubmatch(query); m != nil {
			if name := strings.TrimSpace(m[1]); len(name) > 5 {
				return utils.Truncate(name, 50)
			}
		}
	}

	words := strings.Fields(query)
	if len(words) > 5 {
		words = words[:5]
	}
	return utils.Truncate(strings.Join(words, " "), 50)
}
