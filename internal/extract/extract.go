package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/mbruun/roadlog/internal/models"
)

// Fields is the structured reading of one transcript. Extraction is a pure
// function over text: no I/O, no external calls, and it never fails — an
// unrecognizable transcript resolves to the documented defaults.
type Fields struct {
	Category          models.Category
	Severity          models.Severity
	Position          *string
	Description       string
	RecommendedAction *string
	EstimatedCost     *int64
}

// PlaceholderDescription is stored when no verbal description was captured
// at all; the record's description column must never be empty.
const PlaceholderDescription = "No verbal description captured."

// categoryRules are checked in order; the first match wins. More specific
// terms come before generic ones so "alligator cracking" is not swallowed
// by "crack".
var categoryRules = []struct {
	category models.Category
	keywords []string
}{
	{models.CategoryAlligatorCracking, []string{"alligator", "crocodile", "map cracking", "fatigue cracking"}},
	{models.CategoryPothole, []string{"pothole", "pot hole", "hole in the"}},
	{models.CategoryJointFailure, []string{"joint"}},
	{models.CategoryEdgeDamage, []string{"edge"}},
	{models.CategorySpall, []string{"spall", "spalling", "flaking"}},
	{models.CategoryChip, []string{"chip", "chipped", "chipping"}},
	{models.CategoryDeformation, []string{"deformation", "rutting", "rut", "bump", "heave", "depression", "sunken", "settlement"}},
	{models.CategoryWear, []string{"wear", "worn", "raveling", "ravelling", "polished", "abrasion"}},
	{models.CategoryCrack, []string{"crack", "fissure", "split"}},
}

var severityRules = []struct {
	severity models.Severity
	keywords []string
}{
	{models.SeverityCritical, []string{"critical", "immediate danger", "dangerous", "hazardous", "emergency", "collapse"}},
	{models.SeveritySevere, []string{"severe", "serious", "major", "extensive", "deep", "widespread"}},
	{models.SeverityLight, []string{"minor", "cosmetic", "slight", "superficial", "hairline", "shallow"}},
}

var (
	positionRe = regexp.MustCompile(`(?i)\b(?:in front of|next to|close to|on the corner of|at|near|beside|behind|opposite|between|along|outside)\s+([^,.;!?]+)`)
	actionRe   = regexp.MustCompile(`(?i)\b(?:recommend(?:ed|ation)?\s+(?:to\s+)?|should\s+be\s+|should\s+|needs?\s+to\s+(?:be\s+)?|must\s+be\s+|has\s+to\s+be\s+|requires?\s+|suggest\s+)([^,.;!?]+)`)
	costRe     = regexp.MustCompile(`(?i)(?:\$|€|£|usd|eur|dkk|kr\.?)\s*([0-9][0-9.,]*)`)
	costTailRe = regexp.MustCompile(`(?i)\b([0-9][0-9.,]*)\s*(?:dollars?|euros?|kroner|crowns|usd|eur|dkk|kr)\b`)
)

// Extract derives structured fields from transcript text. Identical input
// always yields identical output.
func Extract(transcript string) Fields {
	text := strings.TrimSpace(transcript)
	lower := strings.ToLower(text)

	f := Fields{
		Category:    models.CategoryOther,
		Severity:    models.SeverityMedium,
		Description: text,
	}
	if f.Description == "" {
		f.Description = PlaceholderDescription
	}
	if lower == "" {
		return f
	}

	for _, rule := range categoryRules {
		if containsAnyWord(lower, rule.keywords) {
			f.Category = rule.category
			break
		}
	}
	for _, rule := range severityRules {
		if containsAnyWord(lower, rule.keywords) {
			f.Severity = rule.severity
			break
		}
	}

	if m := positionRe.FindStringSubmatch(text); m != nil {
		if p := strings.TrimSpace(m[1]); p != "" {
			f.Position = &p
		}
	}
	if m := actionRe.FindStringSubmatch(text); m != nil {
		if a := strings.TrimSpace(m[1]); a != "" {
			f.RecommendedAction = &a
		}
	}
	f.EstimatedCost = extractCost(text)

	return f
}

// containsAnyWord matches keywords on word boundaries so "wide" in the
// transcript does not trigger "widespread" style confusions in reverse.
func containsAnyWord(lower string, keywords []string) bool {
	for _, kw := range keywords {
		idx := 0
		for {
			i := strings.Index(lower[idx:], kw)
			if i < 0 {
				break
			}
			start := idx + i
			end := start + len(kw)
			if boundaryBefore(lower, start) && boundaryAfter(lower, end) {
				return true
			}
			idx = start + 1
		}
	}
	return false
}

func boundaryBefore(s string, i int) bool {
	return i == 0 || !isWordByte(s[i-1])
}

func boundaryAfter(s string, i int) bool {
	return i >= len(s) || !isWordByte(s[i])
}

func isWordByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func extractCost(text string) *int64 {
	var raw string
	if m := costRe.FindStringSubmatch(text); m != nil {
		raw = m[1]
	} else if m := costTailRe.FindStringSubmatch(text); m != nil {
		raw = m[1]
	}
	if raw == "" {
		return nil
	}

	raw = strings.ReplaceAll(raw, ",", "")
	raw = strings.TrimRight(raw, ".")

	var value int64
	if strings.Contains(raw, ".") {
		fl, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil
		}
		value = int64(fl)
	} else {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil
		}
		value = n
	}
	if value < 0 {
		return nil
	}
	return &value
}
