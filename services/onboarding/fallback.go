package onboarding

import (
	"regexp"
	"strconv"
	"strings"

	"counsellor/models"
)

const (
	BudgetUnder10k  = "Under $10,000"
	Budget10kTo20k  = "$10,000 - $20,000"
	Budget20kTo30k  = "$20,000 - $30,000"
	Budget30kTo50k  = "$30,000 - $50,000"
	BudgetAbove50k  = "Above $50,000"
	maxFreeTextLen  = 50
	maxFreeTextWord = 8
	maxIntakeLen    = 20
	maxCountryLen   = 30
)

var (
	yearPattern        = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	futureYearPattern  = regexp.MustCompile(`\b20\d{2}\b`)
	gpaPattern         = regexp.MustCompile(`\d+(?:\.\d+)?(?:\s*/\s*\d+(?:\.\d+)?|\s*%)?`)
	intakePattern      = regexp.MustCompile(`\b(fall|spring|summer|winter|autumn)\s*(20\d{2})\b`)
	scorePattern       = regexp.MustCompile(`\b\d{1,3}(?:\.\d+)?\b`)
	amountPattern      = regexp.MustCompile(`(\d[\d,]*(?:\.\d+)?)\s*(k\b)?`)
	negationPattern    = regexp.MustCompile(`\b(no|not|none|never|nope|haven'?t|havent|didn'?t|yet to)\b`)
	upperBoundPattern  = regexp.MustCompile(`\b(under|below|less than|up ?to|max(imum)?|within)\b`)
	mastersWordPattern = regexp.MustCompile(`\b(ms|msc|m\.s\.?|mtech|m\.tech|meng|ma)\b`)
	graduatePattern    = regexp.MustCompile(`\b(graduate|postgrad(uate)?)\b`)
	bachelorsPattern   = regexp.MustCompile(`\b(bs|bsc|b\.s\.?|btech|b\.tech|beng|ba|bcom|bba)\b`)
)

var examPatterns = map[string]*regexp.Regexp{
	"ielts": regexp.MustCompile(`\bielts\b`),
	"toefl": regexp.MustCompile(`\btoefl\b`),
	"gre":   regexp.MustCompile(`\bgre\b`),
	"gmat":  regexp.MustCompile(`\bgmat\b`),
}

// supportedCountries is the country allow-list in the order countries are
// reported.
// pattern runs on the lowercased answer; casedPattern, when set, runs on the
// answer as typed so "US" matches without matching the pronoun "us".
var supportedCountries = []struct {
	name         string
	pattern      *regexp.Regexp
	casedPattern *regexp.Regexp
}{
	{"USA", regexp.MustCompile(`\b(usa|united states|america)\b|\bu\.s\.?(a\.?)?(\W|$)`), regexp.MustCompile(`\bUS\b`)},
	{"UK", regexp.MustCompile(`\b(uk|united kingdom|england|britain)\b|\bu\.k\.?(\W|$)`), nil},
	{"Canada", regexp.MustCompile(`\bcanada\b`), nil},
	{"Australia", regexp.MustCompile(`\baustralia\b`), nil},
	{"Germany", regexp.MustCompile(`\bgermany\b`), nil},
}

// ParseFallback reads the value for field from text with fixed rules. It is
// used when the model is unavailable or skipped the field. ok is false when
// nothing usable was found.
func ParseFallback(field, text string) (models.ExtractedFields, bool) {
	var out models.ExtractedFields
	raw := strings.TrimSpace(text)
	lower := strings.ToLower(raw)
	if lower == "" {
		return out, false
	}

	switch field {
	case FieldEducationLevel:
		out.EducationLevel = parseEducationLevel(lower)
	case FieldDegreeMajor:
		out.DegreeMajor = parseFreeText(raw, maxFreeTextLen)
	case FieldFieldOfStudy:
		out.FieldOfStudy = parseFreeText(raw, maxFreeTextLen)
	case FieldGraduationYear:
		if m := yearPattern.FindString(lower); m != "" {
			out.GraduationYear, _ = strconv.Atoi(m)
		}
	case FieldGPAPercentage:
		out.GPAPercentage = parseGPA(lower)
	case FieldIntendedDegree:
		out.IntendedDegree = parseIntendedDegree(lower)
	case FieldTargetIntake:
		out.TargetIntake = parseTargetIntake(raw, lower)
	case FieldPreferredCountries:
		out.PreferredCountries = parseCountries(raw, lower)
	case FieldBudgetRange:
		out.BudgetRange = parseBudget(lower)
	case FieldFundingSource:
		out.FundingSource = parseFunding(lower)
	case FieldIELTSTOEFLScore:
		out.IELTSTOEFLScore = parseScore(lower, "ielts", "toefl")
	case FieldGREGMATScore:
		out.GREGMATScore = parseScore(lower, "gre", "gmat")
	case FieldSOPStatus:
		out.SOPStatus = parseSOPStatus(lower)
	default:
		return out, false
	}

	return out, HasField(out, field)
}

func parseEducationLevel(text string) string {
	switch {
	case strings.Contains(text, "bachelor") || strings.Contains(text, "undergrad") || bachelorsPattern.MatchString(text):
		return "Bachelors"
	case strings.Contains(text, "phd") || strings.Contains(text, "ph.d") || strings.Contains(text, "doctorate"):
		return "PhD"
	case strings.Contains(text, "master") || graduatePattern.MatchString(text) || mastersWordPattern.MatchString(text):
		return "Masters"
	case strings.Contains(text, "high school") || strings.Contains(text, "12th") || strings.Contains(text, "secondary"):
		return "High School"
	default:
		return ""
	}
}

// parseGPA takes the first grade-like number, skipping years.
func parseGPA(text string) string {
	for _, m := range gpaPattern.FindAllString(text, -1) {
		lead := m
		if i := strings.IndexAny(lead, " /%"); i >= 0 {
			lead = lead[:i]
		}
		value, err := strconv.ParseFloat(lead, 64)
		if err != nil || value > 100 {
			continue
		}
		return strings.ReplaceAll(m, " ", "")
	}
	return ""
}

func parseIntendedDegree(text string) string {
	switch {
	case strings.Contains(text, "mba"):
		return "MBA"
	case strings.Contains(text, "phd") || strings.Contains(text, "ph.d") || strings.Contains(text, "doctorate"):
		return "PhD"
	case strings.Contains(text, "master") || mastersWordPattern.MatchString(text):
		return "Masters"
	case strings.Contains(text, "bachelor") || strings.Contains(text, "undergrad") || bachelorsPattern.MatchString(text):
		return "Bachelors"
	default:
		return ""
	}
}

// parseFreeText accepts short answers as they are. Long answers are more
// likely a question or a digression than a value.
func parseFreeText(text string, maxLen int) string {
	if len(text) >= maxLen || len(strings.Fields(text)) > maxFreeTextWord {
		return ""
	}
	return strings.TrimRight(text, ".!")
}

func parseTargetIntake(raw, lower string) string {
	if m := intakePattern.FindStringSubmatch(lower); m != nil {
		season := m[1]
		if season == "autumn" {
			season = "fall"
		}
		return strings.ToUpper(season[:1]) + season[1:] + " " + m[2]
	}
	if year := futureYearPattern.FindString(lower); year != "" {
		return "Fall " + year
	}
	if len(raw) < maxIntakeLen {
		return raw
	}
	return ""
}

func parseCountries(raw, lower string) []string {
	countries := make([]string, 0, len(supportedCountries))
	for _, c := range supportedCountries {
		if c.pattern.MatchString(lower) || (c.casedPattern != nil && c.casedPattern.MatchString(raw)) {
			countries = append(countries, c.name)
		}
	}
	if len(countries) > 0 {
		return countries
	}
	if len(raw) < maxCountryLen {
		return []string{raw}
	}
	return nil
}

// parseBudget bins a budget answer into one of the five fixed ranges. A range
// answer is binned by its upper end, an "under X" answer just below X.
func parseBudget(text string) string {
	amounts := parseAmounts(text)
	if len(amounts) == 0 {
		return ""
	}

	amount := amounts[0]
	for _, a := range amounts[1:] {
		if a > amount {
			amount = a
		}
	}

	if upperBoundPattern.MatchString(text) || len(amounts) > 1 {
		return binBudget(amount - 1)
	}
	return binBudget(amount)
}

// parseAmounts returns the dollar amounts in text. Small bare numbers such
// as "20 to 30" are read as thousands.
func parseAmounts(text string) []float64 {
	matches := amountPattern.FindAllStringSubmatch(text, -1)
	amounts := make([]float64, 0, len(matches))
	for _, m := range matches {
		value, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil || value <= 0 {
			continue
		}
		if m[2] != "" || value < 1000 {
			value *= 1000
		}
		amounts = append(amounts, value)
	}
	return amounts
}

func binBudget(amount float64) string {
	switch {
	case amount < 10000:
		return BudgetUnder10k
	case amount < 20000:
		return Budget10kTo20k
	case amount < 30000:
		return Budget20kTo30k
	case amount < 50000:
		return Budget30kTo50k
	default:
		return BudgetAbove50k
	}
}

func parseFunding(text string) string {
	switch {
	case strings.Contains(text, "self") || strings.Contains(text, "family") || strings.Contains(text, "parents") || strings.Contains(text, "savings"):
		return "Self-funded"
	case strings.Contains(text, "scholarship"):
		return "Scholarship"
	case strings.Contains(text, "loan"):
		return "Education Loan"
	case strings.Contains(text, "sponsor") || strings.Contains(text, "employer") || strings.Contains(text, "company"):
		return "Sponsorship"
	default:
		return ""
	}
}

// parseScore reads an exam score. A number wins over a negation; a plain
// negation means the exam was not taken and yields "N/A".
func parseScore(text string, exams ...string) string {
	if score := scorePattern.FindString(text); score != "" {
		for _, exam := range exams {
			if examPatterns[exam].MatchString(text) {
				return strings.ToUpper(exam) + " " + score
			}
		}
		return score
	}
	if negationPattern.MatchString(text) {
		return models.NotApplicable
	}
	return ""
}

func parseSOPStatus(text string) string {
	switch {
	case strings.Contains(text, "draft") || strings.Contains(text, "working") || strings.Contains(text, "progress"):
		return models.SOPDraft
	case negationPattern.MatchString(text) || strings.Contains(text, "haven"):
		return models.SOPNotStarted
	case strings.Contains(text, "done") || strings.Contains(text, "complete") || strings.Contains(text, "ready") || strings.Contains(text, "finish"):
		return models.SOPReady
	default:
		return ""
	}
}
