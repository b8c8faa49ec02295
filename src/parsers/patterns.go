package parsers

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/username/fundfolio/backend/src/utils"
)

// Line patterns for the CAS (Consolidated Account Statement) text layout.
// Each matcher is a pure function: it either recognizes the line shape and
// returns typed fields, or reports no match. Amount columns use Indian
// thousands grouping; sell rows carry amount and units in parentheses.
var (
	headingPattern        = regexp.MustCompile(`^\s*Consolidated Account Statement`)
	statementDatesPattern = regexp.MustCompile(`^\s*([0-3]\d-[A-Z][a-z]{2}-\d{4}) To ([0-3]\d-[A-Z][a-z]{2}-20[0-4]\d)`)

	folioPattern      = regexp.MustCompile(`Folio No: (\d+)`)
	panPattern        = regexp.MustCompile(`PAN: ?([A-Z0-9]{10})`)
	holderNamePattern = regexp.MustCompile(`^ ?([A-Za-z. ]+$)`)
	schemeISINPattern = regexp.MustCompile(`^([A-Z0-9]{3,})-([A-Za-z]{2,}.*?)\s?-\s?ISIN:\s?(INF[A-Z0-9]{9})`)
	registrarPattern  = regexp.MustCompile(`\s+Registrar : [A-Za-z]+`)

	openingBalancePattern = regexp.MustCompile(`Opening Unit Balance: (\d*,?\d+\.\d+)`)
	closingBalancePattern = regexp.MustCompile(`Closing Unit Balance: (\d*,?\d+\.\d+)`)

	buyTxnPattern = regexp.MustCompile(
		`^([0-3]\d-[A-Z][a-z]{2}-20[0-4]\d) .*?(Purchase|Switch.*?[Ii]n|Investment|S T P In|Lateral Shift In).*? ` +
			`(\d{1,3}(?:,\d{3})*\.\d+) *(\d{1,3}(?:,\d{3})*\.\d+) *(\d{1,3}(?:,\d{3})*\.\d+) *(\d{1,3}(?:,\d{3})*\.\d+)$`)
	sellTxnPattern = regexp.MustCompile(
		`^([0-3]\d-[A-Z][a-z]{2}-20[0-4]\d) .*?(Redemption|Switch.*?[Oo]ut|S T P Out|Lateral Shift Out|Withdrawal).*? ` +
			`\((\d{1,3}(?:,\d{3})*\.\d+)\) *\((\d{1,3}(?:,\d{3})*\.\d+)\) *(\d{1,3}(?:,\d{3})*\.\d+) *(\d{1,3}(?:,\d{3})*\.\d+)$`)
	reversalPattern = regexp.MustCompile(
		`^([0-3]\d-[A-Z][a-z]{2}-20[0-4]\d) .*?(Revers|[Rr]ejection).*? ` +
			`\((\d{1,3}(?:,\d{3})*\.\d+)\) *\((\d{1,3}(?:,\d{3})*\.\d+)\) *(\d{1,3}(?:,\d{3})*\.\d+) *(\d{1,3}(?:,\d{3})*\.\d+)$`)

	stampDutyPattern = regexp.MustCompile(`^([0-3]\d-[A-Z][a-z]{2}-20[0-4]\d) .*? Stamp Duty .*? (\d{1,3}(?:,\d{3})*\.\d+)$`)
	sttPaidPattern   = regexp.MustCompile(`^([0-3]\d-[A-Z][a-z]{2}-20[0-4]\d) .*? STT Paid .*? (\d{1,3}(?:,\d{3})*\.\d+)$`)

	formerlyPattern   = regexp.MustCompile(`\s*\((?:[Ff]ormerly|[Nn]on-[Dd]emat|[Ee]rstwhile).*?\).*`)
	planOptionPattern = regexp.MustCompile(` (Plan|Option)\b`)
)

// txnFields are the typed columns of one recognized transaction row.
type txnFields struct {
	Date        time.Time
	Phrase      string
	Amount      float64
	Price       float64
	Units       float64
	UnitBalance float64
}

func matchHeading(line string) bool {
	return headingPattern.MatchString(line)
}

func matchStatementDates(line string) (from, to time.Time, ok bool) {
	m := statementDatesPattern.FindStringSubmatch(line)
	if m == nil {
		return time.Time{}, time.Time{}, false
	}
	from, errFrom := utils.ParseStatementDate(m[1])
	to, errTo := utils.ParseStatementDate(m[2])
	if errFrom != nil || errTo != nil {
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

func matchFolio(line string) (folio, pan string, ok bool) {
	m := folioPattern.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	folio = m[1]
	if pm := panPattern.FindStringSubmatch(line); pm != nil {
		pan = pm[1]
	}
	return folio, pan, true
}

func matchHolderName(line string) (string, bool) {
	m := holderNamePattern.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return strings.Join(strings.Fields(m[1]), " "), true
}

// matchSchemeISIN recognizes the scheme header, which spans up to two lines
// joined by the caller. The registrar suffix is stripped before matching.
func matchSchemeISIN(line string) (amfiCode, schemeName, isin string, ok bool) {
	line = registrarPattern.ReplaceAllString(line, "")
	m := schemeISINPattern.FindStringSubmatch(line)
	if m == nil {
		return "", "", "", false
	}
	return m[1], SanitizeSchemeName(m[2]), m[3], true
}

func matchOpeningBalance(line string) (float64, bool) {
	m := openingBalancePattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	return parseStatementNumber(m[1]), true
}

func matchClosingBalance(line string) (float64, bool) {
	m := closingBalancePattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	return parseStatementNumber(m[1]), true
}

func matchBuyTxn(line string) (txnFields, bool) {
	return matchTxnRow(buyTxnPattern, line)
}

func matchSellTxn(line string) (txnFields, bool) {
	return matchTxnRow(sellTxnPattern, line)
}

func matchReversal(line string) (txnFields, bool) {
	return matchTxnRow(reversalPattern, line)
}

func matchTxnRow(pattern *regexp.Regexp, line string) (txnFields, bool) {
	m := pattern.FindStringSubmatch(line)
	if m == nil {
		return txnFields{}, false
	}
	date, err := utils.ParseStatementDate(m[1])
	if err != nil {
		return txnFields{}, false
	}
	return txnFields{
		Date:        date,
		Phrase:      m[2],
		Amount:      parseStatementNumber(m[3]),
		Units:       parseStatementNumber(m[4]),
		Price:       parseStatementNumber(m[5]),
		UnitBalance: parseStatementNumber(m[6]),
	}, true
}

func matchStampDuty(line string) (float64, bool) {
	return matchChargeRow(stampDutyPattern, line)
}

func matchSTTPaid(line string) (float64, bool) {
	return matchChargeRow(sttPaidPattern, line)
}

func matchChargeRow(pattern *regexp.Regexp, line string) (float64, bool) {
	m := pattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	return parseStatementNumber(m[2]), true
}

// SanitizeSchemeName normalizes a scheme display name: strips
// "(Formerly ...)"/"(Non-Demat)"/"(Erstwhile ...)" qualifiers and everything
// after them, title-cases, drops "Plan"/"Option" and abbreviates "Direct".
func SanitizeSchemeName(name string) string {
	name = formerlyPattern.ReplaceAllString(name, "")
	name = titleCase(name)
	name = planOptionPattern.ReplaceAllString(name, "")
	name = strings.ReplaceAll(name, "Direct", "Dir")
	return strings.TrimSpace(name)
}

// titleCase uppercases the first letter of each space-separated word and
// lowercases the rest.
func titleCase(s string) string {
	words := strings.Split(s, " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

// parseStatementNumber converts a statement decimal with optional thousands
// separators to a float64.
func parseStatementNumber(s string) float64 {
	v, _ := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	return v
}
