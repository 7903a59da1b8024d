// Package ocr turns raw multi-line receipt text, as returned by a text
// recognition engine, into a best-effort observation. Parsing never fails:
// fields the heuristics cannot recover stay nil.
//
// Each field is extracted by an ordered list of strategies, tried until one
// succeeds. The ordering encodes confidence: an explicit "Paid" line beats a
// "Total" line, which beats a regex over the whole text, which beats a
// last-resort scan for the currency symbol.
package ocr

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"kharcha/internal/core"
)

type (
	amountStrategy func(lines []string, fullText string) (float64, bool)
	dateStrategy   func(lines []string, fullText string) (time.Time, bool)
)

var amountStrategies = []amountStrategy{
	amountAfterPaidLine,
	amountOnTotalLine,
	amountFromPaidRegex,
	amountFromCurrencyScan,
}

var dateStrategies = []dateStrategy{
	dateNearDateLabel,
	dateFromAnyLine,
	dateFromLongFormRegex,
}

// Parse extracts amount, date and merchant from recognized receipt text.
// Absent fields become nil, never errors. The empty string is valid input.
func Parse(text string) core.RawObservation {
	lines := strings.Split(text, "\n")

	obs := core.RawObservation{Source: core.SourceOCR}

	for _, strategy := range amountStrategies {
		if amount, ok := strategy(lines, text); ok {
			obs.Amount = &amount
			break
		}
	}
	for _, strategy := range dateStrategies {
		if date, ok := strategy(lines, text); ok {
			obs.Date = &date
			break
		}
	}
	if merchant, ok := extractMerchant(lines); ok {
		obs.Description = &merchant
	}

	return obs
}

var numberPattern = regexp.MustCompile(`[0-9]+\.?[0-9]*`)

// parseMoneyToken strips currency markers from a line and extracts the first
// positive number from whatever is left.
func parseMoneyToken(line string) (float64, bool) {
	cleaned := strings.NewReplacer("₹", "", ",", "", "Rs.", "", "Rs", "").Replace(line)
	cleaned = strings.TrimSpace(cleaned)

	token := numberPattern.FindString(cleaned)
	if token == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(token, 64)
	if err != nil || value <= 0 {
		return 0, false
	}
	return value, true
}

// amountAfterPaidLine looks for a line mentioning "paid" and tries the next
// up-to-2 lines for a money token. UPI receipts put the amount on its own
// line right under the "Paid" label.
func amountAfterPaidLine(lines []string, _ string) (float64, bool) {
	for i, line := range lines {
		if !strings.Contains(strings.ToLower(line), "paid") {
			continue
		}
		for j := i + 1; j < min(i+3, len(lines)); j++ {
			if amount, ok := parseMoneyToken(lines[j]); ok {
				return amount, true
			}
		}
	}
	return 0, false
}

// amountOnTotalLine tries "total" / "grand total" lines, first the line
// itself then the one below it.
func amountOnTotalLine(lines []string, _ string) (float64, bool) {
	for i, line := range lines {
		lower := strings.ToLower(line)
		if !strings.Contains(lower, "total") && !strings.Contains(lower, "grand total") {
			continue
		}
		if amount, ok := parseMoneyToken(line); ok {
			return amount, true
		}
		if i+1 < len(lines) {
			if amount, ok := parseMoneyToken(lines[i+1]); ok {
				return amount, true
			}
		}
	}
	return 0, false
}

var paidAmountPattern = regexp.MustCompile(`(?i)Paid[\s\n]+₹\s*([0-9,]+\.?[0-9]*)`)

func amountFromPaidRegex(_ []string, fullText string) (float64, bool) {
	m := paidAmountPattern.FindStringSubmatch(fullText)
	if m == nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// amountFromCurrencyScan walks the lines bottom-up for anything carrying the
// currency symbol. Last resort; receipts usually end with the amount.
func amountFromCurrencyScan(lines []string, _ string) (float64, bool) {
	for i := len(lines) - 1; i >= 0; i-- {
		if !strings.Contains(lines[i], "₹") {
			continue
		}
		if amount, ok := parseMoneyToken(lines[i]); ok {
			return amount, true
		}
	}
	return 0, false
}

// dateLayouts is the fixed, ordered list of formats the parser understands.
var dateLayouts = []string{
	"January 2, 2006", // February 7, 2026
	"2 January, 2006", // 7 February, 2026
	"January 2 2006",  // February 7 2026
	"2 Jan 2006",      // 7 Feb 2026
	"Jan 2, 2006",     // Feb 7, 2026
	"02/01/2006",      // 07/02/2026
	"02-01-2006",      // 07-02-2026
	"02/01/06",        // 07/02/26
	"02-01-06",        // 07-02-26
	"2006-01-02",      // 2026-02-07
}

func parseDateToken(candidate string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		for _, s := range []string{candidate, strings.TrimSpace(candidate)} {
			if date, err := time.Parse(layout, s); err == nil {
				return date, true
			}
		}
	}
	return time.Time{}, false
}

// dateNearDateLabel tries the known layouts against lines near one labelled
// "payment date" or "date" (the line itself plus the next two).
func dateNearDateLabel(lines []string, _ string) (time.Time, bool) {
	for i, line := range lines {
		lower := strings.ToLower(line)
		if !strings.Contains(lower, "payment date") && !strings.Contains(lower, "date") {
			continue
		}
		for j := i; j < min(i+3, len(lines)); j++ {
			if date, ok := parseDateToken(lines[j]); ok {
				return date, true
			}
		}
	}
	return time.Time{}, false
}

func dateFromAnyLine(lines []string, _ string) (time.Time, bool) {
	for _, line := range lines {
		if date, ok := parseDateToken(strings.TrimSpace(line)); ok {
			return date, true
		}
	}
	return time.Time{}, false
}

var longFormDatePattern = regexp.MustCompile(
	`(?i)(January|February|March|April|May|June|July|August|September|October|November|December)\s+(\d{1,2}),?\s+(\d{4})\s+at\s+(\d{1,2}:\d{2}\s*[AP]M)`)

// dateFromLongFormRegex catches timestamps like "February 7, 2026 at 6:32 PM"
// that span label and value in a single run of text.
func dateFromLongFormRegex(_ []string, fullText string) (time.Time, bool) {
	m := longFormDatePattern.FindStringSubmatch(fullText)
	if m == nil {
		return time.Time{}, false
	}
	normalized := m[1] + " " + m[2] + ", " + m[3] + " at " + strings.ReplaceAll(strings.ToUpper(m[4]), " ", "")
	date, err := time.Parse("January 2, 2006 at 3:04PM", normalized)
	if err != nil {
		return time.Time{}, false
	}
	return date, true
}

// merchantSkipWords mark header or amount lines that cannot be the merchant.
var merchantSkipWords = []string{"order", "bill", "receipt", "invoice", "tax", "gst", "total", "paid"}

// extractMerchant returns the first line that survives the skip rules: not
// blank or trivially short, no header keyword, no currency marker, and not
// mostly digits. Falls back to the first non-empty line, which may itself be
// a header — better a poor merchant guess than none.
func extractMerchant(lines []string) (string, bool) {
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		lower := strings.ToLower(trimmed)

		if len(trimmed) < 2 {
			continue
		}
		if containsAny(lower, merchantSkipWords) {
			continue
		}
		if strings.Contains(trimmed, "₹") || strings.Contains(trimmed, "Rs") {
			continue
		}
		if digitFraction(trimmed) > 0.3 {
			continue
		}
		return trimmed, true
	}

	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed, true
		}
	}
	return "", false
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func digitFraction(s string) float64 {
	digits := 0
	runes := []rune(s)
	for _, r := range runes {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return float64(digits) / float64(len(runes))
}
