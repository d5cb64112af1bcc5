package entity

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	maxDestinationRunes = 16
	maxTravelers        = 99
)

type match struct {
	start, end int
	value      string
}

func (m match) overlaps(other match) bool {
	return m.start < other.end && other.start < m.end
}

// recognizer returns candidate matches ordered by position.
type recognizer struct {
	kind Kind
	find func(text string) []match
}

var recognizers = []recognizer{
	{kind: Destination, find: findDestinations},
	{kind: DateRange, find: findDateRanges},
	{kind: Budget, find: findBudgets},
	{kind: Travelers, find: findTravelers},
}

// Extract pulls trip facts out of free text. It never fails: text without
// recognizable facts yields an empty set.
func Extract(text string) Set {
	out := make(Set)
	if strings.TrimSpace(text) == "" {
		return out
	}

	var claimed []match
	for _, r := range recognizers {
		for _, m := range r.find(text) {
			if overlapsAny(m, claimed) {
				continue
			}
			out[r.kind] = m.value
			claimed = append(claimed, m)
			break
		}
	}
	return out
}

func overlapsAny(m match, claimed []match) bool {
	for _, c := range claimed {
		if m.overlaps(c) {
			return true
		}
	}
	return false
}

var (
	structuredDestination = regexp.MustCompile(`ปลายทาง\s*:\s*([^\n,\d]+)`)
	englishDestination    = regexp.MustCompile(`\b(?:[Tt]o|[Vv]isit(?:ing)?|[Ii]n)\s+([A-Z][A-Za-z'-]+(?:\s+[A-Z][A-Za-z'-]+){0,2})`)
	thaiDestinationAnchor = regexp.MustCompile(`ในจังหวัด|จังหวัด|ไปเที่ยว|เที่ยว|ไป|ใน`)
	thaiRun               = regexp.MustCompile(`^\p{Thai}+`)
)

var englishStopPlaces = map[string]bool{
	"I": true, "The": true, "A": true, "My": true, "Our": true,
	"January": true, "February": true, "March": true, "April": true, "May": true, "June": true,
	"July": true, "August": true, "September": true, "October": true, "November": true, "December": true,
}

var thaiStopPrefixes = []string{"ที่", "ไหน", "อะไร", "เที่ยว", "กิน", "ร้าน", "วัน", "ช่วง", "เมื่อ", "ด้วย", "กับ"}

// thaiPlaceEnders end a place name inside an unspaced Thai run, as in
// "น่านกับเพื่อน" or "เชียงใหม่เดือนหน้า".
var thaiPlaceEnders = []string{
	"กับ", "เดือน", "วัน", "ช่วง", "ด้วย", "ถึง", "ตอน", "เมื่อ", "ที่", "สัก",
	"หน่อย", "ไหม", "บ้าง", "นะ", "คะ", "ค่ะ", "ครับ", "อีก",
}

// structuredLabels end a one-line structured destination value.
var structuredLabels = []string{"วันที่", "งบ", "จำนวนผู้เดินทาง", "ช่วง", "ถึง"}

func findDestinations(text string) []match {
	var out []match

	for _, loc := range structuredDestination.FindAllStringSubmatchIndex(text, -1) {
		raw := strings.TrimRight(cutAt(text[loc[2]:loc[3]], structuredLabels, 0), " \t")
		value := strings.TrimSpace(raw)
		if value == "" || utf8.RuneCountInString(value) > 40 {
			continue
		}
		out = append(out, match{start: loc[2], end: loc[2] + len(raw), value: value})
	}

	for _, loc := range englishDestination.FindAllStringSubmatchIndex(text, -1) {
		value := text[loc[2]:loc[3]]
		first := strings.Fields(value)[0]
		if englishStopPlaces[first] {
			continue
		}
		out = append(out, match{start: loc[2], end: loc[3], value: value})
	}

	for _, loc := range thaiDestinationAnchor.FindAllStringIndex(text, -1) {
		run := cutThaiPlace(thaiRun.FindString(text[loc[1]:]))
		if !acceptThaiPlace(run) {
			continue
		}
		out = append(out, match{start: loc[1], end: loc[1] + len(run), value: run})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].start < out[j].start })
	return out
}

// cutThaiPlace trims a Thai run at the first place ender or Thai digit after
// its first rune. A run starting with a stop word is left for acceptThaiPlace.
func cutThaiPlace(run string) string {
	if run == "" {
		return run
	}
	_, size := utf8.DecodeRuneInString(run)
	if i := strings.IndexFunc(run[size:], isThaiDigit); i >= 0 {
		run = run[:size+i]
	}
	return cutAt(run, thaiPlaceEnders, size)
}

func isThaiDigit(r rune) bool {
	return r >= '๐' && r <= '๙'
}

// cutAt returns s up to the earliest occurrence of any token at or after from.
func cutAt(s string, tokens []string, from int) string {
	end := len(s)
	for _, tok := range tokens {
		if i := strings.Index(s[from:], tok); i >= 0 && from+i < end {
			end = from + i
		}
	}
	return s[:end]
}

func acceptThaiPlace(run string) bool {
	n := utf8.RuneCountInString(run)
	if n < 2 || n > maxDestinationRunes {
		return false
	}
	for _, prefix := range thaiStopPrefixes {
		if strings.HasPrefix(run, prefix) {
			return false
		}
	}
	return true
}

var (
	dateToken      = `(\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}(?:/\d{2,4})?)`
	dateRangeRegex = regexp.MustCompile(`(?i)` + dateToken + `\s*(?:to|until|through|ถึงวันที่|ถึง|–|-)\s*` + dateToken)
)

func findDateRanges(text string) []match {
	var out []match
	for _, loc := range dateRangeRegex.FindAllStringSubmatchIndex(text, -1) {
		start, end := text[loc[2]:loc[3]], text[loc[4]:loc[5]]
		if !orderedDates(start, end) {
			continue
		}
		out = append(out, match{start: loc[0], end: loc[1], value: start + ".." + end})
	}
	return out
}

// orderedDates rejects ranges that are unparseable, mix formats, or run backwards.
func orderedDates(start, end string) bool {
	startISO, endISO := strings.Contains(start, "-"), strings.Contains(end, "-")
	if startISO != endISO {
		return false
	}
	if startISO {
		s, err1 := time.Parse(time.DateOnly, start)
		e, err2 := time.Parse(time.DateOnly, end)
		return err1 == nil && err2 == nil && !e.Before(s)
	}

	s, okS := dayMonth(start)
	e, okE := dayMonth(end)
	if !okS || !okE {
		return false
	}
	return e[2] > s[2] || (e[2] == s[2] && (e[1] > s[1] || (e[1] == s[1] && e[0] >= s[0])))
}

// dayMonth parses D/M[/Y] into [day, month, year]; a missing year is zero.
func dayMonth(token string) ([3]int, bool) {
	var out [3]int
	parts := strings.Split(token, "/")
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return out, false
		}
		out[i] = n
	}
	if out[0] < 1 || out[0] > 31 || out[1] < 1 || out[1] > 12 {
		return out, false
	}
	if len(parts) == 3 && out[2] < 100 {
		out[2] += 2000
	}
	return out, true
}

var budgetRegex = regexp.MustCompile(`(?i)(?:budget|งบประมาณ|งบ|ไม่เกิน)[^0-9฿$\n]{0,24}?(฿|\$|thb|usd)?\s*(\d[\d,]*(?:\.\d+)?)\s*(บาท|baht|thb|usd|dollars?)?`)

func findBudgets(text string) []match {
	var out []match
	for _, loc := range budgetRegex.FindAllStringSubmatchIndex(text, -1) {
		prefix, suffix := group(text, loc, 1), group(text, loc, 3)
		currency := normalizeCurrency(prefix)
		if currency == "" {
			currency = normalizeCurrency(suffix)
		}
		if currency == "" {
			continue
		}
		amount := strings.ReplaceAll(group(text, loc, 2), ",", "")
		if _, err := strconv.ParseFloat(amount, 64); err != nil {
			continue
		}
		numStart := loc[4]
		if loc[2] >= 0 {
			numStart = loc[2]
		}
		out = append(out, match{start: numStart, end: loc[1], value: amount + " " + currency})
	}
	return out
}

func normalizeCurrency(raw string) string {
	switch strings.ToLower(raw) {
	case "฿", "บาท", "baht", "thb":
		return "THB"
	case "$", "usd", "dollar", "dollars":
		return "USD"
	default:
		return ""
	}
}

var (
	structuredTravelers = regexp.MustCompile(`จำนวนผู้เดินทาง\s*:\s*(\d+)`)
	thaiTravelers       = regexp.MustCompile(`(\d+)\s*คน`)
	englishTravelers    = regexp.MustCompile(`(?i)(\d+)\s*(?:people|persons|travell?ers|adults|pax)\b`)
)

func findTravelers(text string) []match {
	var out []match
	for _, re := range []*regexp.Regexp{structuredTravelers, thaiTravelers, englishTravelers} {
		for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
			raw := group(text, loc, 1)
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > maxTravelers {
				continue
			}
			out = append(out, match{start: loc[2], end: loc[1], value: strconv.Itoa(n)})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].start < out[j].start })
	return out
}

func group(text string, loc []int, i int) string {
	if loc[2*i] < 0 {
		return ""
	}
	return text[loc[2*i]:loc[2*i+1]]
}
