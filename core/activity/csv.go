package activity

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"
)

// CSV layout: a `Key,Value` header followed by one row per scalar leaf.
// Repeated fields carry a 1-based index in their key: passage_2, problem_1_option_3, tag_1, classId_2.
const (
	csvHeader = "Key,Value"

	keyKind            = "kind"
	keyTitle           = "title"
	keyDescription     = "description"
	keyXP              = "xp"
	keyPassage         = "passage"
	keyProblem         = "problem"
	keyTag             = "tag"
	keyClassID         = "classId"
	keySummaryFeedback = "summaryFeedback"

	fieldType               = "type"
	fieldQuestion           = "question"
	fieldScenario           = "scenario"
	fieldTimer              = "timer"
	fieldOption             = "option"
	fieldAnswer             = "answer"
	fieldCorrectOptionIndex = "correctOptionIndex"
	fieldCorrectOption      = "correctOption" // legacy: option text
	fieldCorrectAnswer      = "correctAnswer" // legacy: option text

	// minimum similarity for a legacy correct option text to match an option
	legacyMatchRatio = 0.8

	// highest 1-based index accepted in a key; larger ones are appended
	maxListIndex = 1000
)

// Encoder writes activities in the CSV layout.
type Encoder struct {
	w *bufio.Writer
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriter(w)}
}

// Encode writes a in canonical form: indexed keys, free text always quoted with LF line breaks.
func (e *Encoder) Encode(a Activity) error {
	e.line(csvHeader)
	if a.Kind != "" {
		e.row(keyKind, string(a.Kind))
	}
	e.row(keyTitle, quote(a.Title))
	e.row(keyDescription, quote(a.Description))
	e.row(keyXP, strconv.Itoa(a.XP))

	for i, passage := range a.Passages {
		e.row(indexed(keyPassage, i), quote(passage))
	}
	for i, p := range a.Problems {
		prefix := indexed(keyProblem, i) + "_"
		e.row(prefix+fieldType, string(p.Type))
		e.row(prefix+fieldQuestion, quote(p.Question))
		if p.TimerSeconds > 0 {
			e.row(prefix+fieldTimer, strconv.Itoa(p.TimerSeconds))
		}
		if p.Type == TypeMCQ {
			for k, opt := range p.Options {
				e.row(indexed(prefix+fieldOption, k), quote(opt))
			}
			if p.CorrectOptionIndex != nil {
				e.row(prefix+fieldCorrectOptionIndex, strconv.Itoa(*p.CorrectOptionIndex))
			}
			continue
		}
		for k, ans := range p.Answers {
			e.row(indexed(prefix+fieldAnswer, k), quote(ans))
		}
	}
	for i, tag := range a.Tags {
		e.row(indexed(keyTag, i), quote(tag))
	}
	for i, id := range a.ClassIDs {
		e.row(indexed(keyClassID, i), strconv.FormatInt(id, 10))
	}
	if a.SummaryFeedback != "" {
		e.row(keySummaryFeedback, quote(a.SummaryFeedback))
	}
	return errors.Wrap(e.w.Flush(), "writing activity csv")
}

func (e *Encoder) row(key, value string) {
	e.line(key + "," + value)
}

func (e *Encoder) line(s string) {
	_, _ = e.w.WriteString(s)
	_ = e.w.WriteByte('\n')
}

func indexed(key string, i int) string {
	return key + "_" + strconv.Itoa(i+1)
}

// quote wraps s in double quotes, doubling the inner ones. CRLF line breaks are written as LF.
func quote(s string) string {
	return `"` + strings.ReplaceAll(canonicalText(s), `"`, `""`) + `"`
}

// Marshal returns the CSV encoding of a.
func Marshal(a Activity) ([]byte, error) {
	var buf bytes.Buffer
	if err := NewEncoder(&buf).Encode(a); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Warning is a row the decoder tolerated instead of failing on it.
type Warning struct {
	Line int
	Key  string
	Msg  string
}

func (w Warning) String() string {
	if w.Key == "" {
		return fmt.Sprintf("line %d: %s", w.Line, w.Msg)
	}
	return fmt.Sprintf("line %d: %s: %s", w.Line, w.Key, w.Msg)
}

// Decoder reads activities from the CSV layout. Decoding is keyed, not positional:
// rows may come in any order, indices may be sparse, unknown keys are ignored and
// bare repeated keys (`tag`, `tag`, ...) are appended in order.
type Decoder struct {
	r        *csv.Reader
	warnings []Warning
	legacy   map[int]legacyCorrect // problem index -> correct option text
}

type legacyCorrect struct {
	line int
	key  string
	text string
}

func NewDecoder(r io.Reader) *Decoder {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return &Decoder{r: cr}
}

// Warnings returns the problems tolerated by the last Decode.
func (d *Decoder) Warnings() []Warning {
	return d.warnings
}

func (d *Decoder) warn(line int, key, format string, args ...interface{}) {
	d.warnings = append(d.warnings, Warning{Line: line, Key: key, Msg: fmt.Sprintf(format, args...)})
}

// Decode reads all rows into a. Malformed rows are skipped with a warning; only read errors are returned.
func (d *Decoder) Decode(a *Activity) error {
	*a = Activity{}
	d.warnings = nil
	d.legacy = make(map[int]legacyCorrect)

	for {
		rec, err := d.r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pErr *csv.ParseError
			if errors.As(err, &pErr) {
				d.warn(pErr.StartLine, "", "skipped unparsable row: %v", pErr.Err)
				continue
			}
			return errors.Wrap(err, "reading activity csv")
		}
		line, _ := d.r.FieldPos(0)

		key := strings.TrimSpace(rec[0])
		if key == "" || strings.EqualFold(key, "key") {
			continue
		}
		if len(rec) < 2 {
			d.warn(line, key, "skipped row without value")
			continue
		}
		// the value is everything after the first unquoted comma
		d.set(a, line, key, strings.Join(rec[1:], ","))
	}

	d.resolveLegacy(a)
	d.normalize(a)
	return nil
}

func (d *Decoder) set(a *Activity, line int, key, value string) {
	tokens := strings.Split(key, "_")
	switch tokens[0] {
	case keyKind:
		a.Kind = Kind(strings.ToLower(strings.TrimSpace(value)))
	case keyTitle:
		a.Title = value
	case keyDescription:
		a.Description = value
	case keyXP:
		if xp, ok := d.atoi(line, key, value); ok {
			a.XP = xp
		}
	case keySummaryFeedback:
		a.SummaryFeedback = value
	case keyPassage:
		a.Passages = setAt(a.Passages, d.index(line, key, tokens, 1, len(a.Passages)), value)
	case keyTag:
		a.Tags = setAt(a.Tags, d.index(line, key, tokens, 1, len(a.Tags)), value)
	case keyClassID:
		id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			d.warn(line, key, "invalid class id %q", value)
			return
		}
		a.ClassIDs = setAt(a.ClassIDs, d.index(line, key, tokens, 1, len(a.ClassIDs)), id)
	case keyProblem:
		d.setProblem(a, line, key, tokens, value)
	}
}

func (d *Decoder) setProblem(a *Activity, line int, key string, tokens []string, value string) {
	if len(tokens) < 3 {
		d.warn(line, key, "skipped problem row without field")
		return
	}
	i := d.index(line, key, tokens, 1, len(a.Problems))
	a.Problems = setAt(a.Problems, i, problemAt(a.Problems, i))
	p := &a.Problems[i]

	switch field := tokens[2]; field {
	case fieldType:
		p.Type = ParseProblemType(value)
	case fieldQuestion, fieldScenario:
		p.Question = value
	case fieldTimer:
		if secs, ok := d.atoi(line, key, value); ok {
			p.TimerSeconds = secs
		}
	case fieldOption:
		p.Options = setAt(p.Options, d.index(line, key, tokens, 3, len(p.Options)), value)
	case fieldAnswer:
		p.Answers = setAt(p.Answers, d.index(line, key, tokens, 3, len(p.Answers)), value)
	case fieldCorrectOptionIndex:
		idx, ok := d.atoi(line, key, value)
		if !ok {
			return
		}
		if idx < 0 {
			d.warn(line, key, "negative option index %d", idx)
			return
		}
		p.CorrectOptionIndex = &idx
	case fieldCorrectOption, fieldCorrectAnswer:
		d.legacy[i] = legacyCorrect{line: line, key: key, text: value}
	}
}

func problemAt(problems []Problem, i int) Problem {
	if i < len(problems) {
		return problems[i]
	}
	return Problem{}
}

// index reads the 1-based index at tokens[pos] as 0-based; a missing or malformed index appends.
// Indices above maxListIndex also append, with a warning.
func (d *Decoder) index(line int, key string, tokens []string, pos, length int) int {
	if pos >= len(tokens) {
		return length
	}
	n, err := strconv.Atoi(tokens[pos])
	if err != nil || n < 1 {
		return length
	}
	if n > maxListIndex {
		d.warn(line, key, "index %d exceeds %d, appended at %d", n, maxListIndex, length+1)
		return length
	}
	return n - 1
}

func (d *Decoder) atoi(line int, key, value string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		d.warn(line, key, "invalid number %q", value)
		return 0, false
	}
	return n, true
}

// setAt stores v at s[i], growing s with zero values as needed.
func setAt[T any](s []T, i int, v T) []T {
	for len(s) <= i {
		var zero T
		s = append(s, zero)
	}
	s[i] = v
	return s
}

// resolveLegacy turns `correctOption` texts into option indices: exact match first, then a fuzzy one.
// Every text based resolution is flagged.
func (d *Decoder) resolveLegacy(a *Activity) {
	for i := range a.Problems {
		lc, ok := d.legacy[i]
		if !ok {
			continue
		}
		p := &a.Problems[i]
		if p.CorrectOptionIndex != nil {
			d.warn(lc.line, lc.key, "ignored, %s is set", fieldCorrectOptionIndex)
			continue
		}
		idx, ratio := matchOption(p.Options, lc.text)
		if idx < 0 {
			d.warn(lc.line, lc.key, "no option matches %q", lc.text)
			continue
		}
		p.CorrectOptionIndex = &idx
		if ratio == 1 {
			d.warn(lc.line, lc.key, "resolved option %d by text", idx)
		} else {
			d.warn(lc.line, lc.key, "resolved option %d by similarity (%.2f), please check", idx, ratio)
		}
	}
}

// matchOption returns the index of the option matching text, and the match ratio (1 for exact).
// Ambiguous fuzzy matches return -1.
func matchOption(options []string, text string) (int, float64) {
	for k, opt := range options {
		if sameText(opt, text) {
			return k, 1
		}
	}

	best, bestRatio, tie := -1, 0.0, false
	target := strings.Split(strings.ToLower(strings.TrimSpace(text)), "")
	for k, opt := range options {
		m := difflib.NewMatcher(strings.Split(strings.ToLower(strings.TrimSpace(opt)), ""), target)
		ratio := m.Ratio()
		switch {
		case ratio > bestRatio:
			best, bestRatio, tie = k, ratio, false
		case ratio == bestRatio:
			tie = true
		}
	}
	if best < 0 || tie || bestRatio < legacyMatchRatio {
		return -1, bestRatio
	}
	return best, bestRatio
}

// normalize keeps only the fields matching each problem's type.
func (d *Decoder) normalize(a *Activity) {
	for i := range a.Problems {
		p := &a.Problems[i]
		if p.Type == "" {
			p.Type = TypeQA
		}
		if p.Type == TypeMCQ {
			p.Answers = nil
			if p.CorrectOptionIndex != nil && *p.CorrectOptionIndex >= len(p.Options) {
				d.warn(0, indexed(keyProblem, i)+"_"+fieldCorrectOptionIndex, "option %d out of range", *p.CorrectOptionIndex)
				p.CorrectOptionIndex = nil
			}
			continue
		}
		p.Options = nil
		p.CorrectOptionIndex = nil
	}
}

// Unmarshal decodes data and returns the activity with the decoder warnings.
func Unmarshal(data []byte) (Activity, []Warning, error) {
	var a Activity
	dec := NewDecoder(bytes.NewReader(data))
	err := dec.Decode(&a)
	return a, dec.Warnings(), err
}
