package activity

import (
	"strings"
	"time"
)

// Kind is the flavour of authored content.
type Kind string

// Kinds
const (
	KindMission   Kind = "mission"
	KindCaseStudy Kind = "case-study"
	KindMinigame  Kind = "minigame"
)

var AllKinds = []Kind{KindMission, KindCaseStudy, KindMinigame}

func (k Kind) Valid() bool {
	for _, kind := range AllKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// ProblemType tags how a Problem is answered.
type ProblemType string

// Problem types
const (
	TypeQA   ProblemType = "qa"   // open answer
	TypeMCQ  ProblemType = "mcq"  // multiple choice
	TypeFill ProblemType = "fill" // fill in the blank
)

func (t ProblemType) Valid() bool {
	return t == TypeQA || t == TypeMCQ || t == TypeFill
}

// ParseProblemType normalizes a type tag: "fib" is read as "fill" and an empty tag as "qa".
func ParseProblemType(s string) ProblemType {
	switch t := strings.ToLower(strings.TrimSpace(s)); t {
	case "":
		return TypeQA
	case "fib":
		return TypeFill
	default:
		return ProblemType(t)
	}
}

// Problem is one question unit of an Activity.
// Options and CorrectOptionIndex are only set for mcq problems, Answers only for the others.
type Problem struct {
	Type               ProblemType `json:"type" validate:"required,problemtype"`
	Question           string      `json:"question"`
	Options            []string    `json:"options,omitempty"`
	CorrectOptionIndex *int        `json:"correct_option_index,omitempty"`
	Answers            []string    `json:"answers,omitempty"`
	TimerSeconds       int         `json:"timer_seconds,omitempty" validate:"gte=0"` // 0 = untimed
}

// CheckOption reports whether option i is the correct one of an mcq problem.
func (p Problem) CheckOption(i int) bool {
	return p.Type == TypeMCQ && p.CorrectOptionIndex != nil && *p.CorrectOptionIndex == i
}

// CheckAnswer reports whether answer matches one of the acceptable answers, ignoring case & surrounding spaces.
func (p Problem) CheckAnswer(answer string) bool {
	if p.Type == TypeMCQ {
		if p.CorrectOptionIndex == nil || *p.CorrectOptionIndex >= len(p.Options) {
			return false
		}
		return sameText(p.Options[*p.CorrectOptionIndex], answer)
	}
	for _, a := range p.Answers {
		if sameText(a, answer) {
			return true
		}
	}
	return false
}

func sameText(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// canonicalText turns CRLF line breaks into LF, the only line break free text keeps.
func canonicalText(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

func (p Problem) clone() Problem {
	c := p
	c.Options = cloneStrings(p.Options)
	c.Answers = cloneStrings(p.Answers)
	if p.CorrectOptionIndex != nil {
		idx := *p.CorrectOptionIndex
		c.CorrectOptionIndex = &idx
	}
	return c
}

// Activity is one authored mission, case study or minigame.
type Activity struct {
	Kind            Kind      `json:"kind" validate:"required,activitykind"`
	Title           string    `json:"title" validate:"required,max=255"`
	Description     string    `json:"description"`
	XP              int       `json:"xp" validate:"gte=0"`
	Passages        []string  `json:"passages"`
	Problems        []Problem `json:"problems" validate:"dive"`
	Tags            []string  `json:"tags" validate:"dive,alphanum_"`
	ClassIDs        []int64   `json:"class_ids" validate:"dive,gt=0"`
	SummaryFeedback string    `json:"summary_feedback"`
}

func (a Activity) clone() Activity {
	c := a
	c.Passages = cloneStrings(a.Passages)
	c.Tags = cloneStrings(a.Tags)
	if a.ClassIDs != nil {
		c.ClassIDs = append([]int64(nil), a.ClassIDs...)
	}
	if a.Problems != nil {
		c.Problems = make([]Problem, len(a.Problems))
		for i, p := range a.Problems {
			c.Problems[i] = p.clone()
		}
	}
	return c
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

// Summary is the stored view of an uploaded activity, as listed on its classroom.
type Summary struct {
	ID          int64     `json:"id" db:"id"`
	ClassroomID int64     `json:"classroom_id" db:"classroom_id"`
	MentorID    string    `json:"mentor_id" db:"mentor_id"`
	Kind        Kind      `json:"kind" db:"kind"`
	Title       string    `json:"title" db:"title"`
	XP          int       `json:"xp" db:"xp"`
	FileName    string    `json:"file_name" db:"file_name"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
}
