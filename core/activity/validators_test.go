package activity

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elevana/core"
)

func TestActivity_Validate(t *testing.T) {
	one := 1
	valid := Activity{
		Kind:  KindCaseStudy,
		Title: "Rivers",
		XP:    20,
		Tags:  []string{"geography", "grade_7"},
		Problems: []Problem{
			{Type: TypeMCQ, Question: "Longest river?", Options: []string{"Congo", "Nile"}, CorrectOptionIndex: &one},
			{Type: TypeFill, Question: "The ___ flows north.", Answers: []string{"Nile"}},
		},
	}
	require.NoError(t, valid.Validate())

	accented := valid.clone()
	accented.Tags = []string{"géographie", "histoire_5e", "Ελληνικά"}
	assert.NoError(t, accented.Validate(), "letters of any script are valid tags")

	tests := []struct {
		name      string
		mutate    func(a *Activity)
		wantField string
	}{
		{name: "no title", mutate: func(a *Activity) { a.Title = "" }, wantField: "title"},
		{name: "negative xp", mutate: func(a *Activity) { a.XP = -1 }, wantField: "xp"},
		{name: "unknown kind", mutate: func(a *Activity) { a.Kind = "quiz" }, wantField: "kind"},
		{name: "tag with punctuation", mutate: func(a *Activity) { a.Tags = []string{"rivers!"} }, wantField: "tags[0]"},
		{name: "mcq without correct option", mutate: func(a *Activity) { a.Problems[0].CorrectOptionIndex = nil }, wantField: "correct_option_index"},
		{name: "fill without answers", mutate: func(a *Activity) { a.Problems[1].Answers = nil }, wantField: "answers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := valid.clone()
			tt.mutate(&a)
			err := a.Validate()

			var verr *core.ValidationError
			require.True(t, errors.As(err, &verr), "%v", err)
			fields := make([]string, 0, len(verr.Fields))
			for _, f := range verr.Fields {
				fields = append(fields, f.Field)
			}
			assert.Contains(t, fields, tt.wantField)
		})
	}
}
