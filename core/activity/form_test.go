package activity

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elevana/core"
)

type upload struct {
	data        []byte
	kind        Kind
	fileName    string
	classroomID int64
}

type mockUploader struct {
	mu      sync.Mutex
	uploads []upload
	failFor map[int64]error
}

func (m *mockUploader) UploadActivityCSV(_ context.Context, data []byte, kind Kind, fileName string, classroomID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.failFor[classroomID]; ok {
		return err
	}
	m.uploads = append(m.uploads, upload{data, kind, fileName, classroomID})
	return nil
}

func (m *mockUploader) classrooms() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, 0, len(m.uploads))
	for _, u := range m.uploads {
		ids = append(ids, u.classroomID)
	}
	return ids
}

// newFilledForm returns a form holding a valid mission with one qa problem.
func newFilledForm(t *testing.T, up Uploader, classIDs ...int64) *Form {
	f := NewForm(KindMission, up)
	f.now = func() time.Time { return time.UnixMilli(1700000000000) }
	require.NoError(t, f.SetTitle("Rivers of Africa"))
	require.NoError(t, f.SetXP(100))
	i, err := f.AddProblem(TypeQA)
	require.NoError(t, err)
	require.NoError(t, f.SetQuestion(i, "Longest river?"))
	require.NoError(t, f.SetAnswer(i, 0, "Nile"))
	for _, id := range classIDs {
		require.NoError(t, f.SelectClass(id))
	}
	return f
}

func TestForm_Submit_noTargets(t *testing.T) {
	up := new(mockUploader)
	f := newFilledForm(t, up)

	err := f.Submit(context.Background())
	require.Error(t, err)
	assert.True(t, core.IsValidation(err))
	assert.Equal(t, ErrNoTargets, errors.Cause(err.(*core.ValidationError).Err))
	assert.Empty(t, up.classrooms())
	assert.Equal(t, Editing, f.State())
	assert.Equal(t, err, f.Err())
}

func TestForm_Submit_invalidDraft(t *testing.T) {
	up := new(mockUploader)
	f := NewForm(KindMinigame, up)
	require.NoError(t, f.SelectClass(1))
	_, err := f.AddProblem(TypeMCQ) // no correct option
	require.NoError(t, err)

	err = f.Submit(context.Background())
	require.Error(t, err)
	vErr, ok := err.(*core.ValidationError)
	require.True(t, ok)
	fields := make([]string, 0, len(vErr.Fields))
	for _, fe := range vErr.Fields {
		fields = append(fields, fe.Field)
	}
	assert.Contains(t, fields, "title")
	assert.Contains(t, fields, "correct_option_index")
	assert.Empty(t, up.classrooms())
	assert.Equal(t, Editing, f.State())
}

func TestForm_Submit_fanOut(t *testing.T) {
	up := new(mockUploader)
	f := newFilledForm(t, up, 1, 2, 3)

	require.NoError(t, f.Submit(context.Background()))
	assert.Equal(t, Submitted, f.State())
	assert.NoError(t, f.Err())
	assert.ElementsMatch(t, []int64{1, 2, 3}, up.classrooms())

	want, err := Marshal(f.Draft())
	require.NoError(t, err)
	for _, u := range up.uploads {
		assert.Equal(t, want, u.data)
		assert.Equal(t, KindMission, u.kind)
		assert.Equal(t, "mission-rivers-of-africa-1700000000000.csv", u.fileName)
	}

	// submitted forms are frozen until reset
	assert.Equal(t, ErrNotEditing, f.SetTitle("again"))
	assert.Equal(t, ErrNotEditing, f.Submit(context.Background()))
}

func TestForm_Submit_partialFailure(t *testing.T) {
	netErr := errors.New("connection reset")
	up := &mockUploader{failFor: map[int64]error{2: netErr}}
	f := newFilledForm(t, up, 1, 2, 3)

	err := f.Submit(context.Background())
	require.Error(t, err)

	uErr, ok := err.(*UploadError)
	require.True(t, ok)
	assert.Equal(t, map[int64]error{2: netErr}, uErr.Failed)
	assert.Equal(t, []int64{1, 3}, uErr.Succeeded)
	assert.Contains(t, err.Error(), "classroom 2: connection reset")
	assert.Contains(t, err.Error(), "1 of 3")

	// the other classrooms received the content and nothing was rolled back
	assert.ElementsMatch(t, []int64{1, 3}, up.classrooms())
	assert.Equal(t, Editing, f.State())
	assert.Equal(t, err, f.Err())

	// retry is manual
	delete(up.failFor, 2)
	require.NoError(t, f.Submit(context.Background()))
	assert.ElementsMatch(t, []int64{1, 3, 1, 2, 3}, up.classrooms())
}

func TestForm_SetProblemType(t *testing.T) {
	f := NewForm(KindCaseStudy, nil)
	i, err := f.AddProblem(TypeMCQ)
	require.NoError(t, err)
	require.NoError(t, f.SetOption(i, 0, "yes"))
	require.NoError(t, f.AddOption(i, "no"))
	require.NoError(t, f.SetCorrectOption(i, 0))

	require.NoError(t, f.SetProblemType(i, TypeQA))
	p := f.Draft().Problems[i]
	assert.Equal(t, TypeQA, p.Type)
	assert.Empty(t, p.Options)
	assert.Nil(t, p.CorrectOptionIndex)
	assert.Equal(t, []string{""}, p.Answers)

	require.NoError(t, f.SetAnswer(i, 0, "maybe"))
	require.NoError(t, f.SetProblemType(i, "fib"))
	p = f.Draft().Problems[i]
	assert.Equal(t, TypeFill, p.Type)
	assert.Equal(t, []string{""}, p.Answers)

	require.NoError(t, f.SetProblemType(i, TypeMCQ))
	p = f.Draft().Problems[i]
	assert.Equal(t, []string{""}, p.Options)
	assert.Nil(t, p.CorrectOptionIndex)
	assert.Empty(t, p.Answers)

	// same type keeps the fields
	require.NoError(t, f.SetOption(i, 0, "kept"))
	require.NoError(t, f.SetProblemType(i, TypeMCQ))
	assert.Equal(t, []string{"kept"}, f.Draft().Problems[i].Options)
}

func TestForm_RemoveOption(t *testing.T) {
	setup := func(t *testing.T, correct int) *Form {
		f := NewForm(KindMission, nil)
		i, err := f.AddProblem(TypeMCQ)
		require.NoError(t, err)
		require.NoError(t, f.SetOption(i, 0, "a"))
		require.NoError(t, f.AddOption(i, "b"))
		require.NoError(t, f.AddOption(i, "c"))
		require.NoError(t, f.SetCorrectOption(i, correct))
		return f
	}

	tests := []struct {
		name        string
		correct     int
		remove      int
		wantOptions []string
		wantCorrect *int
	}{
		{"before correct shifts it", 2, 0, []string{"b", "c"}, intPtr(1)},
		{"after correct keeps it", 0, 2, []string{"a", "b"}, intPtr(0)},
		{"correct clears it", 1, 1, []string{"a", "c"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, tt.correct)
			require.NoError(t, f.RemoveOption(0, tt.remove))
			p := f.Draft().Problems[0]
			assert.Equal(t, tt.wantOptions, p.Options)
			assert.Equal(t, tt.wantCorrect, p.CorrectOptionIndex)
		})
	}
}

func TestForm_removalsStayDense(t *testing.T) {
	f := NewForm(KindMission, nil)
	for _, p := range []string{"p1", "p2", "p3"} {
		require.NoError(t, f.AddPassage(p))
	}
	for _, q := range []string{"q1", "q2", "q3"} {
		i, err := f.AddProblem(TypeQA)
		require.NoError(t, err)
		require.NoError(t, f.SetQuestion(i, q))
	}
	require.NoError(t, f.AddAnswer(2, "second"))
	require.NoError(t, f.AddTag("x"))
	require.NoError(t, f.AddTag("y"))
	require.NoError(t, f.AddTag("x")) // duplicate

	require.NoError(t, f.RemovePassage(1))
	require.NoError(t, f.RemoveProblem(0))
	require.NoError(t, f.RemoveAnswer(1, 0))
	require.NoError(t, f.RemoveTag(0))

	a := f.Draft()
	assert.Equal(t, []string{"p1", "p3"}, a.Passages)
	require.Len(t, a.Problems, 2)
	assert.Equal(t, "q2", a.Problems[0].Question)
	assert.Equal(t, "q3", a.Problems[1].Question)
	assert.Equal(t, []string{"second"}, a.Problems[1].Answers)
	assert.Equal(t, []string{"y"}, a.Tags)

	// the encoded indices have no gaps
	var buf bytes.Buffer
	require.NoError(t, f.Export(&buf))
	out := buf.String()
	assert.Contains(t, out, "passage_2,\"p3\"")
	assert.NotContains(t, out, "passage_3")
	assert.Contains(t, out, "problem_2_answer_1,\"second\"")
	assert.NotContains(t, out, "problem_3")

	err := f.RemovePassage(5)
	assert.Equal(t, ErrOutOfRange, errors.Cause(err))
}

func TestForm_classSelection(t *testing.T) {
	f := NewForm(KindMission, nil)
	require.NoError(t, f.SelectClass(4))
	require.NoError(t, f.SelectClass(9))
	require.NoError(t, f.SelectClass(4))
	assert.Equal(t, []int64{4, 9}, f.Draft().ClassIDs)

	require.NoError(t, f.DeselectClass(4))
	require.NoError(t, f.DeselectClass(42))
	assert.Equal(t, []int64{9}, f.Draft().ClassIDs)
}

func TestForm_Preview(t *testing.T) {
	f := newFilledForm(t, new(mockUploader), 1)
	before := f.Draft()

	require.NoError(t, f.Preview())
	assert.Equal(t, Previewing, f.State())
	assert.Equal(t, ErrNotEditing, f.SetTitle("changed"))
	assert.Equal(t, ErrNotEditing, f.Submit(context.Background()))
	assert.Equal(t, before, f.Draft())

	// the draft copy cannot leak mutations back
	d := f.Draft()
	d.Problems[0].Answers[0] = "leak"
	assert.Equal(t, before, f.Draft())

	require.NoError(t, f.Edit())
	assert.Equal(t, Editing, f.State())
	require.NoError(t, f.SetTitle("changed"))
}

func TestForm_Reset(t *testing.T) {
	up := new(mockUploader)
	f := newFilledForm(t, up, 1)
	require.NoError(t, f.Submit(context.Background()))

	f.Reset()
	assert.Equal(t, Editing, f.State())
	assert.Equal(t, Activity{Kind: KindMission}, f.Draft())
	assert.NoError(t, f.Err())
}

func TestForm_ImportExport(t *testing.T) {
	src := newFilledForm(t, nil, 5)
	var buf bytes.Buffer
	require.NoError(t, src.Export(&buf))

	dst := NewForm(KindMission, nil)
	warnings, err := dst.Import(&buf)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, src.Draft(), dst.Draft())

	other := NewForm(KindMinigame, nil)
	warnings, err = other.Import(strings.NewReader("kind,mission\ntitle,x"))
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, KindMinigame, other.Draft().Kind)

	require.NoError(t, other.Preview())
	_, err = other.Import(strings.NewReader("title,y"))
	assert.Equal(t, ErrNotEditing, err)
}

func TestForm_lineBreaks(t *testing.T) {
	f := newFilledForm(t, nil)
	require.NoError(t, f.SetDescription("first\r\nsecond"))
	require.NoError(t, f.AddPassage("p1\r\np2"))
	require.NoError(t, f.SetQuestion(0, "q1\r\nq2"))
	require.NoError(t, f.AddAnswer(0, "a1\r\na2"))

	draft := f.Draft()
	assert.Equal(t, "first\nsecond", draft.Description)
	assert.Equal(t, []string{"p1\np2"}, draft.Passages)
	assert.Equal(t, "q1\nq2", draft.Problems[0].Question)
	assert.Equal(t, []string{"Nile", "a1\na2"}, draft.Problems[0].Answers)

	var buf bytes.Buffer
	require.NoError(t, f.Export(&buf))
	dst := NewForm(KindMission, nil)
	_, err := dst.Import(&buf)
	require.NoError(t, err)
	assert.Equal(t, draft, dst.Draft())
}

func TestFileName(t *testing.T) {
	at := time.UnixMilli(42)
	assert.Equal(t, "case-study-what-s-up-42.csv", FileName(Activity{Kind: KindCaseStudy, Title: " What's up?! "}, at))
	assert.Equal(t, "minigame-untitled-42.csv", FileName(Activity{Kind: KindMinigame}, at))
}
