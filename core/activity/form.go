package activity

import (
	"context"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/elevana/core"
)

// State of an authoring Form.
type State int

// States: Editing -> Previewing <-> Editing, Editing -> Submitting -> Submitted | Editing.
const (
	Editing State = iota
	Previewing
	Submitting
	Submitted
)

func (s State) String() string {
	switch s {
	case Editing:
		return "editing"
	case Previewing:
		return "previewing"
	case Submitting:
		return "submitting"
	case Submitted:
		return "submitted"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

var (
	// errors
	ErrNotEditing = errors.New("activity draft is not in editing state")
	ErrNoTargets  = errors.New("select at least one classroom")
	ErrOutOfRange = errors.New("index out of range")
)

// Uploader uploads one encoded activity to one classroom.
type Uploader interface {
	UploadActivityCSV(ctx context.Context, data []byte, kind Kind, fileName string, classroomID int64) error
}

// UploadError reports the classrooms a fan-out upload failed for.
// Uploads that succeeded are neither retried nor rolled back.
type UploadError struct {
	Failed    map[int64]error
	Succeeded []int64
}

func (e *UploadError) Error() string {
	ids := make([]int64, 0, len(e.Failed))
	for id := range e.Failed {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	msgs := make([]string, 0, len(ids))
	for _, id := range ids {
		msgs = append(msgs, fmt.Sprintf("classroom %d: %v", id, e.Failed[id]))
	}
	total := len(e.Failed) + len(e.Succeeded)
	return fmt.Sprintf("upload failed for %d of %d classrooms: %s", len(e.Failed), total, strings.Join(msgs, "; "))
}

// Form owns the draft of one authored activity.
// Mutators only work while Editing and keep every list densely indexed.
type Form struct {
	mu       sync.Mutex
	kind     Kind
	state    State
	draft    Activity
	err      error
	uploader Uploader
	now      func() time.Time
}

func NewForm(kind Kind, uploader Uploader) *Form {
	f := &Form{kind: kind, uploader: uploader, now: time.Now}
	f.draft = Activity{Kind: kind}
	return f
}

func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Err returns the error of the last failed submission, if any.
func (f *Form) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Draft returns a copy of the current draft.
func (f *Form) Draft() Activity {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft.clone()
}

// edit runs fn on the draft if the form is Editing.
func (f *Form) edit(fn func(a *Activity) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != Editing {
		return ErrNotEditing
	}
	return fn(&f.draft)
}

// editProblem runs fn on problem i of the draft.
func (f *Form) editProblem(i int, fn func(p *Problem) error) error {
	return f.edit(func(a *Activity) error {
		if err := checkIndex("problem", i, len(a.Problems)); err != nil {
			return err
		}
		return fn(&a.Problems[i])
	})
}

func checkIndex(what string, i, length int) error {
	if i < 0 || i >= length {
		return errors.Wrapf(ErrOutOfRange, "%s %d", what, i)
	}
	return nil
}

func (f *Form) SetTitle(title string) error {
	return f.edit(func(a *Activity) error { a.Title = canonicalText(title); return nil })
}

func (f *Form) SetDescription(desc string) error {
	return f.edit(func(a *Activity) error { a.Description = canonicalText(desc); return nil })
}

func (f *Form) SetXP(xp int) error {
	return f.edit(func(a *Activity) error { a.XP = xp; return nil })
}

func (f *Form) SetSummaryFeedback(feedback string) error {
	return f.edit(func(a *Activity) error { a.SummaryFeedback = canonicalText(feedback); return nil })
}

// Passages

func (f *Form) AddPassage(text string) error {
	return f.edit(func(a *Activity) error { a.Passages = append(a.Passages, canonicalText(text)); return nil })
}

func (f *Form) SetPassage(i int, text string) error {
	return f.edit(func(a *Activity) error {
		if err := checkIndex("passage", i, len(a.Passages)); err != nil {
			return err
		}
		a.Passages[i] = canonicalText(text)
		return nil
	})
}

func (f *Form) RemovePassage(i int) error {
	return f.edit(func(a *Activity) error {
		if err := checkIndex("passage", i, len(a.Passages)); err != nil {
			return err
		}
		a.Passages = slices.Delete(a.Passages, i, i+1)
		return nil
	})
}

// Problems

// AddProblem appends an empty problem of type t and returns its index.
func (f *Form) AddProblem(t ProblemType) (int, error) {
	var idx int
	err := f.edit(func(a *Activity) error {
		p := Problem{}
		resetProblem(&p, ParseProblemType(string(t)))
		a.Problems = append(a.Problems, p)
		idx = len(a.Problems) - 1
		return nil
	})
	return idx, err
}

func (f *Form) RemoveProblem(i int) error {
	return f.edit(func(a *Activity) error {
		if err := checkIndex("problem", i, len(a.Problems)); err != nil {
			return err
		}
		a.Problems = slices.Delete(a.Problems, i, i+1)
		return nil
	})
}

// SetProblemType changes the type of problem i, dropping the fields of its previous type.
func (f *Form) SetProblemType(i int, t ProblemType) error {
	return f.editProblem(i, func(p *Problem) error {
		t = ParseProblemType(string(t))
		if p.Type == t {
			return nil
		}
		resetProblem(p, t)
		return nil
	})
}

// resetProblem gives p the empty fields of type t: one blank option for mcq, one blank answer otherwise.
func resetProblem(p *Problem, t ProblemType) {
	p.Type = t
	p.CorrectOptionIndex = nil
	if t == TypeMCQ {
		p.Options = []string{""}
		p.Answers = nil
		return
	}
	p.Options = nil
	p.Answers = []string{""}
}

func (f *Form) SetQuestion(i int, question string) error {
	return f.editProblem(i, func(p *Problem) error { p.Question = canonicalText(question); return nil })
}

func (f *Form) SetTimer(i int, seconds int) error {
	return f.editProblem(i, func(p *Problem) error {
		if seconds < 0 {
			return core.NewValidationError(nil, core.FieldError{Field: "timer_seconds", Error: "timer cannot be negative"})
		}
		p.TimerSeconds = seconds
		return nil
	})
}

// Options (mcq)

func (f *Form) AddOption(i int, text string) error {
	return f.editProblem(i, func(p *Problem) error {
		if p.Type != TypeMCQ {
			return errors.Errorf("problem %d is not multiple choice", i)
		}
		p.Options = append(p.Options, canonicalText(text))
		return nil
	})
}

func (f *Form) SetOption(i, k int, text string) error {
	return f.editProblem(i, func(p *Problem) error {
		if err := checkIndex("option", k, len(p.Options)); err != nil {
			return err
		}
		p.Options[k] = canonicalText(text)
		return nil
	})
}

// RemoveOption removes option k of problem i. The correct index follows its option:
// it shifts down when an earlier option is removed and is cleared when its own option is.
func (f *Form) RemoveOption(i, k int) error {
	return f.editProblem(i, func(p *Problem) error {
		if err := checkIndex("option", k, len(p.Options)); err != nil {
			return err
		}
		p.Options = slices.Delete(p.Options, k, k+1)
		if p.CorrectOptionIndex != nil {
			switch correct := *p.CorrectOptionIndex; {
			case correct == k:
				p.CorrectOptionIndex = nil
			case correct > k:
				correct--
				p.CorrectOptionIndex = &correct
			}
		}
		return nil
	})
}

func (f *Form) SetCorrectOption(i, k int) error {
	return f.editProblem(i, func(p *Problem) error {
		if err := checkIndex("option", k, len(p.Options)); err != nil {
			return err
		}
		p.CorrectOptionIndex = &k
		return nil
	})
}

// Answers (qa, fill)

func (f *Form) AddAnswer(i int, text string) error {
	return f.editProblem(i, func(p *Problem) error {
		if p.Type == TypeMCQ {
			return errors.Errorf("problem %d is multiple choice", i)
		}
		p.Answers = append(p.Answers, canonicalText(text))
		return nil
	})
}

func (f *Form) SetAnswer(i, k int, text string) error {
	return f.editProblem(i, func(p *Problem) error {
		if err := checkIndex("answer", k, len(p.Answers)); err != nil {
			return err
		}
		p.Answers[k] = canonicalText(text)
		return nil
	})
}

func (f *Form) RemoveAnswer(i, k int) error {
	return f.editProblem(i, func(p *Problem) error {
		if err := checkIndex("answer", k, len(p.Answers)); err != nil {
			return err
		}
		p.Answers = slices.Delete(p.Answers, k, k+1)
		return nil
	})
}

// Tags

func (f *Form) AddTag(tag string) error {
	return f.edit(func(a *Activity) error {
		tag = core.CleanString(tag)
		if tag == "" || slices.Contains(a.Tags, tag) {
			return nil
		}
		a.Tags = append(a.Tags, tag)
		return nil
	})
}

func (f *Form) RemoveTag(i int) error {
	return f.edit(func(a *Activity) error {
		if err := checkIndex("tag", i, len(a.Tags)); err != nil {
			return err
		}
		a.Tags = slices.Delete(a.Tags, i, i+1)
		return nil
	})
}

// Target classrooms

func (f *Form) SelectClass(id int64) error {
	return f.edit(func(a *Activity) error {
		if !slices.Contains(a.ClassIDs, id) {
			a.ClassIDs = append(a.ClassIDs, id)
		}
		return nil
	})
}

func (f *Form) DeselectClass(id int64) error {
	return f.edit(func(a *Activity) error {
		if i := slices.Index(a.ClassIDs, id); i >= 0 {
			a.ClassIDs = slices.Delete(a.ClassIDs, i, i+1)
		}
		return nil
	})
}

// Preview switches to the read-only Previewing state.
func (f *Form) Preview() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != Editing {
		return ErrNotEditing
	}
	f.state = Previewing
	return nil
}

// Edit leaves Previewing.
func (f *Form) Edit() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.state {
	case Editing:
		return nil
	case Previewing:
		f.state = Editing
		return nil
	}
	return errors.Errorf("cannot edit a %s form", f.state)
}

// Reset discards the draft and returns to a pristine Editing state.
func (f *Form) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = Editing
	f.draft = Activity{Kind: f.kind}
	f.err = nil
}

// FileName is the name the draft is uploaded under.
func FileName(a Activity, at time.Time) string {
	slug := core.Slugify(a.Title)
	if slug == "" {
		slug = "untitled"
	}
	return fmt.Sprintf("%s-%s-%d.csv", a.Kind, slug, at.UnixMilli())
}

// Submit validates the draft, encodes it once and uploads it to every target classroom concurrently.
// The form ends Submitted only if every upload succeeded; otherwise it goes back to Editing and
// the returned *UploadError lists the failed classrooms. Nothing is sent when no classroom is selected.
func (f *Form) Submit(ctx context.Context) error {
	f.mu.Lock()
	if f.state != Editing {
		f.mu.Unlock()
		return ErrNotEditing
	}
	draft := f.draft.clone()
	data, err := f.prepare(draft)
	if err != nil {
		f.err = err
		f.mu.Unlock()
		return err
	}
	f.state = Submitting
	f.err = nil
	f.mu.Unlock()

	err = f.upload(ctx, draft, data)

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.state = Editing
		f.err = err
		return err
	}
	f.state = Submitted
	return nil
}

func (f *Form) prepare(draft Activity) ([]byte, error) {
	if len(draft.ClassIDs) == 0 {
		return nil, core.NewValidationError(ErrNoTargets, core.FieldError{Field: "class_ids", Error: ErrNoTargets.Error()})
	}
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	data, err := Marshal(draft)
	return data, errors.Wrap(err, "encoding draft")
}

func (f *Form) upload(ctx context.Context, draft Activity, data []byte) error {
	fileName := FileName(draft, f.now())

	var (
		mu   sync.Mutex
		uerr = &UploadError{Failed: make(map[int64]error)}
		g    errgroup.Group
	)
	for _, id := range draft.ClassIDs {
		id := id
		g.Go(func() error {
			err := f.uploader.UploadActivityCSV(ctx, data, draft.Kind, fileName, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				uerr.Failed[id] = err
				return err
			}
			uerr.Succeeded = append(uerr.Succeeded, id)
			return nil
		})
	}
	_ = g.Wait() // every upload runs to completion, failures are collected above

	if len(uerr.Failed) > 0 {
		sort.Slice(uerr.Succeeded, func(i, j int) bool { return uerr.Succeeded[i] < uerr.Succeeded[j] })
		return uerr
	}
	return nil
}

// Import replaces the draft with the activity read from r and returns the decoder warnings.
// The draft always keeps the kind of the form.
func (f *Form) Import(r io.Reader) ([]Warning, error) {
	var a Activity
	dec := NewDecoder(r)
	if err := dec.Decode(&a); err != nil {
		return nil, err
	}
	warnings := dec.Warnings()
	err := f.edit(func(draft *Activity) error {
		if a.Kind != "" && a.Kind != f.kind {
			warnings = append(warnings, Warning{Key: keyKind, Msg: fmt.Sprintf("%s imported as %s", a.Kind, f.kind)})
		}
		a.Kind = f.kind
		*draft = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return warnings, nil
}

// Export writes the current draft to w.
func (f *Form) Export(w io.Writer) error {
	return NewEncoder(w).Encode(f.Draft())
}
