package service

import (
	"english_test_bot/internal/model"
	"english_test_bot/internal/util"
	"strings"
)

// QuestionForm is the structured input for a new question. The transport
// fills it however it likes (multi-line text, future web form); the form
// itself knows nothing about message syntax.
type QuestionForm struct {
	Level        model.Level
	Text         string
	Options      []string
	CorrectLabel string
	Explanation  string
}

// Validate enforces the creation invariants: a prompt, between 2 and 4
// options, and a correct label that names one of the supplied options.
func (f *QuestionForm) Validate() error {
	if !f.Level.Valid() {
		return util.ErrInvalidQuestionFormat
	}
	if strings.TrimSpace(f.Text) == "" {
		return util.ErrInvalidQuestionFormat
	}
	if len(f.Options) < 2 || len(f.Options) > len(model.OptionLabels) {
		return util.ErrInvalidQuestionFormat
	}
	for _, opt := range f.Options {
		if strings.TrimSpace(opt) == "" {
			return util.ErrInvalidQuestionFormat
		}
	}
	labelIndex := -1
	for i, label := range model.OptionLabels {
		if f.CorrectLabel == label {
			labelIndex = i
			break
		}
	}
	if labelIndex < 0 || labelIndex >= len(f.Options) {
		return util.ErrInvalidQuestionFormat
	}
	return nil
}

// Question materializes the validated form.
func (f *QuestionForm) Question(createdBy string) *model.Question {
	q := &model.Question{
		Level:        f.Level,
		Text:         strings.TrimSpace(f.Text),
		CorrectLabel: f.CorrectLabel,
		Explanation:  strings.TrimSpace(f.Explanation),
		Difficulty:   1,
		IsActive:     true,
		CreatedBy:    createdBy,
	}
	slots := []*string{&q.OptionA, &q.OptionB, &q.OptionC, &q.OptionD}
	for i, opt := range f.Options {
		*slots[i] = strings.TrimSpace(opt)
	}
	return q
}

// ParseQuestionText parses the admin free-text question format:
//
//	question text
//	A) option
//	B) option
//	C) option (optional)
//	D) option (optional)
//	correct label on its own line
//	explanation (optional)
func ParseQuestionText(level model.Level, text string) (*QuestionForm, error) {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) < 4 {
		return nil, util.ErrInvalidQuestionFormat
	}

	form := &QuestionForm{
		Level: level,
		Text:  strings.TrimSpace(lines[0]),
	}

	for _, raw := range lines[1:] {
		line := strings.TrimSpace(raw)
		switch {
		case hasOptionPrefix(line):
			form.Options = append(form.Options, strings.TrimSpace(line[2:]))
		case form.CorrectLabel == "" && isLabel(line):
			form.CorrectLabel = strings.ToUpper(line)
		case line != "":
			form.Explanation = line
		}
	}

	if err := form.Validate(); err != nil {
		return nil, err
	}
	return form, nil
}

func hasOptionPrefix(line string) bool {
	for _, label := range model.OptionLabels {
		if strings.HasPrefix(line, label+")") {
			return true
		}
	}
	return false
}

func isLabel(line string) bool {
	upper := strings.ToUpper(line)
	for _, label := range model.OptionLabels {
		if upper == label {
			return true
		}
	}
	return false
}
