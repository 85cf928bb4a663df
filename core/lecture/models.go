package lecture

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/lectern/core"
)

type Lecture struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Course    string    `json:"course"`
	Year      string    `json:"year"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"timestamp"` // UTC
}

// Summary is what list views return.
type Summary struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Course    string    `json:"course"`
	Year      string    `json:"year"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"timestamp"`
}

func (l Lecture) Summary() Summary {
	return Summary{
		ID:        l.ID,
		Title:     l.Title,
		Course:    l.Course,
		Year:      l.Year,
		Author:    l.Author,
		CreatedAt: l.CreatedAt,
	}
}

func Summaries(lectures []Lecture) []Summary {
	s := make([]Summary, 0, len(lectures))
	for _, l := range lectures {
		s = append(s, l.Summary())
	}
	return s
}

// NewLecture is the authoring payload. All four fields are required.
type NewLecture struct {
	Title   string `json:"title"`
	Course  string `json:"course"`
	Year    string `json:"year"`
	Content string `json:"content"`
}

// UnmarshalJSON accepts the year as a string or as a number ("year": 2).
func (nl *NewLecture) UnmarshalJSON(data []byte) error {
	type plain NewLecture
	aux := struct {
		*plain
		Year interface{} `json:"year"`
	}{plain: (*plain)(nl)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	switch year := aux.Year.(type) {
	case nil:
		nl.Year = ""
	case string:
		nl.Year = year
	case float64:
		nl.Year = strconv.FormatFloat(year, 'f', -1, 64)
	default:
		return fmt.Errorf("year must be a string or a number, got %T", year)
	}
	return nil
}

var (
	missingFieldTag  = "lecturefield"
	missingFieldText = "Missing required fields"
)

// InitValidators registers the authoring validation message.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(newLectureStructValidation, NewLecture{})
	core.RegisterCustomTranslation(validate, translator, missingFieldTag, missingFieldText)
}

func newLectureStructValidation(sl validator.StructLevel) {
	nl, ok := sl.Current().Interface().(NewLecture)
	if !ok {
		return
	}
	for fld, v := range map[string]string{"title": nl.Title, "course": nl.Course, "year": nl.Year, "content": nl.Content} {
		if v == "" {
			sl.ReportError(v, fld, fld, missingFieldTag, "")
		}
	}
}

func (nl *NewLecture) Validate(validate *validator.Validate) error {
	nl.Title = core.CleanString(nl.Title)
	nl.Course = core.CleanString(nl.Course)
	nl.Year = core.CleanString(nl.Year)
	nl.Content = core.CleanString(nl.Content)
	return validate.Struct(nl)
}

// Audio is an uploaded recording to transcribe.
type Audio struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}
