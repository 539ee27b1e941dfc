package web

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/maimai/spacetarot"
)

const (
	dateLayout = "2006-01-02"

	minAgeYears = 16
	maxAgeYears = 90
	daysPerYear = 365
)

const (
	msgRequired  = "Por favor, completa todos los campos obligatorios."
	msgBirthDate = "La fecha de nacimiento debe corresponder a una edad entre 16 y 90 años."
)

var (
	errRequired  = errors.New(msgRequired)
	errBirthDate = errors.New(msgBirthDate)
)

var validate = validator.New()

// BirthWindow is the range of accepted birth dates, ages 16 to 90, counted
// in 365-day years back from today.
type BirthWindow struct {
	Min time.Time
	Max time.Time
}

func birthWindow(now time.Time) BirthWindow {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return BirthWindow{
		Min: today.AddDate(0, 0, -maxAgeYears*daysPerYear),
		Max: today.AddDate(0, 0, -minAgeYears*daysPerYear),
	}
}

func (w BirthWindow) Contains(t time.Time) bool {
	return !t.Before(w.Min) && !t.After(w.Max)
}

func (w BirthWindow) MinString() string { return w.Min.Format(dateLayout) }
func (w BirthWindow) MaxString() string { return w.Max.Format(dateLayout) }

func parseSubmission(r *http.Request) (tarot.Submission, error) {
	if err := r.ParseForm(); err != nil {
		return tarot.Submission{}, errors.Wrap(err, "failed to parse form")
	}

	field := func(name string) string {
		return strings.TrimSpace(r.PostForm.Get(name))
	}

	return tarot.Submission{
		Name:          field("name"),
		BirthDate:     field("birth_date"),
		FavoriteColor: field("favorite_color"),
		SpiritAnimal:  field("spirit_animal"),
		Mood:          field("mood"),
		Email:         field("email"),
	}, nil
}

// validateSubmission returns errRequired when any field is blank and
// errBirthDate when the birth date is malformed or outside the window.
func validateSubmission(sub tarot.Submission, window BirthWindow) error {
	err := validate.Struct(sub)
	if err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		for _, fe := range fieldErrs {
			if fe.Tag() == "required" {
				return errRequired
			}
		}
		return errBirthDate
	}

	born, err := time.Parse(dateLayout, sub.BirthDate)
	if err != nil || !window.Contains(born) {
		return errBirthDate
	}

	return nil
}
