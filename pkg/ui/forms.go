package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vanderheijden86/sage/pkg/api"
	"github.com/vanderheijden86/sage/pkg/generate"

	"github.com/charmbracelet/huh"
	"github.com/go-playground/validator/v10"
)

// The form values live behind pointers: huh binds fields to addresses and
// the bubbletea Model is copied on every update.

// generateForm collects an AI roadmap request.
type generateForm struct {
	form *huh.Form

	topic      string
	skills     string
	quick      []string
	level      string
	careerGoal string
}

var goalLabels = map[string]string{
	"frontend-developer":  "Frontend Developer",
	"backend-developer":   "Backend Developer",
	"fullstack-developer": "Full Stack Developer",
	"data-scientist":      "Data Scientist",
}

func newGenerateForm(width int) *generateForm {
	f := &generateForm{level: generate.Beginner, careerGoal: generate.CareerGoals[0]}

	levels := make([]huh.Option[string], 0, len(generate.Levels))
	for _, l := range generate.Levels {
		levels = append(levels, huh.NewOption(strings.ToUpper(l[:1])+l[1:], l))
	}
	goals := make([]huh.Option[string], 0, len(generate.CareerGoals))
	for _, g := range generate.CareerGoals {
		label := goalLabels[g]
		if label == "" {
			label = g
		}
		goals = append(goals, huh.NewOption(label, g))
	}

	f.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("What do you want to learn?").
				Placeholder("e.g. Web Development, Machine Learning").
				Value(&f.topic).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return generate.ErrTopicRequired
					}
					return nil
				}),
			huh.NewInput().
				Title("Skills you already have").
				Description("Comma separated").
				Value(&f.skills),
			huh.NewMultiSelect[string]().
				Title("Quick add").
				Options(huh.NewOptions(generate.QuickSkills...)...).
				Value(&f.quick),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Experience level").
				Options(levels...).
				Value(&f.level),
			huh.NewSelect[string]().
				Title("Career goal").
				Options(goals...).
				Value(&f.careerGoal),
		),
	).WithTheme(huh.ThemeDracula()).WithShowHelp(true)
	if width > 0 {
		f.form = f.form.WithWidth(min(width, 80))
	}
	return f
}

// Request builds the normalized generation request.
func (f *generateForm) Request() generate.Request {
	skills := append(splitList(f.skills), f.quick...)
	return generate.Request{
		Topic:           f.topic,
		Skills:          skills,
		ExperienceLevel: f.level,
		CareerGoal:      f.careerGoal,
	}.Normalized()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

type authMode int

const (
	authLogin authMode = iota
	authRegister
)

func (m authMode) String() string {
	if m == authRegister {
		return "Register"
	}
	return "Login"
}

// authForm collects login or registration credentials.
type authForm struct {
	form *huh.Form
	mode authMode

	name     string
	email    string
	password string
}

var validate = validator.New()

func validEmail(s string) error {
	if err := validate.Var(strings.TrimSpace(s), "required,email"); err != nil {
		return errors.New("please enter a valid email address")
	}
	return nil
}

func newAuthForm(mode authMode, width int) *authForm {
	f := &authForm{mode: mode}
	var fields []huh.Field
	if mode == authRegister {
		fields = append(fields, huh.NewInput().
			Title("Name").
			Value(&f.name).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return errors.New("name is required")
				}
				return nil
			}))
	}
	minLen := 1
	if mode == authRegister {
		minLen = 6
	}
	fields = append(fields,
		huh.NewInput().Title("Email").Value(&f.email).Validate(validEmail),
		huh.NewInput().
			Title("Password").
			EchoMode(huh.EchoModePassword).
			Value(&f.password).
			Validate(func(s string) error {
				if len(s) < minLen {
					if minLen == 1 {
						return errors.New("password is required")
					}
					return fmt.Errorf("password must be at least %d characters", minLen)
				}
				return nil
			}),
	)
	f.form = huh.NewForm(huh.NewGroup(fields...).Title(mode.String())).
		WithTheme(huh.ThemeDracula()).
		WithShowHelp(true)
	if width > 0 {
		f.form = f.form.WithWidth(min(width, 60))
	}
	return f
}

func (f *authForm) loginRequest() api.LoginRequest {
	return api.LoginRequest{Email: strings.TrimSpace(f.email), Password: f.password}
}

func (f *authForm) registerRequest() api.RegisterRequest {
	return api.RegisterRequest{
		Name:     strings.TrimSpace(f.name),
		Email:    strings.TrimSpace(f.email),
		Password: f.password,
	}
}
