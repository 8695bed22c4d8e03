// Package generate models AI roadmap requests and builds a staged roadmap
// locally when the generation service cannot be reached.
package generate

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/vanderheijden86/sage/pkg/model"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Experience levels.
const (
	Beginner     = "beginner"
	Intermediate = "intermediate"
	Advanced     = "advanced"
)

// Levels lists the experience levels in form order.
var Levels = []string{Beginner, Intermediate, Advanced}

// CareerGoals are the goals the generation service has templates for.
var CareerGoals = []string{
	"frontend-developer",
	"backend-developer",
	"fullstack-developer",
	"data-scientist",
}

// QuickSkills are offered as one-key additions in the form.
var QuickSkills = []string{"HTML", "CSS", "JavaScript", "React", "Python", "SQL", "Git", "Docker"}

// ErrTopicRequired is returned for a request without a topic.
var ErrTopicRequired = errors.New("please enter a topic you want to learn")

// Request is the input of a roadmap generation.
type Request struct {
	Topic           string   `json:"topic" validate:"required"`
	Skills          []string `json:"skills" validate:"dive,required"`
	ExperienceLevel string   `json:"experience_level" validate:"omitempty,oneof=beginner intermediate advanced"`
	CareerGoal      string   `json:"career_goal"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Normalized trims fields, drops blank and repeated skills and fills the
// default experience level and career goal.
func (r Request) Normalized() Request {
	out := Request{
		Topic:           strings.TrimSpace(r.Topic),
		ExperienceLevel: strings.ToLower(strings.TrimSpace(r.ExperienceLevel)),
		CareerGoal:      strings.TrimSpace(r.CareerGoal),
	}
	for _, s := range r.Skills {
		s = strings.TrimSpace(s)
		if s != "" && !slices.Contains(out.Skills, s) {
			out.Skills = append(out.Skills, s)
		}
	}
	if out.ExperienceLevel == "" {
		out.ExperienceLevel = Beginner
	}
	if out.CareerGoal == "" {
		out.CareerGoal = CareerGoals[0]
	}
	return out
}

// Params converts the request into the parameters stored with a roadmap.
func (r Request) Params() *model.GenerationParams {
	return &model.GenerationParams{
		Topic:           r.Topic,
		Skills:          slices.Clone(r.Skills),
		ExperienceLevel: r.ExperienceLevel,
		CareerGoal:      r.CareerGoal,
	}
}

// Validate checks a request and reports the first problem in form wording.
func Validate(r Request) error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	for _, fe := range verrs {
		switch {
		case fe.Field() == "Topic":
			return ErrTopicRequired
		case fe.Field() == "ExperienceLevel":
			return fmt.Errorf("experience level %q must be one of %s", fe.Value(), strings.Join(Levels, ", "))
		case strings.HasPrefix(fe.Field(), "Skills"):
			return errors.New("skills must not be blank")
		}
	}
	return err
}

type stage struct {
	title string
	items []string
}

var stages = []stage{
	{"Fundamentals", []string{"Core Concepts", "Basic Syntax", "Getting Started"}},
	{"Building Blocks", []string{"Intermediate Topics", "Best Practices", "Common Patterns"}},
	{"Advanced Topics", []string{"Advanced Concepts", "Performance", "Architecture"}},
	{"Real-World Projects", []string{"Build Projects", "Portfolio", "Deployment"}},
}

// Stages returns the stage titles a learner at level starts from.
func Stages(level string) []string {
	var out []string
	for _, s := range stagesFor(level) {
		out = append(out, s.title)
	}
	return out
}

func stagesFor(level string) []stage {
	switch level {
	case Intermediate:
		return stages[1:]
	case Advanced:
		return stages[2:]
	default:
		return stages
	}
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lowercases s and joins its words with dashes.
func Slug(s string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// Offline builds a roadmap for r without the generation service. Stages
// form a chain; each listed skill hangs off the first stage and feeds the
// second, so a learner's existing skills sit next to the fundamentals.
func Offline(r Request) (*model.Roadmap, error) {
	r = r.Normalized()
	if err := Validate(r); err != nil {
		return nil, err
	}

	picked := stagesFor(r.ExperienceLevel)
	rm := &model.Roadmap{
		ID:          uuid.NewString(),
		Title:       fmt.Sprintf("Your Personalized %s Roadmap", r.Topic),
		Description: fmt.Sprintf("A tailored learning path based on your %s level experience. Drafted offline.", r.ExperienceLevel),
		AIGenerated: true,
		Params:      r.Params(),
	}

	ids := make([]string, len(picked))
	for i, s := range picked {
		ids[i] = "stage-" + Slug(s.title)
		category := model.CategoryRequired
		if s.title == "Advanced Topics" && r.ExperienceLevel == Beginner {
			category = model.CategoryRecommended
		}
		rm.Nodes = append(rm.Nodes, model.Node{
			ID:          ids[i],
			Title:       fmt.Sprintf("%s: %s", r.Topic, s.title),
			Category:    category,
			Topics:      slices.Clone(s.items),
			Description: fmt.Sprintf("%s for %s.", s.title, r.Topic),
		})
		if i > 0 {
			rm.Edges = append(rm.Edges, model.Edge{From: ids[i-1], To: ids[i]})
		}
	}

	for _, skill := range r.Skills {
		id := "skill-" + Slug(skill)
		if id == "skill-" || rm.HasNode(id) {
			continue
		}
		rm.Nodes = append(rm.Nodes, model.Node{
			ID:       id,
			Title:    skill,
			Category: model.CategoryRecommended,
			Topics:   []string{fmt.Sprintf("Apply %s to %s", skill, r.Topic)},
		})
		rm.Edges = append(rm.Edges, model.Edge{From: ids[0], To: id})
		if len(ids) > 1 {
			rm.Edges = append(rm.Edges, model.Edge{From: id, To: ids[1]})
		}
	}
	return rm, nil
}
