package flow

import (
	"fmt"

	"github.com/abhisek/studypal/internal/llm"
	"github.com/abhisek/studypal/internal/prompt"
)

// ExamPlanInput requests a day-by-day study roadmap.
type ExamPlanInput struct {
	Subject     string   `json:"subject" validate:"required,max=200"`
	ExamDate    string   `json:"examDate" validate:"required,datetime=2006-01-02"`
	CurrentDate string   `json:"currentDate" validate:"required,datetime=2006-01-02"`
	Topics      []string `json:"topics" validate:"min=1,max=50,dive,required"`
	HoursPerDay int      `json:"hoursPerDay" validate:"min=1,max=12"`
	WeakTopics  []string `json:"weakTopics,omitempty" validate:"max=50,dive,required"`
}

// RoadmapDay is one day of the plan.
type RoadmapDay struct {
	Day   int      `json:"day"`
	Date  string   `json:"date"`
	Focus string   `json:"focus"`
	Tasks []string `json:"tasks"`
}

// ExamPlan is the exam-plan result.
type ExamPlan struct {
	Summary string       `json:"summary"`
	Roadmap []RoadmapDay `json:"roadmap"`
	Tips    []string     `json:"tips"`
}

// ExamPlanSchema defines the JSON schema for exam plans.
var ExamPlanSchema = &llm.Schema{
	Name:        "exam-plan",
	Description: "A day-by-day exam preparation roadmap",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"summary": nonEmpty("Two or three sentences on the overall strategy"),
			"roadmap": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"day":   map[string]any{"type": "integer", "minimum": 1},
						"date":  nonEmpty("Calendar date, YYYY-MM-DD"),
						"focus": nonEmpty("Main focus for the day"),
						"tasks": stringArray("Concrete tasks that fit the daily hours", 1, 0),
					},
					"required":             []any{"day", "date", "focus", "tasks"},
					"additionalProperties": false,
				},
			},
			"tips": stringArray("General exam tips", 0, 6),
		},
		"required":             []any{"summary", "roadmap", "tips"},
		"additionalProperties": false,
	},
}

// MaxPlanDays is the longest roadmap a single generation can hold.
const MaxPlanDays = 60

// Output budget: a fixed allowance for summary and tips plus one per day.
const (
	planBaseTokens   = 1024
	planTokensPerDay = 120
)

type planDay struct {
	Day  int    `json:"day"`
	Date string `json:"date"`
}

type examPlanData struct {
	ExamPlanInput
	PlanDays int       `json:"planDays"`
	Days     []planDay `json:"days"`
}

var examPlanTemplate = prompt.Must(prompt.Parse("exam-plan", `Build a {{planDays}}-day study plan for a {{subject}} exam on {{examDate}}. Today is {{currentDate}}.
The student can study {{hoursPerDay}} hours per day.

Topics to cover:
{{#each topics}}- {{this}}
{{/each}}{{#if weakTopics}}
Weak topics (give these extra time):
{{#each weakTopics}}- {{this}}
{{/each}}{{/if}}
The roadmap must have exactly {{planDays}} entries, one per day, in this order:
{{#each days}}- day {{day}}: {{date}}
{{/each}}
Leave the final day for light revision when the plan is longer than one day.`))

// PlanExam builds a roadmap with exactly one entry per remaining day.
var PlanExam = &Flow[ExamPlanInput, ExamPlan]{
	Name:        "exam-plan",
	System:      `You are a study coach who writes realistic, well-paced revision plans.`,
	Template:    examPlanTemplate,
	Schema:      ExamPlanSchema,
	MaxTokens:   planBaseTokens + planTokensPerDay*MaxPlanDays,
	Temperature: 0.5,
	Configure: func(in ExamPlanInput, req *llm.Request) {
		if n, err := examPlanDays(in); err == nil {
			req.MaxTokens = planBaseTokens + planTokensPerDay*n
		}
	},
	Prepare: func(in ExamPlanInput) (any, error) {
		n, err := examPlanDays(in)
		if err != nil {
			return nil, err
		}
		start, _ := ParseDate(in.CurrentDate)
		days := make([]planDay, n)
		for i := range days {
			days[i] = planDay{Day: i + 1, Date: start.AddDate(0, 0, i).Format(DateLayout)}
		}
		return examPlanData{ExamPlanInput: in, PlanDays: n, Days: days}, nil
	},
	Expect: func(in ExamPlanInput) int {
		n, _ := examPlanDays(in)
		return n
	},
	Count: func(out *ExamPlan) int { return len(out.Roadmap) },
}

func examPlanDays(in ExamPlanInput) (int, error) {
	exam, err := ParseDate(in.ExamDate)
	if err != nil {
		return 0, err
	}
	current, err := ParseDate(in.CurrentDate)
	if err != nil {
		return 0, err
	}
	n := PlanDays(exam, current)
	if n > MaxPlanDays {
		return 0, fmt.Errorf("plan of %d days exceeds the %d-day limit", n, MaxPlanDays)
	}
	return n, nil
}
