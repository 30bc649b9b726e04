package rubric

// Built-in rubric versions.
const (
	V1 Version = "V1"
	V2 Version = "V2"
)

var labels = [...]string{
	"Research question clearly stated",
	"Study design appropriate to the question",
	"Sample size justified",
	"Participants and setting described",
	"Outcome measures valid and reliable",
	"Bias controlled (blinding, allocation)",
	"Statistical analysis appropriate",
	"Results completely reported",
	"Limitations discussed",
	"Conclusions supported by the data",
	"Funding and conflicts of interest disclosed",
}

func questionID(i int) string {
	ids := [...]string{"q1", "q2", "q3", "q4", "q5", "q6", "q7", "q8", "q9", "q10", "q11"}
	return ids[i]
}

func yesPartialNo() []Option {
	return []Option{
		{Token: "yes", Score: 2, Aliases: []string{"y", "true"}},
		{Token: "partial", Score: 1, Aliases: []string{"partially", "somewhat"}},
		{Token: "no", Score: 0, Aliases: []string{"n", "false"}},
	}
}

func yesNoUnclear() []Option {
	return []Option{
		{Token: "yes", Score: 1, Aliases: []string{"y", "true"}},
		{Token: "no", Score: 0, Aliases: []string{"n", "false"}},
		{Token: "unclear", Score: 0, Aliases: []string{"not_reported", "cannot_tell"}},
	}
}

func v1Questions() []Question {
	qs := make([]Question, len(labels))
	for i, l := range labels {
		qs[i] = Question{ID: questionID(i), Label: l, Options: yesPartialNo()}
	}
	return qs
}

func v2Questions() []Question {
	qs := make([]Question, len(labels))
	for i, l := range labels {
		qs[i] = Question{ID: questionID(i), Label: l, Options: yesNoUnclear()}
	}
	qs[1].Options = []Option{
		{Token: "rct", Score: 3, Aliases: []string{"randomized", "randomised"}},
		{Token: "cohort", Score: 2},
		{Token: "case_control", Score: 1},
		{Token: "other", Score: 0, Aliases: []string{"case_series", "cross_sectional"}},
	}
	qs[2].Options = []Option{
		{Token: "adequate", Score: 2},
		{Token: "borderline", Score: 1},
		{Token: "inadequate", Score: 0},
	}
	qs[10].Options = []Option{
		{Token: "disclosed", Score: 1, Aliases: []string{"yes"}},
		{Token: "not_disclosed", Score: 0, Aliases: []string{"no"}},
	}
	return qs
}

// Default returns a fresh Registry holding the built-in V1 and V2 tables.
func Default() *Registry {
	r1, err := New(V1, v1Questions())
	if err != nil {
		panic(err)
	}
	r2, err := New(V2, v2Questions())
	if err != nil {
		panic(err)
	}
	reg, err := NewRegistry(r1, r2)
	if err != nil {
		panic(err)
	}
	return reg
}
