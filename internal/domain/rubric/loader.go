package rubric

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type optionDoc struct {
	Token   string   `koanf:"token"`
	Score   int      `koanf:"score"`
	Aliases []string `koanf:"aliases"`
}

type questionDoc struct {
	ID      string      `koanf:"id"`
	Label   string      `koanf:"label"`
	Options []optionDoc `koanf:"options"`
}

type rubricDoc struct {
	Version   string        `koanf:"version"`
	Questions []questionDoc `koanf:"questions"`
}

type fileDoc struct {
	Rubrics []rubricDoc `koanf:"rubrics"`
}

// LoadFile reads rubric tables from a YAML file of the form
//
//	rubrics:
//	  - version: V3
//	    questions:
//	      - id: q1
//	        label: Research question clearly stated
//	        options:
//	          - {token: "yes", score: 1, aliases: ["y"]}
//	          - {token: "no", score: 0}
func LoadFile(path string) (*Registry, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadRubric, path, err)
	}
	var doc fileDoc
	if err := k.UnmarshalWithConf("", &doc, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadRubric, path, err)
	}
	rubrics := make([]*Rubric, 0, len(doc.Rubrics))
	for _, rd := range doc.Rubrics {
		qs := make([]Question, len(rd.Questions))
		for i, qd := range rd.Questions {
			opts := make([]Option, len(qd.Options))
			for j, od := range qd.Options {
				opts[j] = Option{Token: od.Token, Score: od.Score, Aliases: od.Aliases}
			}
			qs[i] = Question{ID: qd.ID, Label: qd.Label, Options: opts}
		}
		r, err := New(Version(rd.Version), qs)
		if err != nil {
			return nil, err
		}
		rubrics = append(rubrics, r)
	}
	return NewRegistry(rubrics...)
}
