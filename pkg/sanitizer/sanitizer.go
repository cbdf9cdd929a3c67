package sanitizer

import "strings"

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

var (
	emailPipeline   = Pipeline{strings.TrimSpace, strings.ToLower}
	symptomPipeline = Pipeline{TrimAndNormalize, strings.ToLower}
)

func NormalizeEmail(email string) string {
	return emailPipeline.Apply(email)
}

// NormalizeSymptom folds case and whitespace so symptom lookups are exact.
func NormalizeSymptom(symptom string) string {
	return symptomPipeline.Apply(symptom)
}

// NormalizeText trims free text while keeping its line structure.
func NormalizeText(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	return strings.Join(lines, "\n")
}
