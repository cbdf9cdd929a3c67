package sanitizer

import (
	"reflect"
	"testing"
)

func TestNormalizeSymptoms(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{
			name:  "lowercase and collapse",
			input: []string{"Chest  Pain", "FEVER"},
			want:  []string{"chest pain", "fever"},
		},
		{
			name:  "remove duplicates",
			input: []string{"Fever", "fever", " FEVER "},
			want:  []string{"fever"},
		},
		{
			name:  "filter empty strings",
			input: []string{"cough", "", "  ", "rash"},
			want:  []string{"cough", "rash"},
		},
		{
			name:  "empty input",
			input: []string{},
			want:  []string{},
		},
		{
			name:  "nil input",
			input: nil,
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeSymptoms(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("NormalizeSymptoms(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeDays(t *testing.T) {
	got := NormalizeDays([]string{" Monday", "Monday", "", "tue"})
	want := []string{"Monday", "tue"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NormalizeDays = %v, want %v", got, want)
	}
}
