package disciplines

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"University Physics Volume 1", "PhysicalSciences"},
		{"osbooks-astronomy", "PhysicalSciences"},
		{"Anatomy and Physiology", "HealthSciences"},
		{"Concepts of Biology", "LifeSciences"},
		{"Introductory Statistics", "Mathematics"},
		{"Principles of Macroeconomics", "SocialSciences"},
		{"Introduction to Philosophy", "Humanities"},
		{"Entrepreneurship 2e", "Business"},
		{"intro to programming", "ComputerScience"},
		{"collected recipes", ""},
	}
	for _, tt := range tests {
		if got := Classify(tt.text); got != tt.want {
			t.Errorf("Classify(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}
