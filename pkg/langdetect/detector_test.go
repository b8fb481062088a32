package langdetect

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDetectFromRepoName(t *testing.T) {
	d := New()

	tests := []struct {
		repoName string
		want     string
	}{
		{"osbooks-fisica-universitaria", "spanish"},
		{"cnxbook-fizyka-dla-szkol", "polish"},
		{"osbooks-biology-french", "french"},
		{"osbooks-university-physics", "english"},
	}
	for _, tt := range tests {
		if got := d.Detect("", tt.repoName); got != tt.want {
			t.Errorf("Detect(%q) = %q, want %q", tt.repoName, got, tt.want)
		}
	}
}

func TestDetectSamplesRepoContent(t *testing.T) {
	d := New()
	repo := t.TempDir()

	spanish := "La física es la ciencia que estudia la naturaleza de la materia y la energía. " +
		"Los movimientos de los cuerpos se describen mediante ecuaciones que relacionan " +
		"la posición, la velocidad y la aceleración con el tiempo transcurrido."
	if err := os.WriteFile(filepath.Join(repo, "capitulo-01.md"), []byte(spanish), 0o644); err != nil {
		t.Fatal(err)
	}

	if got := d.Detect(repo, "textbook-v2"); got != "spanish" {
		t.Errorf("Detect() = %q, want spanish from content sample", got)
	}
}

func TestDetectDefaultsToEnglish(t *testing.T) {
	d := New()
	if got := d.Detect(t.TempDir(), "some-repo"); got != "english" {
		t.Errorf("Detect() on empty repo = %q, want english", got)
	}
}
