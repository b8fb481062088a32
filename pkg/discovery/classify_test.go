package discovery

import (
	"fmt"
	"testing"

	"github.com/davidlary/openbooks/models"
	"github.com/davidlary/openbooks/pkg/githubapi"
)

func testClassifier() *Classifier {
	return NewClassifier(models.DefaultConfig().Indicators)
}

func repo(name, owner, description string, sizeKB int, fork bool) githubapi.Repo {
	r := githubapi.Repo{
		Name:        name,
		Description: description,
		SizeKB:      sizeKB,
		Fork:        fork,
	}
	r.Owner.Login = owner
	return r
}

func TestIsTextbook(t *testing.T) {
	c := testClassifier()

	tests := []struct {
		name string
		repo githubapi.Repo
		want bool
	}{
		{
			name: "strong indicator in name",
			repo: repo("osbooks-university-physics", "random-user", "", 10, false),
			want: true,
		},
		{
			name: "cnxbook prefix",
			repo: repo("cnxbook-college-algebra", "someone", "", 10, false),
			want: true,
		},
		{
			name: "trusted org with subject keyword",
			repo: repo("astronomy-2e", "openstax", "astronomy content", 10, false),
			want: true,
		},
		{
			name: "trusted org with educational keyword only",
			repo: repo("reader-2e", "cnx-user-books", "university course materials", 10, false),
			want: true,
		},
		{
			name: "subject plus educational, large, not a fork",
			repo: repo("intro-chemistry", "a-professor", "chemistry course notes", 500, false),
			want: true,
		},
		{
			name: "exclude keyword vetoes strong indicator",
			repo: repo("osbooks-cms", "openstax", "content pipeline", 500, false),
			want: false,
		},
		{
			name: "exclude keyword in description",
			repo: repo("physics-course", "a-professor", "deployment automation for physics course", 500, false),
			want: false,
		},
		{
			name: "subject keyword alone, large, not a fork",
			repo: repo("quantum-physics-notes", "a-professor", "lecture notes on physics", 500, false),
			want: true,
		},
		{
			name: "educational keyword alone, large, not a fork",
			repo: repo("open-reader", "a-professor", "course materials", 500, false),
			want: true,
		},
		{
			name: "too small for the weak path",
			repo: repo("intro-chemistry", "a-professor", "chemistry course notes", 10, false),
			want: false,
		},
		{
			name: "size equal to the minimum is still too small",
			repo: repo("quantum-physics-notes", "a-professor", "lecture notes on physics", 50, false),
			want: false,
		},
		{
			name: "fork rejected on the weak path",
			repo: repo("intro-chemistry", "a-professor", "chemistry course notes", 500, true),
			want: false,
		},
		{
			name: "nothing matches",
			repo: repo("dotfiles", "a-professor", "my shell setup", 500, false),
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.IsTextbook(tt.repo); got != tt.want {
				t.Errorf("IsTextbook(%s) = %v, want %v", tt.repo.Name, got, tt.want)
			}
		})
	}
}

func TestIsTextbookDeterministic(t *testing.T) {
	c := testClassifier()
	r := repo("osbooks-biology-2e", "openstax", "biology textbook", 900, false)
	first := c.IsTextbook(r)
	for i := 0; i < 100; i++ {
		if c.IsTextbook(r) != first {
			t.Fatalf("classification changed on repeat call %d", i)
		}
	}
}

// One hundred synthetic candidates, sixty real textbooks: exercises every
// acceptance and rejection path in one pass.
func TestClassificationScenario(t *testing.T) {
	c := testClassifier()

	subjects := []string{
		"physics", "biology", "chemistry", "statistics", "economics",
		"psychology", "sociology", "astronomy", "philosophy", "history",
	}

	var accepted, rejected []githubapi.Repo

	for i, s := range subjects {
		// Strong publisher prefixes win regardless of size or owner.
		accepted = append(accepted,
			repo("osbooks-"+s, "random-user", "", 5, false),
			repo("osbooks-"+s+"-2e", "random-user", "", 5, false),
			repo("cnxbook-intro-"+s, "someone", "", 5, false),
		)
		// Trusted organizations need only one subject keyword.
		accepted = append(accepted, repo(s+"-3e", "openstax", s+" content", 10, false))
		// Weak path: subject plus educational keywords.
		accepted = append(accepted, repo("intro-"+s, "a-professor", s+" course notes", 500, false))

		// Exclusion keywords veto everything, even for trusted owners.
		rejected = append(rejected, repo(s+"-pipeline", "openstax", "site tooling", 900, false))
		// Forks are rejected on the weak path.
		rejected = append(rejected, repo(s+"-principles", "a-professor", s+" course", 700, true))
		// No positive keyword anywhere.
		rejected = append(rejected, repo(fmt.Sprintf("dotfiles-%d", i), "a-professor", "shell setup", 100, false))
		// At or below the minimum size on the weak path.
		rejected = append(rejected, repo("intro-"+s, "a-professor", s+" curriculum", 50, false))
	}
	for i := 0; i < 5; i++ {
		// Trusted organization with an educational keyword only.
		accepted = append(accepted,
			repo(fmt.Sprintf("reader-vol-%d", i), "cnx-user-books", "university course materials", 10, false))
		// Weak path on a single subject keyword.
		accepted = append(accepted,
			repo(fmt.Sprintf("%s-lecture-notes", subjects[i]), "a-professor", "", 500, false))
	}

	if len(accepted)+len(rejected) != 100 {
		t.Fatalf("scenario has %d candidates, want 100", len(accepted)+len(rejected))
	}

	got := 0
	for _, r := range accepted {
		if c.IsTextbook(r) {
			got++
		} else {
			t.Errorf("IsTextbook(%s) = false, want true", r.Name)
		}
	}
	for _, r := range rejected {
		if c.IsTextbook(r) {
			t.Errorf("IsTextbook(%s) = true, want false", r.Name)
		}
	}
	if got != 60 {
		t.Errorf("accepted %d of 100 candidates, want 60", got)
	}
}
