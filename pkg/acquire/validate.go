package acquire

import "strings"

// infraKeywords mark repositories that are tooling around a corpus rather
// than book content. A hit in the name or description rejects the
// candidate before any other rule runs.
var infraKeywords = []string{
	"cms", "devops", "pipeline", "template", "infrastructure",
	"deployment", "tooling", "utilities", "utility", "dashboard",
	"backend", "frontend", "salesforce", "automation", "platform",
	"work-management", "github.io", "setup-",
}

// textbookIndicators is the final gate: the publisher prefixes count as
// indicators on their own, otherwise a domain or curriculum word must
// appear in the name or description.
var textbookIndicators = []string{
	"osbooks-", "cnxbook-", "physics", "biology", "chemistry",
	"mathematics", "calculus", "statistics", "psychology", "sociology",
	"economics", "business", "anatomy", "physiology", "microbiology",
	"organic", "college", "prealgebra", "algebra", "geometry",
	"trigonometry", "precalculus", "accounting", "finance",
	"entrepreneurship", "philosophy", "history", "anthropology",
	"government", "astronomy", "principles", "introduction", "university",
}

// Validate decides whether a discovered candidate should be acquired.
// Strict mode only admits first-party publisher content (an openstax
// clone URL or the osbooks- prefix); loose mode also admits community
// cnxbook- repositories. Returns a reason when rejecting.
func Validate(name, description, cloneURL string, strict bool) (bool, string) {
	lowerName := strings.ToLower(name)
	lowerURL := strings.ToLower(cloneURL)
	combined := lowerName + " " + strings.ToLower(description)

	for _, kw := range infraKeywords {
		if strings.Contains(combined, kw) {
			return false, "infrastructure repository: " + kw
		}
	}

	firstParty := strings.Contains(lowerURL, "openstax") ||
		strings.HasPrefix(lowerName, "osbooks-")
	if strict {
		if !firstParty {
			return false, "strict mode requires first-party publisher content"
		}
	} else if !firstParty && !strings.HasPrefix(lowerName, "cnxbook-") {
		return false, "not a recognized textbook repository"
	}

	for _, kw := range textbookIndicators {
		if strings.Contains(combined, kw) {
			return true, ""
		}
	}
	return false, "no textbook indicator in name or description"
}
