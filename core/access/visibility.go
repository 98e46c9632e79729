package access

import (
	"regexp"
	"strings"

	"github.com/trezcool/inclusiva/core/member"
	"github.com/trezcool/inclusiva/core/student"
)

const defaultClassGroup = "A"

var (
	qualifierRegex  = regexp.MustCompile(`\([^)]*\)`)
	gradeWordsRegex = regexp.MustCompile(`(?i)s[ée]rie|ano`)
	ordinalReplacer = strings.NewReplacer("º", "", "ª", "", "°", "")
)

// matches "2a"/"2o" typed without the ordinal indicator
var asciiOrdinalRegex = regexp.MustCompile(`(?i)(\d)[ao]\b`)

// NormalizeGrade turns labels such as "7º Ano (EFAF)", "7o ano" or "7" into the same key "7".
func NormalizeGrade(s string) string {
	s = qualifierRegex.ReplaceAllString(s, "")
	s = ordinalReplacer.Replace(s)
	s = gradeWordsRegex.ReplaceAllString(s, "")
	s = asciiOrdinalRegex.ReplaceAllString(s, "$1")
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}

// NormalizeClassGroup normalizes a class group label; historically ungrouped classes are "A".
func NormalizeClassGroup(s string) string {
	s = ordinalReplacer.Replace(s)
	s = strings.ToUpper(strings.Join(strings.Fields(s), ""))
	if s == "" {
		return defaultClassGroup
	}
	return s
}

type classKey struct {
	grade, group string
}

func newClassKey(grade, group string) classKey {
	return classKey{grade: NormalizeGrade(grade), group: NormalizeClassGroup(group)}
}

// FilterVisible narrows students to those m may see.
//   - no member, or mode "all": students unchanged
//   - "by-class": students whose normalized (grade, class group) is among classes
//   - "by-tutor-link": students whose id is among links
//
// Restricted modes with an empty set, and unknown modes, see nothing.
func FilterVisible(students []student.Student, m *member.Member, classes []member.ClassKey, links []string) []student.Student {
	switch m.VisibilityMode() {
	case member.VisibilityAll:
		return students

	case member.VisibilityByClass:
		if len(classes) == 0 {
			return []student.Student{}
		}
		allowed := make(map[classKey]bool, len(classes))
		for _, c := range classes {
			allowed[newClassKey(c.Grade, c.ClassGroup)] = true
		}
		visible := make([]student.Student, 0, len(students))
		for _, s := range students {
			if allowed[newClassKey(s.Grade, s.ClassGroup)] {
				visible = append(visible, s)
			}
		}
		return visible

	case member.VisibilityByTutorLink:
		if len(links) == 0 {
			return []student.Student{}
		}
		allowed := make(map[string]bool, len(links))
		for _, id := range links {
			allowed[strings.TrimSpace(id)] = true
		}
		visible := make([]student.Student, 0, len(students))
		for _, s := range students {
			if allowed[s.ID] {
				visible = append(visible, s)
			}
		}
		return visible

	default:
		return []student.Student{}
	}
}
