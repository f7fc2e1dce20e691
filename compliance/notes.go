package compliance

import (
	"strings"

	"github.com/warp/visit-engine/care"
)

// NoteTemplate is the default note for a generated visit.
func NoteTemplate(t care.VisitType, d care.Discipline) string {
	switch t {
	case care.TypeRoutine:
		switch d {
		case care.DisciplineRN, care.DisciplineLVN, care.DisciplineNP:
			return "Routine " + string(d) + " Visit - no urgent concerns"
		}
	case care.TypeRecert:
		return "Recertification visit - verify eligibility"
	case care.TypePRN:
		return "Follow-up on reported symptoms"
	case care.TypeUnassigned:
		return "Patient needs team assignment"
	}
	return "Visit completed"
}

// HopeNoteSuffix renders tags as " (HOPE) (HUV1)" for appending to notes.
func HopeNoteSuffix(tags care.TagSet) string {
	var b strings.Builder
	for _, name := range tags.Names() {
		b.WriteString(" (")
		b.WriteString(name)
		b.WriteString(")")
	}
	return b.String()
}
