package session

// ActiveSections returns the sections studentID is actively enrolled in.
func ActiveSections(studentID string, enrollments []Enrollment) map[string]struct{} {
	sections := make(map[string]struct{})
	for _, e := range enrollments {
		if e.StudentID != studentID || e.Status != EnrollmentActive {
			continue
		}
		sections[e.SectionID] = struct{}{}
	}
	return sections
}

// VisibleSessions keeps the sessions belonging to sections the student is
// actively enrolled in. No active enrollment means no sessions.
func VisibleSessions(all []Session, studentID string, enrollments []Enrollment) []Session {
	sections := ActiveSections(studentID, enrollments)
	visible := make([]Session, 0, len(all))
	if len(sections) == 0 {
		return visible
	}
	for _, s := range all {
		if _, ok := sections[s.SectionID]; ok {
			visible = append(visible, s)
		}
	}
	return visible
}
