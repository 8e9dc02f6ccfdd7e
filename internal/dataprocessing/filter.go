package dataprocessing

import "gradereport/pkg/contracts/domain"

// Apply keeps the observations matching both criteria dimensions exactly.
// Only domain.All leaves a dimension unconstrained; an empty value is
// compared like any other name and so matches nothing. An empty result is
// not an error.
func Apply(obs []domain.GradeObservation, criteria domain.FilterCriteria) []domain.GradeObservation {
	out := make([]domain.GradeObservation, 0, len(obs))
	for _, o := range obs {
		if !criteria.AllStudents() && o.Student != criteria.Student {
			continue
		}
		if !criteria.AllSubjects() && o.Subject != criteria.Subject {
			continue
		}
		out = append(out, o)
	}
	return out
}

// ForStudent keeps one student's observations regardless of subject.
func ForStudent(obs []domain.GradeObservation, student string) []domain.GradeObservation {
	return Apply(obs, domain.FilterCriteria{Student: student, Subject: domain.All})
}
