package dataprocessing

import "gradereport/pkg/contracts/domain"

// Normalize melts the wide table into observations, student by student and
// subject by subject in column order. Cells without a digit run are skipped.
func Normalize(wide domain.WideTable) []domain.GradeObservation {
	obs := make([]domain.GradeObservation, 0, len(wide.Rows)*len(wide.Subjects))
	for _, row := range wide.Rows {
		for _, subject := range wide.Subjects {
			score, ok := ParseGradeCell(row.Grades[subject])
			if !ok {
				continue
			}
			obs = append(obs, domain.GradeObservation{
				Student: row.Student,
				Subject: subject,
				Score:   score,
			})
		}
	}
	return obs
}
