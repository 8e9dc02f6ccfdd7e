package dataprocessing

import "gradereport/pkg/contracts/domain"

// NewDataset assembles the immutable dataset of one parsed upload.
func NewDataset(id, source string, result *ParseResult) *domain.Dataset {
	students := make([]string, 0, len(result.Wide.Rows))
	seen := make(map[string]struct{}, len(result.Wide.Rows))
	for _, row := range result.Wide.Rows {
		if _, ok := seen[row.Student]; ok {
			continue
		}
		seen[row.Student] = struct{}{}
		students = append(students, row.Student)
	}

	return &domain.Dataset{
		ID:           id,
		Source:       source,
		Subjects:     append([]string(nil), result.Wide.Subjects...),
		Students:     students,
		Observations: Normalize(result.Wide),
		Attendance:   append([]domain.AttendanceRecord(nil), result.Attendance...),
	}
}
