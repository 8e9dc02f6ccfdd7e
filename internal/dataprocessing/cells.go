package dataprocessing

import (
	"regexp"
	"strconv"
	"strings"
)

var digitRun = regexp.MustCompile(`\d+`)

// ParseGradeCell extracts the first contiguous run of digits from a cell.
// Cells such as "8", "9 (įsk.)" or "10*" yield a score; empty or
// non-numeric cells ("atl.", "nv") yield ok == false.
func ParseGradeCell(raw string) (score int, ok bool) {
	run := digitRun.FindString(raw)
	if run == "" {
		return 0, false
	}
	v, err := strconv.Atoi(run)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseCounter reads an attendance cell; blanks and text count as zero.
func parseCounter(raw string) int {
	v, ok := ParseGradeCell(raw)
	if !ok {
		return 0
	}
	return v
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
