// Package dataprocessing turns the registry's grades workbook into a clean
// long-form record set.
//
// # Architecture
//
// The package is organized into four steps:
//
// 1. Source: reads raw rows of a named sheet (xlsx via excelize, or Google Sheets)
// 2. Parser: locates the header, renames the identity columns, selects subject
// and attendance columns and drops rows without an ordinal or a name
// 3. Normalizer: melts the wide table into (student, subject, score) observations
// 4. Filter: narrows observations by student and subject
//
// # Usage
//
//	src, err := dataprocessing.OpenWorkbookFile("klase.xlsx")
//	if err != nil {
//	    return err
//	}
//	defer src.Close()
//
//	parser := dataprocessing.NewParser(dataprocessing.DefaultParseOptions(), logger)
//	result, err := parser.Parse(ctx, src)
//	if err != nil {
//	    return err
//	}
//	obs := dataprocessing.Normalize(result.Wide)
//	selected := dataprocessing.Apply(obs, domain.NewFilterCriteria("Visi", "Matematika"))
//
// # Data Flow
//
//	Workbook → Source → rows → Parser → WideTable → Normalizer → observations → Filter
//
// # Error Handling
//
// Shape problems are reported as *MissingSheetError, *MissingColumnError,
// ErrEmptyDataset or ErrInvalidWorkbook. Use IsParseError to tell them apart
// from I/O failures. Unparseable grade cells are not errors; they simply
// produce no observation.
package dataprocessing
