// Package http implements the HTTP handlers of the grade report service.
// Handlers only parse requests, call the service layer and format
// responses; all report content is decided by the services and the report
// builder.
//
// # Routes
//
//	POST   /api/uploads                              multipart "file" (.xlsx)
//	POST   /api/uploads/sheets                       {"spreadsheet_id": "..."}
//	GET    /api/sessions/{id}                        selector options and counts
//	DELETE /api/sessions/{id}
//	GET    /api/sessions/{id}/dashboard              ?student=&subject=&mode=
//	GET    /api/sessions/{id}/charts/{kind}.svg      ?student=&subject=
//	GET    /api/sessions/{id}/observations.csv       ?student=&subject=
//	GET    /api/sessions/{id}/report.html            ?student=&subject=&mode=
//	POST   /api/sessions/{id}/export                 {"student","subject","mode"}
//	GET    /api/health, /api/health/live, /api/health/ready, /api/health/stats
//	GET    /api/version
//	GET    /metrics
//
// Empty student or subject values select "Visi". Dashboards and charts carry
// an ETag derived from the upload fingerprint and the selection, and answer
// If-None-Match with 304.
//
// # Error Handling
//
// All errors follow RFC 7807 Problem Details and are produced by the shared
// ErrorHandler:
//
//	{
//	    "type": "/errors/workbook/missing-column",
//	    "title": "Missing Column",
//	    "status": 422,
//	    "detail": "required column \"Mokinys\" (position 1) not found in header",
//	    "instance": "/api/uploads"
//	}
//
// # Testing
//
// Handlers are tested with httptest against a testify mock of
// ReportServiceInterface.
package http
