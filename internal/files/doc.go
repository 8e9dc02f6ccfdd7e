// Package files provides scoped temporary workspaces for report exports.
//
// A Workspace owns a private directory. Intermediate artifacts (chart images,
// the HTML document, the PDF before it is complete) are written inside it,
// a finished file is moved out with Publish, and Cleanup removes the rest on
// every exit path:
//
//	ws, err := files.NewWorkspace(os.TempDir(), "export", logger)
//	if err != nil {
//	    return err
//	}
//	defer ws.Cleanup()
//
//	if _, err := ws.WriteFile("report.pdf", pdf); err != nil {
//	    return err
//	}
//	return ws.Publish("report.pdf", "out/ataskaita.pdf")
package files
