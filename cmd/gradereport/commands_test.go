package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"gradereport/internal/dataprocessing"
	"gradereport/internal/shared/testutil"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestInspect(t *testing.T) {
	path := testutil.Workbook{}.File(t, "8a.xlsx")

	out, err := execute(t, "inspect", path)
	require.NoError(t, err)

	assert.Contains(t, out, "8a.xlsx")
	assert.Contains(t, out, "Jonas Jonaitis, Ona Onaitė")
	assert.Contains(t, out, "Matematika")
	assert.Contains(t, out, "Visi / Visi")

	// tablewriter upper-cases headers and frames rows with pipes
	assert.Contains(t, out, "LYGIS")
	assert.Contains(t, out, "DALYKAS")
	assert.Regexp(t, `\|\s*Matematika\s*\|\s*\d+\.\d{2}\s*\|`, out)
}

func TestInspect_SheetFromEnvironment(t *testing.T) {
	t.Setenv("GRADES_CONFIG_FILE", "")
	t.Setenv("GRADES_WORKBOOK_SHEET_NAME", "Lapas1")

	_, err := execute(t, "inspect", testutil.Workbook{}.File(t, "8a.xlsx"))
	require.Error(t, err)
	assert.True(t, dataprocessing.IsParseError(err))

	out, err := execute(t, "inspect", testutil.Workbook{Sheet: "Lapas1"}.File(t, "lapas1.xlsx"))
	require.NoError(t, err)
	assert.Contains(t, out, "Jonas Jonaitis")

	// the flag still wins over the environment
	_, err = execute(t, "inspect", testutil.Workbook{}.File(t, "8b.xlsx"), "--sheet", testutil.GradesSheet)
	require.NoError(t, err)
}

func TestInspect_Errors(t *testing.T) {
	path := testutil.Workbook{}.File(t, "8a.xlsx")

	tests := []struct {
		name string
		args []string
		parse bool
	}{
		{"missing file", []string{"inspect", filepath.Join(t.TempDir(), "none.xlsx")}, true},
		{"wrong sheet", []string{"inspect", path, "--sheet", "Lapas1"}, true},
		{"bad mode", []string{"inspect", path, "--mode", "everyone"}, false},
		{"no argument", []string{"inspect"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.parse, dataprocessing.IsParseError(err))
		})
	}
}

func TestReport_HTML(t *testing.T) {
	path := testutil.Workbook{}.File(t, "8a.xlsx")
	dst := filepath.Join(t.TempDir(), "8a.html")

	out, err := execute(t, "report", path, "--html", "-o", dst,
		"--student", "Ona Onaitė", "--mode", "individual")
	require.NoError(t, err)
	assert.Contains(t, out, dst)

	page, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Contains(t, string(page), "<html")
	assert.Contains(t, string(page), "Ona Onaitė")

	sources := imageSources(t, page)
	require.NotEmpty(t, sources)
	for _, src := range sources {
		assert.True(t, strings.HasPrefix(src, "data:image/svg+xml;base64,"), src)
	}
}

// imageSources returns the decoded src attribute of every img element.
func imageSources(t *testing.T, page []byte) []string {
	t.Helper()
	doc, err := html.Parse(bytes.NewReader(page))
	require.NoError(t, err)

	var sources []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "img" {
			for _, attr := range n.Attr {
				if attr.Key == "src" {
					sources = append(sources, attr.Val)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return sources
}

func TestReport_IndividualNeedsStudent(t *testing.T) {
	path := testutil.Workbook{}.File(t, "8a.xlsx")
	dst := filepath.Join(t.TempDir(), "8a.html")

	_, err := execute(t, "report", path, "--html", "-o", dst, "--mode", "individual")
	require.Error(t, err)
	assert.NoFileExists(t, dst)
}

func TestCSV(t *testing.T) {
	path := testutil.Workbook{}.File(t, "8a.xlsx")

	out, err := execute(t, "csv", path, "--subject", "Matematika")
	require.NoError(t, err)
	assert.Contains(t, out, "Jonas Jonaitis")
	assert.Contains(t, out, "Matematika")
	assert.NotContains(t, out, "Fizika")

	dst := filepath.Join(t.TempDir(), "out", "ivertinimai.csv")
	_, err = execute(t, "csv", path, "-o", dst)
	require.NoError(t, err)
	assert.FileExists(t, dst)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "gradereport")
}
