// Command gradereport builds grade reports from a class registry export
// without starting the web server.
//
//	gradereport inspect 8a.xlsx
//	gradereport report 8a.xlsx -o 8a.pdf --student "Ona Onaitė" --mode individual
//	gradereport report 8a.xlsx -o 8a.html --html
//	gradereport csv 8a.xlsx -o ivertinimai.csv
//	gradereport serve --port 8080
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
