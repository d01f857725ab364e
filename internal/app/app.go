package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "import":
		return runImport(args[1:])
	case "validate":
		return runValidate(args[1:])
	case "id_handling", "ids":
		return runIDHandling(args[1:])
	case "modeling":
		return runModeling(args[1:])
	case "analyze":
		return runAnalyze(args[1:])
	case "export":
		return runExport(args[1:])
	case "all_in_one":
		return runAllInOne(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "jobdedup CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  jobdedup <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  import       Validate job ad JSON files and store them as input tables")
	fmt.Fprintln(os.Stderr, "  validate     Validate job ad JSON files without storing them")
	fmt.Fprintln(os.Stderr, "  id_handling  Assign unique ids to imported test and train tables")
	fmt.Fprintln(os.Stderr, "  ids          Alias for id_handling")
	fmt.Fprintln(os.Stderr, "  modeling     Train, retrain or sanity-check the tfidf and doc2vec models")
	fmt.Fprintln(os.Stderr, "  analyze      Run inside, outside or complete duplicate analysis")
	fmt.Fprintln(os.Stderr, "  export       Write output tables to an xlsx workbook")
	fmt.Fprintln(os.Stderr, "  all_in_one   Run id_handling + modeling + complete analysis in sequence")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"jobdedup <command> -h\" for command-specific flags.")
}
