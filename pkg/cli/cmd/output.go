package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/rzbill/provision/pkg/utils"
	"gopkg.in/yaml.v3"
)

const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

// printObject writes v as JSON or YAML.
func printObject(w io.Writer, output string, v interface{}) error {
	switch output {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("output format %q is not supported here", output)
}

// renderTable writes rows under a cyan header, or a message when empty.
func renderTable(w io.Writer, empty string, headers []string, rows [][]string) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(w, empty)
		return err
	}

	data := pterm.TableData{headers}
	data = append(data, rows...)
	out, err := pterm.DefaultTable.
		WithHasHeader(true).
		WithHeaderStyle(pterm.NewStyle(pterm.FgCyan, pterm.Bold)).
		WithData(data).
		Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

// readInput reads a file, or stdin when path is "-".
func readInput(in io.Reader, path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("an input file is required (-f FILE, or -f - for stdin)")
	}
	if path == "-" {
		return io.ReadAll(in)
	}
	return os.ReadFile(path)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// readInputs reads every file named by paths, expanding directories and
// globs to their YAML files. "-" reads stdin.
func readInputs(in io.Reader, paths []string, recursive bool) (map[string][]byte, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("an input file is required (-f FILE, or -f - for stdin)")
	}

	docs := make(map[string][]byte)
	var files []string
	for _, path := range paths {
		if path == "-" {
			data, err := io.ReadAll(in)
			if err != nil {
				return nil, err
			}
			docs["<stdin>"] = data
			continue
		}
		files = append(files, path)
	}

	expanded, err := utils.ExpandFilePaths(files, recursive)
	if err != nil {
		return nil, err
	}
	for _, file := range expanded {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, err
		}
		docs[file] = data
	}
	return docs, nil
}
