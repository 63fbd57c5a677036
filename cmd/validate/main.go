// Command validate checks the block catalogs in a directory. For every .json
// and .hcl file it checks:
//   - the file parses and has a name and at least one block
//   - block ids are unique and non-negative
//   - block sides are within the board limits and every block has a color
//   - the blocks fit the 8x8 board by area
//
// Valid catalogs also get a short summary: block count, covered area and
// whether the set can tile the board exactly.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wricardo/mondrian-blocks/game/catalog"
	"github.com/wricardo/mondrian-blocks/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Notes holds informational lines; otherwise Errors
// explains why the file was refused.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
	Notes  []string
}

// validateCatalog loads and validates a single catalog file.
func validateCatalog(filePath string) ValidationResult {
	result := ValidationResult{
		File:  filepath.Base(filePath),
		Valid: true,
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to read file: %v", err))
		return result
	}

	c, err := catalog.ParseCatalog(filePath, data)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	result.Notes = describeCatalog(c)
	return result
}

// describeCatalog summarizes a valid catalog
func describeCatalog(c *engine.Catalog) []string {
	area := c.Area()
	notes := []string{
		fmt.Sprintf("✓ %s: %d blocks", c.Name, len(c.Blocks)),
	}
	if area == engine.MaxBoardArea {
		notes = append(notes, fmt.Sprintf("✓ covers all %d cells", area))
	} else {
		notes = append(notes, fmt.Sprintf("⚠️  covers %d of %d cells, the board can never be completed", area, engine.MaxBoardArea))
	}

	largest := c.Blocks[0]
	squares := 0
	colors := map[string]int{}
	for _, b := range c.Blocks {
		if b.Width*b.Height > largest.Width*largest.Height {
			largest = b
		}
		if b.Width == b.Height {
			squares++
		}
		colors[strings.ToLower(b.Color)]++
	}
	notes = append(notes,
		fmt.Sprintf("✓ largest block %d is %dx%d", largest.ID, largest.Width, largest.Height),
		fmt.Sprintf("✓ %d square blocks, %d with two orientations", squares, len(c.Blocks)-squares),
	)

	names := make([]string, 0, len(colors))
	for color := range colors {
		names = append(names, color)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, color := range names {
		parts = append(parts, fmt.Sprintf("%s×%d", color, colors[color]))
	}
	notes = append(notes, "✓ colors: "+strings.Join(parts, ", "))
	return notes
}

// catalogFiles lists the .json and .hcl files in dir, sorted
func catalogFiles(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.json", "*.hcl"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

// report prints one section per file and returns whether all were valid
func report(w io.Writer, results []ValidationResult) bool {
	allValid := true
	for _, result := range results {
		fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(w, "✅ VALID")
			for _, note := range result.Notes {
				fmt.Fprintln(w, "  "+note)
			}
		} else {
			fmt.Fprintln(w, "❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				fmt.Fprintln(w, "  ❌ "+err)
			}
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Fprintln(w, "✅ All catalogs are valid!")
	} else {
		fmt.Fprintln(w, "❌ Some catalogs have errors")
	}
	return allValid
}

// main scans the catalog directory and exits with non-zero status if any
// file is invalid.
func main() {
	dir := flag.String("dir", "catalogs", "Directory containing block catalogs")
	flag.Parse()

	files, err := catalogFiles(*dir)
	if err != nil {
		fmt.Printf("Error finding catalog files: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Printf("No catalog files found in %s\n", *dir)
		os.Exit(1)
	}

	results := make([]ValidationResult, 0, len(files))
	for _, file := range files {
		results = append(results, validateCatalog(file))
	}

	if !report(os.Stdout, results) {
		os.Exit(1)
	}
}
