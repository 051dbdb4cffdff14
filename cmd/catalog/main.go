// Command catalog checks riddle catalog JSON files.
//
//	catalog validate [--dir catalogs] [file ...]
//	catalog analyze  [--dir catalogs] [file ...]
//
// validate reports every structural problem in a file and exits non-zero if
// any file is invalid. analyze prints heuristics about how playable a deck
// is: prompt length against the countdown, prompts that give their answer
// away, and icon cards that are easy to confuse.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/mcp-training/riddlematch/game/engine"
)

// readingWordsPerSecond is a comfortable reading pace for a child
const readingWordsPerSecond = 2

// ValidationResult captures the outcome of validating a single file.
// Errors are blocking problems, Info is printed for valid files.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
	Info   []string
}

func main() {
	if err := newApp(os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.Command {
	dirFlag := &cli.StringFlag{
		Name:    "dir",
		Value:   "catalogs",
		Usage:   "directory scanned when no files are given",
		Sources: cli.EnvVars("CATALOG_DIR"),
	}

	return &cli.Command{
		Name:  "catalog",
		Usage: "validate and analyze riddle catalogs",
		Commands: []*cli.Command{
			{
				Name:      "validate",
				Usage:     "check catalogs for structural errors",
				ArgsUsage: "[file ...]",
				Flags:     []cli.Flag{dirFlag},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					files, err := catalogFiles(cmd.String("dir"), cmd.Args().Slice())
					if err != nil {
						return err
					}
					return runValidate(out, files)
				},
			},
			{
				Name:      "analyze",
				Usage:     "print playability heuristics",
				ArgsUsage: "[file ...]",
				Flags:     []cli.Flag{dirFlag},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					files, err := catalogFiles(cmd.String("dir"), cmd.Args().Slice())
					if err != nil {
						return err
					}
					for _, file := range files {
						fmt.Fprintf(out, "\n=== Analyzing %s ===\n", filepath.Base(file))
						analyzeCatalog(out, file)
					}
					return nil
				},
			},
		},
	}
}

// catalogFiles returns args, or every *.json file in dir when args is empty
func catalogFiles(dir string, args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("error finding catalog files: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no catalog files found in %s", dir)
	}
	sort.Strings(files)
	return files, nil
}

func runValidate(out io.Writer, files []string) error {
	allValid := true
	for _, file := range files {
		result := validateCatalog(file)

		fmt.Fprintf(out, "\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Fprintln(out, "✅ VALID")
			for _, info := range result.Info {
				fmt.Fprintln(out, "  ✓ "+info)
			}
		} else {
			fmt.Fprintln(out, "❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				fmt.Fprintln(out, "  ❌ "+err)
			}
		}
	}

	fmt.Fprintf(out, "\n%s\n", strings.Repeat("=", 40))
	if !allValid {
		fmt.Fprintln(out, "❌ Some catalogs have errors")
		return errors.New("some catalogs have errors")
	}
	fmt.Fprintln(out, "✅ All catalogs are valid!")
	return nil
}

// validateCatalog loads a catalog file and collects every problem in it,
// where the game itself stops at the first.
func validateCatalog(path string) ValidationResult {
	result := ValidationResult{
		File:  filepath.Base(path),
		Valid: true,
	}
	fail := func(format string, args ...interface{}) {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf(format, args...))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fail("Failed to read file: %v", err)
		return result
	}

	var catalog engine.Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		fail("Invalid JSON: %v", err)
		return result
	}

	if strings.TrimSpace(catalog.Name) == "" {
		fail("Name is required")
	}
	switch n := len(catalog.Riddles); {
	case n == 0:
		fail("At least one riddle is required")
	case n > engine.MaxCatalogLength:
		fail("At most %d riddles allowed, got %d", engine.MaxCatalogLength, n)
	}

	for i, r := range catalog.Riddles {
		if strings.TrimSpace(r.Prompt) == "" {
			fail("Riddle %d has an empty prompt", i+1)
		}
		if strings.TrimSpace(r.Answer) == "" {
			fail("Riddle %d has an empty answer", i+1)
		}
		if strings.TrimSpace(r.Icon) == "" {
			fail("Riddle %d has an empty icon", i+1)
		}
	}

	for _, answer := range lo.FindDuplicates(lo.Map(catalog.Riddles, func(r engine.Riddle, _ int) string { return r.Answer })) {
		if answer != "" {
			fail("Duplicate answer %q", answer)
		}
	}
	for _, icon := range lo.FindDuplicates(lo.Map(catalog.Riddles, func(r engine.Riddle, _ int) string { return r.Icon })) {
		if icon != "" {
			fail("Duplicate icon %q", icon)
		}
	}

	// Anything not covered above is left to the engine
	if result.Valid {
		if err := engine.ValidateCatalog(&catalog); err != nil {
			fail("%v", err)
		}
	}

	if result.Valid {
		subject := catalog.Subject
		if subject == "" {
			subject = engine.DefaultSubject + " (default)"
		}
		result.Info = append(result.Info,
			fmt.Sprintf("Name: %s", catalog.Name),
			fmt.Sprintf("Riddles: %d", len(catalog.Riddles)),
			fmt.Sprintf("Subject: %s", subject),
		)
	}

	return result
}

// analyzeCatalog prints playability heuristics for one catalog file
func analyzeCatalog(out io.Writer, path string) {
	catalog, err := engine.LoadCatalogFile(path)
	if err != nil {
		fmt.Fprintf(out, "Error loading catalog: %v\n", err)
		return
	}

	fmt.Fprintf(out, "Name: %s\n", catalog.Name)
	fmt.Fprintf(out, "Riddles: %d\n", len(catalog.Riddles))

	words := lo.Map(catalog.Riddles, func(r engine.Riddle, _ int) int { return len(strings.Fields(r.Prompt)) })
	fmt.Fprintf(out, "Prompt words: min %d, max %d, avg %.1f\n", lo.Min(words), lo.Max(words), float64(lo.Sum(words))/float64(len(words)))

	// A prompt that takes more than half the countdown to read leaves little time to find the card
	budget := engine.CountdownSeconds * readingWordsPerSecond / 2
	long := lo.Filter(catalog.Riddles, func(r engine.Riddle, _ int) bool { return len(strings.Fields(r.Prompt)) > budget })
	if len(long) > 0 {
		fmt.Fprintf(out, "⚠️  %d prompts longer than %d words:\n", len(long), budget)
		for _, r := range long {
			fmt.Fprintf(out, "   - %s\n", r.Answer)
		}
	}

	leaks := findAnswerLeaks(catalog.Riddles)
	if len(leaks) > 0 {
		fmt.Fprintf(out, "⚠️  Prompts naming an answer:\n")
		for _, leak := range leaks {
			fmt.Fprintf(out, "   - %s\n", leak)
		}
	}

	groups := confusableCards(catalog.Riddles)
	if len(groups) > 0 {
		fmt.Fprintf(out, "ℹ️  Cards sharing an initial:\n")
		for _, group := range groups {
			fmt.Fprintf(out, "   - %s\n", strings.Join(group, ", "))
		}
	}

	if len(long) == 0 && len(leaks) == 0 {
		fmt.Fprintln(out, "✓ No playability issues found")
	}
}

// findAnswerLeaks reports prompts that contain any answer of the deck as a
// whole word, which either gives the riddle away or points at the wrong card.
func findAnswerLeaks(riddles []engine.Riddle) []string {
	var leaks []string
	for _, r := range riddles {
		promptWords := strings.FieldsFunc(strings.ToLower(r.Prompt), func(c rune) bool {
			return !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '\'')
		})

		for _, other := range riddles {
			answer := strings.ToLower(other.Answer)
			if strings.Contains(answer, " ") || strings.Contains(answer, "/") {
				// Multi-word answers only leak when the whole phrase appears
				if strings.Contains(strings.ToLower(r.Prompt), answer) {
					leaks = append(leaks, fmt.Sprintf("%q mentions %s", r.Prompt, other.Answer))
				}
				continue
			}
			if lo.Contains(promptWords, answer) {
				leaks = append(leaks, fmt.Sprintf("%q mentions %s", r.Prompt, other.Answer))
			}
		}
	}
	return leaks
}

// confusableCards groups answers whose cards show the same initial letter
func confusableCards(riddles []engine.Riddle) [][]string {
	byInitial := lo.GroupBy(riddles, func(r engine.Riddle) string {
		return strings.ToUpper(string([]rune(strings.TrimSpace(r.Answer))[:1]))
	})

	var groups [][]string
	for _, initial := range lo.Keys(byInitial) {
		if len(byInitial[initial]) > 1 {
			answers := lo.Map(byInitial[initial], func(r engine.Riddle, _ int) string { return r.Answer })
			sort.Strings(answers)
			groups = append(groups, answers)
		}
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i][0] < groups[j][0] })
	return groups
}
