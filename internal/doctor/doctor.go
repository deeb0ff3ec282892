// Package doctor provides environment preflight checks for zhtok.
package doctor

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// PassMark and FailMark are the prefix symbols printed for each check result.
const (
	PassMark = "✓"
	FailMark = "✗"
)

// Resource is one file the tokenizer needs at startup.
type Resource struct {
	Label string
	Path  string
}

// Config holds injectable dependencies for each doctor check.
type Config struct {
	// Conversion is the OpenCC configuration name, e.g. "s2t".
	Conversion string
	// LoadConverter builds the converter for Conversion.
	LoadConverter func(name string) error
	// Models are the six encoder model files.
	Models []Resource
	// MandarinDict is checked for the jieba "word freq [tag]" line format.
	MandarinDict Resource
	// CantoneseDict is a word list, one word per line.
	CantoneseDict Resource
}

// Result collects the outcome of all checks.
type Result struct {
	failures []string
}

// Failed returns true if any check failed.
func (r *Result) Failed() bool { return len(r.failures) > 0 }

// Failures returns the list of failure messages.
func (r *Result) Failures() []string { return append([]string(nil), r.failures...) }

// AddFailure appends an external failure message to the result.
func (r *Result) AddFailure(msg string) { r.failures = append(r.failures, msg) }

func (r *Result) fail(msg string) { r.failures = append(r.failures, msg) }

// Run executes all configured checks and writes human-readable output to w.
// Each check line is prefixed with PassMark or FailMark.
func Run(cfg Config, w io.Writer) Result {
	var res Result

	// ---- script converter -------------------------------------------------
	if cfg.LoadConverter == nil {
		fmt.Fprintf(w, "%s script converter: skipped\n", PassMark)
	} else if err := cfg.LoadConverter(cfg.Conversion); err != nil {
		res.fail(fmt.Sprintf("script converter %q: %v", cfg.Conversion, err))
		fmt.Fprintf(w, "%s script converter %s: %v\n", FailMark, cfg.Conversion, err)
	} else {
		fmt.Fprintf(w, "%s script converter: %s\n", PassMark, cfg.Conversion)
	}

	// ---- model files ------------------------------------------------------
	for _, m := range cfg.Models {
		checkFile(&res, w, "model", m)
	}

	// ---- dictionaries -----------------------------------------------------
	if cfg.MandarinDict.Path != "" {
		if checkFile(&res, w, "dictionary", cfg.MandarinDict) {
			if err := checkJiebaDict(cfg.MandarinDict.Path); err != nil {
				res.fail(fmt.Sprintf("dictionary %s: %v", cfg.MandarinDict.Label, err))
				fmt.Fprintf(w, "%s dictionary %s format: %v\n", FailMark, cfg.MandarinDict.Label, err)
			}
		}
	}

	if cfg.CantoneseDict.Path != "" {
		checkFile(&res, w, "dictionary", cfg.CantoneseDict)
	}

	return res
}

func checkFile(res *Result, w io.Writer, kind string, r Resource) bool {
	fi, err := os.Stat(r.Path)
	switch {
	case err != nil:
		res.fail(fmt.Sprintf("%s %s %q: %v", kind, r.Label, r.Path, err))
		fmt.Fprintf(w, "%s %s %s: not found (%s)\n", FailMark, kind, r.Label, r.Path)
		return false
	case fi.IsDir():
		res.fail(fmt.Sprintf("%s %s %q: is a directory", kind, r.Label, r.Path))
		fmt.Fprintf(w, "%s %s %s: %s is a directory\n", FailMark, kind, r.Label, r.Path)
		return false
	case fi.Size() == 0:
		res.fail(fmt.Sprintf("%s %s %q: empty file", kind, r.Label, r.Path))
		fmt.Fprintf(w, "%s %s %s: %s is empty\n", FailMark, kind, r.Label, r.Path)
		return false
	}

	fmt.Fprintf(w, "%s %s %s: %s\n", PassMark, kind, r.Label, r.Path)
	return true
}

// checkJiebaDict validates the first entry of a jieba-format dictionary.
func checkJiebaDict(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return checkJiebaLine(line)
	}
	if err := sc.Err(); err != nil {
		return err
	}

	return fmt.Errorf("no entries")
}

// checkJiebaLine accepts "word freq" or "word freq tag".
func checkJiebaLine(line string) error {
	fields := strings.Fields(line)
	if len(fields) < 2 || len(fields) > 3 {
		return fmt.Errorf("unexpected entry %q (want: word freq [tag])", line)
	}

	freq, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return fmt.Errorf("bad frequency in %q: %w", line, err)
	}
	if freq < 0 {
		return fmt.Errorf("negative frequency in %q", line)
	}

	return nil
}
