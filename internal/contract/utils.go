package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/huangsam/gatekeeper/schema"
)

// Color variables for console output.
var (
	FailColor    = color.New(color.FgRed, color.Bold) // FailColor marks blocking results.
	WarnColor    = color.New(color.FgYellow)          // WarnColor marks advisory results.
	PassColor    = color.New(color.FgGreen)           // PassColor marks clean results.
	AdvisoryNote = color.New(color.FgCyan)            // AdvisoryNote marks informational text.
)

// GetPlainStatus returns the status as shown in tables and JSON.
func GetPlainStatus(status schema.GateStatus) string {
	return string(status)
}

// GetColorStatus returns a colored status label for console output.
func GetColorStatus(status schema.GateStatus) string {
	text := GetPlainStatus(status)
	switch status {
	case schema.StatusFail:
		return FailColor.Sprint(text)
	case schema.StatusWarn:
		return WarnColor.Sprint(text)
	default:
		return PassColor.Sprint(text)
	}
}

// GetColorDecision returns a colored final decision label.
func GetColorDecision(decision schema.Decision) string {
	switch decision {
	case schema.DecisionFail:
		return FailColor.Sprint(decision)
	case schema.DecisionWarn:
		return WarnColor.Sprint(decision)
	default:
		return PassColor.Sprint(decision)
	}
}

// SelectOutputFile returns the appropriate file handle for output.
// An empty path selects os.Stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// SplitList splits a comma-separated value, trimming blanks and dropping empty items.
func SplitList(s string) []string {
	var out []string
	for item := range strings.SplitSeq(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// LogFatal logs an error and exits with the code the error maps to.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "%s %s: %v\n", FailColor.Sprint("Fatal"), msg, err)
	os.Exit(ExitCodeFor(err))
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "%s %s: %v\n", WarnColor.Sprint("Warn"), msg, err)
}

// GetHistoryDBFilePath returns the path to the SQLite DB file for run history.
func GetHistoryDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".gatekeeper_history.db"
	}
	return filepath.Join(homeDir, ".gatekeeper_history.db")
}

// TruncateText truncates text to a maximum width with an ellipsis suffix.
// Requires maxWidth > 3 so there is room for the ellipsis and one rune of content.
func TruncateText(text string, maxWidth int) string {
	runes := []rune(text)
	if len(runes) > maxWidth && maxWidth > 3 {
		return string(runes[:maxWidth-3]) + "..."
	}
	return text
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
