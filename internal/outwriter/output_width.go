package outwriter

import (
	"os"

	"github.com/huangsam/gatekeeper/internal/contract"
	"golang.org/x/term"
)

// GetMaxDetailWidth calculates the maximum width for the detail column of the gate table
// based on terminal width and the fixed columns.
func GetMaxDetailWidth(cfg *contract.Config) int {
	var termWidth int

	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		termWidth = cfg.Width
	}

	if termWidth == 0 { // Not set by override
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			termWidth = 80 // Conservative default for narrow terminals and CI
		} else {
			termWidth = detectedWidth
		}
	}

	// Gate + Name + Category + Status with borders/padding
	baseWidth := 62

	available := termWidth - baseWidth
	if available < 20 {
		return 20
	}
	if available > 90 {
		return 90
	}
	return available
}
