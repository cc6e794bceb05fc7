package cli

import (
	"strings"
)

// renderBar draws a share in [0, 1] as a fixed width gauge.
func renderBar(share float64, width int) string {
	filled := int(share*float64(width) + 0.5)
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
