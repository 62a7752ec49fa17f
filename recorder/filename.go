package recorder

import (
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/strftime"

	"github.com/pridesync/radio/config"
)

// Filename renders the configured file name pattern for a recording started
// now. The pattern supports {timestamp} (an strftime format from config) and
// {frequency} (the tuned frequency in MHz, or "unknown" when not tuned).
func Filename(cfg config.FileNaming, frequencyMHz float64, now time.Time) (string, error) {
	ts, err := strftime.Format(cfg.TimestampFormat, now)
	if err != nil {
		return "", fmt.Errorf("recorder: timestamp format: %w", err)
	}

	freq := "unknown"
	if frequencyMHz > 0 {
		freq = fmt.Sprintf("%.1f", frequencyMHz)
	}

	name := strings.ReplaceAll(cfg.Pattern, "{timestamp}", ts)
	name = strings.ReplaceAll(name, "{frequency}", freq)
	return name, nil
}
