package infra

import (
	"fmt"
	"io"
	"strings"
)

// ANSI Color Codes
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorCyan   = "\033[36m"
)

// PrintBanner writes the startup banner. Missing API keys are flagged in yellow
// because the matching routes answer with errors until they are configured.
func PrintBanner(w io.Writer, cfg *Config) {
	color := ColorGreen
	var missing []string
	if cfg.API.OpenWeather.APIKey == "" {
		missing = append(missing, "OPENWEATHER")
	}
	if cfg.API.NewsData.APIKey == "" {
		missing = append(missing, "NEWSDATA")
	}
	if len(missing) > 0 {
		color = ColorYellow
	}

	live := "on"
	if !cfg.Dashboard.SimulateAlerts {
		live = "off"
	}

	line := func(format string, args ...any) {
		fmt.Fprintf(w, "%s#   %-53s #%s\n", color, fmt.Sprintf(format, args...), ColorReset)
	}
	border := func() {
		fmt.Fprintf(w, "%s%s%s\n", color, strings.Repeat("#", 59), ColorReset)
	}

	fmt.Fprintln(w)
	border()
	line("")
	line("📈 %s", cfg.App.Name)
	line("")
	line("VERSION:   %s", cfg.App.Version)
	line("LISTEN:    %s", cfg.Server.Listen)
	line("STREAM:    %s", cfg.API.CoinCap.WSURL)
	line("SIMULATED: %s", live)
	if len(missing) > 0 {
		line("")
		fmt.Fprintf(w, "%s#   ⚠️  MISSING KEYS: %-37s #%s\n", ColorYellow, strings.Join(missing, ", "), ColorReset)
	}
	line("")
	border()
	fmt.Fprintln(w)
}
