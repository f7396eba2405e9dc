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

// PrintBanner writes the startup banner for the long-running command. REAL
// mode gets a red warning since orders go to mainnet.
func PrintBanner(w io.Writer, cfg *Config) {
	mode := strings.ToUpper(cfg.Trading.Mode)
	version := cfg.App.Version
	if version == "" {
		version = "dev"
	}

	color := ColorGreen
	venues := "UNKNOWN"
	switch mode {
	case "REAL":
		color = ColorRed
		venues = "MAINNET (REAL FUNDS)"
	case "DEMO":
		color = ColorYellow
		venues = "TESTNET"
	case "PAPER":
		color = ColorCyan
		venues = "PAPER VENUES"
	}

	line := func(format string, args ...any) {
		fmt.Fprintf(w, "%s"+format+"%s\n", append(append([]any{color}, args...), ColorReset)...)
	}

	fmt.Fprintln(w)
	line("###########################################################")
	line("#               Convert Router                            #")
	line("#   MODE:    %-44s #", mode)
	line("#   VENUES:  %-44s #", venues)
	line("#   STORAGE: %-44s #", cfg.Storage.Driver)
	line("#   VERSION: %-44s #", version)
	if mode == "REAL" {
		line("#   WARNING: ORDERS ARE PLACED WITH REAL FUNDS            #")
	}
	line("###########################################################")
	fmt.Fprintln(w)
}
