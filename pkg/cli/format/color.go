// Package format renders command output for terminals.
package format

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"golang.org/x/term"
)

var (
	ErrorColor   = color.New(color.FgRed, color.Bold)
	WarningColor = color.New(color.FgYellow, color.Bold)
	SuccessColor = color.New(color.FgGreen, color.Bold)
	HeaderColor  = color.New(color.FgCyan, color.Bold)
	DimColor     = color.New(color.FgHiBlack)
)

func init() {
	// PROVISION_FORCE_COLOR keeps colors when output is piped
	if _, force := os.LookupEnv("PROVISION_FORCE_COLOR"); force {
		color.NoColor = false
		return
	}
	if _, noColor := os.LookupEnv("PROVISION_NO_COLOR"); noColor {
		color.NoColor = true
		return
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		color.NoColor = true
	}
}

// EnableColor enables or disables colored output globally.
func EnableColor(enable bool) {
	color.NoColor = !enable
}

func IsColorEnabled() bool {
	return !color.NoColor
}

func Success(format string, a ...interface{}) string {
	return SuccessColor.Sprintf(format, a...)
}

func Warning(format string, a ...interface{}) string {
	return WarningColor.Sprintf(format, a...)
}

func Error(format string, a ...interface{}) string {
	return ErrorColor.Sprintf(format, a...)
}

func Header(format string, a ...interface{}) string {
	return HeaderColor.Sprintf(format, a...)
}

func Dim(format string, a ...interface{}) string {
	return DimColor.Sprintf(format, a...)
}

// StatusSymbol returns a colored check mark or cross.
func StatusSymbol(success bool) string {
	if success {
		return SuccessColor.Sprint("✓")
	}
	return ErrorColor.Sprint("✗")
}

// Label formats a key and value with a label style.
func Label(key, value string) string {
	return fmt.Sprintf("%s %s", HeaderColor.Sprint(key+":"), value)
}

// TerminalWidth returns the width of stdout, or 80 when it is not a terminal.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}
