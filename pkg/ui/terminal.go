package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// ASCIILogo is printed by the root command banner
const ASCIILogo = `
 ╦╔╗╔╔═╗╔╦╗╔═╗╔═╗╦═╗╔═╗╔╦╗ ╔╦╗╦  
 ║║║║╚═╗ ║ ╠═╣║ ╦╠╦╝╠═╣║║║  ║║║  
 ╩╝╚╝╚═╝ ╩ ╩ ╩╚═╝╩╚═╩ ╩╩ ╩ ═╩╝╩═╝
       single post retriever
`

// Output is where the Print helpers write. Tests swap it.
var Output io.Writer = os.Stdout

// Styles for terminal output
var (
	CyanStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	YellowStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	RedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	GreenStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	MagentaStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	DimStyle     = lipgloss.NewStyle().Faint(true)
	LabelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
)

// Color functions kept for callers that only need a string
var (
	Cyan    = CyanStyle.Render
	Yellow  = YellowStyle.Render
	Red     = RedStyle.Render
	Green   = GreenStyle.Render
	Magenta = MagentaStyle.Render
	Dim     = DimStyle.Render
)

// PrintLogo prints the ASCII logo with color
func PrintLogo() {
	fmt.Fprint(Output, Cyan(ASCIILogo))
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(Output, Red(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(Output, Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	fmt.Fprintln(Output, Green(msg))
}

// PrintInfo prints a label and value pair
func PrintInfo(label string, value string) {
	fmt.Fprintf(Output, "%s: %s\n", LabelStyle.Render(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(Output, Yellow(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(Output, Yellow(msg))
	}
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	fmt.Fprintln(Output, Magenta(msg))
}
