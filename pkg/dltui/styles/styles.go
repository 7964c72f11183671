package styles

import "github.com/charmbracelet/lipgloss"

// color returns a lipgloss.Color, choosing light or dark variant based on the
// current theme set by SetDarkTheme.
func color(light, dark string) lipgloss.Color {
	if isDark {
		return lipgloss.Color(dark)
	}
	return lipgloss.Color(light)
}

// isDark tracks the current theme. Default is dark.
var isDark = true

// SetDarkTheme switches the color palette. Call this before the TUI starts.
func SetDarkTheme(dark bool) {
	isDark = dark
	applyTheme()
}

// IsDarkTheme returns the current theme setting.
func IsDarkTheme() bool {
	return isDark
}

func applyTheme() {
	// --- palette ---
	colorYellow := color("136", "226")
	colorBlue := color("27", "39")
	colorGreen := color("28", "42")
	colorRed := color("160", "196")
	colorOrange := color("166", "208")
	colorGray := color("243", "240")
	colorWhite := color("16", "255")
	colorFocused := color("62", "62")
	colorCyan := color("30", "51")
	colorSelectedBg := color("254", "237")

	// --- header ---
	HeaderTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorYellow)
	HeaderVersionStyle = lipgloss.NewStyle().Foreground(colorWhite)
	HeaderEndpointStyle = lipgloss.NewStyle().Foreground(colorBlue).Underline(true)
	HeaderHintStyle = lipgloss.NewStyle().Foreground(colorGray)

	// --- connection state ---
	StateConnectedStyle = lipgloss.NewStyle().Foreground(colorGreen)
	StateConnectingStyle = lipgloss.NewStyle().Foreground(colorYellow)
	StateDisconnectedStyle = lipgloss.NewStyle().Foreground(colorRed)

	// --- forwarding ---
	ForwardingOnStyle = lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
	ForwardingOffStyle = lipgloss.NewStyle().Foreground(colorGray)
	ForwardingPendingStyle = lipgloss.NewStyle().Foreground(colorYellow)

	// --- log severity classes ---
	LogErrorStyle = lipgloss.NewStyle().Foreground(colorRed)
	LogCriticalStyle = lipgloss.NewStyle().Bold(true).Foreground(colorRed)
	LogWarningStyle = lipgloss.NewStyle().Foreground(colorYellow)
	LogInfoStyle = lipgloss.NewStyle().Foreground(colorGreen)
	LogDebugStyle = lipgloss.NewStyle().Foreground(colorBlue)
	LogTimestampStyle = lipgloss.NewStyle().Foreground(colorGray)
	LogLoggerStyle = lipgloss.NewStyle().Foreground(colorCyan)

	// --- table ---
	TableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(colorYellow)
	TableSelectedStyle = lipgloss.NewStyle().Background(colorSelectedBg).Foreground(colorWhite)

	// --- status bar ---
	StatusBarStyle = lipgloss.NewStyle().Foreground(colorWhite)
	StatusBarHelpStyle = lipgloss.NewStyle().Foreground(colorGray)
	StatusBarFlagOnStyle = lipgloss.NewStyle().Foreground(colorGreen)
	StatusBarFlagOffStyle = lipgloss.NewStyle().Foreground(colorGray)
	ToastSuccessStyle = lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
	ToastErrorStyle = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	LocalLogStyle = lipgloss.NewStyle().Foreground(colorOrange)

	// --- help modal ---
	HelpModalStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorFocused).Padding(1, 2)
	HelpTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorYellow).MarginBottom(1)
	HelpKeyStyle = lipgloss.NewStyle().Foreground(colorBlue).Width(14)
	HelpDescStyle = lipgloss.NewStyle().Foreground(colorWhite)

	// --- section ---
	SectionTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	FocusAccentStyle = lipgloss.NewStyle().Foreground(colorCyan)
}

func init() {
	applyTheme()
}

// Header styles
var (
	HeaderTitleStyle    lipgloss.Style
	HeaderVersionStyle  lipgloss.Style
	HeaderEndpointStyle lipgloss.Style
	HeaderHintStyle     lipgloss.Style
)

// Connection state styles
var (
	StateConnectedStyle    lipgloss.Style
	StateConnectingStyle   lipgloss.Style
	StateDisconnectedStyle lipgloss.Style
)

// Forwarding column styles
var (
	ForwardingOnStyle      lipgloss.Style
	ForwardingOffStyle     lipgloss.Style
	ForwardingPendingStyle lipgloss.Style
)

// Log severity styles
var (
	LogErrorStyle     lipgloss.Style
	LogCriticalStyle  lipgloss.Style
	LogWarningStyle   lipgloss.Style
	LogInfoStyle      lipgloss.Style
	LogDebugStyle     lipgloss.Style
	LogTimestampStyle lipgloss.Style
	LogLoggerStyle    lipgloss.Style
)

// Table styles
var (
	TableHeaderStyle   lipgloss.Style
	TableSelectedStyle lipgloss.Style
)

// Status bar styles
var (
	StatusBarStyle        lipgloss.Style
	StatusBarHelpStyle    lipgloss.Style
	StatusBarFlagOnStyle  lipgloss.Style
	StatusBarFlagOffStyle lipgloss.Style
	ToastSuccessStyle     lipgloss.Style
	ToastErrorStyle       lipgloss.Style
	LocalLogStyle         lipgloss.Style
)

// Help modal styles
var (
	HelpModalStyle lipgloss.Style
	HelpTitleStyle lipgloss.Style
	HelpKeyStyle   lipgloss.Style
	HelpDescStyle  lipgloss.Style
)

// Section styles
var (
	SectionTitleStyle lipgloss.Style
	FocusAccentStyle  lipgloss.Style
)

// SeverityStyle returns the style for a display entry severity class
func SeverityStyle(class string) lipgloss.Style {
	switch class {
	case "critical", "fatal", "panic":
		return LogCriticalStyle
	case "error":
		return LogErrorStyle
	case "warning", "warn":
		return LogWarningStyle
	case "debug", "trace":
		return LogDebugStyle
	default:
		return LogInfoStyle
	}
}
