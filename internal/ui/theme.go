package ui

import lipgloss "charm.land/lipgloss/v2"

type Theme struct {
	Header  lipgloss.Style
	Title   lipgloss.Style
	Body    lipgloss.Style
	Hint    lipgloss.Style
	Accent  lipgloss.Style
	Pass    lipgloss.Style
	Fail    lipgloss.Style
	Pending lipgloss.Style
	Muted   lipgloss.Style
	Info    lipgloss.Style
}

func DefaultTheme() Theme {
	return ThemeForVariant("modern_arcade")
}

func ThemeForVariant(variant string) Theme {
	switch variant {
	case "plain":
		return plainTheme()
	case "cozy_clean":
		return cozyCleanTheme()
	case "retro_terminal":
		return retroTerminalTheme()
	default:
		return modernArcadeTheme()
	}
}

func plainTheme() Theme {
	s := lipgloss.NewStyle()
	return Theme{Header: s, Title: s, Body: s, Hint: s, Accent: s, Pass: s, Fail: s, Pending: s, Muted: s, Info: s}
}

func modernArcadeTheme() Theme {
	amber := lipgloss.Color("#FFC857")
	mint := lipgloss.Color("#67F0A8")
	brick := lipgloss.Color("#FF6F91")
	ink := lipgloss.Color("#0E1420")
	powder := lipgloss.Color("#EAF2FF")
	blue := lipgloss.Color("#5EEBFF")

	return Theme{
		Header: lipgloss.NewStyle().
			Background(ink).
			Foreground(powder).
			Padding(0, 1),
		Title: lipgloss.NewStyle().
			Foreground(blue).
			Bold(true),
		Body: lipgloss.NewStyle().
			Foreground(powder),
		Hint: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(amber).
			Foreground(powder).
			Padding(0, 1),
		Accent: lipgloss.NewStyle().
			Foreground(blue).
			Bold(true),
		Pass: lipgloss.NewStyle().
			Foreground(mint).
			Bold(true),
		Fail: lipgloss.NewStyle().
			Foreground(brick).
			Bold(true),
		Pending: lipgloss.NewStyle().
			Foreground(amber),
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9CAAC6")),
		Info: lipgloss.NewStyle().
			Foreground(blue),
	}
}

func cozyCleanTheme() Theme {
	honey := lipgloss.Color("#F2B872")
	sage := lipgloss.Color("#80C4A3")
	rose := lipgloss.Color("#D17A86")
	night := lipgloss.Color("#1E2430")
	paper := lipgloss.Color("#F4F6FA")
	sky := lipgloss.Color("#86B6F6")

	return Theme{
		Header: lipgloss.NewStyle().Background(night).Foreground(paper).Padding(0, 1),
		Title:  lipgloss.NewStyle().Foreground(honey).Bold(true),
		Body:   lipgloss.NewStyle().Foreground(paper),
		Hint: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(honey).
			Foreground(paper).
			Padding(0, 1),
		Accent:  lipgloss.NewStyle().Foreground(sky).Bold(true),
		Pass:    lipgloss.NewStyle().Foreground(sage).Bold(true),
		Fail:    lipgloss.NewStyle().Foreground(rose).Bold(true),
		Pending: lipgloss.NewStyle().Foreground(honey),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("#A3ACC2")),
		Info:    lipgloss.NewStyle().Foreground(sky),
	}
}

func retroTerminalTheme() Theme {
	lime := lipgloss.Color("#9CF5A2")
	amber := lipgloss.Color("#E5D47A")
	red := lipgloss.Color("#FF6B6B")
	deep := lipgloss.Color("#07150A")
	glow := lipgloss.Color("#C5F7C4")

	return Theme{
		Header: lipgloss.NewStyle().Background(deep).Foreground(glow).Padding(0, 1),
		Title:  lipgloss.NewStyle().Foreground(amber).Bold(true),
		Body:   lipgloss.NewStyle().Foreground(glow),
		Hint: lipgloss.NewStyle().
			BorderStyle(lipgloss.DoubleBorder()).
			BorderForeground(amber).
			Foreground(glow).
			Padding(0, 1),
		Accent:  lipgloss.NewStyle().Foreground(lime).Bold(true),
		Pass:    lipgloss.NewStyle().Foreground(lime).Bold(true),
		Fail:    lipgloss.NewStyle().Foreground(red).Bold(true),
		Pending: lipgloss.NewStyle().Foreground(amber),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("#73A17A")),
		Info:    lipgloss.NewStyle().Foreground(lime),
	}
}
