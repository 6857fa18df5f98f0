package viz

import "github.com/charmbracelet/lipgloss"

// Theme colours the live view.
type Theme struct {
	Name   string
	Fluid  lipgloss.Color
	Walls  lipgloss.Color
	Accent lipgloss.Color
	Muted  lipgloss.Color
}

var Themes = []Theme{
	{Name: "ocean", Fluid: "#00a8cc", Walls: "#4488aa", Accent: "#ffd700", Muted: "#666688"},
	{Name: "retro", Fluid: "#00ff00", Walls: "#005500", Accent: "#88ff88", Muted: "#338833"},
	{Name: "minimal", Fluid: "#ffffff", Walls: "#888888", Accent: "#0088ff", Muted: "#666666"},
}

// GetTheme falls back to the first theme for unknown names.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return Themes[0]
}

func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}

func nextTheme(current string) Theme {
	for i, t := range Themes {
		if t.Name == current {
			return Themes[(i+1)%len(Themes)]
		}
	}
	return Themes[0]
}
