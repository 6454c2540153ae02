// Catppuccin palettes. Mocha is the dark default, Latte the light one.
package theme

import "github.com/charmbracelet/lipgloss"

// Mocha returns the Catppuccin Mocha theme (dark).
func Mocha() *Theme {
	return &Theme{
		Name:   "Catppuccin Mocha",
		IsDark: true,

		Mauve:    lipgloss.Color("#cba6f7"),
		Blue:     lipgloss.Color("#89b4fa"),
		Green:    lipgloss.Color("#a6e3a1"),
		Yellow:   lipgloss.Color("#f9e2af"),
		Red:      lipgloss.Color("#f38ba8"),
		Peach:    lipgloss.Color("#fab387"),
		Teal:     lipgloss.Color("#94e2d5"),
		Pink:     lipgloss.Color("#f5c2e7"),
		Flamingo: lipgloss.Color("#f2cdcd"),

		Text:    lipgloss.Color("#cdd6f4"),
		Subtext: lipgloss.Color("#a6adc8"),

		Surface:  lipgloss.Color("#313244"),
		Surface0: lipgloss.Color("#313244"),
		Surface1: lipgloss.Color("#45475a"),
		Base:     lipgloss.Color("#1e1e2e"),
		Mantle:   lipgloss.Color("#181825"),
		Crust:    lipgloss.Color("#11111b"),

		Overlay0: lipgloss.Color("#6c7086"),
		Overlay1: lipgloss.Color("#7f849c"),
		Overlay2: lipgloss.Color("#9399b2"),
	}
}

// Latte returns the Catppuccin Latte theme (light).
func Latte() *Theme {
	return &Theme{
		Name:   "Catppuccin Latte",
		IsDark: false,

		Mauve:    lipgloss.Color("#8839ef"),
		Blue:     lipgloss.Color("#1e66f5"),
		Green:    lipgloss.Color("#40a02b"),
		Yellow:   lipgloss.Color("#df8e1d"),
		Red:      lipgloss.Color("#d20f39"),
		Peach:    lipgloss.Color("#fe640b"),
		Teal:     lipgloss.Color("#179299"),
		Pink:     lipgloss.Color("#ea76cb"),
		Flamingo: lipgloss.Color("#dd7878"),

		Text:    lipgloss.Color("#4c4f69"),
		Subtext: lipgloss.Color("#6c6f85"),

		Surface:  lipgloss.Color("#ccd0da"),
		Surface0: lipgloss.Color("#ccd0da"),
		Surface1: lipgloss.Color("#bcc0cc"),
		Base:     lipgloss.Color("#eff1f5"),
		Mantle:   lipgloss.Color("#e6e9ef"),
		Crust:    lipgloss.Color("#dce0e8"),

		Overlay0: lipgloss.Color("#9ca0b0"),
		Overlay1: lipgloss.Color("#8c8fa1"),
		Overlay2: lipgloss.Color("#7c7f93"),
	}
}
