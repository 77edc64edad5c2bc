package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThemeCSSVars(t *testing.T) {
	theme := ThemeParams{
		BgColor:     "#17212B",
		TextColor:   "#f5f5f5",
		ButtonColor: "red; background:url(x)",
	}

	vars := theme.CSSVars()
	assert.Equal(t, "#17212b", vars["--tg-theme-bg-color"])
	assert.Equal(t, "#f5f5f5", vars["--tg-theme-text-color"])
	assert.NotContains(t, vars, "--tg-theme-button-color")
	assert.Len(t, vars, 2)
}

func TestThemeMerge(t *testing.T) {
	merged := ThemeParams{BgColor: "#000"}.Merge(DefaultTheme())
	assert.Equal(t, "#000", merged.BgColor)
	assert.Equal(t, DefaultTheme().TextColor, merged.TextColor)
}

func TestViewportCSSVars(t *testing.T) {
	vars := Viewport{Height: 640, StableHeight: 600.5}.CSSVars()
	assert.Equal(t, "640px", vars["--tg-viewport-height"])
	assert.Equal(t, "600.5px", vars["--tg-viewport-stable-height"])

	assert.Empty(t, Viewport{}.CSSVars())
}
