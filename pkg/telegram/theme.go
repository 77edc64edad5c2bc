package telegram

import (
	"fmt"
	"strings"
)

// ThemeParams mirrors Telegram.WebApp.themeParams.
type ThemeParams struct {
	BgColor                string `json:"bg_color,omitempty"`
	TextColor              string `json:"text_color,omitempty"`
	HintColor              string `json:"hint_color,omitempty"`
	LinkColor              string `json:"link_color,omitempty"`
	ButtonColor            string `json:"button_color,omitempty"`
	ButtonTextColor        string `json:"button_text_color,omitempty"`
	SecondaryBgColor       string `json:"secondary_bg_color,omitempty"`
	HeaderBgColor          string `json:"header_bg_color,omitempty"`
	AccentTextColor        string `json:"accent_text_color,omitempty"`
	SectionBgColor         string `json:"section_bg_color,omitempty"`
	SectionHeaderTextColor string `json:"section_header_text_color,omitempty"`
	SubtitleTextColor      string `json:"subtitle_text_color,omitempty"`
	DestructiveTextColor   string `json:"destructive_text_color,omitempty"`
}

// DefaultTheme is used for any colour the host leaves out.
func DefaultTheme() ThemeParams {
	return ThemeParams{
		BgColor:          "#ffffff",
		TextColor:        "#000000",
		HintColor:        "#999999",
		LinkColor:        "#2481cc",
		ButtonColor:      "#2481cc",
		ButtonTextColor:  "#ffffff",
		SecondaryBgColor: "#f0f0f0",
	}
}

// Merge returns p with empty fields filled from fallback.
func (p ThemeParams) Merge(fallback ThemeParams) ThemeParams {
	pick := func(v, f string) string {
		if v != "" {
			return v
		}
		return f
	}
	return ThemeParams{
		BgColor:                pick(p.BgColor, fallback.BgColor),
		TextColor:              pick(p.TextColor, fallback.TextColor),
		HintColor:              pick(p.HintColor, fallback.HintColor),
		LinkColor:              pick(p.LinkColor, fallback.LinkColor),
		ButtonColor:            pick(p.ButtonColor, fallback.ButtonColor),
		ButtonTextColor:        pick(p.ButtonTextColor, fallback.ButtonTextColor),
		SecondaryBgColor:       pick(p.SecondaryBgColor, fallback.SecondaryBgColor),
		HeaderBgColor:          pick(p.HeaderBgColor, fallback.HeaderBgColor),
		AccentTextColor:        pick(p.AccentTextColor, fallback.AccentTextColor),
		SectionBgColor:         pick(p.SectionBgColor, fallback.SectionBgColor),
		SectionHeaderTextColor: pick(p.SectionHeaderTextColor, fallback.SectionHeaderTextColor),
		SubtitleTextColor:      pick(p.SubtitleTextColor, fallback.SubtitleTextColor),
		DestructiveTextColor:   pick(p.DestructiveTextColor, fallback.DestructiveTextColor),
	}
}

// CSSVars returns the --tg-theme-* custom properties for the page. Values
// that are not #rgb / #rrggbb colours are skipped.
func (p ThemeParams) CSSVars() map[string]string {
	vars := make(map[string]string)
	set := func(name, value string) {
		if isHexColor(value) {
			vars["--tg-theme-"+name] = strings.ToLower(value)
		}
	}
	set("bg-color", p.BgColor)
	set("text-color", p.TextColor)
	set("hint-color", p.HintColor)
	set("link-color", p.LinkColor)
	set("button-color", p.ButtonColor)
	set("button-text-color", p.ButtonTextColor)
	set("secondary-bg-color", p.SecondaryBgColor)
	set("header-bg-color", p.HeaderBgColor)
	set("accent-text-color", p.AccentTextColor)
	set("section-bg-color", p.SectionBgColor)
	set("section-header-text-color", p.SectionHeaderTextColor)
	set("subtitle-text-color", p.SubtitleTextColor)
	set("destructive-text-color", p.DestructiveTextColor)
	return vars
}

func isHexColor(s string) bool {
	if len(s) != 4 && len(s) != 7 {
		return false
	}
	if s[0] != '#' {
		return false
	}
	for _, c := range s[1:] {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// Viewport mirrors the web-view viewport properties.
type Viewport struct {
	Height       float64 `json:"height"`
	StableHeight float64 `json:"stable_height"`
	Expanded     bool    `json:"expanded"`
}

// CSSVars returns the --tg-viewport-* custom properties.
func (v Viewport) CSSVars() map[string]string {
	vars := make(map[string]string, 2)
	if v.Height > 0 {
		vars["--tg-viewport-height"] = fmt.Sprintf("%gpx", v.Height)
	}
	if v.StableHeight > 0 {
		vars["--tg-viewport-stable-height"] = fmt.Sprintf("%gpx", v.StableHeight)
	}
	return vars
}

// MainButton is the host's primary action button state.
type MainButton struct {
	Text      string `json:"text"`
	Color     string `json:"color,omitempty"`
	TextColor string `json:"text_color,omitempty"`
	Visible   bool   `json:"visible"`
	Active    bool   `json:"active"`
	Progress  bool   `json:"progress,omitempty"`
}
