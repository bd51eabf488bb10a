// Package presentation turns documents into display-ready values: badge
// colors, formatted amounts and table rows.
package presentation

import "strings"

// Color names a badge palette entry.
type Color string

const (
	ColorGreen  Color = "green"
	ColorBlue   Color = "blue"
	ColorYellow Color = "yellow"
	ColorOrange Color = "orange"
	ColorRed    Color = "red"
	ColorGray   Color = "gray"
)

// badgeColors maps status and severity labels to their badge color.
var badgeColors = map[string]Color{
	// document statuses
	"draft":     ColorGray,
	"sent":      ColorBlue,
	"submitted": ColorBlue,
	"accepted":  ColorGreen,
	"approved":  ColorGreen,
	"confirmed": ColorGreen,
	"posted":    ColorGreen,
	"delivered": ColorGreen,
	"converted": ColorBlue,
	"closed":    ColorGray,
	"rejected":  ColorRed,
	"expired":   ColorOrange,
	"cancelled": ColorRed,
	// generic labels
	"active":   ColorGreen,
	"inactive": ColorGray,
	"pending":  ColorYellow,
	"paid":     ColorGreen,
	"overdue":  ColorRed,
	// severities
	"info":     ColorBlue,
	"low":      ColorGreen,
	"medium":   ColorYellow,
	"warning":  ColorYellow,
	"high":     ColorOrange,
	"critical": ColorRed,
}

// BadgeColor returns the color for a status or severity label, gray when unknown.
func BadgeColor(label string) Color {
	if c, ok := badgeColors[strings.ToLower(strings.TrimSpace(label))]; ok {
		return c
	}
	return ColorGray
}

// BadgeClass returns the CSS class used by the templates for label.
func BadgeClass(label string) string {
	return "badge badge-" + string(BadgeColor(label))
}

// Label turns a snake_case status into display text, e.g. "sales_order" -> "Sales order".
func Label(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), "_", " ")
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
