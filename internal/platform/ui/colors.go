// internal/platform/ui/colors.go
package ui

import "github.com/pterm/pterm"

// Paleta "Sentinel": azules de vigilancia, ámbar para avisos.
var (
	WatchBlue   = pterm.NewRGB(52, 152, 219)
	SignalGreen = pterm.NewRGB(46, 204, 113)
	AlertAmber  = pterm.NewRGB(243, 156, 18)
	AlarmRed    = pterm.NewRGB(231, 76, 60)
	SteelGray   = pterm.NewRGB(127, 140, 141)
)

var (
	StylePrimary   = WatchBlue.ToRGBStyle()
	StyleSuccess   = SignalGreen.ToRGBStyle()
	StyleWarning   = AlertAmber.ToRGBStyle()
	StyleError     = AlarmRed.ToRGBStyle()
	StyleSecondary = SteelGray.ToRGBStyle()
)
