// Package ui holds the terminal rendering helpers shared by gossipsim's
// subcommands.
package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	purple = lipgloss.Color("99")
	green  = lipgloss.Color("76")
	red    = lipgloss.Color("204")
	dim    = lipgloss.Color("243")
	faint  = lipgloss.Color("238")
)

var (
	AccentStyle = lipgloss.NewStyle().Foreground(purple)
	MutedStyle  = lipgloss.NewStyle().Foreground(dim)
)

func Accent(s string) string { return AccentStyle.Render(s) }
func Muted(s string) string  { return MutedStyle.Render(s) }

// Bool renders a boolean with a color cue, green for true and red for false.
func Bool(v bool) string {
	if v {
		return lipgloss.NewStyle().Foreground(green).Render("true")
	}
	return lipgloss.NewStyle().Foreground(red).Render("false")
}

// InfoMsg renders a single-line status message with an accent bullet.
func InfoMsg(format string, a ...any) string {
	return AccentStyle.Render("●") + " " + fmt.Sprintf(format, a...)
}

// MembershipTable renders one cluster's member snapshot per node: headers
// are "node", "members", "heartbeat", "in group", "failed".
func MembershipTable(headers []string, rows [][]string) string {
	headerStyle := lipgloss.NewStyle().Foreground(purple).Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	oddStyle := cellStyle.Foreground(dim)
	evenStyle := cellStyle

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(faint)).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row%2 == 0:
				return evenStyle
			default:
				return oddStyle
			}
		}).
		Headers(headers...)

	for _, r := range rows {
		t.Row(r...)
	}
	return t.String()
}
