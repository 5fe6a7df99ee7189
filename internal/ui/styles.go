package ui

import "github.com/charmbracelet/lipgloss"

// Colors used in the application.
var (
	colorPrimary   = lipgloss.Color("62")  // Purple
	colorSecondary = lipgloss.Color("241") // Gray
	colorMuted     = lipgloss.Color("240") // Darker gray
	colorHighlight = lipgloss.Color("212") // Pink
	colorSuccess   = lipgloss.Color("78")  // Green
	colorSticky    = lipgloss.Color("114") // Soft green
	colorError     = lipgloss.Color("196")
)

// SelectedItem style for the currently highlighted post title.
var SelectedItem = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255")).
	Background(colorPrimary).
	Padding(0, 1)

// NormalItem style for unselected post titles.
var NormalItem = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Padding(0, 1)

// StickiedItem style for posts pinned by moderators.
var StickiedItem = lipgloss.NewStyle().
	Foreground(colorSticky).
	Bold(true).
	Padding(0, 1)

// Byline style for the "Posted by" line under each title.
var Byline = lipgloss.NewStyle().
	Foreground(colorSecondary).
	Padding(0, 1)

// MediaLine style for the embedded media source.
var MediaLine = lipgloss.NewStyle().
	Foreground(colorMuted).
	Italic(true).
	Padding(0, 1)

// Header style for the route line at the top.
var Header = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorHighlight).
	Padding(0, 1)

// FavoriteBadge style for favorite communities in the header.
var FavoriteBadge = lipgloss.NewStyle().
	Foreground(colorPrimary).
	Background(lipgloss.Color("236")).
	Padding(0, 1).
	MarginRight(1)

// FreshBadge style for "N new" counts.
var FreshBadge = lipgloss.NewStyle().
	Foreground(colorSuccess).
	Bold(true)

// Sentinel style for the "load more" row below the last post.
var Sentinel = lipgloss.NewStyle().
	Foreground(colorSecondary).
	Padding(0, 1)

// StatusBar style for the bottom status bar.
var StatusBar = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Background(lipgloss.Color("236")).
	Padding(0, 1)

// StatusBarKey style for key hints in status bar.
var StatusBarKey = lipgloss.NewStyle().
	Foreground(colorHighlight).
	Bold(true)

// StatusBarText style for descriptive text in status bar.
var StatusBarText = lipgloss.NewStyle().
	Foreground(colorSecondary)

// ErrorStyle for displaying errors.
var ErrorStyle = lipgloss.NewStyle().
	Foreground(colorError).
	Bold(true).
	Padding(0, 1)

// HelpStyle for help and placeholder text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(colorMuted).
	Padding(1, 2)

// PromptBar style for the community input bar.
var PromptBar = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Background(lipgloss.Color("240")).
	Padding(0, 1)

// CommentAuthor style in the thread view.
var CommentAuthor = lipgloss.NewStyle().
	Foreground(colorHighlight).
	Bold(true)

// CommentMeta style for score and age in the thread view.
var CommentMeta = lipgloss.NewStyle().
	Foreground(colorMuted)

// DebugPanel style for the debug overlay border and padding.
var DebugPanel = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorPrimary).
	Padding(1, 2)

// DebugHeaderStyle for section headers in the debug overlay.
var DebugHeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorHighlight)
