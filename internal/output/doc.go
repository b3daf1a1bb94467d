// Package output provides the logger and terminal output helpers for azcli-mcp.
//
// It wraps charmbracelet/log for structured logging and charmbracelet/lipgloss
// for styled output. Everything is written to stderr except JSON results,
// because in serve mode stdout carries the MCP protocol.
//
// Features:
//   - Styled logging (Info, Warn, Error, Debug) or JSON lines with --json
//   - NO_COLOR environment variable support
//   - Verbose/debug mode via -v flag
package output
