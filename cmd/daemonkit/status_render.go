package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"daemonkit/internal/daemonctl"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 12
	statusIndent     = "  "
	maxCmdlineWidth  = 80
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := statusKindLabel(kind)
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusText, message)
	} else {
		statusText = fmt.Sprintf("[%s]", statusText)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func renderDetailLine(label, value string) string {
	return fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", value)
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func statusLines(st daemonctl.Status, now time.Time, colorize bool) []string {
	lines := []string{renderDetailLine("Pidfile", st.Pidfile)}
	switch {
	case st.Running():
		lines = append(lines, renderStatusLine("Daemon", statusOK, fmt.Sprintf("Running (pid %d)", st.PID), colorize))
	case st.Stale && st.PID > 0:
		lines = append(lines, renderStatusLine("Daemon", statusWarn, fmt.Sprintf("Stale pidfile (pid %d is gone)", st.PID), colorize))
	case st.Locked:
		lines = append(lines, renderStatusLine("Daemon", statusError, "Unreadable pidfile", colorize))
	default:
		lines = append(lines, renderStatusLine("Daemon", statusInfo, "Not running", colorize))
	}

	if st.Name != "" {
		lines = append(lines, renderDetailLine("Process", st.Name))
	}
	if !st.StartedAt.IsZero() {
		uptime := st.Uptime(now).Round(time.Second)
		lines = append(lines, renderDetailLine("Started", fmt.Sprintf("%s (up %s)", st.StartedAt.Local().Format(time.DateTime), uptime)))
	}
	if st.Cmdline != "" {
		lines = append(lines, renderDetailLine("Command", truncate(st.Cmdline, maxCmdlineWidth)))
	}
	if st.Problem != "" {
		lines = append(lines, renderStatusLine("Problem", statusWarn, st.Problem, colorize))
	}
	return lines
}

func truncate(value string, width int) string {
	value = strings.TrimSpace(value)
	runes := []rune(value)
	if len(runes) <= width {
		return value
	}
	return string(runes[:width-1]) + "…"
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
