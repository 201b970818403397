// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	commandStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// Only the most recent entries are kept on screen
const maxHistory = 20

type historyEntry struct {
	line   string
	result string
	err    error
}

type interactiveModel struct {
	app     *app
	input   textinput.Model
	history []historyEntry
	busy    bool
}

type resultMsg historyEntry

func newInteractiveModel(a *app) *interactiveModel {
	ti := textinput.New()
	ti.Prompt = "variant> "
	ti.Placeholder = "parse (integer,42)"
	ti.Width = 60
	ti.Focus()
	return &interactiveModel{app: a, input: ti}
}

func runInteractive(a *app) error {
	_, err := tea.NewProgram(newInteractiveModel(a)).Run()
	return err
}

func (m *interactiveModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *interactiveModel) execute(line string) tea.Cmd {
	return func() tea.Msg {
		args, err := splitArgs(line)
		if err != nil {
			return resultMsg{line: line, err: err}
		}
		out, err := m.app.run(context.Background(), args)
		return resultMsg{line: line, result: out, err: err}
	}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "ctrl+d", "esc":
			return m, tea.Quit

		case "enter":
			line := strings.TrimSpace(m.input.Value())
			if line == "" || m.busy {
				return m, nil
			}
			if line == "quit" || line == "exit" {
				return m, tea.Quit
			}
			m.input.SetValue("")
			m.busy = true
			return m, m.execute(line)
		}

	case resultMsg:
		m.busy = false
		m.history = append(m.history, historyEntry(msg))
		if len(m.history) > maxHistory {
			m.history = m.history[len(m.history)-maxHistory:]
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("variantctl"))
	b.WriteString(fmt.Sprintf(" profile %d\n\n", m.app.profile))

	for _, h := range m.history {
		b.WriteString(commandStyle.Render("> " + h.line))
		b.WriteString("\n")
		if h.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", h.err)))
		} else {
			b.WriteString(resultStyle.Render(h.result))
		}
		b.WriteString("\n")
	}

	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("parse • format • inspect • compare • cast • profile • esc quit"))
	return b.String()
}

// splitArgs splits a command line on whitespace. Single quotes group words
// and are removed; everything inside them is literal.
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		cur     strings.Builder
		inQuote bool
		inWord  bool
	)
	for _, r := range line {
		switch {
		case r == '\'':
			inQuote = !inQuote
			inWord = true
		case !inQuote && (r == ' ' || r == '\t'):
			if inWord {
				args = append(args, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(r)
			inWord = true
		}
	}
	if inQuote {
		return nil, fmt.Errorf("unterminated quote")
	}
	if inWord {
		args = append(args, cur.String())
	}
	return args, nil
}
