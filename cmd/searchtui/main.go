// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command searchtui is an interactive type-to-search terminal UI over a
// loaded index snapshot: a live query box, a ranked result list that
// updates on every keystroke, a vacuum hotkey, and a status line showing the
// live document count.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rivertext/fts/codec"
	"github.com/rivertext/fts/config"
	"github.com/rivertext/fts/index"
	"github.com/rivertext/fts/search"
)

var (
	configPath   = "fts.yaml"
	snapshotPath = "fts.snapshot.yaml"

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	scoreStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	statusStyle = lipgloss.NewStyle().Faint(true)
)

func main() {
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	if len(os.Args) > 2 {
		snapshotPath = os.Args[2]
	}

	ix, err := loadIndex()
	if err != nil {
		fmt.Fprintln(os.Stderr, "searchtui:", err)
		os.Exit(1)
	}

	m := newModel(search.New(ix))
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintln(os.Stderr, "searchtui:", err)
		os.Exit(1)
	}
}

func loadIndex() (*index.Index, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", configPath, err)
	}
	cfg, err := config.Load(data)
	if err != nil {
		return nil, err
	}
	accessors := make(map[string]index.Accessor, len(cfg.Fields))
	for _, f := range cfg.Fields {
		accessors[f.Name] = func(name string) index.Accessor {
			return func(doc any) (string, bool) {
				m, ok := doc.(map[string]any)
				if !ok {
					return "", false
				}
				v, ok := m[name].(string)
				return v, ok
			}
		}(f.Name)
	}
	opts, err := config.ToIndexOptions(cfg, accessors)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(snapshotPath)
	if os.IsNotExist(err) {
		return index.New(opts)
	}
	if err != nil {
		return nil, fmt.Errorf("opening snapshot %s: %w", snapshotPath, err)
	}
	defer f.Close()
	return codec.Load(f, opts)
}

type resultLine struct {
	key   string
	score float64
}

// model is the bubbletea Elm-architecture state for the search REPL: a text
// input for the live query, the current ranked results, and a status line.
type model struct {
	idx     *search.Index
	input   textinput.Model
	results []resultLine
	status  string
	width   int
}

func newModel(idx *search.Index) model {
	ti := textinput.New()
	ti.Placeholder = "type to search..."
	ti.Focus()
	ti.CharLimit = 256

	return model{
		idx:    idx,
		input:  ti,
		status: fmt.Sprintf("%d live documents", idx.Core().LiveCount()),
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyCtrlV:
			m.idx.Vacuum(context.Background())
			m.status = fmt.Sprintf("vacuumed — %d live documents", m.idx.Core().LiveCount())
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.refreshResults()
	return m, cmd
}

func (m *model) refreshResults() {
	text := m.input.Value()
	if text == "" {
		m.results = nil
		return
	}
	results := m.idx.Query(context.Background(), text)
	lines := make([]resultLine, 0, len(results))
	for _, r := range results {
		lines = append(lines, resultLine{key: fmt.Sprint(r.Key), score: r.Score})
	}
	m.results = lines
}

func (m model) View() string {
	out := titleStyle.Render("full-text search") + "\n\n"
	out += m.input.View() + "\n\n"
	for _, r := range m.results {
		out += fmt.Sprintf("%s  %s\n", scoreStyle.Render(fmt.Sprintf("%6.3f", r.score)), r.key)
	}
	out += "\n" + statusStyle.Render(m.status+"  (ctrl+v: vacuum, esc: quit)")
	return out
}
