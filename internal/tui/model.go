package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docqa/internal/domain"
	"docqa/internal/loader"
)

// ChatPort is the TUI-facing subset of a session.
type ChatPort interface {
	Ingest(ctx context.Context, src domain.Source) (domain.IngestReport, error)
	Ask(ctx context.Context, question string) (domain.Answer, error)
}

type ingestMsg struct {
	report domain.IngestReport
	err    error
}

type answerMsg struct {
	question string
	answer   domain.Answer
	err      error
}

type turn struct {
	question string
	answer   domain.Answer
}

// Model is the Bubble Tea model for the chat UI.
type Model struct {
	session ChatPort
	ctx     context.Context
	timeout time.Duration
	source  func(string) (domain.Source, error)

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	report      *domain.IngestReport
	turns       []turn
	showSources bool
	cursor      int
	busy        bool
	status      string
	ready       bool
	pending     tea.Cmd
}

// New creates the chat model. Each ingest or question runs with timeout.
func New(ctx context.Context, session ChatPort, timeout time.Duration) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question, or :load <file|url>"
	ti.Focus()
	ti.CharLimit = 0
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		session:  session,
		ctx:      ctx,
		timeout:  timeout,
		source:   loader.SourceFor,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  sp,
		status:   "No document loaded. Use :load <file|url>.",
	}
}

// Load returns a model that ingests arg when the program starts.
func (m Model) Load(arg string) Model {
	next, cmd := m.startIngest(arg)
	next.pending = cmd
	return next
}

func (m Model) Init() tea.Cmd { return tea.Batch(textinput.Blink, m.pending) }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header, document, status, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case ingestMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.report = nil
			m.turns = nil
		} else {
			m.report = &msg.report
			m.turns = nil
			m.status = fmt.Sprintf("Loaded %s: %d chunks. Ask away.", msg.report.Name, msg.report.Chunks)
		}
		m.refresh()
		return m, nil

	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.turns = append(m.turns, turn{question: msg.question, answer: msg.answer})
			m.cursor = 0
			m.status = fmt.Sprintf("Answered from %d chunks. :sources to inspect them.", len(msg.answer.Sources))
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			if m.busy {
				return m, nil
			}
			line := strings.TrimSpace(m.input.Value())
			if line == "" {
				return m, nil
			}
			m.input.Reset()
			return m.command(line)
		case "down":
			if m.showSources && m.lastSources() > 0 {
				m.cursor = (m.cursor + 1) % m.lastSources()
				m.refresh()
				return m, nil
			}
		case "up":
			if m.showSources && m.lastSources() > 0 {
				m.cursor = (m.cursor - 1 + m.lastSources()) % m.lastSources()
				m.refresh()
				return m, nil
			}
		}
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) command(line string) (tea.Model, tea.Cmd) {
	switch {
	case line == ":q" || line == ":quit":
		return m, tea.Quit
	case line == ":sources":
		m.showSources = !m.showSources
		m.cursor = 0
		m.refresh()
		return m, nil
	case strings.HasPrefix(line, ":load"):
		arg := strings.TrimSpace(strings.TrimPrefix(line, ":load"))
		if arg == "" {
			m.status = "Usage: :load <file|url>"
			return m, nil
		}
		return m.startIngest(arg)
	}
	return m.startAsk(line)
}

func (m Model) startIngest(arg string) (Model, tea.Cmd) {
	src, err := m.source(arg)
	if err != nil {
		m.status = "Error: " + err.Error()
		return m, nil
	}
	m.busy = true
	m.status = "Loading " + arg + "..."
	ctx, session, timeout := m.ctx, m.session, m.timeout
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		ctx, cancel := withTimeout(ctx, timeout)
		defer cancel()
		report, err := session.Ingest(ctx, src)
		return ingestMsg{report: report, err: err}
	})
}

func (m Model) startAsk(question string) (Model, tea.Cmd) {
	m.busy = true
	m.status = "Thinking..."
	ctx, session, timeout := m.ctx, m.session, m.timeout
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		ctx, cancel := withTimeout(ctx, timeout)
		defer cancel()
		answer, err := session.Ask(ctx, question)
		return answerMsg{question: question, answer: answer, err: err}
	})
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func (m Model) lastSources() int {
	if len(m.turns) == 0 {
		return 0
	}
	return len(m.turns[len(m.turns)-1].answer.Sources)
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderConversation())
	m.viewport.GotoBottom()
}

// View renders the TUI layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("docqa")
	doc := "No document"
	if m.report != nil {
		doc = fmt.Sprintf("%s (%s, %d chunks, %s)", m.report.Name, m.report.Format, m.report.Chunks, m.report.Embedder)
	}
	document := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(doc)
	status := m.status
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	return header + "\n" + document + "\n" +
		resultBoxStyle.Render(m.viewport.View()) + "\n" +
		queryBoxStyle.Render(m.input.View()) + "\n" +
		statusStyle.Render(status)
}

func (m Model) renderConversation() string {
	var b strings.Builder
	if m.report != nil && m.report.Summary != "" {
		b.WriteString(summaryStyle.Render("Summary: "+m.report.Summary) + "\n\n")
	}
	if len(m.turns) == 0 {
		b.WriteString("No questions yet.")
		return b.String()
	}
	for i, t := range m.turns {
		b.WriteString(questionStyle.Render("Q: "+t.question) + "\n")
		b.WriteString("A: " + t.answer.Text + "\n")
		if i < len(m.turns)-1 {
			b.WriteString("\n")
		}
	}
	if m.showSources {
		last := m.turns[len(m.turns)-1]
		if len(last.answer.Sources) > 0 {
			r := last.answer.Sources[m.cursor]
			b.WriteString(fmt.Sprintf("\nSource %d/%d  chunk=%d  score=%.3f\n", m.cursor+1, len(last.answer.Sources), r.Chunk.Index, r.Score))
			b.WriteString(highlightBestSentence(r.Chunk.Text, last.question))
		}
	}
	return b.String()
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	questionStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	summaryStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	unicodeWordRe  = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentenceRe     = regexp.MustCompile(`[^.!?]+(?:[.!?]+|$)`)
)

// highlightBestSentence emphasises the sentence sharing the most words
// with the question.
func highlightBestSentence(text, question string) string {
	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		return text
	}
	qTokens := toTokenSet(question)
	bestIdx, bestScore := -1, 0
	for i, s := range sentences {
		if score := tokenOverlapScore(qTokens, s); score > bestScore {
			bestIdx, bestScore = i, score
		}
	}
	out := make([]string, 0, len(sentences))
	for i, s := range sentences {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if i == bestIdx {
			s = highlightStyle.Render(s)
		}
		out = append(out, s)
	}
	return strings.Join(out, " ")
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func tokenOverlapScore(queryTokens map[string]struct{}, sentence string) int {
	score := 0
	seen := make(map[string]struct{})
	for _, t := range unicodeWordRe.FindAllString(strings.ToLower(sentence), -1) {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := queryTokens[t]; ok {
			score++
		}
	}
	return score
}
