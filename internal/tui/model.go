package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"legalrag/internal/domain"
	"legalrag/internal/summarizer"
)

// RAGPort is the TUI-facing subset of the RAG service.
type RAGPort interface {
	Ask(ctx context.Context, question string) (*domain.Answer, error)
	IngestDocument(ctx context.Context, path string) (domain.IngestReport, error)
}

// Options describe the loaded index at startup.
type Options struct {
	Summary      string
	DocumentPath string
	Persistent   bool
	IndexSize    int
	// StartupError is shown in place of the first answer when the index was unreachable.
	StartupError string
}

type answerMsg struct {
	answer *domain.Answer
	err    error
}

type ingestMsg struct {
	report domain.IngestReport
	err    error
}

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	service  RAGPort
	opts     Options
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	answer      *domain.Answer
	errText     string
	status      string
	busy        bool
	showSources bool
	ready       bool
}

// New creates a new TUI model instance.
func New(service RAGPort, opts Options) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "z.B. Wie lange ist die Kündigungsfrist für meine Wohnung?"
	ti.Focus()
	ti.CharLimit = 0
	status := fmt.Sprintf("Die Wissensdatenbank wurde erfolgreich geladen! (%d Abschnitte)", opts.IndexSize)
	switch {
	case opts.StartupError != "":
		status = "Die Wissensdatenbank ist nicht erreichbar."
	case opts.Persistent && opts.IndexSize == 0:
		status = "Die Wissensdatenbank ist leer. Mit ctrl+b aufbauen."
	}
	return Model{
		service:  service,
		opts:     opts,
		input:    ti,
		viewport: viewport.New(0, 0),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(spinnerStyle)),
		status:   status,
		errText:  opts.StartupError,
	}
}

func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := headerLines + footerLines + qh + 1
		m.viewport.Width = max(20, msg.Width-4)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.viewport.SetContent(m.renderContent())
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "enter":
			if m.busy {
				return m, nil
			}
			q := strings.TrimSpace(m.input.Value())
			if q == "" {
				m.status = domain.UserMessage(domain.ErrEmptyQuestion)
				return m, nil
			}
			m.busy = true
			m.errText = ""
			m.status = "Suche in der Gesetzesdatenbank und generiere eine Antwort..."
			return m, tea.Batch(m.spinner.Tick, m.ask(q))
		case "ctrl+b":
			if m.busy {
				return m, nil
			}
			if !m.opts.Persistent {
				m.status = "Die Wissensdatenbank wird beim Start automatisch aufgebaut."
				return m, nil
			}
			m.busy = true
			m.errText = ""
			m.status = "Baue die Wissensdatenbank auf..."
			return m, tea.Batch(m.spinner.Tick, m.ingest())
		case "tab":
			m.showSources = !m.showSources
			m.viewport.SetContent(m.renderContent())
			return m, nil
		case "pgup":
			m.viewport.ViewUp()
			return m, nil
		case "pgdown":
			m.viewport.ViewDown()
			return m, nil
		}

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.errText = domain.UserMessage(msg.err)
			m.status = ""
		} else {
			m.answer = msg.answer
			m.status = fmt.Sprintf("%d Quellen gefunden", len(msg.answer.Sources))
		}
		m.viewport.SetContent(m.renderContent())
		m.viewport.GotoTop()
		return m, nil

	case ingestMsg:
		m.busy = false
		if msg.err != nil {
			m.errText = domain.UserMessage(msg.err)
			m.status = ""
		} else {
			m.opts.Summary = msg.report.Summary
			m.opts.IndexSize = msg.report.Stored
			m.status = fmt.Sprintf("Wissensdatenbank aufgebaut: %d Abschnitte, %d im Index", msg.report.Chunks, msg.report.Stored)
		}
		m.viewport.SetContent(m.renderContent())
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// ask runs the pipeline off the update loop; there is no cancellation.
func (m Model) ask(q string) tea.Cmd {
	return func() tea.Msg {
		a, err := m.service.Ask(context.Background(), q)
		return answerMsg{answer: a, err: err}
	}
}

func (m Model) ingest() tea.Cmd {
	return func() tea.Msg {
		r, err := m.service.IngestDocument(context.Background(), m.opts.DocumentPath)
		return ingestMsg{report: r, err: err}
	}
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Juristischer Informations-Assistent (Beta)"))
	b.WriteString("\n")
	b.WriteString(captionStyle.Render("Basierend auf dem deutschen Mietrecht (BGB §§ 535-580a)"))
	b.WriteString("\n")
	b.WriteString(warnStyle.Render("Haftungsausschluss: Dies ist ein akademisches Projekt und bietet keine Rechtsberatung."))
	b.WriteString("\n")
	b.WriteString(captionStyle.Render(m.opts.Summary))
	b.WriteString("\n")
	b.WriteString(resultBoxStyle.Render(m.viewport.View()))
	b.WriteString("\n")
	b.WriteString(queryBoxStyle.Render(m.input.View()))
	b.WriteString("\n")
	if m.busy {
		b.WriteString(m.spinner.View() + " ")
	}
	b.WriteString(statusStyle.Render(m.status))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("enter fragen • tab Quellen • ctrl+b Index aufbauen • pgup/pgdown scrollen • ctrl+c beenden"))
	return b.String()
}

func (m Model) renderContent() string {
	width := max(20, m.viewport.Width)
	if m.errText != "" {
		return errorStyle.Width(width).Render(m.errText)
	}
	if m.answer == nil {
		return "Stellen Sie hier Ihre Frage zum Mietrecht."
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Antwort:"))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Width(width).Render(m.answer.Text))
	b.WriteString("\n\n")
	if !m.showSources {
		b.WriteString(helpStyle.Render(fmt.Sprintf("[tab] Quellen anzeigen (%d)", len(m.answer.Sources))))
		return b.String()
	}
	b.WriteString(titleStyle.Render("Quellen (verwendete Textabschnitte):"))
	for _, r := range m.answer.Sources {
		b.WriteString("\n\n")
		b.WriteString(sourceStyle.Render(fmt.Sprintf("Quelle (Seite %d):", r.Chunk.Page)))
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Width(width).Render(highlightBestSentence(r.Chunk.Text, m.answer.Question)))
	}
	return b.String()
}

const (
	headerLines = 4
	footerLines = 2
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	captionStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	warnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	sourceStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	spinnerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

// highlightBestSentence marks the sentence sharing the most words with the question.
func highlightBestSentence(text, question string) string {
	sentences, best := summarizer.BestSentence(text, question)
	if len(sentences) == 0 {
		return strings.TrimSpace(text)
	}
	if best >= 0 {
		sentences[best] = highlightStyle.Render(sentences[best])
	}
	return strings.Join(sentences, " ")
}
