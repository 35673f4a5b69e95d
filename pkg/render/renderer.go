package render

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"

	"github.com/svedentsov/chatstream/pkg/chat"
	"github.com/svedentsov/chatstream/pkg/events"
	"github.com/svedentsov/chatstream/pkg/logger"
	"github.com/svedentsov/chatstream/pkg/tasks"
)

// Options controls what the renderer shows and how code is highlighted.
type Options struct {
	CodeTheme    string
	ShowThinking bool
	ShowSources  bool
	NoColor      bool
}

// Renderer formats messages and progress state for terminal output.
type Renderer struct {
	opts Options

	userStyle      lipgloss.Style
	assistantStyle lipgloss.Style
	errorStyle     lipgloss.Style
	statusStyle    lipgloss.Style
	stepDoneStyle  lipgloss.Style
	sourceStyle    lipgloss.Style
	branchStyle    lipgloss.Style

	chromaFormatter chroma.Formatter
}

func New(opts Options) *Renderer {
	formatter := formatters.Get("terminal256")
	if formatter == nil || opts.NoColor {
		formatter = formatters.Fallback
	}

	return &Renderer{
		opts:            opts,
		chromaFormatter: formatter,

		userStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#87CEEB")),

		assistantStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")),

		errorStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6347")),

		statusStyle: lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("#888888")),

		stepDoneStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98")),

		sourceStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#555555")),

		branchStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700")),
	}
}

// Message renders one cached message, highlighting fenced code blocks and
// appending any error or source annotations.
func (r *Renderer) Message(m chat.Message) string {
	var b strings.Builder

	if m.IsUser() {
		b.WriteString(r.userStyle.Render("you: "))
		b.WriteString(m.Text)
		return b.String()
	}

	b.WriteString(r.assistantStyle.Render(r.highlightFences(m.Text)))

	if m.HasError() {
		if m.Text != "" {
			b.WriteString("\n")
		}
		b.WriteString(r.errorStyle.Render("error: " + m.Error))
	}

	if r.opts.ShowSources && len(m.Sources) > 0 {
		if sources := r.formatSources(m.Sources); sources != "" {
			b.WriteString("\n")
			b.WriteString(sources)
		}
	}

	return b.String()
}

// Progress renders the live task state as a short status block.
func (r *Renderer) Progress(state tasks.State) string {
	var lines []string

	if state.StatusText != "" {
		lines = append(lines, r.statusStyle.Render(state.StatusText))
	}

	if r.opts.ShowThinking && len(state.ThinkingSteps) > 0 {
		names := make([]string, 0, len(state.ThinkingSteps))
		for name := range state.ThinkingSteps {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			step := state.ThinkingSteps[name]
			if step.Status == events.StepCompleted {
				lines = append(lines, r.stepDoneStyle.Render("  [x] "+name))
			} else {
				lines = append(lines, r.statusStyle.Render("  [ ] "+name))
			}
		}
	}

	return strings.Join(lines, "\n")
}

// Branch renders a sibling position marker like "[2/3]".
func (r *Renderer) Branch(info chat.BranchInfo) string {
	return r.branchStyle.Render(fmt.Sprintf("[%d/%d]", info.Current, info.Total))
}

// highlightFences syntax-highlights ``` fenced blocks and leaves the rest of
// the text untouched.
func (r *Renderer) highlightFences(text string) string {
	if !strings.Contains(text, "```") {
		return text
	}

	var b strings.Builder
	rest := text
	for {
		open := strings.Index(rest, "```")
		if open < 0 {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:open])

		body := rest[open+3:]
		end := strings.Index(body, "```")
		if end < 0 {
			// unterminated fence, emit as-is
			b.WriteString(rest[open:])
			break
		}

		block := body[:end]
		language := ""
		if nl := strings.Index(block, "\n"); nl >= 0 {
			language = strings.TrimSpace(block[:nl])
			block = block[nl+1:]
		}

		b.WriteString(r.Code(block, language))
		rest = body[end+3:]
	}
	return b.String()
}

// Code applies chroma syntax highlighting to a code snippet.
func (r *Renderer) Code(content, language string) string {
	if content == "" {
		return ""
	}

	var lexer chroma.Lexer
	if language != "" {
		lexer = lexers.Get(language)
	}
	if lexer == nil {
		lexer = lexers.Analyse(content)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}

	iterator, err := lexer.Tokenise(nil, content)
	if err != nil {
		logger.WithComponent("render").Debug("Failed to tokenize code, using plain text: %v", err)
		return content
	}

	style := styles.Get(r.opts.CodeTheme)
	if style == nil {
		style = styles.Fallback
	}

	var buf strings.Builder
	if err := r.chromaFormatter.Format(&buf, style, iterator); err != nil {
		logger.WithComponent("render").Debug("Failed to format code, using plain text: %v", err)
		return content
	}
	return buf.String()
}

// Sources renders the source annotations of a finished answer, or nothing
// when source display is disabled.
func (r *Renderer) Sources(raw json.RawMessage) string {
	if !r.opts.ShowSources || len(raw) == 0 {
		return ""
	}
	return r.formatSources(raw)
}

type sourceEntry struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

func (r *Renderer) formatSources(raw json.RawMessage) string {
	var entries []sourceEntry
	if err := json.Unmarshal(raw, &entries); err != nil || len(entries) == 0 {
		return ""
	}

	lines := make([]string, 0, len(entries)+1)
	lines = append(lines, r.sourceStyle.Render("sources:"))
	for _, entry := range entries {
		label := entry.Title
		if label == "" {
			label = entry.URL
		} else if entry.URL != "" {
			label = label + " (" + entry.URL + ")"
		}
		lines = append(lines, r.sourceStyle.Render("  - "+label))
	}
	return strings.Join(lines, "\n")
}
