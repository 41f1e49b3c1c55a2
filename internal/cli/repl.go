package cli

import (
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/nodecalc/pkg/calc"
	"github.com/matzehuels/nodecalc/pkg/pipeline"
	"github.com/matzehuels/nodecalc/pkg/script"
)

// REPL styles
var (
	replPromptStyle = lipgloss.NewStyle().Foreground(colorCyan).Bold(true)
	replErrorStyle  = lipgloss.NewStyle().Foreground(colorRed)
	replPaneStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(0, 1)
)

const (
	replPrompt     = "› "
	replTraceLines = 12
)

// replCommand creates the repl command.
func (c *CLI) replCommand() *cobra.Command {
	var scenePath, out string
	var extensions []string

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Evaluate statements interactively",
		Long:  `Evaluate statements one at a time against a scene. The right pane shows the host commands recorded so far. Press Esc or Ctrl+C to leave.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			table, err := loadTable(cfg, extensions)
			if err != nil {
				return err
			}
			scene, err := readFile(scenePath)
			if err != nil {
				return fmt.Errorf("read scene: %w", err)
			}
			g, err := pipeline.LoadScene(scene)
			if err != nil {
				return err
			}

			// The program owns the terminal, so log lines are discarded.
			logger := newLogger(io.Discard, LogInfo)
			calculator := calc.New(g,
				calc.WithConfig(cfg),
				calc.WithTable(table),
				calc.WithLogger(logger),
				calc.WithContext(cmd.Context()),
			)
			m, err := newReplModel(calculator, script.New(calculator, script.WithLogger(logger)))
			if err != nil {
				return err
			}
			defer m.session.Stop()

			final, err := tea.NewProgram(m, tea.WithContext(cmd.Context())).Run()
			if err != nil {
				return err
			}
			if out != "" {
				if err := g.SaveSceneFile(out); err != nil {
					return err
				}
				printFile(out)
			}
			if rm, ok := final.(replModel); ok {
				printInfo("%d statements, %d host commands", rm.executed, len(rm.session.Commands()))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&scenePath, "scene", "s", "", "TOML scene to start from")
	cmd.Flags().StringVarP(&out, "out", "o", "", "save the scene to this TOML file on exit")
	cmd.Flags().StringSliceVarP(&extensions, "extension", "e", nil, "operator bundle to merge (repeatable)")
	return cmd
}

// replEntry is one evaluated statement.
type replEntry struct {
	input  string
	output string
	failed bool
}

// replModel is the bubbletea model of the statement loop.
type replModel struct {
	in      *script.Interpreter
	session *calc.TracerSession

	input    []rune
	cursor   int
	entries  []replEntry
	history  []string
	histPos  int
	executed int
	width    int
}

func newReplModel(c *calc.Calculator, in *script.Interpreter) (replModel, error) {
	sess, err := c.StartTrace()
	if err != nil {
		return replModel{}, err
	}
	return replModel{in: in, session: sess, width: 100}, nil
}

func (m replModel) Init() tea.Cmd {
	return nil
}

func (m replModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyCtrlD:
			return m, tea.Quit
		case tea.KeyEnter:
			m = m.submit()
		case tea.KeyBackspace:
			if m.cursor > 0 {
				m.input = append(m.input[:m.cursor-1], m.input[m.cursor:]...)
				m.cursor--
			}
		case tea.KeyLeft:
			m.cursor = max(m.cursor-1, 0)
		case tea.KeyRight:
			m.cursor = min(m.cursor+1, len(m.input))
		case tea.KeyUp:
			m = m.recall(-1)
		case tea.KeyDown:
			m = m.recall(1)
		case tea.KeySpace:
			m = m.insert(' ')
		case tea.KeyRunes:
			for _, r := range msg.Runes {
				m = m.insert(r)
			}
		}
	}
	return m, nil
}

func (m replModel) insert(r rune) replModel {
	input := make([]rune, 0, len(m.input)+1)
	input = append(input, m.input[:m.cursor]...)
	input = append(input, r)
	m.input = append(input, m.input[m.cursor:]...)
	m.cursor++
	return m
}

// recall moves through the statement history.
func (m replModel) recall(step int) replModel {
	if len(m.history) == 0 {
		return m
	}
	m.histPos = min(max(m.histPos+step, 0), len(m.history))
	if m.histPos == len(m.history) {
		m.input = nil
	} else {
		m.input = []rune(m.history[m.histPos])
	}
	m.cursor = len(m.input)
	return m
}

// submit executes the current input.
func (m replModel) submit() replModel {
	line := strings.TrimSpace(string(m.input))
	m.input, m.cursor = nil, 0
	if line == "" {
		return m
	}
	m.history = append(m.history, line)
	m.histPos = len(m.history)

	entry := replEntry{input: line}
	v, err := m.in.Exec(line)
	if err != nil {
		entry.output = err.Error()
		entry.failed = true
	} else {
		entry.output = script.Format(v)
		m.executed++
	}
	m.entries = append(m.entries, entry)
	return m
}

func (m replModel) View() string {
	var left strings.Builder
	left.WriteString(StyleTitle.Render("nodecalc"))
	left.WriteString(StyleDim.Render("  ↑/↓ history  esc quit"))
	left.WriteString("\n\n")

	start := max(len(m.entries)-replTraceLines, 0)
	for _, e := range m.entries[start:] {
		left.WriteString(replPromptStyle.Render(replPrompt) + e.input + "\n")
		switch {
		case e.failed:
			left.WriteString("  " + replErrorStyle.Render(e.output) + "\n")
		case e.output != "":
			left.WriteString("  " + StyleValue.Render(e.output) + "\n")
		}
	}

	before := string(m.input[:m.cursor])
	after := string(m.input[m.cursor:])
	left.WriteString(replPromptStyle.Render(replPrompt) + before + StyleHighlight.Render("█") + after)

	paneWidth := max(m.width/2-4, 20)
	trace := m.session.Commands()
	shown := trace[max(len(trace)-replTraceLines, 0):]
	body := StyleDim.Render("no host commands yet")
	if len(shown) > 0 {
		body = renderTrace(shown)
	}
	pane := replPaneStyle.Width(paneWidth).Render(
		StyleTitle.Render(fmt.Sprintf("Trace (%d)", len(trace))) + "\n" + body,
	)

	leftCol := lipgloss.NewStyle().Width(max(m.width-paneWidth-6, 30)).Render(left.String())
	return lipgloss.JoinHorizontal(lipgloss.Top, leftCol, "  ", pane) + "\n"
}

var _ tea.Model = replModel{}
