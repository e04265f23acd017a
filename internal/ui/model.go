package ui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nconklindev/kbnsheet/internal/converter"
	"github.com/nconklindev/kbnsheet/internal/schema"
	"github.com/nconklindev/kbnsheet/internal/types"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type state int

const (
	stateFilePicker state = iota
	stateColumnTypes
	stateProcessing
	stateComplete
	stateError
)

type Model struct {
	state        state
	filepicker   filepicker.Model
	selectedFile string
	fileData     *types.FileData
	defs         schema.Schema
	preset       bool
	opts         converter.Options
	headerRows   int // header band restored by the toggle
	cursor       int
	result       *types.ConversionResult
	err          error
	width        int
	height       int
	progress     progress.Model
	progressChan chan float64
	resultChan   chan conversionResultMsg
}

type conversionResultMsg struct {
	result *types.ConversionResult
	err    error
}

type fileLoadedMsg struct {
	data *types.FileData
	err  error
}

type conversionCompleteMsg struct {
	result *types.ConversionResult
	err    error
}

type progressMsg float64

type waitForProgressMsg struct{}

// InitialModel starts at the file picker. When preset is non-nil its column
// types are used instead of inferring them from the chosen file.
func InitialModel(opts converter.Options, preset schema.Schema) Model {
	fp := filepicker.New()
	fp.AllowedTypes = []string{".csv", ".tsv", ".txt"}
	fp.CurrentDirectory, _ = os.Getwd()

	fp.Styles.Cursor = lipgloss.NewStyle().Foreground(accent)
	fp.Styles.Symlink = lipgloss.NewStyle().Foreground(highlight)
	fp.Styles.Directory = lipgloss.NewStyle().Foreground(highlight)
	fp.Styles.File = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF"))
	fp.Styles.Permission = lipgloss.NewStyle().Foreground(muted)
	fp.Styles.Selected = lipgloss.NewStyle().Foreground(accent).Bold(true)
	fp.Styles.FileSize = lipgloss.NewStyle().Foreground(muted)

	headerRows := opts.HeaderRows
	if headerRows == 0 {
		headerRows = converter.DefaultHeaderRows
	}

	prog := progress.New(progress.WithGradient(string(accent), string(highlight)))

	return Model{
		state:      stateFilePicker,
		filepicker: fp,
		defs:       preset,
		preset:     preset != nil,
		opts:       opts,
		headerRows: headerRows,
		progress:   prog,
	}
}

func (m Model) Init() tea.Cmd {
	return m.filepicker.Init()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		// Leave room for the title, subtitle and help lines
		height := msg.Height - 14
		if height < 5 {
			height = 5
		}
		m.filepicker.SetHeight(height)

		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case stateFilePicker:
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			}

		case stateColumnTypes:
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "up", "k":
				if m.cursor > 0 {
					m.cursor--
				}
			case "down", "j":
				if m.cursor < len(m.fileData.Headers)-1 {
					m.cursor++
				}
			case " ":
				m.defs = m.withColumns(m.cursor + 1)
				m.defs[m.cursor].Type = m.defs[m.cursor].Type.Next()
			case "h":
				if m.opts.HeaderRows > 0 {
					m.opts.HeaderRows = 0
				} else {
					m.opts.HeaderRows = m.headerRows
				}
				return m, m.loadFile(m.selectedFile)
			case "enter":
				m.state = stateProcessing
				return m.convertFile()
			}

		case stateComplete, stateError:
			switch msg.String() {
			case "ctrl+c", "q", "enter", "esc":
				return m, tea.Quit
			}
		}

	case fileLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.state = stateError
			return m, nil
		}
		m.fileData = msg.data
		if !m.preset {
			m.defs = schema.Infer(msg.data)
		}
		m.defs = m.withColumns(len(msg.data.Headers))
		if m.cursor >= len(msg.data.Headers) {
			m.cursor = 0
		}

		m.state = stateColumnTypes
		return m, nil

	case conversionCompleteMsg:
		if msg.err != nil {
			m.err = msg.err
			m.state = stateError
			return m, nil
		}
		m.result = msg.result
		m.state = stateComplete
		return m, nil

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd

	case progressMsg:
		if m.state == stateProcessing {
			cmd := m.progress.SetPercent(float64(msg))
			return m, tea.Batch(cmd, waitForProgress(m.progressChan, m.resultChan))
		}
		return m, nil

	case waitForProgressMsg:
		return m, waitForProgress(m.progressChan, m.resultChan)
	}

	if m.state == stateFilePicker {
		var cmd tea.Cmd
		m.filepicker, cmd = m.filepicker.Update(msg)

		if didSelect, path := m.filepicker.DidSelectFile(msg); didSelect {
			m.selectedFile = path
			return m, m.loadFile(path)
		}

		return m, cmd
	}

	return m, nil
}

// withColumns returns a copy of the schema padded with Text columns to at
// least n entries.
func (m Model) withColumns(n int) schema.Schema {
	defs := make(schema.Schema, max(n, len(m.defs)))
	copy(defs, m.defs)
	return defs
}

func (m Model) loadFile(path string) tea.Cmd {
	opts := m.opts
	return func() tea.Msg {
		data, err := converter.ReadFileData(path, opts)
		return fileLoadedMsg{data: data, err: err}
	}
}

func outputPath(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + ".xlsx"
}

func (m Model) convertFile() (Model, tea.Cmd) {
	m.progressChan = make(chan float64, 100)
	m.resultChan = make(chan conversionResultMsg, 1)

	cmd := tea.Batch(
		startConversion(m.selectedFile, outputPath(m.selectedFile), m.defs, m.opts, m.progressChan, m.resultChan),
		waitForProgress(m.progressChan, m.resultChan),
		m.progress.Init(),
	)

	return m, cmd
}

// startConversion runs the conversion in a goroutine that reports on
// progressChan and delivers its outcome on resultChan, then closes both.
func startConversion(input, output string, defs schema.Schema, opts converter.Options, progressChan chan float64, resultChan chan conversionResultMsg) tea.Cmd {
	return func() tea.Msg {
		go func() {
			result, err := converter.Convert(input, output, defs, opts, progressChan)

			resultChan <- conversionResultMsg{result: result, err: err}

			close(progressChan)
			close(resultChan)
		}()

		return waitForProgressMsg{}
	}
}

func waitForProgress(progressChan chan float64, resultChan chan conversionResultMsg) tea.Cmd {
	return func() tea.Msg {
		if progressChan == nil {
			return nil
		}

		p, ok := <-progressChan
		if !ok {
			// Progress channel closed, check result
			res, ok := <-resultChan
			if ok {
				return conversionCompleteMsg(res)
			}
			return nil
		}

		return progressMsg(p)
	}
}

func (m Model) View() string {
	switch m.state {
	case stateFilePicker:
		return m.viewFilePicker()
	case stateColumnTypes:
		return m.viewColumnTypes()
	case stateProcessing:
		return m.viewProcessing()
	case stateComplete:
		return m.viewComplete()
	case stateError:
		return m.viewError()
	}
	return ""
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("▦ kbnsheet - CSV to Excel with dropdowns"))
	s.WriteString("\n")
	s.WriteString(SubtitleStyle.Render("Select a delimited text file to convert"))
	s.WriteString("\n\n")
	s.WriteString(m.filepicker.View())
	s.WriteString("\n\n")
	s.WriteString(HelpStyle.Render("Press q to quit"))

	return s.String()
}

func (m Model) viewColumnTypes() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("▦ Review Column Types"))
	s.WriteString("\n")
	s.WriteString(SubtitleStyle.Render(fmt.Sprintf("File: %s", filepath.Base(m.selectedFile))))
	s.WriteString("\n\n")

	if m.preset {
		s.WriteString(SuccessStyle.Render("✓ Using the supplied schema"))
	} else {
		s.WriteString(SuccessStyle.Render(fmt.Sprintf("✓ Inferred types from %d sample row(s)", len(m.fileData.Rows))))
	}
	s.WriteString("\n\n")

	for i, header := range m.fileData.Headers {
		cursor := " "
		if m.cursor == i {
			cursor = ">"
		}

		def := m.defs.At(i)
		tag := TypeStyle(def.Type).Render(fmt.Sprintf("%-8s", def.Type.Tag()))
		line := fmt.Sprintf("%s %s %s", cursor, tag, header)
		if def.Type == schema.Category && def.HasDomain() {
			line += UnselectedStyle.Render(fmt.Sprintf(" %v", def.Domain))
		}

		if m.cursor == i {
			line = SelectedStyle.Render(line)
		}

		s.WriteString(line)
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(fmt.Sprintf("Header rows: %d\n", m.opts.HeaderRows))
	s.WriteString("\n")
	s.WriteString(HelpStyle.Render("↑/↓: navigate • space: change type • h: toggle header row • enter: convert • q: quit"))

	return BoxStyle.Render(s.String())
}

func (m Model) viewProcessing() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("▦ Processing..."))
	s.WriteString("\n\n")
	s.WriteString("Writing workbook...")
	s.WriteString("\n\n")
	s.WriteString(m.progress.View())

	return BoxStyle.Render(s.String())
}

func (m Model) viewComplete() string {
	var s strings.Builder

	s.WriteString(TitleStyle.Render("✓ Conversion Complete!"))
	s.WriteString("\n\n")

	// Truncate paths if they're too long
	maxPathLen := m.width - 20
	if maxPathLen < 30 {
		maxPathLen = 30
	}

	s.WriteString(fmt.Sprintf("Input:  %s\n", truncatePath(m.result.InputFile, maxPathLen)))
	s.WriteString(SuccessStyle.Render(fmt.Sprintf("Output: %s\n", truncatePath(m.result.OutputFile, maxPathLen))))
	s.WriteString("\n")
	s.WriteString(fmt.Sprintf("Rows written: %d (+%d header)\n", m.result.RowsProcessed, m.result.HeaderRows))
	s.WriteString(fmt.Sprintf("Dropdowns added: %d\n", m.result.Dropdowns()))

	for _, v := range m.result.Validations {
		if v.Skipped {
			s.WriteString(ErrorStyle.Render(fmt.Sprintf("  column %d skipped: %s", v.Column+1, v.Reason)))
			s.WriteString("\n")
		}
	}

	s.WriteString("\n")
	s.WriteString(HelpStyle.Render("Press any key to exit"))

	return BoxStyle.Render(s.String())
}

func truncatePath(path string, maxLen int) string {
	if len(path) > maxLen {
		return "..." + path[len(path)-maxLen+3:]
	}
	return path
}

func (m Model) viewError() string {
	var s strings.Builder

	s.WriteString(ErrorStyle.Render("✗ Error"))
	s.WriteString("\n\n")
	s.WriteString(m.err.Error())
	s.WriteString("\n\n")
	s.WriteString(HelpStyle.Render("Press any key to exit"))

	return BoxStyle.Render(s.String())
}
