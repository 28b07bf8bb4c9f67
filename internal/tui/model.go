package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"obsarc/internal/app"
	"obsarc/internal/domain"
)

// Field indices, in navigation order.
const (
	fieldTaxon = iota
	fieldPlace
	fieldUser
	fieldObservedFrom
	fieldObservedTo
	fieldCreatedFrom
	fieldCreatedTo
	fieldIncludePhotos
	fieldExtMultimedia
	fieldExtIdentifications
	fieldExtProjects
	fieldExtObsFields
	fieldOutputPath
	fieldCount
)

// Messages for the TUI
type (
	OrchestratorMsg struct {
		Snapshot app.Snapshot
	}
	ResultsMsg struct {
		Field   int
		Results []domain.Entity
	}
	AuthMsg struct {
		Status domain.AuthStatus
	}
	tickMsg time.Time
)

// Config for the TUI
type Config struct {
	Orchestrator *app.Orchestrator
	Bridge       app.Bridge
	Taxa         *app.Typeahead
	Places       *app.Typeahead
	Users        *app.Typeahead
	Seed         domain.FilterCriteria
	OutputPath   string
	EngineURL    string
}

// picker is the per-field state of one typeahead-backed entity picker.
type picker struct {
	input    textinput.Model
	search   *app.Typeahead
	results  []domain.Entity
	cursor   int
	selected *domain.Entity
}

// Model is the main TUI model
type Model struct {
	config     Config
	snap       app.Snapshot
	auth       domain.AuthStatus
	criteria   domain.FilterCriteria
	pickers    [3]picker
	dateInputs [4]textinput.Model
	pathInput  textinput.Model
	focus      int
	spinner    spinner.Model
	progress   progress.Model
	Quitting   bool
	width      int
	height     int
}

// NewModel creates a new TUI model
func NewModel(cfg Config) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	p := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(50),
		progress.WithoutPercentage(),
	)

	m := Model{
		config:   cfg,
		criteria: cfg.Seed,
		spinner:  s,
		progress: p,
		width:    80,
		height:   24,
	}

	searches := [3]*app.Typeahead{cfg.Taxa, cfg.Places, cfg.Users}
	placeholders := [3]string{"search taxa...", "search places...", "search users..."}
	for i := range m.pickers {
		input := textinput.New()
		input.Placeholder = placeholders[i]
		input.CharLimit = 64
		m.pickers[i] = picker{input: input, search: searches[i]}
	}

	for i := range m.dateInputs {
		input := textinput.New()
		input.Placeholder = "YYYY-MM-DD"
		input.CharLimit = 10
		m.dateInputs[i] = input
	}
	m.dateInputs[0].SetValue(cfg.Seed.Observed.From)
	m.dateInputs[1].SetValue(cfg.Seed.Observed.To)
	m.dateInputs[2].SetValue(cfg.Seed.Created.From)
	m.dateInputs[3].SetValue(cfg.Seed.Created.To)

	m.pathInput = textinput.New()
	m.pathInput.CharLimit = 256
	m.pathInput.SetValue(cfg.OutputPath)

	m.pickers[0].input.Focus()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.fetchAuthCmd(),
		m.pushFiltersCmd(),
		m.seedPickersCmd(),
	)
}

func (m Model) fetchAuthCmd() tea.Cmd {
	bridge := m.config.Bridge
	return func() tea.Msg {
		status, err := bridge.AuthStatus(context.Background())
		if err != nil {
			return AuthMsg{}
		}
		return AuthMsg{Status: status}
	}
}

// pushFiltersCmd hands the seed criteria to the orchestrator once the
// program loop is live, which triggers the first estimation.
func (m Model) pushFiltersCmd() tea.Cmd {
	orchestrator := m.config.Orchestrator
	criteria := m.criteria
	return func() tea.Msg {
		orchestrator.EditFilters(criteria)
		return nil
	}
}

// seedPickersCmd rehydrates pickers for ids restored from config, so a bare
// id displays a label without the user re-searching.
func (m Model) seedPickersCmd() tea.Cmd {
	var cmds []tea.Cmd
	seeds := [3]*int{m.criteria.TaxonID, m.criteria.PlaceID, m.criteria.UserID}
	for i, id := range seeds {
		if id == nil {
			continue
		}
		search := m.pickers[i].search
		value := strconv.Itoa(*id)
		cmds = append(cmds, func() tea.Msg {
			search.LoadByID(context.Background(), value)
			return nil
		})
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(msg.Width-20, 60)
		return m, nil

	case tea.KeyMsg:
		return m.updateKeys(msg)

	case OrchestratorMsg:
		wasRunning := m.snap.State == app.StateRunning
		m.snap = msg.Snapshot
		if m.snap.State == app.StateRunning {
			cmds := []tea.Cmd{m.progressCmd()}
			if !wasRunning {
				cmds = append(cmds, tickCmd())
			}
			return m, tea.Batch(cmds...)
		}
		return m, nil

	case ResultsMsg:
		if msg.Field >= 0 && msg.Field < len(m.pickers) {
			m.pickers[msg.Field].results = msg.Results
			m.pickers[msg.Field].cursor = 0
		}
		return m, nil

	case AuthMsg:
		m.auth = msg.Status
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd

	case tickMsg:
		if m.snap.State == app.StateRunning {
			return m, tea.Batch(tickCmd(), m.progressCmd())
		}
		return m, nil
	}

	return m, nil
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	// Global keys first.
	switch key {
	case "ctrl+c":
		if m.snap.State == app.StateRunning {
			m.config.Orchestrator.Cancel()
		}
		m.Quitting = true
		return m, tea.Quit
	}

	switch m.snap.State {
	case app.StateConfirmingLargeDownload:
		switch key {
		case "y", "Y", "enter":
			return m, func() tea.Msg {
				_ = m.config.Orchestrator.ConfirmDownload()
				return nil
			}
		case "n", "N", "esc":
			m.config.Orchestrator.Cancel()
			return m, nil
		}
		return m, nil

	case app.StateRunning:
		switch key {
		case "c", "esc":
			m.config.Orchestrator.Cancel()
			return m, nil
		}
		return m, nil

	case app.StateComplete:
		if !m.snap.Done {
			return m, nil
		}
		switch key {
		case "o":
			m.config.Orchestrator.OpenArchive(m.snap.OutputPath)
			return m, nil
		case "enter", "q":
			m.config.Orchestrator.Acknowledge()
			if key == "q" {
				m.Quitting = true
				return m, tea.Quit
			}
			return m, nil
		}
		return m, nil

	case app.StateError:
		if key == "enter" || key == "q" {
			m.config.Orchestrator.Acknowledge()
			if key == "q" {
				m.Quitting = true
				return m, tea.Quit
			}
		}
		return m, nil
	}

	// Filter editing states.
	switch key {
	case "q":
		// Only quit on q when no text input has focus.
		if !m.textFieldFocused() {
			m.Quitting = true
			return m, tea.Quit
		}
	case "tab", "down":
		if key == "down" && m.pickerHasResults() {
			break
		}
		m.setFocus((m.focus + 1) % fieldCount)
		return m, nil
	case "shift+tab", "up":
		if key == "up" && m.pickerHasResults() {
			break
		}
		m.setFocus((m.focus + fieldCount - 1) % fieldCount)
		return m, nil
	case " ":
		if m.toggleFocused() {
			return m, m.pushFiltersCmd()
		}
	case "enter":
		if index, ok := m.focusedPicker(); ok && len(m.pickers[index].results) > 0 {
			return m, m.selectResult(index)
		}
		return m, m.startDownload()
	}

	return m.updateInputs(msg)
}

// updateInputs routes remaining keystrokes into the focused input.
func (m Model) updateInputs(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if index, ok := m.focusedPicker(); ok {
		p := &m.pickers[index]
		switch key {
		case "down":
			if p.cursor < len(p.results)-1 {
				p.cursor++
			}
			return m, nil
		case "up":
			if p.cursor > 0 {
				p.cursor--
			}
			return m, nil
		case "esc":
			p.results = nil
			p.selected = nil
			p.search.ClearSelection()
			return m, m.applyPickerSelection(index, nil)
		}
		var cmd tea.Cmd
		before := p.input.Value()
		p.input, cmd = p.input.Update(msg)
		if p.input.Value() != before {
			p.search.Search(p.input.Value())
		}
		return m, cmd
	}

	switch m.focus {
	case fieldObservedFrom, fieldObservedTo, fieldCreatedFrom, fieldCreatedTo:
		index := m.focus - fieldObservedFrom
		var cmd tea.Cmd
		before := m.dateInputs[index].Value()
		m.dateInputs[index], cmd = m.dateInputs[index].Update(msg)
		if m.dateInputs[index].Value() != before {
			m.syncDates()
			return m, tea.Batch(cmd, m.pushFiltersCmd())
		}
		return m, cmd
	case fieldOutputPath:
		var cmd tea.Cmd
		m.pathInput, cmd = m.pathInput.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) syncDates() {
	m.criteria.Observed = dateRange(m.dateInputs[0].Value(), m.dateInputs[1].Value())
	m.criteria.Created = dateRange(m.dateInputs[2].Value(), m.dateInputs[3].Value())
}

func dateRange(from, to string) domain.DateRange {
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)
	if from == "" && to == "" {
		return domain.DateRange{Mode: domain.DateRangeAll}
	}
	return domain.DateRange{Mode: domain.DateRangeCustom, From: from, To: to}
}

// selectResult applies the highlighted typeahead result to the criteria.
func (m *Model) selectResult(index int) tea.Cmd {
	p := &m.pickers[index]
	cursor := p.cursor
	entity := p.results[cursor]
	p.selected = &entity
	p.results = nil
	p.input.SetValue(entity.Label)
	p.search.Select(cursor)
	return m.applyPickerSelection(index, &entity)
}

func (m *Model) applyPickerSelection(index int, entity *domain.Entity) tea.Cmd {
	var id *int
	if entity != nil {
		if parsed, err := strconv.Atoi(entity.ID); err == nil {
			id = &parsed
		}
	}
	switch index {
	case 0:
		m.criteria.TaxonID = id
	case 1:
		m.criteria.PlaceID = id
	case 2:
		m.criteria.UserID = id
	}
	return m.pushFiltersCmd()
}

// toggleFocused flips the focused boolean field. Returns false when the
// focused field is not a toggle.
func (m *Model) toggleFocused() bool {
	switch m.focus {
	case fieldIncludePhotos:
		m.criteria.IncludePhotos = !m.criteria.IncludePhotos
	case fieldExtMultimedia:
		m.criteria.Extensions.Multimedia = !m.criteria.Extensions.Multimedia
	case fieldExtIdentifications:
		m.criteria.Extensions.Identifications = !m.criteria.Extensions.Identifications
	case fieldExtProjects:
		m.criteria.Extensions.Projects = !m.criteria.Extensions.Projects
	case fieldExtObsFields:
		m.criteria.Extensions.ObservationFields = !m.criteria.Extensions.ObservationFields
	default:
		return false
	}
	return true
}

func (m Model) startDownload() tea.Cmd {
	orchestrator := m.config.Orchestrator
	path := strings.TrimSpace(m.pathInput.Value())
	if path == "" {
		path = m.config.OutputPath
	}
	return func() tea.Msg {
		_ = orchestrator.RequestDownload(path)
		return nil
	}
}

func (m *Model) setFocus(field int) {
	m.focus = field
	for i := range m.pickers {
		m.pickers[i].input.Blur()
	}
	for i := range m.dateInputs {
		m.dateInputs[i].Blur()
	}
	m.pathInput.Blur()

	if index, ok := m.focusedPicker(); ok {
		m.pickers[index].input.Focus()
		return
	}
	switch field {
	case fieldObservedFrom, fieldObservedTo, fieldCreatedFrom, fieldCreatedTo:
		m.dateInputs[field-fieldObservedFrom].Focus()
	case fieldOutputPath:
		m.pathInput.Focus()
	}
}

func (m Model) focusedPicker() (int, bool) {
	switch m.focus {
	case fieldTaxon, fieldPlace, fieldUser:
		return m.focus, true
	}
	return 0, false
}

func (m Model) pickerHasResults() bool {
	index, ok := m.focusedPicker()
	return ok && len(m.pickers[index].results) > 0
}

func (m Model) textFieldFocused() bool {
	if _, ok := m.focusedPicker(); ok {
		return true
	}
	switch m.focus {
	case fieldObservedFrom, fieldObservedTo, fieldCreatedFrom, fieldCreatedTo, fieldOutputPath:
		return true
	}
	return false
}

// progressCmd converts the current counters into a progress-bar animation.
func (m Model) progressCmd() tea.Cmd {
	current, total := m.activeCounters()
	if total <= 0 {
		return nil
	}
	return m.progress.SetPercent(float64(current) / float64(total))
}

func (m Model) activeCounters() (int, int) {
	p := m.snap.Progress
	if p.Stage == domain.StageDownloadingPhotos && p.PhotoTotal > 0 {
		return p.Photos, p.PhotoTotal
	}
	return p.Fetched, p.FetchTotal
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) View() string {
	if m.Quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	switch {
	case m.snap.State == app.StateConfirmingLargeDownload:
		b.WriteString(m.renderEstimate())
		b.WriteString("\n")
		b.WriteString(m.renderConfirmPrompt())
	case m.snap.State == app.StateRunning:
		b.WriteString(m.renderRunning())
	case m.snap.State == app.StateComplete && m.snap.Done:
		b.WriteString(m.renderSuccess())
	case m.snap.State == app.StateComplete:
		b.WriteString(m.renderRunning())
	case m.snap.State == app.StateError:
		b.WriteString(m.renderError())
	default:
		b.WriteString(m.renderFilters())
		b.WriteString(m.renderEstimate())
	}

	b.WriteString("\n")
	b.WriteString(m.renderHelp())
	return b.String()
}

func (m Model) renderHeader() string {
	title := titleStyle.Render("🗂  obsarc")
	subtitle := subtitleStyle.Render("Filtered observation archives")

	auth := "not signed in"
	if m.auth.Authenticated {
		auth = "signed in as " + m.auth.Username
	}
	dim := lipgloss.NewStyle().Foreground(dimTextColor)

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		subtitle,
		"",
		dim.Render(fmt.Sprintf("Engine: %s  •  %s", m.config.EngineURL, auth)),
	)
}

func (m Model) renderFilters() string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render("Filters"))
	b.WriteString("\n\n")

	pickerLabels := [3]string{"Taxon", "Place", "User"}
	for i := range m.pickers {
		b.WriteString(m.renderField(i, pickerLabels[i], m.renderPickerValue(i)))
		if m.focus == i && len(m.pickers[i].results) > 0 {
			b.WriteString(m.renderResults(i))
		}
	}

	b.WriteString(m.renderField(fieldObservedFrom, "Observed from", m.dateInputs[0].View()))
	b.WriteString(m.renderField(fieldObservedTo, "Observed to", m.dateInputs[1].View()))
	b.WriteString(m.renderField(fieldCreatedFrom, "Created from", m.dateInputs[2].View()))
	b.WriteString(m.renderField(fieldCreatedTo, "Created to", m.dateInputs[3].View()))

	b.WriteString(m.renderField(fieldIncludePhotos, "Include photos", renderToggle(m.criteria.IncludePhotos)))
	b.WriteString(m.renderField(fieldExtMultimedia, "Multimedia ext", renderToggle(m.criteria.Extensions.Multimedia)))
	b.WriteString(m.renderField(fieldExtIdentifications, "Identifications", renderToggle(m.criteria.Extensions.Identifications)))
	b.WriteString(m.renderField(fieldExtProjects, "Projects ext", renderToggle(m.criteria.Extensions.Projects)))
	b.WriteString(m.renderField(fieldExtObsFields, "Obs. fields ext", renderToggle(m.criteria.Extensions.ObservationFields)))
	b.WriteString(m.renderField(fieldOutputPath, "Output path", m.pathInput.View()))

	return b.String()
}

func (m Model) renderField(field int, label, value string) string {
	style := labelStyle
	if m.focus == field {
		style = focusedLabelStyle
	}
	return fmt.Sprintf("  %s %s\n", style.Render(label+":"), value)
}

func (m Model) renderPickerValue(index int) string {
	p := m.pickers[index]
	if m.focus == index {
		return p.input.View()
	}
	if p.selected != nil {
		return selectionStyle.Render(p.selected.Label)
	}
	if v := p.input.Value(); v != "" {
		return valueStyle.Render(v)
	}
	return resultStyle.Render("any")
}

func (m Model) renderResults(index int) string {
	var b strings.Builder
	p := m.pickers[index]
	for i, entity := range p.results {
		style := resultStyle
		marker := "  "
		if i == p.cursor {
			style = resultCursorStyle
			marker = iconArrow + " "
		}
		b.WriteString(fmt.Sprintf("      %s%s\n", marker, style.Render(entity.Label)))
	}
	return b.String()
}

func renderToggle(on bool) string {
	if on {
		return selectionStyle.Render(iconToggle + " yes")
	}
	return resultStyle.Render(iconBlank + " no")
}

func (m Model) renderEstimate() string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render("Estimate"))
	b.WriteString("\n\n")

	estimate := m.snap.Estimate
	switch estimate.Status {
	case domain.EstimatePending:
		b.WriteString(fmt.Sprintf("  %s estimating...\n", m.spinner.View()))
	case domain.EstimateFailed:
		b.WriteString("  " + errorStyle.Render("estimate unavailable") + "\n")
	case domain.EstimateReady:
		b.WriteString(fmt.Sprintf("  %s %s\n",
			labelStyle.Render("Observations:"),
			valueStyle.Render(humanize.Comma(int64(estimate.Count))),
		))
		if m.criteria.IncludePhotos && estimate.Sample != nil {
			photos := domain.ProjectedPhotos(estimate.Count, *estimate.Sample)
			b.WriteString(fmt.Sprintf("  %s %s\n",
				labelStyle.Render("Photos (proj.):"),
				valueStyle.Render(humanize.Comma(photos)),
			))
		}
		size := valueStyle.Render(humanize.Bytes(uint64(estimate.TotalBytes)))
		if estimate.TotalBytes > app.LargeDownloadThreshold {
			size = warningStyle.Render(humanize.Bytes(uint64(estimate.TotalBytes)) + "  (large)")
		}
		b.WriteString(fmt.Sprintf("  %s %s\n", labelStyle.Render("Projected size:"), size))
	default:
		b.WriteString("  " + resultStyle.Render("edit filters to estimate") + "\n")
	}
	return b.String()
}

func (m Model) renderConfirmPrompt() string {
	size := humanize.Bytes(uint64(m.snap.Estimate.TotalBytes))
	prompt := confirmPromptStyle.Render(
		fmt.Sprintf("This archive is projected at %s. Download anyway?", size),
	)
	buttons := lipgloss.JoinHorizontal(lipgloss.Center,
		highlightBoxStyle.Render(" Yes (y) "),
		"  ",
		boxStyle.Render(" No (n) "),
	)
	return lipgloss.JoinVertical(lipgloss.Left, prompt, "", buttons)
}

func (m Model) renderRunning() string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render("Generating Archive"))
	b.WriteString("\n\n")

	p := m.snap.Progress
	stage := stageLabel(p.Stage)
	b.WriteString(fmt.Sprintf("  %s %s\n\n", m.spinner.View(), stage))

	current, total := m.activeCounters()
	if total > 0 {
		percent := float64(current) / float64(total)
		b.WriteString(fmt.Sprintf("  %s\n", m.progress.ViewAs(percent)))
		b.WriteString(fmt.Sprintf("  %s %s\n",
			selectionStyle.Render(fmt.Sprintf("%d/%d", current, total)),
			resultStyle.Render(fmt.Sprintf("(%.0f%%)", percent*100)),
		))
	}

	if p.Message != "" {
		b.WriteString(fmt.Sprintf("\n  %s %s\n", iconArrow, valueStyle.Render(p.Message)))
	}
	b.WriteString(fmt.Sprintf("\n  %s\n", resultStyle.Render(m.snap.Remaining)))
	return b.String()
}

func stageLabel(stage domain.Stage) string {
	switch stage {
	case domain.StageFetching:
		return "Fetching observations..."
	case domain.StageDownloadingPhotos:
		return "Downloading photos..."
	case domain.StageBuilding:
		return "Building archive..."
	case domain.StageComplete:
		return "Finishing up..."
	}
	return "Working..."
}

func (m Model) renderSuccess() string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render("Archive Complete"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("  %s %s\n\n",
		successStyle.Render(iconSuccess),
		successStyle.Render("Archive generated successfully!"),
	))
	b.WriteString(fmt.Sprintf("  %s %s\n",
		labelStyle.Render("Saved to:"),
		valueStyle.Render(m.snap.OutputPath),
	))
	return b.String()
}

func (m Model) renderError() string {
	message := m.snap.ErrMessage
	if message == "" {
		message = "archive generation failed"
	}
	return highlightBoxStyle.
		BorderForeground(errorColor).
		Render(fmt.Sprintf("%s %s",
			errorStyle.Render(iconError),
			errorStyle.Render("Error: "+message),
		))
}

func (m Model) renderHelp() string {
	var help string
	switch m.snap.State {
	case app.StateConfirmingLargeDownload:
		help = "y/n to confirm • Esc to go back"
	case app.StateRunning:
		help = "c or Esc to cancel • Ctrl+C to quit"
	case app.StateComplete:
		if m.snap.Done {
			help = "o to open archive • Enter to dismiss • q to quit"
		} else {
			help = "Finishing up..."
		}
	case app.StateError:
		help = "Enter to dismiss • q to quit"
	default:
		help = "Tab to move • Space to toggle • Enter to download • Ctrl+C to quit"
	}
	return helpStyle.Render(help)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Run wires the app layer's callbacks into a bubbletea program and blocks
// until the user quits.
func Run(cfg Config) error {
	m := NewModel(cfg)
	p := tea.NewProgram(m)

	cfg.Orchestrator.OnChange = func(snapshot app.Snapshot) {
		p.Send(OrchestratorMsg{Snapshot: snapshot})
	}
	searches := [3]*app.Typeahead{cfg.Taxa, cfg.Places, cfg.Users}
	for i, search := range searches {
		field := i
		search.OnResults = func(results []domain.Entity) {
			p.Send(ResultsMsg{Field: field, Results: results})
		}
	}

	_, err := p.Run()
	return err
}
