package components

import (
	"fmt"

	amluart "github.com/allbin/go-amluart"
	"github.com/allbin/go-amluart/internal/tui/colors"
	"github.com/allbin/go-amluart/internal/tui/styles"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"
)

const (
	columnKeyPort    = "port"
	columnKeyEnabled = "enabled"
	columnKeyState   = "state"
	columnKeyNotices = "notices"
	columnKeyRx      = "rx"
	columnKeyTx      = "tx"
	columnKeyLine    = "line"
	columnKeyControl = "control"
)

// PortRow is the monitor's view of one port
type PortRow struct {
	Num     uint32
	Enabled bool
	State   amluart.State
	Notices int
	RxBytes int
	TxBytes int
	Config  amluart.Config
	Control uint32
	Err     error
}

func (r PortRow) tableRow() table.Row {
	enabled := table.NewStyledCell("off", styles.StatusDisconnectedStyle)
	if r.Enabled {
		enabled = table.NewStyledCell("on", styles.StatusConnectedStyle)
	}

	line := r.Config.String()
	if r.Err != nil {
		line = "stopped: " + r.Err.Error()
	}

	return table.NewRow(table.RowData{
		columnKeyPort:    r.Num,
		columnKeyEnabled: enabled,
		columnKeyState:   table.NewStyledCell(r.State.String(), styles.StateStyle(r.State)),
		columnKeyNotices: r.Notices,
		columnKeyRx:      r.RxBytes,
		columnKeyTx:      r.TxBytes,
		columnKeyLine:    line,
		columnKeyControl: fmt.Sprintf("%08x", r.Control),
	})
}

// PortTable lists every port of a controller with its readiness.
type PortTable struct {
	model table.Model
	rows  []PortRow
}

func NewPortTable(width int) *PortTable {
	columns := []table.Column{
		table.NewColumn(columnKeyPort, "Port", 6),
		table.NewColumn(columnKeyEnabled, "Enabled", 9),
		table.NewColumn(columnKeyState, "State", 19),
		table.NewColumn(columnKeyNotices, "Notify", 8),
		table.NewColumn(columnKeyRx, "RX", 8),
		table.NewColumn(columnKeyTx, "TX", 8),
		table.NewFlexColumn(columnKeyLine, "Line", 1),
		table.NewColumn(columnKeyControl, "CONTROL", 10),
	}

	model := table.New(columns).
		Focused(true).
		BorderRounded().
		WithBaseStyle(lipgloss.NewStyle().
			Foreground(colors.Text).
			BorderForeground(colors.Surface2).
			Align(lipgloss.Left)).
		HeaderStyle(lipgloss.NewStyle().
			Foreground(colors.Mauve).
			Bold(true)).
		HighlightStyle(lipgloss.NewStyle().
			Background(colors.Surface1)).
		WithTargetWidth(width)

	return &PortTable{model: model}
}

func (pt *PortTable) SetRows(rows []PortRow) {
	pt.rows = rows
	tableRows := make([]table.Row, len(rows))
	for i, r := range rows {
		tableRows[i] = r.tableRow()
	}
	pt.model = pt.model.WithRows(tableRows)
}

func (pt *PortTable) SetWidth(width int) {
	pt.model = pt.model.WithTargetWidth(width)
}

// Selected returns the port under the cursor.
func (pt *PortTable) Selected() (uint32, bool) {
	idx := pt.model.GetHighlightedRowIndex()
	if idx < 0 || idx >= len(pt.rows) {
		return 0, false
	}
	return pt.rows[idx].Num, true
}

func (pt *PortTable) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	pt.model, cmd = pt.model.Update(msg)
	return cmd
}

func (pt *PortTable) View() string {
	return pt.model.View()
}
