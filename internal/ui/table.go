package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	prettytable "github.com/jedib0t/go-pretty/v6/table"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/Hayato040404/Watch/internal/utils"
)

// ViewerTableItem represents one viewer session in the table
type ViewerTableItem struct {
	ID    string
	State string
	Since time.Time
}

// ViewerTableView renders the connected viewers as a table
func ViewerTableView(items []ViewerTableItem) string {
	if len(items) == 0 {
		return MutedStyle.Render("No viewers yet")
	}

	headers := []string{"#", "Viewer", "State", "Watching For"}

	var rows [][]string
	for i, item := range items {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			utils.TruncateString(item.ID, 12),
			item.State,
			utils.FormatTimeDuration(time.Since(item.Since)),
		})
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})

	return tbl.Render()
}

type RoomInfo struct {
	RoomID   string
	RoomLink string
	ShowQR   bool
}

func NewRoomInfo(roomID, roomLink string) *RoomInfo {
	return &RoomInfo{
		RoomID:   roomID,
		RoomLink: roomLink,
		ShowQR:   true,
	}
}

func (r *RoomInfo) View() string {
	content := fmt.Sprintf("%s Sharing Started!\n\n%s Room ID:    %s\n%s Room Link:  %s",
		IconSuccess,
		IconCopy, BoldStyle.Foreground(Primary).Render(r.RoomID),
		IconWeb, MutedStyle.Render(r.RoomLink),
	)

	if r.ShowQR {
		if qr, err := qrcode.New(r.RoomLink, qrcode.Medium); err == nil {
			content += fmt.Sprintf("\n\n%s Scan to watch:\n%s", IconQR, qr.ToSmallString(false))
		}
	}

	return SuccessBoxStyle.Render(content)
}

func (r *RoomInfo) Render() {
	fmt.Println(r.View())
}

// SessionSummary is shown when sharing or watching ends.
type SessionSummary struct {
	Role        string
	RoomID      string
	Duration    string
	PeakViewers int
	Packets     uint64
	PacketsLost uint64
	Files       []string
}

func SessionSummaryView(summary SessionSummary) string {
	t := prettytable.NewWriter()
	t.SetTitle("Session Summary")
	t.AppendHeader(prettytable.Row{"Metric", "Value"})
	t.AppendRows([]prettytable.Row{
		{"Role", summary.Role},
		{"Room", summary.RoomID},
		{"Duration", summary.Duration},
	})
	if summary.Role == "owner" {
		t.AppendRow(prettytable.Row{"Peak Viewers", summary.PeakViewers})
	}
	if summary.Packets > 0 {
		t.AppendRow(prettytable.Row{"Packets", summary.Packets})
		t.AppendRow(prettytable.Row{"Packets Lost", summary.PacketsLost})
	}
	for _, f := range summary.Files {
		t.AppendRow(prettytable.Row{"Saved", f})
	}
	t.SetStyle(prettytable.StyleRounded)
	return t.Render()
}

func RenderSessionSummary(summary SessionSummary) {
	fmt.Println(SessionSummaryView(summary))
}
