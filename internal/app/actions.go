package app

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/sadopc/hookscope/internal/capture"
	"github.com/sadopc/hookscope/internal/export"
	"github.com/sadopc/hookscope/internal/export/har"
	"github.com/sadopc/hookscope/internal/ui/msgs"
	"github.com/sadopc/hookscope/internal/ui/theme"
)

func (a App) copyToClipboard(text, done string) (tea.Model, tea.Cmd) {
	if text == "" {
		cmd := a.toast.Show("Nothing to copy", true, 2*time.Second)
		return a, cmd
	}
	if err := a.clipboard(text); err != nil {
		cmd := a.toast.Show("Clipboard error: "+err.Error(), true, 3*time.Second)
		return a, cmd
	}
	cmd := a.toast.Show(done, false, 2*time.Second)
	return a, cmd
}

func (a App) copyAsCurl() (tea.Model, tea.Cmd) {
	rec, ok := a.selectedRecord()
	if !ok {
		cmd := a.toast.Show("No request selected", true, 2*time.Second)
		return a, cmd
	}
	return a.copyToClipboard(export.AsCurl(rec, a.webhookURL), "Copied as cURL")
}

func (a App) copyBody() (tea.Model, tea.Cmd) {
	rec, ok := a.selectedRecord()
	if !ok {
		cmd := a.toast.Show("No request selected", true, 2*time.Second)
		return a, cmd
	}
	if rec.Body.IsEmpty() {
		cmd := a.toast.Show("Request has no body", true, 2*time.Second)
		return a, cmd
	}
	return a.copyToClipboard(rec.Body.Pretty(), "Copied body")
}

// exportHAR writes the loaded records to a timestamped HAR file off the
// update loop.
func (a App) exportHAR() (tea.Model, tea.Cmd) {
	if len(a.view.Records) == 0 {
		cmd := a.toast.Show("No requests to export", true, 2*time.Second)
		return a, cmd
	}
	records := append([]capture.Record(nil), a.view.Records...)
	path := filepath.Join(a.exportDir, harFileName(a.account, time.Now()))
	baseURL := a.webhookURL
	logger := a.logger

	return a, func() tea.Msg {
		data, err := har.Export(records, baseURL)
		if err == nil {
			if dir := filepath.Dir(path); dir != "." {
				err = os.MkdirAll(dir, 0o755)
			}
		}
		if err == nil {
			err = os.WriteFile(path, data, 0o644)
		}
		if err != nil {
			return msgs.ExportDoneMsg{Path: path, Err: err}
		}
		logger.Info("exported HAR", "path", path, "records", len(records))
		return msgs.ExportDoneMsg{Path: path, Count: len(records)}
	}
}

func harFileName(account string, at time.Time) string {
	if account == "" {
		account = "capture"
	}
	return fmt.Sprintf("hookscope-%s-%s.har", account, at.Format("20060102-150405"))
}

func exportSummary(msg msgs.ExportDoneMsg) string {
	noun := "requests"
	if msg.Count == 1 {
		noun = "request"
	}
	return fmt.Sprintf("Exported %s %s to %s", humanize.Comma(int64(msg.Count)), noun, filepath.Base(msg.Path))
}

// switchTheme opens the theme picker when name is empty, otherwise
// applies the named theme.
func (a App) switchTheme(name string) (tea.Model, tea.Cmd) {
	if name == "" {
		var custom []string
		for _, t := range theme.LoadCustomThemes(a.themeDir) {
			if _, ok := theme.Get(t.Name); !ok {
				custom = append(custom, t.Name)
			}
		}
		sort.Strings(custom)
		names := append(theme.Names(), custom...)
		a.commandPalette.OpenThemePicker(names)
		a.mode = msgs.ModeCommandPalette
		a.statusBar.SetMode(a.mode)
		return a, nil
	}

	t := theme.Resolve(name, a.themeDir)
	a.applyTheme(t, theme.NewStyles(t))
	a.logger.Debug("theme switched", "theme", t.Name)
	cmd := a.toast.Show("Theme: "+t.Name, false, 2*time.Second)
	return a, cmd
}
