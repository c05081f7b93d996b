package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/slmtnm/s4browse/internal/models"
	"github.com/slmtnm/s4browse/internal/preview"
	"github.com/slmtnm/s4browse/internal/session"
	"github.com/slmtnm/s4browse/internal/store"
)

// chrome is the number of rows taken by everything except list bodies.
const chrome = 10

// View renders the current view
func (m Model) View() string {
	if m.showHelp {
		return m.viewHelp()
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render("s4browse | " + m.session.LocationDisplay()))
	s.WriteString("\n")
	s.WriteString(m.viewMessage())
	s.WriteString("\n")

	switch {
	case m.session.Overlay() == session.OverlayDownloadTarget, m.session.Overlay() == session.OverlayRename,
		m.session.Pane() == models.PaneLocal:
		s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, m.viewRemote(), m.viewLocal()))
	default:
		if detail := m.viewDetail(); detail != "" {
			s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, m.viewRemote(), detail))
		} else {
			s.WriteString(m.viewRemote())
		}
	}
	s.WriteString("\n")

	switch m.session.Overlay() {
	case session.OverlaySearch:
		s.WriteString(m.viewSearchBar())
		s.WriteString("\n")
	case session.OverlayRename:
		s.WriteString(m.viewRename())
		s.WriteString("\n")
	case session.OverlayDeleteConfirm:
		s.WriteString(m.viewDeleteConfirm())
		s.WriteString("\n")
	}

	if bar := m.viewProgress(); bar != "" {
		s.WriteString(bar)
		s.WriteString("\n")
	}
	s.WriteString(m.help.View(m.keys.helpFor(m.session.Overlay())))
	return s.String()
}

// viewMessage renders the error or status line.
func (m Model) viewMessage() string {
	switch {
	case m.session.Err() != nil:
		return errorStyle.Render("Error: " + m.session.Err().Error())
	case m.session.Deleting():
		return m.spinner.View() + " " + m.session.Status()
	case m.session.Loading():
		return m.spinner.View() + " Loading..."
	case m.session.Status() != "":
		return successStyle.Render(m.session.Status())
	}
	return ""
}

func (m Model) listHeight() int {
	if h := m.height - chrome; h > 3 {
		return h
	}
	return 15
}

// window returns the [start, end) range of n rows that keeps selected visible.
func window(selected, n, height int) (int, int) {
	if n <= height {
		return 0, n
	}
	start := selected - height/2
	if start < 0 {
		start = 0
	}
	if start+height > n {
		start = n - height
	}
	return start, start + height
}

func (m Model) paneWidth() int {
	if m.width <= 0 {
		return 60
	}
	return m.width/2 - 2
}

// viewRemote renders the remote listing.
func (m Model) viewRemote() string {
	var s strings.Builder
	entries := m.session.Entries()
	selected := m.session.Selected()

	if len(entries) == 0 {
		if _, searching := m.session.SearchQuery(); searching {
			s.WriteString(dimStyle.Render("No matches."))
		} else {
			s.WriteString(dimStyle.Render("Nothing here."))
		}
	}

	start, end := window(selected, len(entries), m.listHeight())
	for i := start; i < end; i++ {
		line := entryLine(entries[i])
		if i == selected {
			line = selectedStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		s.WriteString(line)
		s.WriteString("\n")
	}

	style := paneStyle
	if m.session.Pane() == models.PaneRemote {
		style = focusedPaneStyle
	}
	return style.Width(m.paneWidth()).Render(strings.TrimRight(s.String(), "\n"))
}

func entryLine(e models.Entry) string {
	switch e := e.(type) {
	case models.RemoteEntry:
		return directoryStyle.Render(e.Alias) + " " + dimStyle.Render(e.URL)
	case models.BucketEntry:
		line := directoryStyle.Render(e.Bucket.Name + "/")
		if !e.CreationDate.IsZero() {
			line += " " + dimStyle.Render(humanize.Time(e.CreationDate))
		}
		return line
	case models.ObjectEntry:
		if e.IsDir {
			return directoryStyle.Render(e.DisplayName + "/")
		}
		line := fileStyle.Render(e.DisplayName) + " " + dimStyle.Render(humanize.Bytes(uint64(e.Size)))
		if !e.LastModified.IsZero() {
			line += " " + dimStyle.Render(humanize.Time(e.LastModified))
		}
		return line
	default:
		panic(fmt.Sprintf("tui: unknown entry %T", e))
	}
}

// viewLocal renders the local filesystem pane, titled with the download
// target while one is being chosen.
func (m Model) viewLocal() string {
	var s strings.Builder
	local := m.session.Local()

	if target, ok := m.session.DownloadTarget(); ok {
		s.WriteString(titleStyle.Render("Save " + target.TargetName() + " to " + local.Display()))
	} else {
		s.WriteString(titleStyle.Render("Local: " + local.Display()))
	}
	s.WriteString("\n")

	if local.Err != nil {
		s.WriteString(errorStyle.Render(local.Err.Error()))
	} else if len(local.Items) == 0 {
		s.WriteString(dimStyle.Render("Empty directory."))
	}

	start, end := window(local.Selected, len(local.Items), m.listHeight()-1)
	for i := start; i < end; i++ {
		item := local.Items[i]
		var line string
		if item.IsDir {
			line = directoryStyle.Render(item.Name + "/")
		} else {
			line = fileStyle.Render(item.Name) + " " + dimStyle.Render(humanize.Bytes(uint64(item.Size)))
		}
		if i == local.Selected {
			line = selectedStyle.Render("> " + line)
		} else {
			line = "  " + line
		}
		s.WriteString(line)
		s.WriteString("\n")
	}

	style := paneStyle
	if m.session.Pane() == models.PaneLocal {
		style = focusedPaneStyle
	}
	return style.Width(m.paneWidth()).Render(strings.TrimRight(s.String(), "\n"))
}

// viewDetail renders the preview, or the metadata of the selected object.
func (m Model) viewDetail() string {
	p := m.session.Preview()
	if p.Active() && p.Kind() == preview.KindText {
		return m.viewPreview(p)
	}
	if meta, ok := m.session.Metadata(); ok {
		return paneStyle.Width(m.paneWidth()).Render(metadataLines(meta))
	}
	return ""
}

func (m Model) viewPreview(p *preview.Fetcher) string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("Preview: " + p.Key()))
	s.WriteString("\n")

	height := m.listHeight() - 2
	switch {
	case p.Loading():
		s.WriteString(m.spinner.View() + " Loading preview...")
	case p.Err() != nil:
		s.WriteString(errorStyle.Render(p.Err().Error()))
	case len(p.Lines()) == 0:
		s.WriteString(dimStyle.Render("[Empty file]"))
	default:
		visible := p.Visible(height)
		for i, line := range visible {
			fmt.Fprintf(&s, "%4d │ %s\n", p.Scroll()+i+1, line)
		}
		if total := len(p.Lines()); total > height {
			s.WriteString(dimStyle.Render(fmt.Sprintf("[lines %d-%d of %d]",
				p.Scroll()+1, p.Scroll()+len(visible), total)))
		}
	}
	return paneStyle.Width(m.paneWidth()).Render(strings.TrimRight(s.String(), "\n"))
}

func metadataLines(meta store.Metadata) string {
	rows := [][2]string{
		{"Key", meta.Key},
		{"Size", fmt.Sprintf("%s (%s bytes)", humanize.Bytes(uint64(meta.Size)), humanize.Comma(meta.Size))},
		{"Type", meta.ContentType},
		{"ETag", meta.ETag},
	}
	if !meta.LastModified.IsZero() {
		rows = append(rows, [2]string{"Modified", meta.LastModified.Format("2006-01-02 15:04:05") +
			" (" + humanize.Time(meta.LastModified) + ")"})
	}
	for _, r := range [][2]string{
		{"Version", meta.VersionID},
		{"Class", meta.StorageClass},
		{"Encoding", meta.ContentEncoding},
		{"Cache", meta.CacheControl},
	} {
		if r[1] != "" {
			rows = append(rows, r)
		}
	}
	keys := make([]string, 0, len(meta.UserMetadata))
	for k := range meta.UserMetadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		rows = append(rows, [2]string{"x-amz-meta-" + k, meta.UserMetadata[k]})
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render("Metadata"))
	for _, r := range rows {
		s.WriteString("\n")
		s.WriteString(dimStyle.Render(fmt.Sprintf("%-9s", r[0])))
		s.WriteString(" ")
		s.WriteString(r[1])
	}
	return s.String()
}

func (m Model) viewSearchBar() string {
	query, _ := m.session.SearchQuery()
	bar := inputStyle.Render("/" + query + "█")
	if !m.session.SearchIndexed() {
		return bar
	}
	n, done := m.session.IndexStatus()
	if done {
		return bar + " " + dimStyle.Render(humanize.Comma(int64(n))+" objects")
	}
	return bar + " " + m.spinner.View() + dimStyle.Render(" indexing "+humanize.Comma(int64(n))+"...")
}

func (m Model) viewRename() string {
	target, _ := m.session.DownloadTarget()
	return "Save as: " + inputStyle.Render(target.Rename+"█")
}

func (m Model) viewDeleteConfirm() string {
	c, ok := m.session.DeleteConfirm()
	if !ok {
		return ""
	}
	question := fmt.Sprintf("Delete %s?", c.DisplayName)
	if c.IsDir {
		question = fmt.Sprintf("Delete %s/ and everything under it?", c.DisplayName)
	}
	yes, no := buttonStyle.Render("Yes"), activeButtonStyle.Render("No")
	if c.Yes {
		yes, no = activeButtonStyle.Render("Yes"), buttonStyle.Render("No")
	}
	return popupStyle.Render(question + "\n\n" + lipgloss.JoinHorizontal(lipgloss.Top, yes, "  ", no))
}

// viewProgress renders the download bar while a download is shown.
func (m Model) viewProgress() string {
	p, job, ok := m.session.Progress()
	if !ok {
		return ""
	}
	var detail string
	if p.TotalBytes > 0 {
		detail = fmt.Sprintf("%s / %s", humanize.Bytes(uint64(p.BytesDownloaded)), humanize.Bytes(uint64(p.TotalBytes)))
	} else {
		detail = humanize.Bytes(uint64(p.BytesDownloaded))
	}
	if job.IsDir {
		detail += fmt.Sprintf(" | %d/%d files", p.FilesDone, p.FilesTotal)
	}
	if p.Speed > 0 && !p.Complete {
		detail += " | " + humanize.Bytes(uint64(p.Speed)) + "/s"
	}
	label := job.TargetName
	if p.Complete {
		label += " (done)"
	}
	return label + " " + m.progress.ViewAs(p.Percent()) + " " + dimStyle.Render(detail)
}

// viewHelp renders the help view
func (m Model) viewHelp() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("s4browse - Help"))
	s.WriteString("\n\n")

	h := m.help
	h.ShowAll = true
	s.WriteString(h.View(m.keys.helpFor(session.OverlayNone)))
	s.WriteString("\n\n")
	s.WriteString(`Search:      type to filter, enter jumps to the match, esc restores
Panes:       tab switches between the remote and local panes
Download:    tab switches panes, enter opens a local directory,
             d downloads into it, R renames the target
Delete:      ←/→ chooses yes or no, enter confirms

Remotes are read from s4browse.ini, ~/.mc/config.json and .s3cfg.`)
	s.WriteString("\n\n")
	s.WriteString(dimStyle.Render("esc/?: back • q: close help"))
	return s.String()
}
