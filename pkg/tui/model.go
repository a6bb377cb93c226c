// Package tui renders a board session in the terminal with Bubble Tea.
package tui

import (
	"errors"
	"time"

	"chatboard/pkg/board"
	"chatboard/pkg/models"
	"chatboard/pkg/session"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

const toastDuration = 3 * time.Second

const (
	noticeEmptyPost  = "Post content cannot be empty!"
	noticeEmptyReply = "Reply cannot be empty!"
	noticeStale      = "That thread changed, select it again."
)

type mode int

const (
	modeBrowse mode = iota
	modeCompose
	modeReply
	modeSearch
)

// PostArrivedMsg tells the UI that a pushed post reached the feed.
type PostArrivedMsg struct {
	Post models.Post
}

type clearStatusMsg struct {
	seq int
}

// row is one line of the flattened feed: a post (path empty) or a
// comment addressed by its index path inside the post.
type row struct {
	postID  int64
	path    []int
	comment *models.Comment
	text    string
}

func (r row) depth() int { return len(r.path) }

type Model struct {
	session *session.Session
	keys    KeyMap
	input   textinput.Model
	mode    mode
	query   string
	rows    []row
	cursor  int
	status  string
	seq     int
	width   int
}

func New(s *session.Session) Model {
	ti := textinput.New()
	ti.CharLimit = models.MaxTextLen
	ti.Width = 72

	m := Model{
		session: s,
		keys:    DefaultKeyMap(),
		input:   ti,
	}
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case PostArrivedMsg:
		m.refresh()
		return m, nil

	case clearStatusMsg:
		if msg.seq == m.seq {
			m.status = ""
		}
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.mode == modeBrowse {
			return m.updateBrowse(msg)
		}
		return m.updateInput(msg)
	}

	if m.mode != modeBrowse {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Post):
		return m.openInput(modeCompose, "Share something anonymously...", "")
	case key.Matches(msg, m.keys.Reply):
		if len(m.rows) == 0 {
			return m, nil
		}
		placeholder := "Reply to this post..."
		if m.rows[m.cursor].comment != nil {
			placeholder = "Reply to this comment..."
		}
		return m.openInput(modeReply, placeholder, "")
	case key.Matches(msg, m.keys.Search):
		return m.openInput(modeSearch, "Search posts and comments...", m.query)
	case key.Matches(msg, m.keys.Cancel):
		if m.query != "" {
			m.query = ""
			m.refresh()
		}
	}
	return m, nil
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		if m.mode == modeSearch {
			m.query = ""
			m.refresh()
		}
		return m.closeInput(), nil
	case key.Matches(msg, m.keys.Submit):
		return m.submit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.mode == modeSearch {
		m.query = m.input.Value()
		m.refresh()
	}
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := m.input.Value()

	switch m.mode {
	case modeCompose:
		if _, err := m.session.CreatePost(text); err != nil {
			if errors.Is(err, models.ErrEmptyPost) {
				return m.toast(noticeEmptyPost)
			}
			return m.toast(err.Error())
		}
		m = m.closeInput()
		m.refresh()
		m.cursor = 0
		return m, nil

	case modeReply:
		target := m.rows[m.cursor]
		err := m.session.AddComment(target.postID, text, target.comment)
		switch {
		case errors.Is(err, models.ErrEmptyComment):
			return m.toast(noticeEmptyReply)
		case errors.Is(err, board.ErrCommentNotFound), errors.Is(err, board.ErrPostNotFound):
			m = m.closeInput()
			m.refresh()
			return m.toast(noticeStale)
		case err != nil:
			return m.toast(err.Error())
		}
		m = m.closeInput()
		m.refresh()
		return m, nil

	case modeSearch:
		return m.closeInput(), nil
	}
	return m, nil
}

func (m Model) openInput(md mode, placeholder, value string) (tea.Model, tea.Cmd) {
	m.mode = md
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m, m.input.Focus()
}

func (m Model) closeInput() Model {
	m.mode = modeBrowse
	m.input.Blur()
	m.input.SetValue("")
	return m
}

func (m Model) toast(text string) (tea.Model, tea.Cmd) {
	m.seq++
	m.status = text
	seq := m.seq
	return m, tea.Tick(toastDuration, func(time.Time) tea.Msg {
		return clearStatusMsg{seq: seq}
	})
}

// refresh rebuilds the rows from the current feed snapshot and keeps the
// selection on the same post and comment path when it is still visible.
func (m *Model) refresh() {
	var selected *row
	if m.cursor >= 0 && m.cursor < len(m.rows) {
		r := m.rows[m.cursor]
		selected = &r
	}

	m.rows = flatten(m.session.Visible(m.query))
	m.cursor = 0
	if selected == nil {
		return
	}
	for i, r := range m.rows {
		if r.postID == selected.postID && samePath(r.path, selected.path) {
			m.cursor = i
			return
		}
	}
}

func flatten(posts []models.Post) []row {
	var rows []row
	for _, p := range posts {
		rows = append(rows, row{postID: p.ID, text: p.Text})
		rows = appendComments(rows, p.ID, nil, p.Comments)
	}
	return rows
}

func appendComments(rows []row, postID int64, prefix []int, comments []*models.Comment) []row {
	for i, c := range comments {
		path := make([]int, len(prefix)+1)
		copy(path, prefix)
		path[len(prefix)] = i
		rows = append(rows, row{postID: postID, path: path, comment: c, text: c.Text})
		rows = appendComments(rows, postID, path, c.Replies)
	}
	return rows
}

func samePath(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
