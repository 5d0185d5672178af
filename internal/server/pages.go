package server

import (
	"encoding/json"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mcncl/jsonform/internal/errors"
	"github.com/mcncl/jsonform/internal/export"
	"github.com/mcncl/jsonform/internal/path"
	"github.com/mcncl/jsonform/internal/render"
	"github.com/mcncl/jsonform/internal/session"
)

var page = template.Must(template.New("page").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>jsonform</title>
<style>
body { font-family: sans-serif; margin: 0; }
.layout { display: flex; gap: 1.5rem; padding: 1rem; }
.layout > section { flex: 1; min-width: 0; }
fieldset { margin: .5rem 0; border: 1px solid #ccc; }
.field-group form { display: flex; gap: .5rem; align-items: center; margin: .25rem 0; }
.field-error, .text-error { color: #b00020; font-size: .9em; }
.ack { color: #1b5e20; }
textarea.json { width: 100%; font-family: monospace; }
</style>
</head>
<body>
<main class="layout">
<section class="form-view">
<h2>Form</h2>
{{.Form}}
</section>
<section class="text-view">
<h2>JSON</h2>
<form method="post" action="{{.Base}}/text">
<textarea class="json" name="text" rows="{{.Rows}}" spellcheck="false">{{.Text}}</textarea>
{{if .Error}}<div class="text-error">{{.Error}}</div>{{end}}
<button type="submit">Apply</button>
</form>
<form method="post" action="{{.Base}}/copy"><button type="submit">Copy</button>{{if .Ack}} <span class="ack">{{.Ack}}</span>{{end}}</form>
<form method="post" action="{{.Base}}/paste"><button type="submit">Paste</button></form>
<a href="{{.Base}}/export" download="{{.Filename}}">Download</a>
</section>
</main>
</body>
</html>
`))

type pageData struct {
	Base     string
	Form     template.HTML
	Text     string
	Rows     int
	Error    string
	Ack      string
	Filename string
}

func pageBase(id string) string { return "/forms/" + id }

// newPage handles GET /: it starts a session and redirects to its page.
func (s *Server) newPage(c *gin.Context) {
	sess, err := s.mgr.Create(c.Request.Context(), "")
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, pageBase(sess.ID()))
}

// showPage renders the form and the text editor side by side.
func (s *Server) showPage(c *gin.Context) {
	sess := sessionOf(c)
	base := pageBase(sess.ID())

	surface := render.NewHTMLSurface(base)
	if err := sess.Materialize(c.Request.Context(), surface); err != nil {
		s.fail(c, err)
		return
	}
	st, err := sess.State(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}

	data := pageData{
		Base:     base,
		Form:     surface.HTML(),
		Text:     st.Text,
		Rows:     min(strings.Count(st.Text, "\n")+2, 40),
		Error:    st.Error,
		Filename: export.Filename(s.now()),
	}
	if c.Query("ack") != "" {
		data.Ack = session.CopiedAck
	}

	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := page.Execute(c.Writer, data); err != nil {
		_ = c.Error(err)
	}
}

// formPath reads the hidden "path" input, a JSON array or path string.
func formPath(c *gin.Context) (path.Path, error) {
	var p path.Path
	raw := c.PostForm("path")
	if raw == "" {
		return p, nil
	}
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		if p, err = path.Parse(raw); err != nil {
			return nil, errors.NewInputError("invalid path", err)
		}
	}
	return p, nil
}

// afterPost sends the browser back to the page. Field and text errors are
// part of the session state and show up there; anything else is a failure.
func (s *Server) afterPost(c *gin.Context, err error, query url.Values) {
	if err != nil && !errors.IsUserFacing(err) {
		s.fail(c, err)
		return
	}
	if err != nil {
		_ = c.Error(err)
	}
	target := pageBase(sessionOf(c).ID())
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	c.Redirect(http.StatusSeeOther, target)
}

func (s *Server) postField(c *gin.Context) {
	p, err := formPath(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	_, err = sessionOf(c).Edit(c.Request.Context(), p, c.PostForm("value"))
	s.afterPost(c, err, nil)
}

func (s *Server) postAdd(c *gin.Context) {
	p, err := formPath(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	_, err = sessionOf(c).AddItem(c.Request.Context(), p)
	s.afterPost(c, err, nil)
}

func (s *Server) postRemove(c *gin.Context) {
	p, err := formPath(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	index, err := strconv.Atoi(c.PostForm("index"))
	if err != nil {
		s.fail(c, errors.NewInputError("invalid index", err))
		return
	}
	_, err = sessionOf(c).RemoveItem(c.Request.Context(), p, index)
	s.afterPost(c, err, nil)
}

func (s *Server) postText(c *gin.Context) {
	_, err := sessionOf(c).SetText(c.Request.Context(), c.PostForm("text"))
	s.afterPost(c, err, nil)
}

func (s *Server) postCopy(c *gin.Context) {
	if s.clip == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"message": "clipboard is not available"})
		return
	}
	if _, err := sessionOf(c).Copy(c.Request.Context(), s.clip); err != nil {
		s.fail(c, err)
		return
	}
	s.afterPost(c, nil, url.Values{"ack": {"copied"}})
}

// postPaste ignores clipboard text that is not JSON; the page is unchanged.
func (s *Server) postPaste(c *gin.Context) {
	if s.clip == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"message": "clipboard is not available"})
		return
	}
	_, err := sessionOf(c).Paste(c.Request.Context(), s.clip)
	s.afterPost(c, err, nil)
}
