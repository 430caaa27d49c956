package http

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/IgorGrieder/encurtador-live/internal/constants"
)

const (
	viewNotFound     = "not_found"
	viewUnauthorized = "unauthorized"
)

var views = template.Must(template.New("views").Parse(`
{{define "layout"}}<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
{{if .Link}}<p><a href="{{.Link}}">{{.LinkText}}</a></p>{{end}}
</body>
</html>{{end}}
{{define "not_found"}}{{template "layout" .}}{{end}}
{{define "unauthorized"}}{{template "layout" .}}{{end}}
`))

type viewData struct {
	Title    string
	Message  string
	Link     string
	LinkText string
}

var viewDefaults = map[string]viewData{
	viewNotFound: {
		Title:    "Not found",
		Message:  constants.MsgLinkNotFound,
		Link:     "/",
		LinkText: "Back home",
	},
	viewUnauthorized: {
		Title:    "Unauthorized",
		Message:  constants.MsgUnauthorized,
		Link:     "/oauth/signin",
		LinkText: "Sign in with GitHub",
	},
}

// renderView executes the named view into a buffer first so a template error
// can still become a 500.
func renderView(w http.ResponseWriter, status int, name string, data *viewData) error {
	d := viewDefaults[name]
	if data != nil {
		d = *data
	}

	var buf bytes.Buffer
	if err := views.ExecuteTemplate(&buf, name, d); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
	return nil
}
