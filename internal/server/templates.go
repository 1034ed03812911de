package server

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var tmplFS embed.FS

var (
	indexTmpl   = page("index.html")
	playersTmpl = page("players.html")
	playerTmpl  = page("player.html")
	rankingTmpl = page("ranking.html")
	matchTmpl   = page("match.html")
	seasonTmpl  = page("season.html")
	matchesTmpl = page("matches.html")
)

func page(name string) *template.Template {
	return template.Must(template.ParseFS(tmplFS, "templates/layout.html", "templates/"+name)).Lookup(name)
}
