// Package render produces the HTML roster page.
package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/fortuna/roster/internal/roster"
)

//go:embed templates/*.tmpl
var templateFiles embed.FS

var german = message.NewPrinter(language.German)

// Banner is a dismissible message shown above the panels.
type Banner struct {
	Kind    string
	Title   string
	Message string
}

// LoadErrorBanner reports a failed load. The hint depends on whether the
// database answered a ping.
func LoadErrorBanner(databaseReachable bool) *Banner {
	msg := "Keine Datenbankverbindung."
	if databaseReachable {
		msg = "Bitte versuchen Sie es erneut."
	}
	return &Banner{Kind: "error", Title: "Fehler beim Laden der Daten.", Message: msg}
}

// AlertBanner reports a refused or failed action.
func AlertBanner(err error) *Banner {
	return &Banner{Kind: "alert", Title: "Aktion fehlgeschlagen.", Message: err.Error()}
}

// Options configures a Renderer.
type Options struct {
	// LiveURL is the websocket endpoint the page listens on to reload itself.
	// Empty disables live reload.
	LiveURL string
}

// Renderer writes the roster page.
type Renderer struct {
	tmpl *template.Template
	opts Options
}

// New parses the embedded page template.
func New(opts Options) (*Renderer, error) {
	tmpl, err := template.New("page.html.tmpl").
		Funcs(template.FuncMap{
			"positions":  func() []roster.Position { return roster.Positions },
			"moveAction": newMoveAction,
		}).
		ParseFS(templateFiles, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	return &Renderer{tmpl: tmpl, opts: opts}, nil
}

type playerCard struct {
	ID         string
	Name       string
	Position   roster.Position
	ValueLabel string
	ValueInput string
}

type teamPanel struct {
	Tag     roster.Group
	Players []playerCard
	Total   string
}

type moveAction struct {
	PlayerID string
	Team     string
	Label    string
}

func newMoveAction(playerID, team, label string) moveAction {
	return moveAction{PlayerID: playerID, Team: team, Label: label}
}

type page struct {
	Banner  *Banner
	Teams   []teamPanel
	Former  []playerCard
	Blank   playerCard
	LiveURL string
}

// Render writes the page for snap into w. banner may be nil.
func (r *Renderer) Render(w io.Writer, snap roster.Snapshot, banner *Banner) error {
	data := page{Banner: banner, LiveURL: r.opts.LiveURL}
	for _, team := range roster.ActiveTeams {
		players := snap.Players(team)
		data.Teams = append(data.Teams, teamPanel{
			Tag:     team,
			Players: cards(players, false),
			Total:   FormatMillions(roster.GroupValue(players)),
		})
	}
	data.Former = cards(snap.Players(roster.GroupFormer), true)

	if err := r.tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("rendering roster: %w", err)
	}
	return nil
}

func cards(players []roster.Player, former bool) []playerCard {
	sorted := roster.SortByPosition(players)
	out := make([]playerCard, 0, len(sorted))
	for _, p := range sorted {
		value := p.Value.Float()
		card := playerCard{
			ID:         p.ID,
			Name:       p.Name,
			Position:   p.Position,
			ValueInput: strconv.FormatFloat(value, 'f', -1, 64),
		}
		if !former || value != 0 {
			card.ValueLabel = card.ValueInput + "M"
		}
		out = append(out, card)
	}
	return out
}

// FormatMillions formats a total in millions with German grouping, e.g.
// 1234.5 becomes "1.234,5M €".
func FormatMillions(v float64) string {
	return german.Sprint(number.Decimal(v, number.MaxFractionDigits(3))) + "M €"
}
