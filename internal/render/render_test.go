package render

import (
	"bytes"
	"errors"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/roster/internal/roster"
)

func snapshot() roster.Snapshot {
	s := roster.NewState()
	s.ReplacePlayers([]roster.Player{
		{ID: "a1", Name: "Stürmer", Position: roster.PositionStriker, Value: 1200, Team: roster.GroupTeamA},
		{ID: "a2", Name: "Torwart", Position: roster.PositionGoalkeeper, Value: 34.5, Team: roster.GroupTeamA},
		{ID: "a3", Name: "Verteidiger", Position: roster.PositionCentreBack, Value: 0, Team: roster.GroupTeamA},
		{ID: "b1", Name: "Meyer", Position: roster.PositionCentralMid, Value: 3, Team: roster.GroupTeamB},
		{ID: "f1", Name: "Alt", Position: roster.PositionLeftBack, Value: 0, Team: roster.GroupFormer},
		{ID: "f2", Name: "Silva", Position: roster.PositionStriker, Value: 5, Team: roster.GroupFormer},
	})
	return s.Snapshot()
}

func render(t *testing.T, r *Renderer, snap roster.Snapshot, banner *Banner) *goquery.Document {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, snap, banner))
	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)
	return doc
}

func TestFormatMillions(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0M €"},
		{5, "5M €"},
		{1234.5, "1.234,5M €"},
		{1234567.25, "1.234.567,25M €"},
		{0.125, "0,125M €"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatMillions(tt.in), "value %v", tt.in)
	}
}

func TestRender_TeamPanels(t *testing.T) {
	r, err := New(Options{})
	require.NoError(t, err)
	doc := render(t, r, snapshot(), nil)

	teamA := doc.Find("#team-AEK")
	require.Equal(t, 1, teamA.Length())

	var names []string
	teamA.Find(".player-card .name").Each(func(_ int, s *goquery.Selection) {
		names = append(names, s.Text())
	})
	assert.Equal(t, []string{"Torwart", "Verteidiger", "Stürmer"}, names, "sorted by position")

	assert.Equal(t, "1.234,5M €", teamA.Find(".market-value").Text())
	assert.Equal(t, "0M", teamA.Find(`[data-player-id="a3"] .value`).Text())

	move := teamA.Find(`[data-player-id="a1"] form.move`)
	action, _ := move.Attr("action")
	assert.Equal(t, "/players/a1/transfer", action)
	team, _ := move.Find(`input[name="team"]`).Attr("value")
	assert.Equal(t, "Ehemalige", team)

	assert.Equal(t, 0, teamA.Find("form.delete").Length(), "active players cannot be deleted")

	addTeam, _ := teamA.Find(`.add-player input[name="team"]`).Attr("value")
	assert.Equal(t, "AEK", addTeam)
	assert.Equal(t, 1, doc.Find("#team-Real .add-player").Length())
}

func TestRender_FormerPanel(t *testing.T) {
	r, err := New(Options{})
	require.NoError(t, err)
	doc := render(t, r, snapshot(), nil)

	former := doc.Find("#team-Ehemalige")
	assert.Equal(t, "", former.Find(`[data-player-id="f1"] .value`).Text(), "zero value has no label")
	assert.Equal(t, "5M", former.Find(`[data-player-id="f2"] .value`).Text())
	assert.Equal(t, 2, former.Find("form.delete").Length())

	var targets []string
	former.Find(`[data-player-id="f2"] form.move input[name="team"]`).Each(func(_ int, s *goquery.Selection) {
		v, _ := s.Attr("value")
		targets = append(targets, v)
	})
	assert.Equal(t, []string{"AEK", "Real"}, targets)
	assert.Equal(t, 0, former.Find(".add-player").Length())
}

func TestRender_EditFormPrefilled(t *testing.T) {
	r, err := New(Options{})
	require.NoError(t, err)
	doc := render(t, r, snapshot(), nil)

	form := doc.Find(`[data-player-id="a2"] details.edit form`)
	name, _ := form.Find(`input[name="name"]`).Attr("value")
	value, _ := form.Find(`input[name="value"]`).Attr("value")
	selected, _ := form.Find("option[selected]").Attr("value")

	assert.Equal(t, "Torwart", name)
	assert.Equal(t, "34.5", value)
	assert.Equal(t, "TH", selected)
	assert.Equal(t, len(roster.Positions), form.Find("option").Length())
}

func TestRender_Banner(t *testing.T) {
	r, err := New(Options{})
	require.NoError(t, err)

	doc := render(t, r, snapshot(), nil)
	assert.Equal(t, 0, doc.Find("#banner").Length())

	doc = render(t, r, roster.NewState().Snapshot(), LoadErrorBanner(false))
	assert.Contains(t, doc.Find("#banner").Text(), "Keine Datenbankverbindung.")
	assert.Equal(t, 1, doc.Find("#banner button.dismiss").Length())

	doc = render(t, r, roster.NewState().Snapshot(), LoadErrorBanner(true))
	assert.Contains(t, doc.Find("#banner").Text(), "Bitte versuchen Sie es erneut.")

	doc = render(t, r, snapshot(), AlertBanner(errors.New("insufficient funds")))
	assert.True(t, doc.Find("#banner").HasClass("banner-alert"))
}

func TestRender_EscapesPlayerNames(t *testing.T) {
	s := roster.NewState()
	s.ReplacePlayers([]roster.Player{
		{ID: "x", Name: "<script>alert(1)</script>", Position: roster.PositionStriker, Value: 1, Team: roster.GroupTeamB},
	})

	r, err := New(Options{})
	require.NoError(t, err)
	doc := render(t, r, s.Snapshot(), nil)

	assert.Equal(t, "<script>alert(1)</script>", doc.Find(`[data-player-id="x"] .name`).Text())
	assert.Equal(t, 0, doc.Find("#team-Real script").Length())
}

func TestRender_LiveReloadScript(t *testing.T) {
	r, err := New(Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, render(t, r, snapshot(), nil).Find("script").Length())

	r, err = New(Options{LiveURL: "ws://localhost:8081/ws"})
	require.NoError(t, err)
	script := render(t, r, snapshot(), nil).Find("script").Text()
	assert.Contains(t, script, "localhost:8081")
	assert.Contains(t, script, "new WebSocket(")
}
