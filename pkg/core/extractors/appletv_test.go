package extractors

import (
	"context"
	"testing"

	"github.com/angelospk/tmdbimporter/pkg/core/model"
	"github.com/angelospk/tmdbimporter/pkg/core/pagedriver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const appleShowURL = "https://tv.apple.com/hk/show/severance/umc.cmc.1srk2goyh2q2zdxcx605w8vtx"

const appleHeader = `<script id="schema:breadcrumb-list" type="application/ld+json">{"itemListElement":[{"item":{"name":"Apple TV+"}},{"item":{"name":"人生切割術"}}]}</script>
<div class="product-header__content__details__synopsis"> Work-life balance. </div>`

func appleEpisode(label, title, description string) string {
	return `<div class="episode-lockup__content">
<div class="episode-lockup__content__episode-number"><span>` + label + `</span></div>
<div class="typ-subhead text-truncate episode-lockup__content__title">` + title + `</div>
<p class="episode-lockup__description clr-secondary-text">` + description + `</p>
</div>`
}

func TestAppleTV_ExtractSeries(t *testing.T) {
	summaries := `<script>window.data={"seasonSummaries":[{"title":"第 1 季","seasonNumber":1},{"title":"第 2 季","seasonNumber":2}],"selectedEpisodeIndex":0}</script>`
	page1 := appleHeader + summaries +
		appleEpisode("第 1 集", "Good News About Hell", "d1") +
		appleEpisode("第 2 集", "Half Loop", "d2") +
		`<button class="shelf-grid-nav__arrow shelf-grid-nav__arrow--next">›</button>`
	page2 := appleHeader + summaries +
		appleEpisode("第 2 集", "Half Loop", "d2") +
		appleEpisode("第 1 集", "Hello, Ms. Cobel", "d3") +
		`<button class="shelf-grid-nav__arrow shelf-grid-nav__arrow--next" disabled>›</button>`

	d := pagedriver.NewFake(map[string]string{appleShowURL: page1})
	d.OnClick(appleNextPageSelector, page2)

	rs, err := NewAppleTV(quietOptions()).Extract(context.Background(), d, appleShowURL)
	require.NoError(t, err)

	assert.Equal(t, []model.TitleRecord{{Name: "人生切割術", Description: "Work-life balance."}}, rs.Titles)
	assert.Equal(t, []model.SeasonRecord{
		{DisplayName: "第 1 季", Number: 1},
		{DisplayName: "第 2 季", Number: 2},
	}, rs.Seasons)
	assert.Equal(t, []model.EpisodeRecord{
		{SeasonNumber: model.Int(1), EpisodeNumber: 1, Title: "Good News About Hell", Description: "d1"},
		{SeasonNumber: model.Int(1), EpisodeNumber: 2, Title: "Half Loop", Description: "d2"},
		{SeasonNumber: model.Int(2), EpisodeNumber: 1, Title: "Hello, Ms. Cobel", Description: "d3"},
	}, rs.Episodes)
	assert.Equal(t, []string{appleNextPageSelector}, d.Clicked)
}

func TestAppleTV_SeasonsFromEpisodeRunsWithoutSummaries(t *testing.T) {
	page := appleHeader +
		appleEpisode("第 2 集", "A", "") +
		appleEpisode("第 1 集", "B", "")
	d := pagedriver.NewFake(map[string]string{appleShowURL: page})

	rs, err := NewAppleTV(quietOptions()).Extract(context.Background(), d, appleShowURL)
	require.NoError(t, err)

	assert.Equal(t, []model.SeasonRecord{
		{DisplayName: "第 1 季", Number: 1},
		{DisplayName: "第 2 季", Number: 2},
	}, rs.Seasons)
	require.Len(t, rs.Episodes, 2)
	assert.Equal(t, model.Int(2), rs.Episodes[1].SeasonNumber)
}

func TestAppleTV_ExtractMovie(t *testing.T) {
	d := pagedriver.NewFake(map[string]string{appleShowURL: appleHeader})

	rs, err := NewAppleTV(quietOptions()).Extract(context.Background(), d, appleShowURL)
	require.NoError(t, err)
	assert.True(t, rs.IsMovie())
	assert.Equal(t, "人生切割術", rs.Movies[0].Name)
}
