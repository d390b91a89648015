package extractors

import (
	"context"
	"testing"

	coreErrors "github.com/angelospk/tmdbimporter/pkg/core/errors"
	"github.com/angelospk/tmdbimporter/pkg/core/model"
	"github.com/angelospk/tmdbimporter/pkg/core/pagedriver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const disneySeriesURL = "https://www.disneyplus.com/zh-hk/series/loki/6pARMvILBGzF"

const disneyDetails = `<ul>
<li data-testid="details-page-tab" aria-controls="episodes">集數</li>
<li data-testid="details-page-tab" aria-controls="details">簡介</li>
</ul>
<div data-testid="details-tab-title">洛基</div>
<div data-testid="details-tab-description">洛基的故事。部分閃光片段或圖案可能會影響對光敏感的觀眾。</div>`

const disneyDropdownHTML = `<button data-testid="dropdown-button"><span>第 1 季</span></button>
<ul data-testid="dropdown-list"><li>第 1 季</li><li>第 2 季</li></ul>`

func disneyEpisode(title, description string) string {
	return `<div data-testid="set-item">
<div data-testid="standard-regular-list-item-title">` + title + `</div>
<div data-testid="standard-regular-list-item-description">` + description + `</div>
</div>`
}

// newDisneyFake serves the three-step login flow.
func newDisneyFake(pages map[string]string) *pagedriver.Fake {
	pages[DisneyPlusLoginURL] = `<input name="email"><button type="submit">繼續</button>`
	d := pagedriver.NewFake(pages)
	d.OnClick(disneySubmitSelector, `<input name="password" type="password"><button type="submit">登入</button>`)
	d.OnClick(disneySubmitSelector, `<div role="button" data-testid="profile-avatar-0">Me</div>`)
	return d
}

func TestDisneyPlus_LoginOnce(t *testing.T) {
	ctx := context.Background()
	d := newDisneyFake(map[string]string{})
	dp := NewDisneyPlus(quietOptions())

	require.NoError(t, dp.Login(ctx, d))
	require.NoError(t, dp.Login(ctx, d))

	assert.Equal(t, []string{DisneyPlusLoginURL}, d.Visited)
	assert.Equal(t, "user@example.com", d.Typed[`input[name="email"]`])
	assert.Equal(t, "secret", d.Typed[`input[name="password"]`])
	assert.Equal(t, []string{disneySubmitSelector, disneySubmitSelector, disneyProfileSelector}, d.Clicked)
}

func TestDisneyPlus_LoginWithoutCredentials(t *testing.T) {
	opts := quietOptions()
	opts.DisneyPlus = Credentials{}
	_, err := NewDisneyPlus(opts).Extract(context.Background(), pagedriver.NewFake(nil), disneySeriesURL)
	assert.ErrorIs(t, err, coreErrors.ErrNotLoggedIn)
}

func TestDisneyPlus_ExtractSeries(t *testing.T) {
	season1 := disneyDetails + disneyDropdownHTML +
		disneyEpisode("1. 光榮使命", "第一集。部分閃光片段或圖案可能會影響對光敏感的觀眾。") +
		disneyEpisode("1. 光榮使命", "第一集。") +
		disneyEpisode("2. 變種", "第二集。")
	season2 := disneyDetails + disneyDropdownHTML +
		disneyEpisode("1. 銜尾蛇", "第二季第一集。")

	d := newDisneyFake(map[string]string{disneySeriesURL: disneyDetails})
	d.OnClick(disneyEpisodesTab, season1)
	d.OnClick(disneyDropdownItems+":nth-child(1)", season1)
	d.OnClick(disneyDropdownItems+":nth-child(2)", season2)

	rs, err := NewDisneyPlus(quietOptions()).Extract(context.Background(), d, disneySeriesURL)
	require.NoError(t, err)

	assert.Equal(t, []model.TitleRecord{{Name: "洛基", Description: "洛基的故事。"}}, rs.Titles)
	assert.Equal(t, []model.SeasonRecord{
		{DisplayName: "第 1 季", Number: 1},
		{DisplayName: "第 2 季", Number: 2},
	}, rs.Seasons)
	assert.Equal(t, []model.EpisodeRecord{
		{SeasonNumber: model.Int(1), EpisodeNumber: 1, Title: "光榮使命", Description: "第一集。"},
		{SeasonNumber: model.Int(1), EpisodeNumber: 2, Title: "變種", Description: "第二集。"},
		{SeasonNumber: model.Int(2), EpisodeNumber: 1, Title: "銜尾蛇", Description: "第二季第一集。"},
	}, rs.Episodes)
}

func TestDisneyPlus_SingleSeason(t *testing.T) {
	episodesPage := disneyDetails +
		`<button data-testid="dropdown-button" disabled><span>第 1 季</span></button>` +
		disneyEpisode("1. 開始", "描述")

	d := newDisneyFake(map[string]string{disneySeriesURL: disneyDetails})
	d.OnClick(disneyEpisodesTab, episodesPage)

	rs, err := NewDisneyPlus(quietOptions()).Extract(context.Background(), d, disneySeriesURL)
	require.NoError(t, err)
	assert.Equal(t, []model.SeasonRecord{{DisplayName: "第 1 季", Number: 1}}, rs.Seasons)
	assert.Equal(t, []model.EpisodeRecord{
		{SeasonNumber: model.Int(1), EpisodeNumber: 1, Title: "開始", Description: "描述"},
	}, rs.Episodes)
}

func TestDisneyPlus_ExtractMovie(t *testing.T) {
	page := `<li data-testid="details-page-tab" aria-controls="details">簡介</li>
<div data-testid="details-tab-title">魔髮奇緣</div>
<div data-testid="details-tab-description">長髮公主。</div>`
	d := newDisneyFake(map[string]string{"https://www.disneyplus.com/zh-hk/movies/tangled/1": page})

	rs, err := NewDisneyPlus(quietOptions()).Extract(context.Background(), d, "https://www.disneyplus.com/zh-hk/movies/tangled/1")
	require.NoError(t, err)
	assert.True(t, rs.IsMovie())
	assert.Equal(t, []model.TitleRecord{{Name: "魔髮奇緣", Description: "長髮公主。"}}, rs.Movies)
}

func TestSplitNumberedTitle(t *testing.T) {
	n, title, ok := splitNumberedTitle("12. 最終章")
	require.True(t, ok)
	assert.Equal(t, 12, n)
	assert.Equal(t, "最終章", title)

	_, _, ok = splitNumberedTitle("預告")
	assert.False(t, ok)
	_, _, ok = splitNumberedTitle("Vol. 2")
	assert.False(t, ok)
}
