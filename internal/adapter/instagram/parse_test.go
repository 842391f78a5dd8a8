package instagram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/disaster-ingest/internal/domain"
)

const profileHTML = `<html><body><main><article>
<a href="/p/Cabc123/?img_index=1"><img src="https://scontent.cdninstagram.com/a.jpg" alt="Banjir di Desa Sukamaju #banjir #aceh"></a>
<a href="/p/Cabc123/"><img src="https://scontent.cdninstagram.com/dup.jpg"></a>
<a href="/p/Cdef456/" aria-label="Longsor di Tapanuli Tengah"><img srcset="https://cdn.example/b.jpg 1x, https://cdn.example/b2.jpg 2x"></a>
<a href="/infobencana_aceh/">profile</a>
</article></main>
<a href="/p/Outside/">outside</a>
</body></html>`

const postHTML = `<html><body><main><article>
<header>
<a href="/infobencana_aceh/">infobencana_aceh</a>
<a href="/explore/locations/123/sukamaju/">Desa Sukamaju</a>
</header>
<img src="https://scontent.cdninstagram.com/post.jpg">
<h1>Banjir setinggi 1 meter melanda Desa Sukamaju, warga butuh makanan #banjir #AcehSelatan</h1>
<span dir="auto">Lihat terjemahan</span>
<a href="/explore/tags/banjir/">#banjir</a>
<a href="/explore/tags/bencanaaceh/">#bencanaaceh</a>
<time datetime="2024-11-26T10:00:00.000Z" title="26 Nov 2024">1h</time>
</article></main></body></html>`

func TestParseProfileHTML(t *testing.T) {
	t.Run("article links deduplicated", func(t *testing.T) {
		posts, err := ParseProfileHTML([]byte(profileHTML), 10)
		require.NoError(t, err)
		require.Len(t, posts, 2)

		assert.Equal(t, "https://www.instagram.com/p/Cabc123/", posts[0].URL)
		assert.Equal(t, "https://scontent.cdninstagram.com/a.jpg", posts[0].ImageURL)
		assert.Equal(t, "Banjir di Desa Sukamaju #banjir #aceh", posts[0].Caption)
		assert.Equal(t, posts[0].Caption, posts[0].Text)
		assert.Equal(t, []string{"#banjir", "#aceh"}, posts[0].Hashtags)

		assert.Equal(t, "https://www.instagram.com/p/Cdef456/", posts[1].URL)
		assert.Equal(t, "https://cdn.example/b.jpg", posts[1].ImageURL)
		assert.Equal(t, "Longsor di Tapanuli Tengah", posts[1].Caption)
		assert.Empty(t, posts[1].Hashtags)
	})

	t.Run("limit", func(t *testing.T) {
		posts, err := ParseProfileHTML([]byte(profileHTML), 1)
		require.NoError(t, err)
		require.Len(t, posts, 1)
		assert.Equal(t, "https://www.instagram.com/p/Cabc123/", posts[0].URL)
	})

	t.Run("falls back to whole document", func(t *testing.T) {
		page := `<div><a href="https://www.instagram.com/p/Xyz/">x</a><a href="/reels/">r</a></div>`
		posts, err := ParseProfileHTML([]byte(page), 10)
		require.NoError(t, err)
		require.Len(t, posts, 1)
		assert.Equal(t, "https://www.instagram.com/p/Xyz/", posts[0].URL)
	})

	t.Run("no posts", func(t *testing.T) {
		posts, err := ParseProfileHTML([]byte(`<p>Sorry, this page isn't available.</p>`), 10)
		require.NoError(t, err)
		assert.Empty(t, posts)
	})
}

func TestParsePostHTML(t *testing.T) {
	t.Run("full post", func(t *testing.T) {
		post, err := ParsePostHTML([]byte(postHTML), "https://www.instagram.com/p/Cabc123/")
		require.NoError(t, err)
		require.NotNil(t, post)

		assert.Equal(t, "https://www.instagram.com/p/Cabc123/", post.URL)
		assert.Equal(t, "https://scontent.cdninstagram.com/post.jpg", post.ImageURL)
		assert.Equal(t, "Banjir setinggi 1 meter melanda Desa Sukamaju, warga butuh makanan #banjir #AcehSelatan", post.Caption)
		assert.Equal(t, post.Caption, post.Text)
		assert.Equal(t, []string{"#banjir", "#bencanaaceh", "#AcehSelatan"}, post.Hashtags)
		assert.Equal(t, "Desa Sukamaju", post.LocationText)
		assert.Equal(t, "2024-11-26T10:00:00.000Z", post.Timestamp)
	})

	t.Run("caption from longest line", func(t *testing.T) {
		page := `<article><div>short</div><div>Air mulai surut di Kecamatan Medan Maimun pagi ini</div><div>@bpbd</div></article>`
		post, err := ParsePostHTML([]byte(page), "u")
		require.NoError(t, err)
		assert.Equal(t, "Air mulai surut di Kecamatan Medan Maimun pagi ini", post.Caption)
	})

	t.Run("bare mention is not a caption", func(t *testing.T) {
		page := `<article><span dir="auto">@infobencana_sumbar_official</span></article>`
		post, err := ParsePostHTML([]byte(page), "u")
		require.NoError(t, err)
		assert.Empty(t, post.Caption)
		assert.Empty(t, post.Body())
	})

	t.Run("timestamp from title", func(t *testing.T) {
		page := `<main><time title="2024-11-26">kemarin</time></main>`
		post, err := ParsePostHTML([]byte(page), "u")
		require.NoError(t, err)
		assert.Equal(t, "2024-11-26", post.Timestamp)
		assert.Empty(t, post.LocationText)
	})
}

func TestSourcePageURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.instagram.com/infobencana_aceh/", "https://www.instagram.com/infobencana_aceh/"},
		{"#banjirsumbar", "https://www.instagram.com/explore/tags/banjirsumbar/"},
		{" banjir ", "https://www.instagram.com/explore/tags/banjir/"},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, SourcePageURL(domain.Source{URL: tt.url}))
		})
	}
}
