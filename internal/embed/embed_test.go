package embed

import (
	"reflect"
	"testing"

	"GoImageBoardClient/internal/attachment"
	"GoImageBoardClient/internal/model"
)

func TestMatcher_FindEmbedCodes(t *testing.T) {
	cases := []struct {
		name    string
		matcher *Matcher
		comment string
		want    []string
	}{
		{
			name:    "youtube watch and short links",
			matcher: NewYouTube(),
			comment: `見て https://www.youtube.com/watch?v=z0f4Wgi94eo<br>https://youtu.be/abc_DEF-1 https://youtube.com/watch?feature=share&amp;v=z0f4Wgi94eo`,
			want:    []string{"z0f4Wgi94eo", "abc_DEF-1"},
		},
		{
			name:    "anchor markup",
			matcher: NewYouTube(),
			comment: `<a href="https://www.youtube.com/embed/XyZ123">https://www.youtube.com/embed/XyZ123</a>`,
			want:    []string{"XyZ123"},
		},
		{
			name:    "soundcloud",
			matcher: NewSoundCloud(),
			comment: "https://soundcloud.com/cd_oblongar and https://soundcloud.com/",
			want:    []string{"https://soundcloud.com/cd_oblongar"},
		},
		{
			name:    "vimeo",
			matcher: NewVimeo(),
			comment: "https://vimeo.com/174312494 https://vimeo.com/channels",
			want:    []string{"174312494"},
		},
		{
			name:    "no links",
			matcher: NewVimeo(),
			comment: "youtube.com/watch?v=abc",
			want:    nil,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := c.matcher.FindEmbedCodes(attachment.PlainLocator{}, c.comment)
			if !reflect.DeepEqual(got, c.want) {
				t.Errorf("期待値: %v, 実際値: %v", c.want, got)
			}
		})
	}
}

func TestMatcher_ResolveEmbed(t *testing.T) {
	e, err := NewYouTube().ResolveEmbed(attachment.PlainLocator{}, "z0f4Wgi94eo")
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if e.FileURI != "https://www.youtube.com/watch?v=z0f4Wgi94eo" || e.EmbeddedType != YouTube ||
		e.ContentType != model.ContentTypeVideo || e.CanDownload {
		t.Errorf("YouTube の埋め込みが不正です: %+v", e)
	}

	s, err := NewSoundCloud().ResolveEmbed(attachment.PlainLocator{}, "https://soundcloud.com/artist/track")
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	if s.ContentType != model.ContentTypeAudio || s.ForcedName != "soundcloud_artist_track" {
		t.Errorf("SoundCloud の埋め込みが不正です: %+v", s)
	}

	if _, err := NewYouTube().ResolveEmbed(attachment.PlainLocator{}, "bad id"); err == nil {
		t.Error("不正な ID でエラーが返されませんでした")
	}
}

func TestMatchers_ProduceLinkItems(t *testing.T) {
	// Arrange
	matchers, err := ByNames(nil)
	if err != nil {
		t.Fatalf("予期しないエラー: %v", err)
	}
	o := attachment.Obtainer{Matchers: matchers}
	b := &model.Builder{
		Number:  model.NewPostNumber(1),
		Comment: "https://vimeo.com/1 https://www.youtube.com/watch?v=abc https://soundcloud.com/x",
	}

	// Act
	items := o.Obtain(b.Build(false))

	// Assert
	if len(items) != 3 {
		t.Fatalf("項目数 = %d, 期待値: 3", len(items))
	}
	wantTypes := []attachment.Type{attachment.TypeVideo, attachment.TypeAudio, attachment.TypeVideo}
	for i, item := range items {
		if item.GeneralType() != attachment.GeneralTypeLink {
			t.Errorf("項目 %d の GeneralType が LINK ではありません: %v", i, item.GeneralType())
		}
		if item.Type() != wantTypes[i] {
			t.Errorf("項目 %d の Type = %v, 期待値: %v", i, item.Type(), wantTypes[i])
		}
	}
	if items[0].FileName() != "youtube_abc" {
		t.Errorf("ファイル名が不正です: %s", items[0].FileName())
	}
}

func TestByNames_Unknown(t *testing.T) {
	if _, err := ByNames([]string{"youtube", "dailymotion"}); err == nil {
		t.Error("未知のサイト名でエラーが返されませんでした")
	}
}
