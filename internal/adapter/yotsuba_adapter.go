package adapter

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"GoImageBoardClient/internal/attachment"
	"GoImageBoardClient/internal/config"
	"GoImageBoardClient/internal/model"
	"GoImageBoardClient/internal/network"
)

const (
	yotsubaMediaHost   = "https://i.4cdn.org/"
	yotsubaCountryIcon = "https://s.4cdn.org/image/country/"
	yotsubaBoardIcon   = "https://s.4cdn.org/image/flags/"
)

// YotsubaAdapter は、4chan 形式の JSON API (thread/<番号>.json) を解析します。
type YotsubaAdapter struct {
	mediaURL string
}

// NewYotsubaAdapter は、YotsubaAdapterの新しいインスタンスを返します。
func NewYotsubaAdapter() SiteAdapter {
	return &YotsubaAdapter{}
}

type yotsubaThread struct {
	Posts []yotsubaPost `json:"posts"`
}

type yotsubaPost struct {
	No          uint32 `json:"no"`
	Resto       uint32 `json:"resto"`
	Sticky      int    `json:"sticky"`
	Closed      int    `json:"closed"`
	Archived    int    `json:"archived"`
	BumpLimit   int    `json:"bumplimit"`
	Time        int64  `json:"time"`
	Name        string `json:"name"`
	Trip        string `json:"trip"`
	ID          string `json:"id"`
	Capcode     string `json:"capcode"`
	Country     string `json:"country"`
	CountryName string `json:"country_name"`
	BoardFlag   string `json:"board_flag"`
	FlagName    string `json:"flag_name"`
	Sub         string `json:"sub"`
	Com         string `json:"com"`
	Tim         int64  `json:"tim"`
	Filename    string `json:"filename"`
	Ext         string `json:"ext"`
	Fsize       int64  `json:"fsize"`
	W           int    `json:"w"`
	H           int    `json:"h"`
	Spoiler     int    `json:"spoiler"`
	FileDeleted int    `json:"filedeleted"`
}

// Prepare は、media_url が設定されていればメディアの取得先として使います。
func (a *YotsubaAdapter) Prepare(_ *network.Client, board config.Board) error {
	if board.MediaURL == "" {
		return nil
	}
	if _, err := url.Parse(board.MediaURL); err != nil {
		return fmt.Errorf("media_url の解析に失敗しました (board=%s, url=%s): %w", board.BoardName, board.MediaURL, err)
	}
	a.mediaURL = strings.TrimSuffix(board.MediaURL, "/") + "/"
	return nil
}

// BuildThreadURL は、API のスレッドURL (thread/<番号>.json) を構築します。
func (a *YotsubaAdapter) BuildThreadURL(boardURL, thread string) (string, error) {
	number, err := model.ParseThreadNumber(thread)
	if err != nil {
		return "", err
	}
	return joinBoardPath(boardURL, "thread", number+".json")
}

// Locator は板のURLを基準とする Locator を返します。
func (a *YotsubaAdapter) Locator(boardURL string) (attachment.Locator, error) {
	return NewBoardLocator(boardURL)
}

// ParseThread は、スレッドの JSON を Post のスライスに変換します。
func (a *YotsubaAdapter) ParseThread(body []byte, threadURL string) ([]model.Post, error) {
	var thread yotsubaThread
	if err := json.Unmarshal(body, &thread); err != nil {
		return nil, fmt.Errorf("スレッドJSONの解析に失敗しました (url=%s, size=%d bytes): %w", threadURL, len(body), err)
	}
	if len(thread.Posts) == 0 {
		return nil, fmt.Errorf("スレッドにレスが含まれていません (url=%s)", threadURL)
	}

	mediaURL := a.mediaURL
	if mediaURL == "" {
		mediaURL = yotsubaMediaHost + boardFromThreadURL(threadURL) + "/"
	}

	posts := make([]model.Post, 0, len(thread.Posts))
	for _, raw := range thread.Posts {
		if raw.No == 0 {
			continue
		}
		posts = append(posts, raw.build(mediaURL))
	}
	return posts, nil
}

func (p yotsubaPost) build(mediaURL string) model.Post {
	b := &model.Builder{
		Number:     model.NewPostNumber(p.No),
		Timestamp:  p.Time * 1000,
		Subject:    p.Sub,
		Comment:    p.Com,
		Name:       p.Name,
		Identifier: p.ID,
		Tripcode:   p.Trip,
		Capcode:    p.Capcode,
	}
	b.SetSticky(p.Sticky != 0).
		SetClosed(p.Closed != 0).
		SetArchived(p.Archived != 0).
		SetBumpLimitReached(p.BumpLimit != 0).
		SetOriginalPoster(p.Resto == 0).
		SetDefaultName(p.Name == "Anonymous")

	if p.Tim != 0 && p.FileDeleted == 0 {
		tim := strconv.FormatInt(p.Tim, 10)
		b.Attachments = append(b.Attachments, model.File{
			FileURI:      mediaURL + tim + p.Ext,
			ThumbnailURI: mediaURL + tim + "s.jpg",
			OriginalName: p.Filename + p.Ext,
			Size:         p.Fsize,
			Width:        p.W,
			Height:       p.H,
			Spoiler:      p.Spoiler != 0,
		})
	}
	if p.Country != "" {
		b.Icons = append(b.Icons, model.Icon{
			URI:   yotsubaCountryIcon + strings.ToLower(p.Country) + ".gif",
			Title: p.CountryName,
		})
	}
	if p.BoardFlag != "" {
		b.Icons = append(b.Icons, model.Icon{
			URI:   yotsubaBoardIcon + strings.ToLower(p.BoardFlag) + ".gif",
			Title: p.FlagName,
		})
	}
	return b.Build(false)
}

// boardFromThreadURL は .../<板>/thread/<番号>.json から板名を取り出します。
func boardFromThreadURL(threadURL string) string {
	u, err := url.Parse(threadURL)
	if err != nil {
		return ""
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 1; i < len(segments); i++ {
		if segments[i] == "thread" {
			return segments[i-1]
		}
	}
	return ""
}
