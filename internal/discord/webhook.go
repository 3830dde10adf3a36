// Package discord renders engine events into webhook embeds and delivers
// them. One delivery attempt per event; failures are the caller's to log.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"

	"github.com/djeex/nvidia-stock-bot/internal/engine"
	"github.com/djeex/nvidia-stock-bot/internal/locale"
)

const (
	username     = "NviBot"
	authorName   = "Nvidia Founder Editions"
	avatarURL    = "https://git.djeex.fr/Djeex/nvidia-stock-bot/raw/branch/main/assets/img/ds_wh_pp.jpg"
	thumbnailURL = "https://git.djeex.fr/Djeex/nvidia-stock-bot/raw/branch/main/assets/img/RTX5000.jpg"

	colorInStock    = 3066993  // green
	colorOutOfStock = 15158332 // red
	colorSkuChange  = 16776960 // yellow
)

// Webhook posts embeds to a Discord webhook URL. In test mode it logs the
// event and does nothing else.
type Webhook struct {
	URL        string
	ServerName string
	ProductURL string
	Currency   string
	Roles      map[string]string // product name -> mention token
	Bundle     locale.Bundle
	TestMode   bool

	HTTP   *http.Client
	Logger *log.Logger
	Now    func() time.Time
}

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embedMedia struct {
	URL string `json:"url"`
}

type embedAuthor struct {
	Name string `json:"name"`
}

type embedFooter struct {
	Text    string `json:"text"`
	IconURL string `json:"icon_url"`
}

type embed struct {
	Title       string       `json:"title"`
	URL         string       `json:"url,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color"`
	Thumbnail   *embedMedia  `json:"thumbnail,omitempty"`
	Author      *embedAuthor `json:"author,omitempty"`
	Fields      []embedField `json:"fields,omitempty"`
	Footer      embedFooter  `json:"footer"`
}

type payload struct {
	Content   string  `json:"content,omitempty"`
	Username  string  `json:"username"`
	AvatarURL string  `json:"avatar_url"`
	Embeds    []embed `json:"embeds"`
}

// Notify renders and delivers one event. The test-mode check comes before
// any formatting or network work.
func (w *Webhook) Notify(ctx context.Context, ev engine.Event) error {
	if w.TestMode {
		w.log().Info("[TEST MODE] notification suppressed", "kind", ev.Kind, "product", ev.Product)
		return nil
	}

	var p payload
	switch ev.Kind {
	case engine.KindInStock:
		p = w.inStockPayload(ev)
	case engine.KindOutOfStock:
		p = w.outOfStockPayload(ev)
	case engine.KindSkuChange:
		p = w.skuChangePayload(ev)
	default:
		return fmt.Errorf("discord: unknown event kind %q", ev.Kind)
	}

	return w.post(ctx, p)
}

func (w *Webhook) inStockPayload(ev engine.Event) payload {
	ts := w.timestamp()
	e := embed{
		Title:       locale.Expand(w.Bundle.InStockTitle, map[string]string{"gpu_name": ev.Product}),
		Description: locale.Expand(w.Bundle.BuyNow, map[string]string{"product_link": w.ProductURL}),
		Color:       colorInStock,
		Thumbnail:   &embedMedia{URL: thumbnailURL},
		Author:      &embedAuthor{Name: authorName},
		Fields: []embedField{
			{Name: w.Bundle.PriceLabel, Value: fmt.Sprintf("`%s%s`", w.Currency, displayPrice(ev.Price)), Inline: true},
			{Name: w.Bundle.TimeLabel, Value: timeTokens(ts), Inline: true},
		},
		Footer: w.footer(),
	}
	return payload{
		Content:   w.mention(ev.Product),
		Username:  username,
		AvatarURL: avatarURL,
		Embeds:    []embed{e},
	}
}

func (w *Webhook) outOfStockPayload(ev engine.Event) payload {
	ts := w.timestamp()
	e := embed{
		Title:     locale.Expand(w.Bundle.OutOfStockTitle, map[string]string{"gpu_name": ev.Product}),
		URL:       w.ProductURL,
		Color:     colorOutOfStock,
		Thumbnail: &embedMedia{URL: thumbnailURL},
		Author:    &embedAuthor{Name: authorName},
		Fields: []embedField{
			{Name: w.Bundle.TimeLabel, Value: timeTokens(ts), Inline: true},
		},
		Footer: w.footer(),
	}
	// no role mention on the way down
	return payload{
		Username:  username,
		AvatarURL: avatarURL,
		Embeds:    []embed{e},
	}
}

func (w *Webhook) skuChangePayload(ev engine.Event) payload {
	ts := w.timestamp()
	e := embed{
		Title: locale.Expand(w.Bundle.SkuChangeTitle, map[string]string{"gpu_name": ev.Product}),
		URL:   w.ProductURL,
		Description: locale.Expand(w.Bundle.SkuDescription, map[string]string{
			"old_sku": ev.OldSKU,
			"new_sku": ev.NewSKU,
		}),
		Color: colorSkuChange,
		Fields: []embedField{
			{Name: w.Bundle.TimeLabel, Value: timeTokens(ts), Inline: true},
		},
		Footer: w.footer(),
	}
	return payload{
		Content:   locale.Expand(w.Bundle.ImminentDrop, map[string]string{"DISCORD_ROLE": w.mention(ev.Product)}),
		Username:  username,
		AvatarURL: avatarURL,
		Embeds:    []embed{e},
	}
}

func (w *Webhook) post(ctx context.Context, p payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("discord: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client().Do(req)
	if err != nil {
		return fmt.Errorf("discord: send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("discord: webhook status %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
	}

	w.log().Info("notification sent")
	return nil
}

// Validate checks the sink has what it needs before the loop starts.
func (w *Webhook) Validate() error {
	if w.URL == "" {
		return errors.New("discord: webhook URL is empty")
	}
	return nil
}

func (w *Webhook) footer() embedFooter {
	return embedFooter{
		Text:    locale.Expand(w.Bundle.Footer, map[string]string{"DISCORD_SERVER_NAME": w.ServerName}),
		IconURL: avatarURL,
	}
}

func (w *Webhook) mention(product string) string {
	if m, ok := w.Roles[product]; ok {
		return m
	}
	return "@everyone"
}

func (w *Webhook) timestamp() int64 {
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	return now().Unix()
}

func (w *Webhook) client() *http.Client {
	if w.HTTP != nil {
		return w.HTTP
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func (w *Webhook) log() *log.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return log.Default()
}

// timeTokens renders the two Discord-native time tokens (date and clock).
func timeTokens(ts int64) string {
	return fmt.Sprintf("<t:%d:d> <t:%d:T>", ts, ts)
}

// displayPrice normalizes a parseable price ("2329.000000" -> "2329");
// anything else, including the vendor's unavailable sentinel, passes
// through untouched.
func displayPrice(price string) string {
	d, err := decimal.NewFromString(price)
	if err != nil {
		return price
	}
	if d.IsInteger() {
		return d.Truncate(0).String()
	}
	return d.String()
}
