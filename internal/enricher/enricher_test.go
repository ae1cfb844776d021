package enricher

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/aiotter/discord-amazon-url-shortener/internal/models"
)

type mockFetcher struct {
	data  map[string]models.ProductData
	err   map[string]error
	calls []string
}

func (m *mockFetcher) Fetch(_ context.Context, productURL string) (models.ProductData, error) {
	m.calls = append(m.calls, productURL)
	if err := m.err[productURL]; err != nil {
		return models.ProductData{}, err
	}
	return m.data[productURL], nil
}

func productCard(url string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		URL:         url,
		Type:        discordgo.EmbedTypeLink,
		Title:       "Amazon.co.jp",
		Description: "platform description",
		Thumbnail:   &discordgo.MessageEmbedThumbnail{URL: "https://images.example/original.jpg"},
	}
}

var fullData = models.ProductData{
	Title:    "新装版 プログラミング言語の基礎理論",
	Price:    "￥4,180",
	ImageURL: "https://m.media-amazon.com/images/I/41abc.jpg",
	Rating:   "星5つ中の4.5",
}

func TestEnrich_AppliesAllFields(t *testing.T) {
	card := productCard("https://www.amazon.co.jp/dp/4320124502/ref=x")

	got := Enrich(card, fullData)

	if got.Description != fullData.Title {
		t.Errorf("Description = %q, want %q", got.Description, fullData.Title)
	}
	if got.Thumbnail == nil || got.Thumbnail.URL != fullData.ImageURL {
		t.Errorf("Thumbnail = %+v, want %s", got.Thumbnail, fullData.ImageURL)
	}
	wantFields := []*discordgo.MessageEmbedField{
		{Name: "価格", Value: fullData.Price, Inline: true},
		{Name: "評価", Value: fullData.Rating, Inline: true},
	}
	if !reflect.DeepEqual(got.Fields, wantFields) {
		t.Errorf("Fields = %+v, want %+v", got.Fields, wantFields)
	}
	if !IsProcessed(got) {
		t.Error("Expected footer marker to be set")
	}
	if IsProcessed(card) || card.Description != "platform description" {
		t.Error("Enrich must not modify its input")
	}
}

func TestEnrich_Idempotent(t *testing.T) {
	card := productCard("https://www.amazon.co.jp/gp/product/4320124502/")

	once := Enrich(card, fullData)
	twice := Enrich(once, fullData)

	if !reflect.DeepEqual(once, twice) {
		t.Errorf("Enrich is not idempotent:\n once=%+v\ntwice=%+v", once, twice)
	}

	other := Enrich(once, models.ProductData{Title: "something else"})
	if other.Description != fullData.Title {
		t.Error("An already processed card must not be re-enriched")
	}
}

func TestEnrich_EmptyDataOnlyStampsFooter(t *testing.T) {
	card := productCard("https://www.amazon.co.jp/gp/product/4798113468/")
	card.Fields = []*discordgo.MessageEmbedField{{Name: "existing", Value: "kept"}}

	got := Enrich(card, models.ProductData{})

	want := *card
	want.Footer = &discordgo.MessageEmbedFooter{Text: Footer}
	if !reflect.DeepEqual(got, &want) {
		t.Errorf("Enrich with empty data = %+v, want %+v", got, &want)
	}
}

func TestEnrich_MissingPriceOmitsField(t *testing.T) {
	card := productCard("https://www.amazon.co.jp/gp/product/4798113468/")
	data := fullData
	data.Price = ""

	got := Enrich(card, data)

	if len(got.Fields) != 1 || got.Fields[0].Name != "評価" {
		t.Errorf("Expected only the rating field, got %+v", got.Fields)
	}
}

func TestEnrich_KeepsThumbnailWhenNoImage(t *testing.T) {
	card := productCard("https://www.amazon.co.jp/gp/product/4798113468/")
	data := fullData
	data.ImageURL = ""

	got := Enrich(card, data)

	if got.Thumbnail == nil || got.Thumbnail.URL != card.Thumbnail.URL {
		t.Errorf("Existing thumbnail must be kept, got %+v", got.Thumbnail)
	}
}

func TestEnrich_IgnoresUnrelatedCards(t *testing.T) {
	card := productCard("https://example.com/article")

	got := Enrich(card, fullData)

	if got != card {
		t.Error("A non-product card must be returned unchanged")
	}
}

func TestEnrichAll_OrderAndFailures(t *testing.T) {
	first := productCard("https://www.amazon.co.jp/dp/AAAAAAAAAA/ref=a")
	unrelated := productCard("https://example.com/page")
	failing := productCard("https://www.amazon.co.jp/dp/BBBBBBBBBB")
	last := productCard("https://www.amazon.co.jp/gp/product/CCCCCCCCCC/")

	f := &mockFetcher{
		data: map[string]models.ProductData{
			"https://www.amazon.co.jp/gp/product/AAAAAAAAAA/": {Title: "A"},
			"https://www.amazon.co.jp/gp/product/CCCCCCCCCC/": {Title: "C"},
		},
		err: map[string]error{
			"https://www.amazon.co.jp/gp/product/BBBBBBBBBB/": errors.New("boom"),
		},
	}

	got, changed := EnrichAll(context.Background(), f, []*discordgo.MessageEmbed{first, unrelated, failing, last})

	if !changed {
		t.Error("Expected changed = true")
	}
	if len(got) != 4 {
		t.Fatalf("Expected 4 cards, got %d", len(got))
	}
	if got[0].Description != "A" || !IsProcessed(got[0]) {
		t.Errorf("card 0 not enriched: %+v", got[0])
	}
	if got[1] != unrelated {
		t.Error("card 1 should pass through")
	}
	if got[2] != failing {
		t.Error("card 2 should pass through after a fetch failure")
	}
	if got[3].Description != "C" || !IsProcessed(got[3]) {
		t.Errorf("card 3 not enriched: %+v", got[3])
	}

	wantCalls := []string{
		"https://www.amazon.co.jp/gp/product/AAAAAAAAAA/",
		"https://www.amazon.co.jp/gp/product/BBBBBBBBBB/",
		"https://www.amazon.co.jp/gp/product/CCCCCCCCCC/",
	}
	if !reflect.DeepEqual(f.calls, wantCalls) {
		t.Errorf("Fetch calls = %v, want %v", f.calls, wantCalls)
	}
}

func TestEnrichAll_AlreadyProcessed(t *testing.T) {
	done := Enrich(productCard("https://www.amazon.co.jp/gp/product/AAAAAAAAAA/"), fullData)
	f := &mockFetcher{}

	got, changed := EnrichAll(context.Background(), f, []*discordgo.MessageEmbed{done})

	if changed {
		t.Error("Expected changed = false for already processed cards")
	}
	if len(f.calls) != 0 {
		t.Errorf("Expected no fetches, got %v", f.calls)
	}
	if got[0] != done {
		t.Error("Processed card should pass through")
	}
}
