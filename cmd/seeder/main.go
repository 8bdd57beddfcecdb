package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"iter"
	"log/slog"
	"os"
	"time"

	"github.com/poiesic/newsdex"
	"github.com/poiesic/newsdex/ai/mock"
	"github.com/poiesic/newsdex/core"
)

type seedArticle struct {
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	Body        string    `json:"body"`
	Source      string    `json:"source"`
	Link        string    `json:"link"`
	Category    string    `json:"category"`
	PublishedAt time.Time `json:"published_at"`
}

var articles = []seedArticle{
	{
		Title:    "Central Bank Holds Rates Steady as Inflation Cools",
		Summary:  "Policymakers left the benchmark rate unchanged for a third consecutive meeting.",
		Body:     "The central bank kept its key interest rate on hold, pointing to a steady decline in consumer prices over the past quarter. Officials signalled that cuts remain possible later in the year if the trend continues. Markets had priced in the decision, and bond yields barely moved on the announcement.",
		Source:   "Wire Desk",
		Link:     "https://news.example.com/finance/rates-hold",
		Category: "finance",
	},
	{
		Title:    "Storm Front Batters Coastal Towns Overnight",
		Summary:  "Emergency crews responded to flooding and wind damage along the northern coast.",
		Body:     "A powerful storm system moved ashore late Tuesday, downing power lines and flooding low-lying streets in several coastal towns. No serious injuries were reported, though thousands of households remained without electricity into the morning. Forecasters expect conditions to ease by the weekend.",
		Source:   "Regional Bureau",
		Link:     "https://news.example.com/weather/coastal-storm",
		Category: "weather",
	},
	{
		Title:    "City Council Approves Downtown Transit Corridor",
		Summary:  "The long-debated bus rapid transit line cleared its final vote.",
		Body:     "After two years of public hearings, the city council voted to fund a dedicated transit corridor through the downtown core. Construction is slated to begin next spring, with the first buses running within three years. Business groups remain divided over the loss of street parking along the route.",
		Source:   "City Desk",
		Link:     "https://news.example.com/local/transit-corridor",
		Category: "local",
	},
	{
		Title:    "Quantum Startup Raises Record Funding Round",
		Summary:  "The chipmaker closed the largest venture round in the sector this year.",
		Body:     "A startup building error-corrected quantum processors announced a funding round that values the company at several billion dollars. The firm plans to use the capital to scale its fabrication line and double its engineering headcount. Analysts caution that commercial workloads remain years away.",
		Source:   "Tech Desk",
		Link:     "https://news.example.com/tech/quantum-funding",
		Category: "technology",
	},
	{
		Title:    "Underdogs Clinch League Title in Final Minutes",
		Summary:  "A stoppage-time goal sealed the club's first championship in four decades.",
		Body:     "The title race went to the last match of the season, and the visitors snatched it with a goal deep in stoppage time. Supporters poured into the streets around the stadium well past midnight. The club's manager, in his second season, credited a defence that conceded the fewest goals in the league.",
		Source:   "Sports Desk",
		Link:     "https://news.example.com/sports/league-title",
		Category: "sports",
	},
	{
		Title:    "Drought Conditions Spread Across Farm Belt",
		Summary:  "Reservoir levels fell to their lowest point in a decade.",
		Body:     "Agricultural officials warned that persistent drought is stressing irrigation supplies across the farm belt. Several districts have introduced water restrictions ahead of the summer growing season. Crop insurers expect claims to rise sharply if rainfall does not recover within the next month.",
		Source:   "Regional Bureau",
		Link:     "https://news.example.com/weather/farm-drought",
		Category: "weather",
	},
	{
		Title:    "Regulator Opens Inquiry Into Grocery Pricing",
		Summary:  "The competition watchdog will examine margins at the largest supermarket chains.",
		Body:     "The national competition regulator opened a formal inquiry into pricing practices in the grocery sector, citing a widening gap between wholesale and shelf prices. The largest chains said they would cooperate fully. Consumer groups welcomed the move and called for interim price reporting requirements.",
		Source:   "Wire Desk",
		Link:     "https://news.example.com/finance/grocery-inquiry",
		Category: "finance",
	},
	{
		Title:    "Museum Reopens After Five-Year Restoration",
		Summary:  "The landmark building welcomed visitors for the first time since the fire.",
		Body:     "The city's oldest museum reopened its doors after a restoration that rebuilt the fire-damaged east wing and modernised the climate systems protecting its collection. Curators used the closure to recatalogue thousands of works, several of which are on public display for the first time.",
		Source:   "Culture Desk",
		Link:     "https://news.example.com/culture/museum-reopens",
		Category: "culture",
	},
}

var (
	seedFileName = flag.String("src", "", "JSON-lines file of seed articles")
	dbPath       = flag.String("db", "./news_db", "path to the corpus directory")
	useMock      = flag.Bool("mock", false, "use the mock AI provider instead of a live service")
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
	flag.Parse()
}

// articlesFromFile returns an iterator over JSON-lines articles in a file.
func articlesFromFile(filename string) (iter.Seq[seedArticle], error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	return func(yield func(seedArticle) bool) {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
		for scanner.Scan() {
			var a seedArticle
			if err := json.Unmarshal(scanner.Bytes(), &a); err != nil {
				slog.Error("skipping invalid article line", "err", err)
				continue
			}
			if !yield(a) {
				return
			}
		}
	}, nil
}

// articlesFromSlice returns an iterator over the built-in sample articles,
// spacing their publication times so recency scoring has something to bite on.
func articlesFromSlice(items []seedArticle) iter.Seq[seedArticle] {
	return func(yield func(seedArticle) bool) {
		now := time.Now()
		for i, a := range items {
			if a.PublishedAt.IsZero() {
				a.PublishedAt = now.Add(-time.Duration(i*7) * time.Hour)
			}
			if !yield(a) {
				return
			}
		}
	}
}

func main() {
	opts := []newsdex.CorpusOption{}
	if *useMock {
		opts = append(opts, newsdex.WithProvider(mock.NewMockProvider()), newsdex.WithEmbeddingDim(384))
	}

	corpus, err := newsdex.OpenCorpus(*dbPath, opts...)
	if err != nil {
		panic(err)
	}
	defer corpus.Close()

	pipeline, err := corpus.NewIngestionPipeline()
	if err != nil {
		panic(err)
	}
	defer pipeline.Release()

	ctx := context.Background()

	// Determine source of seed data
	var source iter.Seq[seedArticle]
	if seedFileName != nil && *seedFileName != "" {
		source, err = articlesFromFile(*seedFileName)
		if err != nil {
			panic(err)
		}
	} else {
		source = articlesFromSlice(articles)
	}

	count := 0
	for a := range source {
		doc := &core.Document{
			Title:       a.Title,
			Summary:     a.Summary,
			Body:        a.Body,
			Source:      a.Source,
			Link:        a.Link,
			Category:    a.Category,
			PublishedAt: a.PublishedAt,
		}
		if err := pipeline.IndexDocument(ctx, doc); err != nil {
			panic(err)
		}
		count++
	}

	slog.Info("seeding complete", "documents", count)
}
