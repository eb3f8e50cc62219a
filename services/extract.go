package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"catalog-linker/models"
	"catalog-linker/storage"
	"catalog-linker/utils"
)

// Extractor produces one cleaned source table from a folder of raw exports.
type Extractor interface {
	Schema() models.SourceSchema
	Extract(ctx context.Context) (*models.SourceTable, error)
}

// feed describes one raw export feed: where its batches live, which columns
// it must carry, and how a projected row maps onto a RawListing.
type feed struct {
	name       string
	dir        string
	columns    []string
	naturalKey string
	project    func(row map[string]string) *models.RawListing
}

// feedRows is a feed after loading and natural-key deduplication.
type feedRows struct {
	listings []*models.RawListing
	files    int
	raw      int
	dups     int
}

func loadFeed(ctx context.Context, reader storage.BatchReader, logger *utils.Logger, source string, f feed) (*feedRows, error) {
	files, err := reader.ListBatches(f.dir)
	if err != nil {
		return nil, fmt.Errorf("%s: %s feed: %w", source, f.name, err)
	}
	if len(files) == 0 {
		logger.Warn("[extract] %s: no batch files in %s", source, f.dir)
	}

	out := &feedRows{files: len(files)}
	var all []*models.RawListing
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%s: %s feed: %w", source, f.name, err)
		}
		rows, err := reader.ReadBatch(source, path, f.columns)
		if err != nil {
			return nil, err
		}
		for i, row := range rows {
			l := f.project(row)
			l.Source = source
			l.BatchFile = filepath.Base(path)
			l.BatchRow = i + 1
			l.NaturalKey = strings.TrimSpace(l.NaturalKey)
			if l.NaturalKey == "" {
				return nil, &models.MalformedInputError{
					Source: source,
					File:   path,
					Row:    i + 1,
					Field:  f.naturalKey,
					Err:    errors.New("natural key is empty"),
				}
			}
			all = append(all, l)
		}
		logger.Debug("[extract] %s: %s batch %s: %d rows", source, f.name, filepath.Base(path), len(rows))
	}

	out.raw = len(all)
	out.listings, out.dups = keepLastBy(all, func(l *models.RawListing) string { return l.NaturalKey })
	return out, nil
}

// DirectoryExtractor reads the directory catalog, whose listings are split
// across an index feed (periods/) and a detail feed (posts/).
type DirectoryExtractor struct {
	dir     string
	reader  storage.BatchReader
	cleaner *Cleaner
	logger  *utils.Logger
}

// NewDirectoryExtractor creates an extractor rooted at dir.
func NewDirectoryExtractor(dir string, reader storage.BatchReader, cleaner *Cleaner, logger *utils.Logger) *DirectoryExtractor {
	return &DirectoryExtractor{dir: dir, reader: reader, cleaner: cleaner, logger: logger}
}

func (e *DirectoryExtractor) Schema() models.SourceSchema { return models.DirectorySchema }

func (e *DirectoryExtractor) indexFeed() feed {
	return feed{
		name:       "index",
		dir:        filepath.Join(e.dir, "periods"),
		columns:    []string{"projectName", "sourceUrl", "postUrl", "countSaves"},
		naturalKey: "postUrl",
		project: func(row map[string]string) *models.RawListing {
			return &models.RawListing{
				NaturalKey:   row["postUrl"],
				Name:         row["projectName"],
				RawURL:       row["sourceUrl"],
				PrimaryCount: row["countSaves"],
			}
		},
	}
}

func (e *DirectoryExtractor) detailFeed() feed {
	return feed{
		name: "detail",
		dir:  filepath.Join(e.dir, "posts"),
		columns: []string{
			"_reqMeta.postUrl",
			"ratings.countRatings",
			"productInfo.chatGptDescription",
			"productInfo.launchDateText",
			"ratings.starRatings",
		},
		naturalKey: "_reqMeta.postUrl",
		project: func(row map[string]string) *models.RawListing {
			return &models.RawListing{
				NaturalKey:     row["_reqMeta.postUrl"],
				SecondaryCount: row["ratings.countRatings"],
				Description:    row["productInfo.chatGptDescription"],
				ListedAtText:   row["productInfo.launchDateText"],
				Rating:         row["ratings.starRatings"],
			}
		},
	}
}

// Extract loads both feeds, inner-joins them on the post URL and cleans the
// result. Index rows without a detail row are reported as unscraped; detail
// rows without an index row are dropped.
func (e *DirectoryExtractor) Extract(ctx context.Context) (*models.SourceTable, error) {
	source := e.Schema().Name

	index, err := loadFeed(ctx, e.reader, e.logger, source, e.indexFeed())
	if err != nil {
		return nil, err
	}
	detail, err := loadFeed(ctx, e.reader, e.logger, source, e.detailFeed())
	if err != nil {
		return nil, err
	}

	indexByKey := make(map[string]*models.RawListing, len(index.listings))
	for _, l := range index.listings {
		indexByKey[l.NaturalKey] = l
	}

	stats := models.ExtractStats{
		BatchFiles:     index.files + detail.files,
		RawRows:        index.raw + detail.raw,
		NaturalKeyDups: index.dups + detail.dups,
	}

	scraped := utils.NewKeySet()
	joined := make([]*models.RawListing, 0, len(detail.listings))
	for _, d := range detail.listings {
		idx, ok := indexByKey[d.NaturalKey]
		if !ok {
			stats.DetailOnly++
			continue
		}
		scraped.Add(d.NaturalKey)
		joined = append(joined, &models.RawListing{
			Source:         source,
			NaturalKey:     d.NaturalKey,
			Name:           idx.Name,
			Description:    d.Description,
			RawURL:         idx.RawURL,
			PrimaryCount:   idx.PrimaryCount,
			SecondaryCount: d.SecondaryCount,
			Rating:         d.Rating,
			ListedAtText:   d.ListedAtText,
			BatchFile:      d.BatchFile,
			BatchRow:       d.BatchRow,
		})
	}

	unscraped := utils.NewKeySet()
	for _, l := range index.listings {
		if !scraped.Contains(l.NaturalKey) {
			unscraped.Add(l.NaturalKey)
		}
	}
	stats.Unscraped = unscraped.Size()
	if stats.Unscraped > 0 {
		e.logger.Warn("[extract] %s: %d index entries have no detail page", source, stats.Unscraped)
	}
	if stats.DetailOnly > 0 {
		e.logger.Debug("[extract] %s: dropped %d detail rows without an index entry", source, stats.DetailOnly)
	}

	listings, cleanStats, err := e.cleaner.Clean(source, joined, FixLaunchDate)
	if err != nil {
		return nil, err
	}
	stats.RejectedURLs = cleanStats.RejectedURLs
	stats.CanonicalURLDups = cleanStats.CanonicalURLDups
	stats.Kept = cleanStats.Kept

	return &models.SourceTable{
		Source:    source,
		Listings:  listings,
		Unscraped: unscraped.Keys(),
		Stats:     stats,
	}, nil
}

// LaunchboardExtractor reads the launch board catalog, a single feed keyed
// by the launch page URL.
type LaunchboardExtractor struct {
	dir     string
	reader  storage.BatchReader
	cleaner *Cleaner
	logger  *utils.Logger
}

// NewLaunchboardExtractor creates an extractor over the batch files in dir.
func NewLaunchboardExtractor(dir string, reader storage.BatchReader, cleaner *Cleaner, logger *utils.Logger) *LaunchboardExtractor {
	return &LaunchboardExtractor{dir: dir, reader: reader, cleaner: cleaner, logger: logger}
}

func (e *LaunchboardExtractor) Schema() models.SourceSchema { return models.LaunchboardSchema }

func (e *LaunchboardExtractor) feed() feed {
	return feed{
		name: "launches",
		dir:  e.dir,
		columns: []string{
			"name",
			"description",
			"product.websiteUrl",
			"product.firstPost.createdAt",
			"product.reviewsCount",
			"product.reviewsRating",
			"product.followersCount",
			"meta.canonicalUrl",
		},
		naturalKey: "meta.canonicalUrl",
		project: func(row map[string]string) *models.RawListing {
			return &models.RawListing{
				NaturalKey:     row["meta.canonicalUrl"],
				Name:           row["name"],
				Description:    row["description"],
				RawURL:         row["product.websiteUrl"],
				PrimaryCount:   row["product.followersCount"],
				SecondaryCount: row["product.reviewsCount"],
				Rating:         row["product.reviewsRating"],
				ListedAtText:   row["product.firstPost.createdAt"],
			}
		},
	}
}

// Extract loads, deduplicates and cleans the launch board feed. A single
// feed has nothing to reconcile, so the unscraped set is always empty.
func (e *LaunchboardExtractor) Extract(ctx context.Context) (*models.SourceTable, error) {
	source := e.Schema().Name

	rows, err := loadFeed(ctx, e.reader, e.logger, source, e.feed())
	if err != nil {
		return nil, err
	}

	listings, cleanStats, err := e.cleaner.Clean(source, rows.listings, nil)
	if err != nil {
		return nil, err
	}

	return &models.SourceTable{
		Source:    source,
		Listings:  listings,
		Unscraped: []string{},
		Stats: models.ExtractStats{
			BatchFiles:       rows.files,
			RawRows:          rows.raw,
			NaturalKeyDups:   rows.dups,
			RejectedURLs:     cleanStats.RejectedURLs,
			CanonicalURLDups: cleanStats.CanonicalURLDups,
			Kept:             cleanStats.Kept,
		},
	}, nil
}
