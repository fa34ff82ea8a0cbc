package search

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/amiyamandal-dev/spacesfeed/internal/domain"
	"github.com/amiyamandal-dev/spacesfeed/pkg/logger"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 50
)

// BleveIndex implements the Index interface using Bleve
type BleveIndex struct {
	index  bleve.Index
	mu     sync.RWMutex
	logger *logger.Logger
}

// NewBleveIndex creates a new Bleve search index
func NewBleveIndex(logger *logger.Logger) *BleveIndex {
	return &BleveIndex{
		logger: logger.WithComponent("bleve-index"),
	}
}

// Open opens or creates the search index
func (b *BleveIndex) Open(indexPath string) error {
	var err error

	if indexPath == "" {
		b.index, err = bleve.NewMemOnly(b.buildIndexMapping())
		if err != nil {
			return fmt.Errorf("failed to create in-memory index: %w", err)
		}
		b.logger.Info("Created in-memory search index")
		return nil
	}

	indexDir := filepath.Dir(indexPath)
	if err := os.MkdirAll(indexDir, 0755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}

	b.index, err = bleve.Open(indexPath)
	if err == nil {
		b.logger.Info("Opened existing search index", "path", indexPath)
		return nil
	}

	b.index, err = bleve.New(indexPath, b.buildIndexMapping())
	if err != nil {
		return fmt.Errorf("failed to create search index: %w", err)
	}

	b.logger.Info("Created new search index", "path", indexPath)
	return nil
}

// buildIndexMapping builds the index mapping for users
func (b *BleveIndex) buildIndexMapping() mapping.IndexMapping {
	userMapping := bleve.NewDocumentMapping()

	// Handle - keyword, matched by prefix
	handleFieldMapping := bleve.NewKeywordFieldMapping()
	handleFieldMapping.Store = true
	handleFieldMapping.Index = true
	userMapping.AddFieldMappingsAt("handle", handleFieldMapping)

	displayNameFieldMapping := bleve.NewTextFieldMapping()
	displayNameFieldMapping.Analyzer = "standard"
	displayNameFieldMapping.Store = true
	displayNameFieldMapping.Index = true
	userMapping.AddFieldMappingsAt("display_name", displayNameFieldMapping)

	bioFieldMapping := bleve.NewTextFieldMapping()
	bioFieldMapping.Analyzer = "en"
	bioFieldMapping.Store = false
	bioFieldMapping.Index = true
	userMapping.AddFieldMappingsAt("bio", bioFieldMapping)

	idFieldMapping := bleve.NewKeywordFieldMapping()
	idFieldMapping.Index = false
	userMapping.AddFieldMappingsAt("id", idFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping("user", userMapping)
	indexMapping.DefaultMapping = userMapping

	return indexMapping
}

// Close closes the search index
func (b *BleveIndex) Close() error {
	if b.index != nil {
		if err := b.index.Close(); err != nil {
			return fmt.Errorf("failed to close index: %w", err)
		}
		b.logger.Info("Closed search index")
	}
	return nil
}

// IndexUser indexes a user, overwriting any previous document
func (b *BleveIndex) IndexUser(ctx context.Context, user *domain.User) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.index.Index(user.ID, UserToDocument(user)); err != nil {
		b.logger.Error("Failed to index user", "user_id", user.ID, "error", err)
		return fmt.Errorf("failed to index user: %w", err)
	}

	b.logger.Debug("Indexed user", "user_id", user.ID)
	return nil
}

// DeleteUser removes a user from the index
func (b *BleveIndex) DeleteUser(ctx context.Context, userID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.index.Delete(userID); err != nil {
		b.logger.Error("Failed to delete user from index", "user_id", userID, "error", err)
		return fmt.Errorf("failed to delete from index: %w", err)
	}

	b.logger.Debug("Deleted user from index", "user_id", userID)
	return nil
}

// Search returns the IDs of users matching the keyword
func (b *BleveIndex) Search(ctx context.Context, q *SearchQuery) (*SearchResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	keyword := strings.TrimSpace(q.Keyword)
	if keyword == "" {
		return &SearchResult{IDs: []string{}}, nil
	}

	limit := q.Limit
	if limit < 1 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	startTime := time.Now()

	searchRequest := bleve.NewSearchRequest(b.buildSearchQuery(keyword))
	searchRequest.Size = limit

	searchResults, err := b.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		b.logger.Error("Search failed", "error", err)
		return nil, fmt.Errorf("search failed: %w", err)
	}

	queryTime := time.Since(startTime).Milliseconds()

	b.logger.Debug("Search completed",
		"keyword", keyword,
		"results", searchResults.Total,
		"time_ms", queryTime,
	)

	return &SearchResult{
		IDs:       GetDocumentIDs(searchResults),
		Total:     int(searchResults.Total),
		QueryTime: queryTime,
	}, nil
}

// buildSearchQuery matches the handle by prefix and names and bios by text
func (b *BleveIndex) buildSearchQuery(keyword string) query.Query {
	handleQuery := bleve.NewPrefixQuery(strings.ToLower(keyword))
	handleQuery.SetField("handle")
	handleQuery.SetBoost(2.0)

	nameQuery := bleve.NewMatchQuery(keyword)
	nameQuery.SetField("display_name")
	nameQuery.SetFuzziness(1)

	namePrefixQuery := bleve.NewPrefixQuery(strings.ToLower(keyword))
	namePrefixQuery.SetField("display_name")

	bioQuery := bleve.NewMatchQuery(keyword)
	bioQuery.SetField("bio")
	bioQuery.SetBoost(0.5)

	return bleve.NewDisjunctionQuery(handleQuery, nameQuery, namePrefixQuery, bioQuery)
}

// Count returns the number of documents in the index
func (b *BleveIndex) Count() (uint64, error) {
	count, err := b.index.DocCount()
	if err != nil {
		return 0, fmt.Errorf("failed to get doc count: %w", err)
	}
	return count, nil
}

// GetDocumentIDs returns document IDs from search results
func GetDocumentIDs(searchResults *bleve.SearchResult) []string {
	ids := make([]string, 0, len(searchResults.Hits))
	for _, hit := range searchResults.Hits {
		ids = append(ids, hit.ID)
	}
	return ids
}
