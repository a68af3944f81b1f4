package scraper

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/aluiziolira/go-market-search/models"
	"github.com/aluiziolira/go-market-search/parser"
	lru "github.com/hashicorp/golang-lru/v2"
)

// dedupeSet remembers recently seen listings within one crawl. It is bounded,
// so very old listings may be reported again on long crawls.
type dedupeSet struct {
	cache *lru.Cache[string, struct{}]
}

func newDedupeSet(size int) (*dedupeSet, error) {
	cache, err := lru.New[string, struct{}](size)
	if err != nil {
		return nil, fmt.Errorf("create dedupe cache: %w", err)
	}
	return &dedupeSet{cache: cache}, nil
}

// Seen records l and reports whether it had been recorded before.
func (d *dedupeSet) Seen(l *models.Listing) bool {
	found, _ := d.cache.ContainsOrAdd(listingKey(l), struct{}{})
	return found
}

func listingKey(l *models.Listing) string {
	src := "id:" + l.ID.String()
	if l.ID == "" {
		src = fmt.Sprintf("item:%s|%.2f", l.Name, parser.ParsePrice(l.ShowPrice))
	}
	sum := sha256.Sum256([]byte(src))
	return hex.EncodeToString(sum[:])
}
