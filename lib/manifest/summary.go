package manifest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/joshnies/datadoc/models"
	"github.com/samber/lo"
)

// Aggregate statistics over items.
func Summarize(items []models.Item) models.Summary {
	duplicates := lo.FindDuplicates(lo.Map(items, func(item models.Item, _ int) string {
		return item.Checksum
	}))
	sort.Strings(duplicates)

	return models.Summary{
		Items: len(items),
		Bytes: lo.SumBy(items, func(item models.Item) int64 {
			return item.Bytes
		}),
		Copyrighted: lo.CountBy(items, func(item models.Item) bool {
			return item.Copyright != ""
		}),
		MimeTypes: lo.CountValuesBy(items, func(item models.Item) string {
			return item.MimeType
		}),
		Domains: lo.CountValuesBy(items, func(item models.Item) string {
			return item.Domain
		}),
		Duplicates: duplicates,
	}
}

// Fail when an item is listed more than once.
func CheckUnique(items []models.Item) error {
	dups := Summarize(items).Duplicates
	if len(dups) == 0 {
		return nil
	}
	return fmt.Errorf("%d item(s) listed more than once: %s", len(dups), strings.Join(dups, ", "))
}
