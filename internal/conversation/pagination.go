package conversation

import (
	"parking-bot-backend/internal/model"
)

// maxPageSize leaves room for previous, next and back rows in a 10-row list.
const maxPageSize = 7

// pageCount returns how many pages total items fill; zero items make zero pages.
func pageCount(total, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// clampPage keeps page within [1, pages].
func clampPage(page, pages int) int {
	if page < 1 {
		return 1
	}
	if pages > 0 && page > pages {
		return pages
	}
	return page
}

// pageSlice returns the lots on the given 1-based page.
func pageSlice(lots []model.ParkingLot, page, size int) []model.ParkingLot {
	start := (page - 1) * size
	if start < 0 || start >= len(lots) {
		return nil
	}
	end := start + size
	if end > len(lots) {
		end = len(lots)
	}
	return lots[start:end]
}

func lotIDs(lots []model.ParkingLot) []string {
	ids := make([]string, len(lots))
	for i, l := range lots {
		ids[i] = l.ID
	}
	return ids
}

// pickRow resolves row index of page against a stashed page context.
// It fails on a different page or an index outside the stashed list.
func pickRow(tc model.TransientContext, page, index int) (string, bool) {
	if tc.Page != page || index < 0 || index >= len(tc.LotIDs) {
		return "", false
	}
	return tc.LotIDs[index], true
}
