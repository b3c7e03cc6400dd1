package handler

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/callboard/callboard/internal/importer"
	"github.com/callboard/callboard/internal/repository"
	"github.com/callboard/callboard/internal/showtime"
)

// maxGenerateDays bounds the bulk-generate range (inclusive), one leap year.
const maxGenerateDays = 366

// ImportHandler serves calendar import and bulk generation.
type ImportHandler struct {
	Shows *repository.ShowRepo
}

func NewImportHandler(s *repository.ShowRepo) *ImportHandler { return &ImportHandler{Shows: s} }

// ImportResult reports what a batch insert did. Rows that could not be
// understood at all (bad date, unrecognizable time) are dropped silently and
// appear in neither list.
type ImportResult struct {
	CreatedShows []repository.Show `json:"createdShows"`
	SkippedShows []repository.Show `json:"skippedShows"`
	CreatedCount int               `json:"createdCount"`
	SkippedCount int               `json:"skippedCount"`
}

// insertBatch creates the given slots sequentially, skipping any that
// already occupy their (date, time) slot. Existing shows are never modified.
func (h *ImportHandler) insertBatch(ctx context.Context, orgID uint64, slots []repository.Show) (*ImportResult, error) {
	res := &ImportResult{CreatedShows: []repository.Show{}, SkippedShows: []repository.Show{}}
	for _, slot := range slots {
		exists, err := h.Shows.ExistsByNaturalKey(ctx, orgID, slot.Date, slot.ShowTime)
		if err != nil {
			return nil, err
		}
		if exists {
			res.SkippedShows = append(res.SkippedShows, slot)
			continue
		}
		s := slot
		s.OrganizationID = orgID
		if err := h.Shows.Create(ctx, &s); err != nil {
			if err == repository.ErrDuplicateShow {
				res.SkippedShows = append(res.SkippedShows, slot)
				continue
			}
			return nil, err
		}
		res.CreatedShows = append(res.CreatedShows, s)
	}
	res.CreatedCount = len(res.CreatedShows)
	res.SkippedCount = len(res.SkippedShows)
	return res, nil
}

// Import ingests an uploaded CSV or XLSX schedule (multipart field "file").
// Unusable rows are dropped without failing the upload; only an unreadable
// container or unsupported extension is an error. A slot already present in
// the calendar is reported as skipped, never overwritten.
func (h *ImportHandler) Import(c echo.Context) error {
	orgID, err := getOrgID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file required"})
	}
	f, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable upload"})
	}
	defer f.Close()

	rows, err := importer.FromUpload(fh.Filename, f)
	if err != nil {
		if err == importer.ErrUnsupportedFormat {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unsupported file format; upload .csv or .xlsx"})
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "could not parse uploaded file"})
	}

	// Validate and normalize each row; unusable rows drop out here. The batch
	// itself is also deduplicated so a file listing the same slot twice only
	// counts it once as created.
	seen := make(map[string]bool)
	var slots []repository.Show
	for _, row := range rows {
		if !showtime.DateRegex.MatchString(row.Date) {
			continue
		}
		hhmm, ok := showtime.Normalize(row.ShowTime)
		if !ok {
			continue
		}
		key := row.Date + " " + hhmm
		if seen[key] {
			continue
		}
		seen[key] = true
		slots = append(slots, repository.Show{Date: row.Date, ShowTime: hhmm})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	res, err := h.insertBatch(ctx, orgID, slots)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "import failed"})
	}
	return c.JSON(http.StatusOK, res)
}

type bulkGenerateReq struct {
	StartDate    string              `json:"startDate"`
	EndDate      string              `json:"endDate"`
	WeekdayTimes map[string][]string `json:"weekdayTimes"` // weekday "0".."6" -> time spellings
	// Accepted for client compatibility. Duplicates are always reported as
	// skipped and never overwritten, whatever the flag says.
	SkipDuplicates *bool `json:"skipDuplicates"`
}

// BulkGenerate creates shows over an inclusive date range from a weekly
// pattern: for every day in [startDate, endDate] whose weekday has an entry
// in WeekdayTimes, one show per listed time. Times are normalized,
// deduplicated and sorted per weekday before iteration, and existing slots
// are skipped.
func (h *ImportHandler) BulkGenerate(c echo.Context) error {
	orgID, err := getOrgID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req bulkGenerateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if !showtime.DateRegex.MatchString(req.StartDate) || !showtime.DateRegex.MatchString(req.EndDate) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "startDate and endDate must be YYYY-MM-DD"})
	}
	start, err := showtime.ParseDate(req.StartDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid startDate"})
	}
	end, err := showtime.ParseDate(req.EndDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid endDate"})
	}
	if end.Before(start) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "endDate must not precede startDate"})
	}
	if showtime.DaysInclusive(start, end) > maxGenerateDays {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "range must not exceed 366 days"})
	}
	if len(req.WeekdayTimes) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "weekdayTimes required"})
	}

	// Normalize the weekly pattern up front so one bad time fails the whole
	// request instead of generating a partial calendar.
	pattern := make(map[int][]string)
	for key, raw := range req.WeekdayTimes {
		wd, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil || wd < 0 || wd > 6 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "weekdayTimes keys must be weekdays 0..6"})
		}
		dedup := make(map[string]bool)
		for _, t := range raw {
			hhmm, ok := showtime.Normalize(t)
			if !ok {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "unrecognized time: " + t})
			}
			dedup[hhmm] = true
		}
		times := make([]string, 0, len(dedup))
		for t := range dedup {
			times = append(times, t)
		}
		sort.Strings(times)
		if len(times) > 0 {
			pattern[wd] = times
		}
	}

	var slots []repository.Show
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		for _, t := range pattern[int(d.Weekday())] {
			slots = append(slots, repository.Show{Date: showtime.FormatDate(d), ShowTime: t})
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	res, err := h.insertBatch(ctx, orgID, slots)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "generation failed"})
	}
	return c.JSON(http.StatusOK, res)
}
