package responses

import (
	"sort"

	"github.com/mescon/Hassarr/internal/integration"
)

// SeasonDetail is one season row of a request or media record.
type SeasonDetail struct {
	SeasonNumber  int    `json:"season_number"`
	Status        int    `json:"status"`
	StatusText    string `json:"status_text"`
	RequestedDate string `json:"requested_date"`
	UpdatedDate   string `json:"updated_date"`
	IsAvailable   bool   `json:"is_available"`
	IsDownloading bool   `json:"is_downloading"`
	IsPending     bool   `json:"is_pending"`
}

// SeasonSummary condenses SeasonInfo into counts.
type SeasonSummary struct {
	Requested      int `json:"requested"`
	TotalAvailable int `json:"total_available"`
	Missing        int `json:"missing"`
	Downloading    int `json:"downloading"`
	Available      int `json:"available"`
	Pending        int `json:"pending"`
}

// SeasonInfo describes which seasons of a show were requested and where each
// one stands.
type SeasonInfo struct {
	RequestedSeasons   []int          `json:"requested_seasons"`
	SeasonCount        int            `json:"season_count"`
	SeasonDetails      []SeasonDetail `json:"season_details"`
	HasMultipleSeasons bool           `json:"has_multiple_seasons"`
	TotalSeasons       int            `json:"total_seasons"`
	AllSeasons         []int          `json:"all_seasons"`
	MissingSeasons     []int          `json:"missing_seasons"`
	DownloadingSeasons []int          `json:"downloading_seasons"`
	AvailableSeasons   []int          `json:"available_seasons"`
	PendingSeasons     []int          `json:"pending_seasons"`
	SeasonSummary      SeasonSummary  `json:"season_summary"`
}

// seasonRow is the vocabulary-independent view used by buildSeasonInfo.
type seasonRow struct {
	number             int
	status             int
	text               string
	created, updated   string
	available, pending bool
	downloading        bool
}

// SeasonsFromRequest builds season info from a request's seasons, which use
// the request status vocabulary. details is optional.
func SeasonsFromRequest(req *integration.Request, details *integration.MediaDetails) *SeasonInfo {
	if req == nil || len(req.Seasons) == 0 {
		return nil
	}
	rows := make([]seasonRow, 0, len(req.Seasons))
	for _, s := range req.Seasons {
		rows = append(rows, seasonRow{
			number:      s.SeasonNumber,
			status:      int(s.Status),
			text:        s.Status.Text(),
			created:     s.CreatedAt,
			updated:     s.UpdatedAt,
			available:   s.Status == integration.RequestStatusAvailable,
			downloading: s.Status == integration.RequestStatusApproved,
			pending:     s.Status == integration.RequestStatusPending,
		})
	}
	return buildSeasonInfo(rows, details)
}

// SeasonsFromMedia builds season info from a media record's seasons, which
// use the media status vocabulary.
func SeasonsFromMedia(mi *integration.MediaInfo, details *integration.MediaDetails) *SeasonInfo {
	if mi == nil || len(mi.Seasons) == 0 {
		return nil
	}
	rows := make([]seasonRow, 0, len(mi.Seasons))
	for _, s := range mi.Seasons {
		rows = append(rows, seasonRow{
			number:      s.SeasonNumber,
			status:      int(s.Status),
			text:        s.Status.Text(),
			created:     s.CreatedAt,
			updated:     s.UpdatedAt,
			available:   s.Status == integration.MediaStatusAvailable,
			downloading: s.Status == integration.MediaStatusProcessing,
			pending:     s.Status == integration.MediaStatusPending,
		})
	}
	return buildSeasonInfo(rows, details)
}

func buildSeasonInfo(rows []seasonRow, details *integration.MediaDetails) *SeasonInfo {
	requested := map[int]bool{}
	var downloading, available, pending []int
	info := &SeasonInfo{SeasonDetails: make([]SeasonDetail, 0, len(rows))}

	for _, r := range rows {
		if r.number != 0 {
			requested[r.number] = true
			if r.downloading {
				downloading = append(downloading, r.number)
			}
			if r.available {
				available = append(available, r.number)
			}
			if r.pending {
				pending = append(pending, r.number)
			}
		}
		info.SeasonDetails = append(info.SeasonDetails, SeasonDetail{
			SeasonNumber:  r.number,
			Status:        r.status,
			StatusText:    r.text,
			RequestedDate: r.created,
			UpdatedDate:   r.updated,
			IsAvailable:   r.available,
			IsDownloading: r.downloading,
			IsPending:     r.pending,
		})
	}

	info.RequestedSeasons = sortedSet(requested)
	info.SeasonCount = len(info.RequestedSeasons)
	info.HasMultipleSeasons = info.SeasonCount > 1
	info.DownloadingSeasons = sortedUnique(downloading)
	info.AvailableSeasons = sortedUnique(available)
	info.PendingSeasons = sortedUnique(pending)
	info.AllSeasons = []int{}
	info.MissingSeasons = []int{}

	if details != nil && details.NumberOfSeasons > 0 {
		info.TotalSeasons = details.NumberOfSeasons
		for n := 1; n <= details.NumberOfSeasons; n++ {
			info.AllSeasons = append(info.AllSeasons, n)
			if !requested[n] {
				info.MissingSeasons = append(info.MissingSeasons, n)
			}
		}
	}

	info.SeasonSummary = SeasonSummary{
		Requested:      info.SeasonCount,
		TotalAvailable: info.TotalSeasons,
		Missing:        len(info.MissingSeasons),
		Downloading:    len(info.DownloadingSeasons),
		Available:      len(info.AvailableSeasons),
		Pending:        len(info.PendingSeasons),
	}
	return info
}

func sortedSet(set map[int]bool) []int {
	out := make([]int, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

func sortedUnique(ns []int) []int {
	set := make(map[int]bool, len(ns))
	for _, n := range ns {
		set[n] = true
	}
	return sortedSet(set)
}

func sortedInts(ns []int) []int {
	out := make([]int, len(ns))
	copy(out, ns)
	sort.Ints(out)
	return out
}
