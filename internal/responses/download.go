package responses

import (
	"sort"

	"github.com/mescon/Hassarr/internal/integration"
)

// EpisodeInfo describes the episode a TV download belongs to.
type EpisodeInfo struct {
	SeasonNumber     int     `json:"season_number"`
	EpisodeNumber    int     `json:"episode_number"`
	EpisodeTitle     string  `json:"episode_title"`
	AirDate          string  `json:"air_date"`
	Runtime          int     `json:"runtime"`
	Overview         string  `json:"overview"`
	DownloadProgress float64 `json:"download_progress"`
	TimeLeft         string  `json:"time_left"`
}

// Download is one formatted queue entry.
type Download struct {
	Title               string       `json:"title"`
	Status              string       `json:"status"`
	ProgressPercent     float64      `json:"progress_percent"`
	TimeLeft            string       `json:"time_left"`
	EstimatedCompletion string       `json:"estimated_completion"`
	SizeTotalGB         float64      `json:"size_total_gb"`
	SizeRemainingGB     float64      `json:"size_remaining_gb"`
	SizeDownloadedGB    float64      `json:"size_downloaded_gb"`
	DownloadID          string       `json:"download_id"`
	ExternalID          int64        `json:"external_id"`
	MediaType           string       `json:"media_type"`
	EpisodeInfo         *EpisodeInfo `json:"episode_info,omitempty"`
}

// DownloadInfo aggregates all regular and 4K downloads of a title.
type DownloadInfo struct {
	ActiveDownloads        int           `json:"active_downloads"`
	OverallProgressPercent float64       `json:"overall_progress_percent"`
	TotalSizeGB            float64       `json:"total_size_gb"`
	TotalRemainingGB       float64       `json:"total_remaining_gb"`
	PrimaryDownload        *Download     `json:"primary_download"`
	AllDownloads           []Download    `json:"all_downloads"`
	Has4kDownloads         bool          `json:"has_4k_downloads"`
	EpisodesDownloading    []EpisodeInfo `json:"episodes_downloading"`
	SeasonsDownloading     []int         `json:"seasons_downloading"`
	EpisodeCount           int           `json:"episode_count"`
}

func percent(size, left int64) float64 {
	if size <= 0 {
		return 0
	}
	return round(integration.DownloadStatus{Size: size, SizeLeft: left}.Progress()*100, 1)
}

func formatDownload(d integration.DownloadStatus) Download {
	pct := percent(d.Size, d.SizeLeft)
	var downloaded int64
	if d.Size > 0 {
		downloaded = d.Size - d.SizeLeft
	}
	out := Download{
		Title:               orDefault(d.Title, "Unknown"),
		Status:              orDefault(d.Status, "unknown"),
		ProgressPercent:     pct,
		TimeLeft:            orDefault(d.TimeLeft, "Unknown"),
		EstimatedCompletion: orDefault(d.EstimatedCompletionTime, "Unknown"),
		SizeTotalGB:         toGB(d.Size),
		SizeRemainingGB:     toGB(d.SizeLeft),
		SizeDownloadedGB:    toGB(downloaded),
		DownloadID:          d.DownloadID,
		ExternalID:          d.ExternalID,
		MediaType:           orDefault(d.MediaType, "unknown"),
	}
	if ep := d.Episode; ep != nil {
		out.EpisodeInfo = &EpisodeInfo{
			SeasonNumber:     ep.SeasonNumber,
			EpisodeNumber:    ep.EpisodeNumber,
			EpisodeTitle:     orDefault(ep.Title, "Unknown Episode"),
			AirDate:          orDefault(ep.AirDate, "Unknown"),
			Runtime:          ep.Runtime,
			Overview:         truncate(ep.Overview, 100, "..."),
			DownloadProgress: pct,
			TimeLeft:         out.TimeLeft,
		}
	}
	return out
}

// BuildDownloadInfo summarizes the download queue of mi. It returns nil when
// nothing is downloading.
func BuildDownloadInfo(mi *integration.MediaInfo) *DownloadInfo {
	all := mi.AllDownloads()
	if len(all) == 0 {
		return nil
	}

	info := &DownloadInfo{
		ActiveDownloads:     len(all),
		AllDownloads:        make([]Download, 0, len(all)),
		Has4kDownloads:      len(mi.DownloadStatus4k) > 0,
		EpisodesDownloading: []EpisodeInfo{},
	}
	seasons := map[int]bool{}
	var totalSize, totalLeft int64

	for _, d := range all {
		f := formatDownload(d)
		if f.EpisodeInfo != nil {
			if f.EpisodeInfo.SeasonNumber != 0 {
				seasons[f.EpisodeInfo.SeasonNumber] = true
			}
			info.EpisodesDownloading = append(info.EpisodesDownloading, *f.EpisodeInfo)
		}
		info.AllDownloads = append(info.AllDownloads, f)
		totalSize += d.Size
		totalLeft += d.SizeLeft
	}

	info.OverallProgressPercent = percent(totalSize, totalLeft)
	info.TotalSizeGB = toGB(totalSize)
	info.TotalRemainingGB = toGB(totalLeft)
	info.EpisodeCount = len(info.EpisodesDownloading)

	info.SeasonsDownloading = make([]int, 0, len(seasons))
	for s := range seasons {
		info.SeasonsDownloading = append(info.SeasonsDownloading, s)
	}
	sort.Ints(info.SeasonsDownloading)

	// Prefer the first download that reports a remaining time.
	info.PrimaryDownload = &info.AllDownloads[0]
	for i := range info.AllDownloads {
		if tl := info.AllDownloads[i].TimeLeft; tl != "" && tl != "Unknown" {
			info.PrimaryDownload = &info.AllDownloads[i]
			break
		}
	}
	return info
}
