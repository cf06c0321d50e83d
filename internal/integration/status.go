package integration

import "fmt"

// MediaStatus is the availability of a title as reported in mediaInfo.status,
// media season statuses and the /media endpoint.
type MediaStatus int

const (
	MediaStatusUnknown            MediaStatus = 1
	MediaStatusPending            MediaStatus = 2
	MediaStatusProcessing         MediaStatus = 3
	MediaStatusPartiallyAvailable MediaStatus = 4
	MediaStatusAvailable          MediaStatus = 5
	MediaStatusFailed             MediaStatus = 7
)

var mediaStatusKeys = map[MediaStatus]string{
	MediaStatusUnknown:            "unknown",
	MediaStatusPending:            "pending",
	MediaStatusProcessing:         "processing",
	MediaStatusPartiallyAvailable: "partially_available",
	MediaStatusAvailable:          "available",
	MediaStatusFailed:             "failed",
}

var mediaStatusTexts = map[MediaStatus]string{
	MediaStatusUnknown:            "Unknown",
	MediaStatusPending:            "Pending Approval",
	MediaStatusProcessing:         "Processing/Downloading",
	MediaStatusPartiallyAvailable: "Partially Available",
	MediaStatusAvailable:          "Available in Library",
	MediaStatusFailed:             "Failed/Unavailable",
}

// Key returns the machine-readable status key, "unknown" for unmapped codes.
func (s MediaStatus) Key() string {
	if k, ok := mediaStatusKeys[s]; ok {
		return k
	}
	return "unknown"
}

// Text returns the human-readable status, "Status N" for unmapped codes.
func (s MediaStatus) Text() string {
	if t, ok := mediaStatusTexts[s]; ok {
		return t
	}
	return fmt.Sprintf("Status %d", int(s))
}

// OrUnknown maps the zero value (field absent in the payload) to MediaStatusUnknown.
func (s MediaStatus) OrUnknown() MediaStatus {
	if s == 0 {
		return MediaStatusUnknown
	}
	return s
}

// RequestStatus is the approval state of a request or a requested season.
// Its codes overlap MediaStatus numerically with different meanings.
type RequestStatus int

const (
	RequestStatusPending   RequestStatus = 1
	RequestStatusApproved  RequestStatus = 2
	RequestStatusDeclined  RequestStatus = 3
	RequestStatusFailed    RequestStatus = 4
	RequestStatusAvailable RequestStatus = 5
)

var requestStatusKeys = map[RequestStatus]string{
	RequestStatusPending:   "pending",
	RequestStatusApproved:  "approved",
	RequestStatusDeclined:  "declined",
	RequestStatusFailed:    "failed",
	RequestStatusAvailable: "available",
}

var requestStatusTexts = map[RequestStatus]string{
	RequestStatusPending:   "Pending Approval",
	RequestStatusApproved:  "Approved & Downloading",
	RequestStatusDeclined:  "Declined",
	RequestStatusFailed:    "Failed",
	RequestStatusAvailable: "Available",
}

// Key returns the machine-readable status key, "unknown" for unmapped codes.
func (s RequestStatus) Key() string {
	if k, ok := requestStatusKeys[s]; ok {
		return k
	}
	return "unknown"
}

// Text returns the human-readable status, "Status N" for unmapped codes.
func (s RequestStatus) Text() string {
	if t, ok := requestStatusTexts[s]; ok {
		return t
	}
	return fmt.Sprintf("Status %d", int(s))
}

// OrPending maps the zero value (field absent) to RequestStatusPending.
func (s RequestStatus) OrPending() RequestStatus {
	if s == 0 {
		return RequestStatusPending
	}
	return s
}

// Media types as used in Overseerr paths and payloads.
const (
	MediaTypeMovie = "movie"
	MediaTypeTV    = "tv"
)
