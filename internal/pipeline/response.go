package pipeline

import (
	"errors"

	"github.com/google/uuid"
	"thirdcoast.systems/gifmoments/internal/acquire"
	"thirdcoast.systems/gifmoments/internal/media"
	"thirdcoast.systems/gifmoments/internal/quality"
)

type GIF struct {
	ID         uuid.UUID `json:"id"`
	Caption    string    `json:"caption"`
	StartTime  float64   `json:"startTime"`
	EndTime    float64   `json:"endTime"`
	Size       int64     `json:"size"`
	HasCaption bool      `json:"hasCaption"`
	URL        string    `json:"url"`
}

// SuccessResponse is the body of a completed run. ProcessingTime is in
// milliseconds.
type SuccessResponse struct {
	Success        bool                   `json:"success"`
	GIFs           []GIF                  `json:"gifs"`
	ProcessingTime int64                  `json:"processingTime"`
	VideoInfo      media.VideoInfo        `json:"videoInfo"`
	CaptionSource  media.TranscriptSource `json:"captionSource"`
	Errors         []string               `json:"errors,omitempty"`
	Quality        *quality.Report        `json:"quality,omitempty"`
}

type FailureResponse struct {
	Success     bool     `json:"success"`
	Error       string   `json:"error"`
	Details     []string `json:"details,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// NewSuccessResponse builds the response body; urlFor maps an artifact id to
// its retrieval URL.
func NewSuccessResponse(r *Result, urlFor func(uuid.UUID) string) SuccessResponse {
	gifs := make([]GIF, 0, len(r.Artifacts))
	for _, a := range r.Artifacts {
		gifs = append(gifs, GIF{
			ID:         a.ID,
			Caption:    a.Caption,
			StartTime:  a.Start,
			EndTime:    a.End,
			Size:       a.SizeBytes,
			HasCaption: a.HasCaption,
			URL:        urlFor(a.ID),
		})
	}
	q := r.Quality
	return SuccessResponse{
		Success:        true,
		GIFs:           gifs,
		ProcessingTime: r.Elapsed.Milliseconds(),
		VideoInfo:      r.Info,
		CaptionSource:  r.CaptionSource,
		Errors:         r.Errors,
		Quality:        &q,
	}
}

// NewFailureResponse describes err for the caller. Errors outside the
// pipeline taxonomy get a generic message.
func NewFailureResponse(err error) FailureResponse {
	var (
		inputErr  *InputError
		acqErr    *acquire.AcquisitionError
		renderErr *RenderFailure
	)
	switch {
	case errors.As(err, &inputErr):
		return FailureResponse{Error: inputErr.Message}
	case errors.As(err, &acqErr):
		return FailureResponse{
			Error:       acqErr.Message,
			Details:     acqErr.Details(),
			Suggestions: acqErr.Suggestions,
		}
	case errors.As(err, &renderErr):
		return FailureResponse{
			Error:   "none of the GIFs could be rendered",
			Details: renderErr.Errors,
		}
	default:
		return FailureResponse{Error: "internal error while generating GIFs"}
	}
}
