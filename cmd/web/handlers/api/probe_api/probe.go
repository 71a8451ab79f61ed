// Package probe_api checks whether a remote video can be looked up before a
// full generation run.
package probe_api

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"thirdcoast.systems/gifmoments/cmd/web/handlers/common"
	"thirdcoast.systems/gifmoments/internal/acquire"
	"thirdcoast.systems/gifmoments/internal/pipeline"
)

type Prober interface {
	Probe(ctx context.Context, rawURL string) (*acquire.RemoteMetadata, error)
}

type probeResponse struct {
	Success  bool                    `json:"success"`
	Metadata *acquire.RemoteMetadata `json:"metadata"`
}

// HandleProbe looks up {"youtubeUrl"} without downloading it. Lookup failures
// are classified the same way acquisition failures are.
func HandleProbe(p Prober) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req struct {
			URL string `json:"youtubeUrl"`
		}
		if err := c.Bind(&req); err != nil {
			return common.ErrBadRequest("invalid json")
		}
		req.URL = strings.TrimSpace(req.URL)
		if req.URL == "" {
			return c.JSON(http.StatusBadRequest, pipeline.NewFailureResponse(&pipeline.InputError{
				Field: "youtubeUrl", Message: "youtubeUrl is required",
			}))
		}

		meta, err := p.Probe(c.Request().Context(), req.URL)
		if err != nil {
			aerr := acquire.NewAcquisitionError(req.URL, "", []acquire.AttemptFailure{{Strategy: "probe", Err: err}})
			return c.JSON(http.StatusUnprocessableEntity, pipeline.NewFailureResponse(aerr))
		}
		return c.JSON(http.StatusOK, probeResponse{Success: true, Metadata: meta})
	}
}
