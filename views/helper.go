package views

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/GrainArc/LandMap/geokernel"
	"github.com/GrainArc/LandMap/landuse"
	"github.com/GrainArc/LandMap/methods"
	"github.com/GrainArc/LandMap/services"
	"github.com/gin-gonic/gin"
)

// statusFor 错误对应的 HTTP 状态码
func statusFor(err error) int {
	var failure *geokernel.Failure
	switch {
	case errors.Is(err, services.ErrPropertyNotFound), errors.Is(err, landuse.ErrFeatureNotFound):
		return http.StatusNotFound
	case errors.Is(err, landuse.ErrConfirmationRequired), errors.Is(err, landuse.ErrAlwaysVisible):
		return http.StatusConflict
	case errors.Is(err, landuse.ErrUnknownCategory), errors.Is(err, landuse.ErrGeometryKind), errors.Is(err, landuse.ErrNoBoundary):
		return http.StatusBadRequest
	case errors.As(err, &failure):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("[land] %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	body := gin.H{"error": err.Error()}
	if errors.Is(err, landuse.ErrConfirmationRequired) {
		body["confirm"] = true
	}
	c.JSON(status, body)
}

// featureParams 解析 :fid 和 category
func featureParams(c *gin.Context, category string) (landuse.Category, landuse.FeatureID, bool) {
	cat, err := landuse.ParseCategory(category)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return 0, 0, false
	}
	fid, err := strconv.ParseInt(c.Param("fid"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid feature id"})
		return 0, 0, false
	}
	return cat, landuse.FeatureID(fid), true
}

func changesResponse(cs landuse.ChangeSet) []ChangeResponse {
	out := make([]ChangeResponse, 0, len(cs))
	for _, ch := range cs {
		out = append(out, ChangeResponse{Kind: ch.Kind, Category: ch.Category, ID: ch.ID, State: ch.State})
	}
	return out
}

func outcomeResponse(out landuse.Outcome) OutcomeResponse {
	resp := OutcomeResponse{
		Accepted: out.Accepted,
		Clipped:  out.Clipped,
		Reason:   out.Reason,
		Message:  out.Message,
		Changes:  changesResponse(out.Changes),
	}
	if out.Feature != nil {
		resp.Feature = methods.FeatureToGeoJSON(*out.Feature)
	}
	for _, f := range out.CascadeFailed {
		resp.CascadeFailed = append(resp.CascadeFailed, CascadeFailureResponse{Category: f.Category, ID: f.ID, Error: f.Err.Error()})
	}
	return resp
}

func username(name string) string {
	if name == "" {
		return "本地"
	}
	return name
}
