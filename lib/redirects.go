package site

import (
	"encoding/json"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/theemilyd/react-riftsurge/handlers"
	"github.com/theemilyd/react-riftsurge/triemux"
)

const (
	RouteTypePrefix = "prefix"
	RouteTypeExact  = "exact"
)

const (
	SegmentsModePreserve = "preserve"
	SegmentsModeIgnore   = "ignore"
)

const (
	HandlerTypeRedirect = "redirect"
	HandlerTypeGone     = "gone"
)

// Redirect is one line of the legacy redirects file.
type Redirect struct {
	IncomingPath *string
	RouteType    *string
	RedirectTo   *string
	SegmentsMode *string
	SchemaName   *string
	Details      *string
}

func (r *Redirect) handlerType() string {
	switch {
	case r.SchemaName != nil && *r.SchemaName == "redirect":
		return HandlerTypeRedirect
	case r.gone():
		return HandlerTypeGone
	default:
		return ""
	}
}

// gone is true for "gone" entries whose details carry nothing worth
// showing. Anything else in details is not a plain 410.
func (r *Redirect) gone() bool {
	if r.SchemaName == nil || *r.SchemaName != "gone" {
		return false
	}
	if r.Details == nil {
		return true
	}

	var detailsMap map[string]interface{}
	if err := json.Unmarshal([]byte(*r.Details), &detailsMap); err != nil {
		return true
	}
	for _, value := range detailsMap {
		if value != nil && value != "" {
			return false
		}
	}
	return true
}

func (r *Redirect) segmentsMode() string {
	if r.SegmentsMode == nil {
		if r.RouteType != nil && *r.RouteType == RouteTypePrefix {
			return SegmentsModePreserve
		}
		return SegmentsModeIgnore
	}
	return *r.SegmentsMode
}

func shouldPreserveSegments(routeType, segmentsMode string) bool {
	switch routeType {
	case RouteTypeExact:
		return segmentsMode == SegmentsModePreserve
	case RouteTypePrefix:
		return segmentsMode != SegmentsModeIgnore
	default:
		return false
	}
}

// addRedirect registers r on mux. Entries that cannot be served are logged
// and skipped, as are entries that would shadow one of reserved.
func addRedirect(mux *triemux.Mux, r *Redirect, reserved map[string]bool, logger zerolog.Logger) {
	if r.IncomingPath == nil || r.RouteType == nil {
		logger.Warn().Interface("redirect", r).Msg("ignoring redirect with nil fields")
		return
	}

	prefix := *r.RouteType == RouteTypePrefix

	incomingURL, err := url.Parse(*r.IncomingPath)
	if err != nil {
		logger.Warn().Err(err).Str("incoming_path", *r.IncomingPath).Msg("ignoring redirect with invalid incoming path")
		return
	}
	if !prefix && reserved[incomingURL.Path] {
		logger.Warn().Str("incoming_path", incomingURL.Path).Msg("ignoring redirect that shadows a site route")
		return
	}

	switch r.handlerType() {
	case HandlerTypeRedirect:
		if r.RedirectTo == nil {
			logger.Warn().Str("incoming_path", *r.IncomingPath).Msg("ignoring redirect with nil redirect_to")
			return
		}
		preserve := shouldPreserveSegments(*r.RouteType, r.segmentsMode())
		mux.Handle(incomingURL.Path, prefix, handlers.NewLegacyRedirect(incomingURL.Path, *r.RedirectTo, preserve, logger))
	case HandlerTypeGone:
		mux.Handle(incomingURL.Path, prefix, handlers.NewRetiredHandler(logger))
	default:
		logger.Warn().Interface("redirect", r).Msg("ignoring entry that is neither a redirect nor gone")
	}
}
