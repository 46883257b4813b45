package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"iprange/internal/domain"
	"iprange/internal/iprange"
)

type convertRequest struct {
	Range   string `json:"range"`
	Family  string `json:"family,omitempty"`
	Name    string `json:"name,omitempty"`
	Persist bool   `json:"persist,omitempty"`
}

type convertResponse struct {
	ID          string     `json:"id,omitempty"`
	Family      string     `json:"family"`
	Range       string     `json:"range"`
	Subnets     []string   `json:"subnets"`
	SubnetCount int        `json:"subnet_count"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

// handleConvert decomposes an address range into subnets and optionally
// persists the result.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req convertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErr(ctx, w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.Range == "" {
		s.writeErr(ctx, w, http.StatusBadRequest, "range is required", "")
		return
	}
	familyName := req.Family
	if familyName == "" {
		familyName = string(domain.FamilyIPv4)
	}

	conv, ok := iprange.NewConverter(familyName)
	if !ok {
		s.writeErr(ctx, w, http.StatusBadRequest, "unknown family", familyName)
		return
	}
	if err := conv.SetRange(req.Range); err != nil {
		switch {
		case errors.Is(err, iprange.ErrInvalidAddress), errors.Is(err, iprange.ErrInvalidRange):
			s.writeErr(ctx, w, http.StatusBadRequest, err.Error(), "")
		default:
			s.writeErr(ctx, w, http.StatusInternalServerError, "conversion failed", err.Error())
		}
		return
	}

	rangeText, err := conv.RangeText()
	if err != nil {
		s.writeErr(ctx, w, http.StatusInternalServerError, "conversion failed", err.Error())
		return
	}
	subnets, err := conv.Subnets()
	if err != nil {
		s.writeErr(ctx, w, http.StatusInternalServerError, "conversion failed", err.Error())
		return
	}

	if s.metrics != nil {
		s.metrics.RecordConversion(familyName, len(subnets))
	}

	resp := convertResponse{
		Family:      familyName,
		Range:       rangeText,
		Subnets:     subnets,
		SubnetCount: len(subnets),
	}

	if !req.Persist {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	start, end, _ := strings.Cut(rangeText, "-")
	stored, err := s.store.CreateConversion(ctx, domain.CreateConversion{
		Family:    domain.Family(familyName),
		Name:      req.Name,
		RangeText: rangeText,
		StartAddr: start,
		EndAddr:   end,
		Subnets:   subnets,
		Source:    domain.SourceManual,
	})
	if err != nil {
		s.writeStoreErr(ctx, w, err)
		return
	}

	resp.ID = stored.ID
	resp.CreatedAt = &stored.CreatedAt
	s.logger.InfoContext(ctx, "conversion stored",
		"id", stored.ID, "family", familyName, "subnets", len(subnets))
	writeJSON(w, http.StatusCreated, resp)
}
