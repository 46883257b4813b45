package api

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"iprange/internal/domain"
	"iprange/internal/storage"
)

type listConversionsResponse struct {
	Conversions []domain.Conversion `json:"conversions"`
	Count       int                 `json:"count"`
}

// handleListConversions lists stored conversions, optionally filtered by
// ?family=, ?source= (prefix match), ?limit= and ?offset=.
func (s *Server) handleListConversions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	opts := storage.ListOptions{
		SourcePrefix: q.Get("source"),
	}
	if fam := q.Get("family"); fam != "" {
		family := domain.Family(fam)
		if !family.Valid() {
			s.writeErr(ctx, w, http.StatusBadRequest, "unknown family", fam)
			return
		}
		opts.Family = family
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeErr(ctx, w, http.StatusBadRequest, "invalid limit", v)
			return
		}
		opts.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeErr(ctx, w, http.StatusBadRequest, "invalid offset", v)
			return
		}
		opts.Offset = n
	}

	convs, err := s.store.ListConversions(ctx, opts)
	if err != nil {
		s.writeStoreErr(ctx, w, err)
		return
	}
	writeJSON(w, http.StatusOK, listConversionsResponse{Conversions: convs, Count: len(convs)})
}

func (s *Server) handleGetConversion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		s.writeErr(ctx, w, http.StatusBadRequest, "invalid conversion id", id)
		return
	}

	conv, ok, err := s.store.GetConversion(ctx, id)
	if err != nil {
		s.writeStoreErr(ctx, w, err)
		return
	}
	if !ok {
		s.writeErr(ctx, w, http.StatusNotFound, "conversion not found", id)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (s *Server) handleDeleteConversion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		s.writeErr(ctx, w, http.StatusBadRequest, "invalid conversion id", id)
		return
	}

	deleted, err := s.store.DeleteConversion(ctx, id)
	if err != nil {
		s.writeStoreErr(ctx, w, err)
		return
	}
	if !deleted {
		s.writeErr(ctx, w, http.StatusNotFound, "conversion not found", id)
		return
	}
	s.logger.InfoContext(ctx, "conversion deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}
