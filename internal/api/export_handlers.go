package api

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"iprange/internal/domain"
	"iprange/internal/storage"
)

// handleExport streams all stored conversions as CSV, one row per subnet.
// Accepts the same ?family= and ?source= filters as the list endpoint.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	opts := storage.ListOptions{SourcePrefix: q.Get("source")}
	if fam := q.Get("family"); fam != "" {
		family := domain.Family(fam)
		if !family.Valid() {
			s.writeErr(ctx, w, http.StatusBadRequest, "unknown family", fam)
			return
		}
		opts.Family = family
	}

	convs, err := s.store.ListConversions(ctx, opts)
	if err != nil {
		s.writeStoreErr(ctx, w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="conversions.csv"`)

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"id", "family", "name", "range", "source", "subnet_index", "subnet", "created_at"})
	for _, conv := range convs {
		created := conv.CreatedAt.UTC().Format(time.RFC3339)
		for i, subnet := range conv.Subnets {
			_ = cw.Write([]string{
				conv.ID,
				string(conv.Family),
				conv.Name,
				conv.RangeText,
				conv.Source,
				strconv.Itoa(i),
				subnet,
				created,
			})
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		s.logger.ErrorContext(ctx, "csv export failed", appendRequestID(ctx, []any{"error", err.Error()})...)
	}
}
