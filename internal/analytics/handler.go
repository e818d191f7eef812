package analytics

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"queueflow/internal/auth"
	"queueflow/internal/servicepoint"
)

type Handler struct {
	Aggregator *Aggregator
}

// Report godoc
//
// @Summary      Queue analytics for the caller's organization
// @Description  Staff only. Terminal entries from deleted service points are included.
// @Tags         Staff
// @Produce      json
// @Security     BearerAuth
// @Param        window_days query int false "Window in days, default 7"
// @Param        service_point_id query int false "Narrow to one service point"
// @Success      200 {object} Report
// @Router       /api/queues/analytics [get]
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	user := auth.FromContext(r.Context())

	orgType := user.OrgType
	if !servicepoint.ValidOrgType(orgType) {
		orgType = servicepoint.OrgGeneric
	}

	windowDays, _ := strconv.Atoi(r.URL.Query().Get("window_days"))
	servicePointID, _ := strconv.ParseInt(r.URL.Query().Get("service_point_id"), 10, 64)

	report, err := h.Aggregator.Report(r.Context(), orgType, servicePointID, windowDays)
	if err != nil {
		logrus.Errorf("analytics report: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}
