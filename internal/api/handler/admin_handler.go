package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/lexops/notify/internal/legacy"
)

// ModeSwitcher toggles routing between dual-write and legacy-only.
// *legacy.HybridPublisher satisfies it.
type ModeSwitcher interface {
	SetLegacyOnly(on bool)
	LegacyOnly() bool
}

// Migrator drains the legacy store. *legacy.Migrator satisfies it.
type Migrator interface {
	Migrate(ctx context.Context, tenantID string) (legacy.MigrationResult, error)
}

// AdminHandler exposes the legacy-transition controls.
type AdminHandler struct {
	mode     ModeSwitcher
	migrator Migrator
	logger   *zap.Logger
}

func NewAdminHandler(mode ModeSwitcher, migrator Migrator, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{mode: mode, migrator: migrator, logger: logger}
}

// SetLegacyMode handles PUT /api/v1/admin/legacy/mode
//
// @Summary  Switch between dual-write and legacy-only routing
// @Tags     admin
// @Accept   json
// @Produce  json
// @Param    body  body      map[string]bool  true  "{\"legacyOnly\": bool}"
// @Success  200   {object}  map[string]bool
// @Router   /api/v1/admin/legacy/mode [put]
func (h *AdminHandler) SetLegacyMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LegacyOnly *bool `json:"legacyOnly"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.LegacyOnly == nil {
		respondError(w, http.StatusBadRequest, "body must be {\"legacyOnly\": bool}")
		return
	}
	h.mode.SetLegacyOnly(*req.LegacyOnly)
	respondJSON(w, http.StatusOK, map[string]bool{"legacyOnly": h.mode.LegacyOnly()})
}

// MigrateLegacy handles POST /api/v1/admin/legacy/migrate
//
// @Summary  Re-publish a tenant's legacy notifications through the new pipeline
// @Tags     admin
// @Accept   json
// @Produce  json
// @Param    body  body      map[string]string  true  "{\"tenantId\": string}"
// @Success  200   {object}  legacy.MigrationResult
// @Router   /api/v1/admin/legacy/migrate [post]
func (h *AdminHandler) MigrateLegacy(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TenantID string `json:"tenantId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TenantID == "" {
		respondError(w, http.StatusBadRequest, "tenantId is required")
		return
	}

	result, err := h.migrator.Migrate(r.Context(), req.TenantID)
	if err != nil {
		h.logger.Error("legacy migration failed",
			zap.String("tenant_id", req.TenantID),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, "migration failed")
		return
	}
	respondJSON(w, http.StatusOK, result)
}
