package backup

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cashfolio/cashfolio/internal/config"
	"github.com/cashfolio/cashfolio/internal/utils"
	"github.com/cashfolio/cashfolio/pkg/summary"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const maxSnapshotSize = 32 << 20

type BackupHandler struct {
	service   BackupService
	renderer  *CsvRendererImpl
	generator summary.MonthGenerator
	cloud     *CloudClient
	syncCfg   config.Sync
	clock     utils.Clock
}

func NewBackupHandler(service BackupService, renderer *CsvRendererImpl, generator summary.MonthGenerator, cloud *CloudClient, syncCfg config.Sync, clock utils.Clock) *BackupHandler {
	return &BackupHandler{
		service:   service,
		renderer:  renderer,
		generator: generator,
		cloud:     cloud,
		syncCfg:   syncCfg,
		clock:     clock,
	}
}

// Export streams the full state as JSON, or as a sealed binary blob when a
// passphrase is supplied.
func (handler *BackupHandler) Export(w http.ResponseWriter, r *http.Request) {
	data, err := handler.service.Export(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if passphrase := r.URL.Query().Get("passphrase"); passphrase != "" {
		sealed, err := Seal(data, passphrase)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Disposition", `attachment; filename="cashfolio-snapshot.age"`)
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(sealed); err != nil {
			log.Errorf("failed to write sealed snapshot: %v", err)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="cashfolio-snapshot.json"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Errorf("failed to write snapshot: %v", err)
	}
}

func (handler *BackupHandler) Import(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	data, err := io.ReadAll(io.LimitReader(r.Body, maxSnapshotSize))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if passphrase := r.URL.Query().Get("passphrase"); passphrase != "" {
		data, err = Unseal(data, passphrase)
		if err != nil {
			http.Error(w, "could not unseal snapshot: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	if err := handler.service.Import(r.Context(), data); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ExportMonthCSV renders one reconciled month as a CSV download.
func (handler *BackupHandler) ExportMonthCSV(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	year, err := strconv.Atoi(vars["year"])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	monthNumber, err := strconv.Atoi(vars["month"])
	if err != nil || monthNumber < 1 || monthNumber > 12 {
		http.Error(w, "Invalid month", http.StatusBadRequest)
		return
	}
	month := time.Month(monthNumber)

	led, err := handler.generator.EnsureMonth(r.Context(), year, month)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	cache := summary.RecomputeMonthlyBalances(led, handler.clock.Now())
	rendered, err := handler.renderer.RenderMonth(led, cache, year, month)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+handler.renderer.FileName(year, month)+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(rendered)); err != nil {
		log.Errorf("failed to write csv: %v", err)
	}
}

// Restore pulls a sealed snapshot back from the remote store and imports it.
func (handler *BackupHandler) Restore(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !handler.syncCfg.Enabled {
		http.Error(w, "Cloud sync is not configured", http.StatusConflict)
		return
	}
	passphrase := r.URL.Query().Get("passphrase")
	if passphrase == "" {
		http.Error(w, "A passphrase is required for cloud restore", http.StatusBadRequest)
		return
	}

	sealed, err := handler.cloud.Download(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	data, err := Unseal(sealed, passphrase)
	if err != nil {
		http.Error(w, "could not unseal snapshot: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := handler.service.Import(r.Context(), data); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Upload seals the current snapshot and pushes it to the configured remote
// store.
func (handler *BackupHandler) Upload(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !handler.syncCfg.Enabled {
		http.Error(w, "Cloud sync is not configured", http.StatusConflict)
		return
	}
	passphrase := r.URL.Query().Get("passphrase")
	if passphrase == "" {
		http.Error(w, "A passphrase is required for cloud upload", http.StatusBadRequest)
		return
	}

	data, err := handler.service.Export(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	sealed, err := Seal(data, passphrase)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	name := "cashfolio-" + handler.clock.Now().UTC().Format("20060102-150405") + ".age"
	if err := handler.cloud.Upload(r.Context(), name, sealed); err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
