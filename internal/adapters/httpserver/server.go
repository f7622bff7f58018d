package httpserver

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/ERPlora/module-customers/internal/domain"
	"github.com/ERPlora/module-customers/internal/usecase"
)

type Server struct {
	mux       *http.ServeMux
	tmpl      *template.Template
	customers *usecase.CustomerUC
	basePath  string
	ping      func(context.Context) error
}

// New monta el módulo bajo basePath (p. ej. /modules/customers). ping es
// opcional y alimenta /health.
func New(t *template.Template, customers *usecase.CustomerUC, basePath string, ping func(context.Context) error) http.Handler {
	base := strings.TrimSuffix(basePath, "/")
	s := &Server{tmpl: t, customers: customers, basePath: base, ping: ping, mux: http.NewServeMux()}
	s.routes()
	return Chain(s.mux, RequestID, Logging, Recovery)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.handleHealth)

	s.mux.HandleFunc(s.basePath+"/api/list/", s.apiList)
	s.mux.HandleFunc(s.basePath+"/create/", s.handleCreate)
	s.mux.HandleFunc(s.basePath+"/export/", s.handleExport)

	// El resto de rutas llevan id numérico: /{id}/, /{id}/edit/,
	// /{id}/delete/, /{id}/update-stats/
	s.mux.HandleFunc(s.basePath+"/", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, s.basePath+"/")
	if rest == "" {
		s.handleList(w, r)
		return
	}
	parts := strings.Split(strings.TrimSuffix(rest, "/"), "/")
	id64, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	id := uint(id64)
	switch {
	case len(parts) == 1:
		s.handleDetail(w, r, id)
	case len(parts) == 2 && parts[1] == "edit":
		s.handleEdit(w, r, id)
	case len(parts) == 2 && parts[1] == "delete":
		s.handleDelete(w, r, id)
	case len(parts) == 2 && parts[1] == "update-stats":
		s.handleUpdateStats(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

// renderMode decide página completa o solo fragmento. Se resuelve una vez
// por request a partir de la cabecera HX-Request de htmx.
type renderMode int

const (
	modeFull renderMode = iota
	modePartial
)

func resolveMode(r *http.Request) renderMode {
	if r.Header.Get("HX-Request") == "true" {
		return modePartial
	}
	return modeFull
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	active, inactive, err := s.customers.Counts(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("contar clientes")
		http.Error(w, "err", 500)
		return
	}
	data := map[string]any{
		"Title":         "Clientes",
		"BasePath":      s.basePath,
		"ActiveCount":   active,
		"InactiveCount": inactive,
	}
	s.renderPage(w, resolveMode(r), "list", data)
}

type customerDTO struct {
	ID              uint    `json:"id"`
	Name            string  `json:"name"`
	Phone           string  `json:"phone"`
	Email           string  `json:"email"`
	TaxID           string  `json:"tax_id"`
	TotalSpent      float64 `json:"total_spent"`
	VisitCount      int     `json:"visit_count"`
	AveragePurchase float64 `json:"average_purchase"`
	LastPurchase    *string `json:"last_purchase"`
	IsActive        bool    `json:"is_active"`
	CreatedAt       string  `json:"created_at"`
}

func toDTO(c domain.Customer) customerDTO {
	dto := customerDTO{
		ID:              c.ID,
		Name:            c.Name,
		Phone:           c.Phone,
		Email:           c.Email,
		TaxID:           c.TaxID,
		TotalSpent:      c.TotalSpent,
		VisitCount:      c.VisitCount,
		AveragePurchase: c.AveragePurchase(),
		IsActive:        c.IsActive,
		CreatedAt:       c.CreatedAt.Format("2006-01-02"),
	}
	if c.LastPurchaseAt != nil {
		lp := c.LastPurchaseAt.Format("2006-01-02 15:04")
		dto.LastPurchase = &lp
	}
	return dto
}

func (s *Server) apiList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	list, err := s.customers.List(r.Context(), domain.ListFilter{
		Search: q.Get("search"),
		Status: q.Get("status"),
	})
	if err != nil {
		log.Error().Err(err).Msg("listar clientes")
		writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "error interno"})
		return
	}
	dtos := make([]customerDTO, 0, len(list))
	for _, c := range list {
		dtos = append(dtos, toDTO(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "customers": dtos})
}

func formInput(r *http.Request) usecase.CustomerInput {
	return usecase.CustomerInput{
		Name:    r.FormValue("name"),
		Email:   r.FormValue("email"),
		Phone:   r.FormValue("phone"),
		Address: r.FormValue("address"),
		TaxID:   r.FormValue("tax_id"),
		Notes:   r.FormValue("notes"),
	}
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		data := map[string]any{"Title": "Nuevo cliente", "BasePath": s.basePath}
		s.renderPage(w, resolveMode(r), "form", data)
	case http.MethodPost:
		c, err := s.customers.Create(r.Context(), formInput(r))
		if err != nil {
			if errors.Is(err, domain.ErrNameRequired) {
				writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": err.Error()})
				return
			}
			log.Error().Err(err).Msg("crear cliente")
			writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": "no se pudo guardar el cliente"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":     true,
			"message":     "Cliente creado correctamente",
			"customer_id": c.ID,
		})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request, id uint) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	c, err := s.customers.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		log.Error().Err(err).Uint("customer_id", id).Msg("cargar cliente")
		http.Error(w, "err", 500)
		return
	}
	purchases, err := s.customers.RecentPurchases(r.Context(), c, 0)
	if err != nil {
		log.Error().Err(err).Uint("customer_id", id).Msg("compras recientes")
		purchases = nil
	}
	data := map[string]any{
		"Title":     c.Name,
		"BasePath":  s.basePath,
		"Customer":  c,
		"Purchases": purchases,
	}
	s.renderPage(w, resolveMode(r), "detail", data)
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request, id uint) {
	switch r.Method {
	case http.MethodGet:
		c, err := s.customers.Get(r.Context(), id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			log.Error().Err(err).Uint("customer_id", id).Msg("cargar cliente")
			http.Error(w, "err", 500)
			return
		}
		data := map[string]any{"Title": "Editar cliente", "BasePath": s.basePath, "Customer": c}
		s.renderPage(w, resolveMode(r), "form", data)
	case http.MethodPost:
		isActive := r.FormValue("is_active") == "on"
		_, err := s.customers.Update(r.Context(), id, formInput(r), isActive)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrNotFound):
				writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": "Cliente no encontrado"})
			case errors.Is(err, domain.ErrNameRequired):
				writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": err.Error()})
			default:
				log.Error().Err(err).Uint("customer_id", id).Msg("actualizar cliente")
				writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": "no se pudo guardar el cliente"})
			}
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Cliente actualizado correctamente"})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request, id uint) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if _, err := s.customers.SoftDelete(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": "Cliente no encontrado"})
			return
		}
		log.Error().Err(err).Uint("customer_id", id).Msg("desactivar cliente")
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": "no se pudo guardar el cliente"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Cliente desactivado correctamente"})
}

func (s *Server) handleUpdateStats(w http.ResponseWriter, r *http.Request, id uint) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	c, err := s.customers.UpdateStats(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]any{"success": false, "error": "Cliente no encontrado"})
			return
		}
		log.Error().Err(err).Uint("customer_id", id).Msg("actualizar estadísticas")
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": "no se pudieron actualizar las estadísticas"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"total_spent":      c.TotalSpent,
		"visit_count":      c.VisitCount,
		"average_purchase": c.AveragePurchase(),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	list, err := s.customers.ExportActive(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("exportar clientes")
		http.Error(w, "err", 500)
		return
	}
	if strings.ToLower(r.URL.Query().Get("format")) == "xlsx" {
		s.exportXLSX(w, list)
		return
	}
	s.exportCSV(w, list)
}

var exportHeader = []string{"Name", "Email", "Phone", "Tax ID", "Total Spent", "Visit Count", "Created At"}

func exportRow(c domain.Customer) []string {
	return []string{
		c.Name,
		c.Email,
		c.Phone,
		c.TaxID,
		fmt.Sprintf("%.2f", c.TotalSpent),
		strconv.Itoa(c.VisitCount),
		c.CreatedAt.Format("2006-01-02"),
	}
}

func (s *Server) exportCSV(w http.ResponseWriter, list []domain.Customer) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=customers_%s.csv", time.Now().Format("20060102")))
	cw := csv.NewWriter(w)
	_ = cw.Write(exportHeader)
	for _, c := range list {
		_ = cw.Write(exportRow(c))
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		log.Error().Err(err).Msg("export csv")
	}
}

func (s *Server) exportXLSX(w http.ResponseWriter, list []domain.Customer) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, h := range exportHeader {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	for i, c := range list {
		row := i + 2
		values := []any{c.Name, c.Email, c.Phone, c.TaxID, c.TotalSpent, c.VisitCount, c.CreatedAt.Format("2006-01-02")}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=customers_%s.xlsx", time.Now().Format("20060102")))
	if _, err := f.WriteTo(w); err != nil {
		log.Error().Err(err).Msg("export xlsx")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.ping != nil {
		if err := s.ping(r.Context()); err != nil {
			log.Error().Err(err).Msg("health")
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) renderPage(w http.ResponseWriter, mode renderMode, page string, data any) {
	name := page + ".html"
	if mode == modePartial {
		name = page + "_content.html"
	}
	s.render(w, name, data)
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tmpl.ExecuteTemplate(w, name, data); err != nil {
		log.Error().Err(err).Str("tpl", name).Msg("render")
		http.Error(w, "tpl", 500)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
