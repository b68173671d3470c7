package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/couchcryptid/simtanka-service/internal/domain"
	"github.com/couchcryptid/simtanka-service/internal/simulation"
	"github.com/couchcryptid/simtanka-service/internal/tanka"
	"github.com/go-playground/validator/v10"
)

const maxBodyBytes = 8 << 20

var validate = validator.New()

// TankService is the application surface served under /api/v1.
type TankService interface {
	Status(ctx context.Context) (tanka.Status, error)
	GetSystem(ctx context.Context) (domain.System, error)
	UpdateSystem(ctx context.Context, sys domain.System) error
	GetDemand(ctx context.Context) (domain.DemandSchedule, error)
	UpdateDemand(ctx context.Context, d domain.DemandSchedule) error
	ImportRainfall(ctx context.Context, records []domain.DailyRainfallRecord) (int, error)
	RainfallSummary(ctx context.Context) (tanka.RainfallSummary, error)
	EstimateReliability(ctx context.Context, override *domain.System) (domain.EstimateResult, error)
	CheckPerformance(ctx context.Context, progress tanka.ProgressFunc) (simulation.SweepOutcome, error)
	SizeForBudget(ctx context.Context, maxTankM3 float64, progress tanka.ProgressFunc) (domain.SizingReport, error)
	GetReport(ctx context.Context, id string) (domain.SizingReport, error)
	SaveOptimum(ctx context.Context, reportID string) (domain.EstimateResult, error)
}

var errorStatuses = []struct {
	err    error
	status int
}{
	{domain.ErrInvalidInput, http.StatusBadRequest},
	{domain.ErrInvalidRecord, http.StatusBadRequest},
	{domain.ErrNoUsableYears, http.StatusConflict},
	{domain.ErrNoUsableDemandDays, http.StatusConflict},
	{domain.ErrInsufficientData, http.StatusConflict},
	{tanka.ErrNoRecommendation, http.StatusConflict},
	{tanka.ErrNotConfigured, http.StatusNotFound},
	{tanka.ErrNotFound, http.StatusNotFound},
}

type systemRequest struct {
	CatchmentAreaM2   *float64 `json:"catchment_area_m2" validate:"required,gte=0"`
	RunoffCoefficient *float64 `json:"runoff_coefficient" validate:"required,gte=0,lte=1"`
	TankCapacityM3    *float64 `json:"tank_capacity_m3" validate:"required,gte=0"`
}

func (r systemRequest) toSystem() domain.System {
	return domain.System{
		CatchmentAreaM2:   *r.CatchmentAreaM2,
		RunoffCoefficient: *r.RunoffCoefficient,
		TankCapacityM3:    *r.TankCapacityM3,
	}
}

type demandRequest struct {
	Demand []float64 `json:"demand" validate:"len=12,dive,gte=0"`
}

type demandResponse struct {
	Demand         domain.DemandSchedule `json:"demand"`
	AnnualDemandM3 float64               `json:"annual_demand_m3"`
	BudgetIsSet    bool                  `json:"budget_is_set"`
}

type recordRequest struct {
	Year    int      `json:"year" validate:"gte=1,lte=9999"`
	Month   int      `json:"month" validate:"gte=1,lte=12"`
	Day     int      `json:"day" validate:"gte=1,lte=31"`
	DepthMM *float64 `json:"depth_mm" validate:"required,gte=0"`
}

type rainfallRequest struct {
	Records []recordRequest `json:"records" validate:"required,min=1,dive"`
}

type reliabilityRequest struct {
	System *systemRequest `json:"system"`
}

type sizingRequest struct {
	MaxTankM3 float64 `json:"max_tank_m3" validate:"gt=0"`
}

type optimumRequest struct {
	ReportID string `json:"report_id" validate:"required"`
}

func (s *Server) registerAPI(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/system", s.handleGetSystem)
	mux.HandleFunc("PUT /api/v1/system", s.handlePutSystem)
	mux.HandleFunc("GET /api/v1/demand", s.handleGetDemand)
	mux.HandleFunc("PUT /api/v1/demand", s.handlePutDemand)
	mux.HandleFunc("POST /api/v1/rainfall", s.handleImportRainfall)
	mux.HandleFunc("GET /api/v1/rainfall/summary", s.handleRainfallSummary)
	mux.HandleFunc("POST /api/v1/reliability", s.handleReliability)
	mux.HandleFunc("POST /api/v1/performance", s.handlePerformance)
	mux.HandleFunc("POST /api/v1/sizing", s.handleSizing)
	mux.HandleFunc("GET /api/v1/sizing/{id}", s.handleGetReport)
	mux.HandleFunc("POST /api/v1/sizing/optimum", s.handleSaveOptimum)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.api.Status(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleGetSystem(w http.ResponseWriter, r *http.Request) {
	sys, err := s.api.GetSystem(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sys)
}

func (s *Server) handlePutSystem(w http.ResponseWriter, r *http.Request) {
	var req systemRequest
	if !s.bind(w, r, &req, false) {
		return
	}
	sys := req.toSystem()
	if err := s.api.UpdateSystem(r.Context(), sys); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sys)
}

func (s *Server) handleGetDemand(w http.ResponseWriter, r *http.Request) {
	d, err := s.api.GetDemand(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newDemandResponse(d))
}

func (s *Server) handlePutDemand(w http.ResponseWriter, r *http.Request) {
	var req demandRequest
	if !s.bind(w, r, &req, false) {
		return
	}
	var d domain.DemandSchedule
	copy(d[:], req.Demand)
	if err := s.api.UpdateDemand(r.Context(), d); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newDemandResponse(d))
}

func newDemandResponse(d domain.DemandSchedule) demandResponse {
	return demandResponse{Demand: d, AnnualDemandM3: d.AnnualDemandM3(), BudgetIsSet: d.BudgetIsSet()}
}

func (s *Server) handleImportRainfall(w http.ResponseWriter, r *http.Request) {
	var req rainfallRequest
	if !s.bind(w, r, &req, false) {
		return
	}
	records := make([]domain.DailyRainfallRecord, len(req.Records))
	for i, rec := range req.Records {
		records[i] = domain.DailyRainfallRecord{Year: rec.Year, Month: rec.Month, Day: rec.Day, DepthMM: *rec.DepthMM}
	}
	saved, err := s.api.ImportRainfall(r.Context(), records)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"received": len(records), "saved": saved})
}

func (s *Server) handleRainfallSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.api.RainfallSummary(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleReliability(w http.ResponseWriter, r *http.Request) {
	var req reliabilityRequest
	if !s.bind(w, r, &req, true) {
		return
	}
	var override *domain.System
	if req.System != nil {
		sys := req.System.toSystem()
		override = &sys
	}
	res, err := s.api.EstimateReliability(r.Context(), override)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePerformance(w http.ResponseWriter, r *http.Request) {
	out, err := s.api.CheckPerformance(r.Context(), s.progressLogger("performance"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSizing(w http.ResponseWriter, r *http.Request) {
	var req sizingRequest
	if !s.bind(w, r, &req, false) {
		return
	}
	report, err := s.api.SizeForBudget(r.Context(), req.MaxTankM3, s.progressLogger("budget"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.api.GetReport(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleSaveOptimum(w http.ResponseWriter, r *http.Request) {
	var req optimumRequest
	if !s.bind(w, r, &req, false) {
		return
	}
	res, err := s.api.SaveOptimum(r.Context(), req.ReportID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) progressLogger(kind string) tanka.ProgressFunc {
	return func(completed, total int) {
		s.logger.Debug("sweep progress", "kind", kind, "completed", completed, "total", total)
	}
}

// bind decodes and validates a JSON body, writing a 400 on failure. An empty
// body is accepted only when allowEmpty is set.
func (s *Server) bind(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if !(allowEmpty && errors.Is(err, io.EOF)) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("decode request: %v", err)})
			return false
		}
	}
	if err := validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return false
	}
	return true
}
