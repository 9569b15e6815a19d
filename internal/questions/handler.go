package questions

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/mock-test/backend/internal/models"
	"go.uber.org/zap"
)

type Handler struct {
	service  *Service
	validate *validator.Validate
	log      *zap.Logger
}

func NewHandler(service *Service, log *zap.Logger) *Handler {
	return &Handler{service: service, validate: newValidator(), log: log.Named("handler")}
}

// RegisterRoutes mounts the admin question routes on r.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/ai/generate-job", h.StartGenerationJob).Methods("POST")
	r.HandleFunc("/ai/approve-job", h.StartApprovalJob).Methods("POST")
	r.HandleFunc("/ai/status/{jobId}", h.GetJobStatus).Methods("GET")
	r.HandleFunc("/ai/jobs", h.ListJobs).Methods("GET")
	r.HandleFunc("/ai/generate", h.GeneratePreview).Methods("POST")
	r.HandleFunc("/ai/generate-all-difficulties", h.GenerateAllDifficulties).Methods("POST")
	r.HandleFunc("/ai/approve", h.Approve).Methods("POST")
	r.HandleFunc("/difficulties", h.ListDifficulties).Methods("GET")
}

// decodeGeneration reads, defaults and validates a generation request.
func (h *Handler) decodeGeneration(w http.ResponseWriter, r *http.Request) (models.GenerationRequest, bool) {
	var req models.GenerationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return req, false
	}

	req.ApplyDefaults()
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: validationMessage(err)})
		return req, false
	}
	return req, true
}

func (h *Handler) decodeApproval(w http.ResponseWriter, r *http.Request) (models.ApprovalRequest, bool) {
	var req models.ApprovalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return req, false
	}

	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: validationMessage(err)})
		return req, false
	}
	return req, true
}

func (h *Handler) StartGenerationJob(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeGeneration(w, r)
	if !ok {
		return
	}

	id := h.service.StartGeneration(req)
	writeJSON(w, http.StatusAccepted, models.JobAccepted{JobID: id, Message: "Generation started"})
}

func (h *Handler) StartApprovalJob(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeApproval(w, r)
	if !ok {
		return
	}

	id := h.service.StartApproval(req)
	writeJSON(w, http.StatusAccepted, models.JobAccepted{JobID: id, Message: "Approval started"})
}

func (h *Handler) GetJobStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["jobId"]

	job, ok := h.service.JobStatus(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Job not found"})
		return
	}

	writeJSON(w, http.StatusOK, job)
}

func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.ListJobs())
}

func (h *Handler) GeneratePreview(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeGeneration(w, r)
	if !ok {
		return
	}

	resp, err := h.service.Preview(r.Context(), req)
	if err != nil {
		h.log.Error("preview failed", zap.String("topic", req.Topic), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to generate questions"})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GenerateAllDifficulties(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateAllRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: validationMessage(err)})
		return
	}

	resp, err := h.service.PreviewAllDifficulties(r.Context(), req)
	if err != nil {
		h.log.Error("generate all difficulties failed", zap.String("topic", req.Topic), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to generate questions"})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeApproval(w, r)
	if !ok {
		return
	}

	job, err := h.service.Approve(r.Context(), req)
	if err != nil {
		h.log.Error("approval failed", zap.String("job_id", job.ID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to approve questions: " + job.Error})
		return
	}

	writeJSON(w, http.StatusOK, models.ApproveResponse{Message: "Questions approved", Count: job.Total})
}

func (h *Handler) ListDifficulties(w http.ResponseWriter, r *http.Request) {
	levels, err := h.service.ListDifficulties(r.Context())
	if err != nil {
		h.log.Error("list difficulties failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to fetch difficulties"})
		return
	}
	if levels == nil {
		levels = []models.DifficultyLevel{}
	}

	writeJSON(w, http.StatusOK, levels)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
