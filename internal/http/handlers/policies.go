package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MrKriegler/go-brokerage/internal/core"
	"github.com/MrKriegler/go-brokerage/internal/middleware"
	"github.com/MrKriegler/go-brokerage/pkg/problem"
)

// proofFormMemory is how much of a multipart upload is buffered before spilling to disk.
const proofFormMemory = 2 << 20

type PolicyHandler struct {
	Svc core.PolicyService
	Log *slog.Logger
}

func NewPolicyHandler(svc core.PolicyService, log *slog.Logger) *PolicyHandler {
	return &PolicyHandler{Svc: svc, Log: log}
}

func (h *PolicyHandler) Mount(r chi.Router) {
	r.Route("/policies", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/by-number/{policy_number}", h.GetByNumber)
		r.Get("/{policy_id}", h.Get)
		r.Post("/{policy_id}/proof", h.UploadProof)
		r.Get("/{policy_id}/proof", h.DownloadProof)
		r.Post("/{policy_id}:validate-payment", h.ValidatePayment)
		r.Post("/{policy_id}:reject-payment", h.RejectPayment)
		r.Post("/{policy_id}:cancel", h.Cancel)
		r.Post("/{policy_id}:suspend", h.Suspend)
	})
}

// List returns one page of policies in the caller's scope.
// 200: JSON with items, total, limit and offset.
func (h *PolicyHandler) List(w http.ResponseWriter, r *http.Request) {
	brokerID, ok := brokerQuery(w, r)
	if !ok {
		return
	}
	clientID, ok := queryID(w, r, "client_id")
	if !ok {
		return
	}
	q := r.URL.Query()
	filter := core.PolicyFilter{
		BrokerID:      brokerID,
		ClientID:      clientID,
		Status:        core.PolicyStatus(q.Get("status")),
		PaymentStatus: core.PaymentStatus(q.Get("payment_status")),
	}
	limit, offset := pagination(r)

	policies, total, err := h.Svc.List(r.Context(), middleware.ActorFrom(r.Context()), filter, limit, offset)
	if err != nil {
		writeError(r, h.Log, w, err)
		return
	}
	writeJSON(w, h.Log, http.StatusOK, pageResponse[core.Policy]{
		Items:  nonNil(policies),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// Get retrieves a policy by ID.
// 200: JSON; 400: bad ID; 404: not found or outside scope.
func (h *PolicyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "policy_id")
	if !ok {
		return
	}
	h.respond(w, r, http.StatusOK)(h.Svc.Get(r.Context(), middleware.ActorFrom(r.Context()), id))
}

// GetByNumber retrieves a policy by its business number.
// 200: JSON; 400: missing number; 404: not found.
func (h *PolicyHandler) GetByNumber(w http.ResponseWriter, r *http.Request) {
	number := strings.TrimSpace(chi.URLParam(r, "policy_number"))
	if number == "" {
		problem.Write(w, http.StatusBadRequest, "Missing Policy Number", "Path parameter policy_number is required.")
		return
	}
	h.respond(w, r, http.StatusOK)(h.Svc.GetByNumber(r.Context(), middleware.ActorFrom(r.Context()), number))
}

// UploadProof accepts a multipart form with a single "file" part.
// 200: JSON; 400: missing or unsupported file; 409: policy not awaiting proof; 413: too large.
func (h *PolicyHandler) UploadProof(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "policy_id")
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(proofFormMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(r, h.Log, w, err)
			return
		}
		problem.WriteProblem(w, problem.Problem{
			Status: http.StatusBadRequest,
			Title:  "Invalid Upload",
			Detail: "Body must be multipart/form-data with a file part.",
			Field:  "file",
		})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	f, header, err := r.FormFile("file")
	if err != nil {
		writeError(r, h.Log, w, &core.ValidationError{Field: "file", Reason: "is required"})
		return
	}
	defer f.Close()

	file := core.ProofFile{
		Name:        header.Filename,
		ContentType: proofContentType(header.Header.Get("Content-Type")),
		Size:        header.Size,
		Body:        f,
	}
	h.respond(w, r, http.StatusOK)(h.Svc.UploadProof(r.Context(), middleware.ActorFrom(r.Context()), id, file))
}

// DownloadProof streams the stored payment proof.
// 200: file bytes; 404: no proof; 503: storage disabled.
func (h *PolicyHandler) DownloadProof(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "policy_id")
	if !ok {
		return
	}
	rc, p, err := h.Svc.OpenProof(r.Context(), middleware.ActorFrom(r.Context()), id)
	if err != nil {
		writeError(r, h.Log, w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+p.PolicyNumber+`-proof"`)
	w.WriteHeader(http.StatusOK)
	if n, err := io.Copy(w, rc); err != nil {
		h.Log.ErrorContext(r.Context(), "failed to stream payment proof",
			"policy_id", id, "written", n, "err", err)
	}
}

// ValidatePayment confirms the uploaded proof and activates the policy.
// 200: JSON; 403: missing validate_payment; 409: not awaiting validation.
func (h *PolicyHandler) ValidatePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "policy_id")
	if !ok {
		return
	}
	h.respond(w, r, http.StatusOK)(h.Svc.ValidatePayment(r.Context(), middleware.ActorFrom(r.Context()), id))
}

func (h *PolicyHandler) RejectPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "policy_id")
	if !ok {
		return
	}
	h.respond(w, r, http.StatusOK)(h.Svc.RejectPayment(r.Context(), middleware.ActorFrom(r.Context()), id))
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

// Cancel ends a policy early. The body must carry a non-blank reason.
// 200: JSON; 400: missing reason; 403: missing cancel_policy; 409: already cancelled or expired.
func (h *PolicyHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "policy_id")
	if !ok {
		return
	}
	var req cancelRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	h.respond(w, r, http.StatusOK)(h.Svc.Cancel(r.Context(), middleware.ActorFrom(r.Context()), id, strings.TrimSpace(req.Reason)))
}

func (h *PolicyHandler) Suspend(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "policy_id")
	if !ok {
		return
	}
	h.respond(w, r, http.StatusOK)(h.Svc.Suspend(r.Context(), middleware.ActorFrom(r.Context()), id))
}

func (h *PolicyHandler) respond(w http.ResponseWriter, r *http.Request, status int) func(core.Policy, error) {
	return func(p core.Policy, err error) {
		if err != nil {
			writeError(r, h.Log, w, err)
			return
		}
		writeJSON(w, h.Log, status, p)
	}
}

// proofContentType drops parameters such as charset from a part's content type.
func proofContentType(raw string) string {
	ct, _, _ := strings.Cut(raw, ";")
	return strings.ToLower(strings.TrimSpace(ct))
}
