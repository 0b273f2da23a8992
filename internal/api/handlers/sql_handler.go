package handlers

import (
	"net/http"
	"strconv"

	"sql-helper/internal/ai"
	"sql-helper/internal/middleware"
	"sql-helper/internal/services"
	"sql-helper/internal/sqlfmt"
)

type SQLHandler struct {
	sqlService services.SQLService
	assistant  services.AssistantService
}

func NewSQLHandler(sqlService services.SQLService, assistant services.AssistantService) *SQLHandler {
	return &SQLHandler{
		sqlService: sqlService,
		assistant:  assistant,
	}
}

type formatRequest struct {
	SQL      string `json:"sql"`
	Dialect  string `json:"dialect"`
	Language string `json:"language"`
	UseAI    bool   `json:"useAi"`
}

func (req formatRequest) dialect(fallback string) string {
	if req.Dialect != "" {
		return req.Dialect
	}
	if req.Language != "" {
		return req.Language
	}
	return fallback
}

type assistRequest struct {
	Task       string `json:"task"`
	SQL        string `json:"sql"`
	Dialect    string `json:"dialect"`
	Complexity string `json:"complexity"`
}

type executeRequest struct {
	Query string `json:"query"`
}

type formatResponse struct {
	FormattedSQL string `json:"formattedSql"`
}

type basicFormatResponse struct {
	Result string `json:"result"`
}

type explainResponse struct {
	Explanation string `json:"explanation"`
}

type assistResponse struct {
	Task   services.TaskType `json:"task"`
	Result string            `json:"result"`
	Model  string            `json:"model"`
	Usage  ai.Usage          `json:"usage"`
}

// FormatBasic formats with the static formatter only. Open to anonymous
// callers.
func (h *SQLHandler) FormatBasic(w http.ResponseWriter, r *http.Request) {
	var req formatRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	formatted, err := h.sqlService.Format(req.SQL, req.dialect(sqlfmt.DefaultDialect))
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, basicFormatResponse{Result: formatted})
}

// Format uses the static formatter unless useAi is set, which needs a
// logged-in caller and spends quota.
func (h *SQLHandler) Format(w http.ResponseWriter, r *http.Request) {
	var req formatRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if !req.UseAI {
		formatted, err := h.sqlService.Format(req.SQL, req.dialect("sql"))
		if err != nil {
			respondWithServiceError(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, formatResponse{FormattedSQL: formatted})
		return
	}

	claims, ok := services.IdentityFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Log in to use AI formatting")
		return
	}

	result, err := h.assist(r, claims.Email, services.TaskFormat, req.SQL, req.dialect("sql"), "")
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, formatResponse{FormattedSQL: orInput(result.Text, req.SQL)})
}

func (h *SQLHandler) AIFormat(w http.ResponseWriter, r *http.Request) {
	h.runTask(w, r, services.TaskFormat, func(req formatRequest, result *services.AssistResult) interface{} {
		return formatResponse{FormattedSQL: orInput(result.Text, req.SQL)}
	})
}

func (h *SQLHandler) Explain(w http.ResponseWriter, r *http.Request) {
	h.runTask(w, r, services.TaskExplain, func(_ formatRequest, result *services.AssistResult) interface{} {
		return explainResponse{Explanation: result.Text}
	})
}

func (h *SQLHandler) runTask(w http.ResponseWriter, r *http.Request, task services.TaskType, render func(formatRequest, *services.AssistResult) interface{}) {
	claims, ok := services.IdentityFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req formatRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.assist(r, claims.Email, task, req.SQL, req.dialect("sql"), "")
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}
	if result.Text == "" && task == services.TaskExplain {
		respondWithError(w, http.StatusBadGateway, "The assistant returned an empty explanation")
		return
	}
	respondWithJSON(w, http.StatusOK, render(req, result))
}

// Assist runs any assistant task named in the body.
func (h *SQLHandler) Assist(w http.ResponseWriter, r *http.Request) {
	claims, ok := services.IdentityFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req assistRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	task, ok := services.ParseTask(req.Task)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "Unknown task: "+req.Task)
		return
	}

	dialect := req.Dialect
	if dialect == "" {
		dialect = "sql"
	}

	result, err := h.assist(r, claims.Email, task, req.SQL, dialect, services.Complexity(req.Complexity))
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, assistResponse{
		Task:   task,
		Result: result.Text,
		Model:  result.Model,
		Usage:  result.Usage,
	})
}

func (h *SQLHandler) assist(r *http.Request, identity string, task services.TaskType, input, dialect string, complexity services.Complexity) (*services.AssistResult, error) {
	middleware.Annotate(r.Context(), "task", string(task))
	middleware.Annotate(r.Context(), "dialect", dialect)

	result, err := h.assistant.Assist(r.Context(), services.AssistRequest{
		Identity:   identity,
		Task:       task,
		Dialect:    dialect,
		Input:      input,
		Complexity: complexity,
	})
	if err != nil {
		return nil, err
	}

	middleware.Annotate(r.Context(), "model", result.Model)
	middleware.Annotate(r.Context(), "total_tokens", strconv.FormatInt(result.Usage.TotalTokens, 10))
	return result, nil
}

// Execute runs a SELECT against the configured database and returns the
// rows.
func (h *SQLHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.sqlService.Execute(r.Context(), req.Query)
	if err != nil {
		respondWithServiceError(w, r, err)
		return
	}

	middleware.Annotate(r.Context(), "rows", strconv.Itoa(len(result.Rows)))
	if result.Truncated {
		w.Header().Set("X-Result-Truncated", "true")
	}
	respondWithJSON(w, http.StatusOK, result.Rows)
}

func orInput(text, input string) string {
	if text == "" {
		return input
	}
	return text
}
