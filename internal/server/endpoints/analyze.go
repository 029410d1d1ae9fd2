package endpoints

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"storyteller/internal/analysis"
	"storyteller/internal/api"
	"storyteller/internal/jobs"
	"storyteller/internal/svcctx"
)

// AnalyzeRequest is the request body for starting analysis.
type AnalyzeRequest struct {
	Kinds  []string `json:"kinds,omitempty"`  // subset of analysis kinds, empty means all
	Engine string   `json:"engine,omitempty"` // engine name, empty means configured default
}

// AnalyzeResponse acknowledges a started analysis job.
type AnalyzeResponse struct {
	BookID int64    `json:"book_id"`
	Kinds  []string `json:"kinds"`
	Status string   `json:"status"`
}

// AnalyzeEndpoint handles POST /api/books/{id}/analyze. The job runs in
// the background; progress is visible on /status.
type AnalyzeEndpoint struct{}

func (e *AnalyzeEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/books/{id}/analyze", e.handler
}

func (e *AnalyzeEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Start book analysis
//	@Description	Run the analysis passes over a book, resuming from checkpoints where present
//	@Tags			analysis
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int				true	"Book ID"
//	@Param			request	body		AnalyzeRequest	false	"Analysis selection"
//	@Success		202		{object}	AnalyzeResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Router			/api/books/{id}/analyze [post]
func (e *AnalyzeEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	runner := svcctx.RunnerFrom(r.Context())
	if runner == nil {
		writeError(w, http.StatusServiceUnavailable, "job runner not initialized")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	var req AnalyzeRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	var kinds []analysis.Kind
	for _, k := range req.Kinds {
		if !analysis.ValidKind(k) {
			writeError(w, http.StatusBadRequest, "unknown analysis kind: "+k)
			return
		}
		kinds = append(kinds, analysis.Kind(k))
	}

	if runner.Busy(id) {
		writeError(w, http.StatusConflict, jobs.ErrBusy.Error())
		return
	}

	logger := svcctx.LoggerFrom(r.Context())
	// Detach from the request context so the job survives the response.
	go func() {
		_, err := runner.AnalyzeBook(context.Background(), jobs.AnalyzeRequest{
			BookID: id,
			Kinds:  kinds,
			Engine: req.Engine,
		})
		if err != nil && logger != nil && !errors.Is(err, jobs.ErrBusy) {
			logger.Error("analysis job failed", "book_id", id, "error", err)
		}
	}()

	resp := AnalyzeResponse{BookID: id, Status: "started"}
	for _, k := range kinds {
		resp.Kinds = append(resp.Kinds, string(k))
	}
	if len(resp.Kinds) == 0 {
		for _, k := range analysis.Kinds() {
			resp.Kinds = append(resp.Kinds, string(k))
		}
	}
	writeJSON(w, http.StatusAccepted, resp)
}

func (e *AnalyzeEndpoint) Command(getServerURL func() string) *cobra.Command {
	var kinds []string
	var engine string
	cmd := &cobra.Command{
		Use:   "analyze <book-id>",
		Short: "Start analysis for a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp AnalyzeResponse
			req := AnalyzeRequest{Kinds: kinds, Engine: engine}
			if err := client.Post(cmd.Context(), "/api/books/"+args[0]+"/analyze", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringSliceVar(&kinds, "kinds", nil, "Analysis kinds to run (default: all)")
	cmd.Flags().StringVar(&engine, "engine", "", "Inference engine to use")
	return cmd
}
