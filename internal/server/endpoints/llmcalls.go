package endpoints

import (
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"storyteller/internal/api"
	"storyteller/internal/store"
	"storyteller/internal/svcctx"
)

// ListLLMCallsResponse is the call history for a book.
type ListLLMCallsResponse struct {
	Calls []store.LLMCallRecord `json:"calls"`
	Stats *store.CallStats      `json:"stats,omitempty"`
}

// ListLLMCallsEndpoint handles GET /api/books/{id}/llmcalls.
type ListLLMCallsEndpoint struct{}

func (e *ListLLMCallsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/books/{id}/llmcalls", e.handler
}

func (e *ListLLMCallsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List recorded inference calls for a book
//	@Description	Call records with prompt keys, token usage, and timing
//	@Tags			llmcalls
//	@Produce		json
//	@Param			id		path	int	true	"Book ID"
//	@Param			limit	query	int	false	"Max calls returned (default all)"
//	@Success		200	{object}	ListLLMCallsResponse
//	@Failure		400	{object}	ErrorResponse
//	@Router			/api/books/{id}/llmcalls [get]
func (e *ListLLMCallsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid book id")
		return
	}

	limit := 0
	if q := r.URL.Query().Get("limit"); q != "" {
		limit, err = strconv.Atoi(q)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
	}

	calls, err := st.ListLLMCalls(r.Context(), id, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := ListLLMCallsResponse{Calls: calls}
	if stats, err := st.LLMCallStats(r.Context(), id); err == nil {
		resp.Stats = stats
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *ListLLMCallsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "llmcalls <book-id>",
		Short: "List recorded inference calls for a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			path := "/api/books/" + args[0] + "/llmcalls"
			if limit > 0 {
				path += "?limit=" + strconv.Itoa(limit)
			}
			var resp ListLLMCallsResponse
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Max calls returned (0 = all)")
	return cmd
}
