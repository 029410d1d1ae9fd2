package endpoints

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"storyteller/internal/analysis"
	"storyteller/internal/api"
	"storyteller/internal/jobs"
	"storyteller/internal/svcctx"
)

// ListCheckpointsResponse lists resumable checkpoints on disk.
type ListCheckpointsResponse struct {
	Checkpoints []jobs.CheckpointInfo `json:"checkpoints"`
}

// ListCheckpointsEndpoint handles GET /api/checkpoints.
type ListCheckpointsEndpoint struct{}

func (e *ListCheckpointsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/checkpoints", e.handler
}

func (e *ListCheckpointsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List resumable checkpoints
//	@Description	Every checkpoint here resumes its analysis at the saved batch on the next run
//	@Tags			checkpoints
//	@Produce		json
//	@Success		200	{object}	ListCheckpointsResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/checkpoints [get]
func (e *ListCheckpointsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	runner := svcctx.RunnerFrom(r.Context())
	if runner == nil {
		writeError(w, http.StatusServiceUnavailable, "job runner not initialized")
		return
	}

	cps, err := runner.Checkpoints()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ListCheckpointsResponse{Checkpoints: cps})
}

func (e *ListCheckpointsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List resumable analysis checkpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ListCheckpointsResponse
			if err := client.Get(cmd.Context(), "/api/checkpoints", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// DeleteCheckpointEndpoint handles DELETE /api/checkpoints/{kind}/{book}/{chapter}.
type DeleteCheckpointEndpoint struct{}

func (e *DeleteCheckpointEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/checkpoints/{kind}/{book}/{chapter}", e.handler
}

func (e *DeleteCheckpointEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Discard a checkpoint
//	@Description	The next analysis run for this chapter starts from scratch
//	@Tags			checkpoints
//	@Param			kind	path	string	true	"Analysis kind"
//	@Param			book	path	int		true	"Book ID"
//	@Param			chapter	path	int		true	"Chapter ID"
//	@Success		204
//	@Failure		400	{object}	ErrorResponse
//	@Router			/api/checkpoints/{kind}/{book}/{chapter} [delete]
func (e *DeleteCheckpointEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	runner := svcctx.RunnerFrom(r.Context())
	if runner == nil {
		writeError(w, http.StatusServiceUnavailable, "job runner not initialized")
		return
	}

	kind := r.PathValue("kind")
	if !analysis.ValidKind(kind) {
		writeError(w, http.StatusBadRequest, "unknown analysis kind: "+kind)
		return
	}
	bookID, err := strconv.ParseInt(r.PathValue("book"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid book id")
		return
	}
	chapterID, err := strconv.ParseInt(r.PathValue("chapter"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid chapter id")
		return
	}

	if err := runner.DeleteCheckpoint(analysis.Kind(kind), bookID, chapterID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (e *DeleteCheckpointEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <kind> <book-id> <chapter-id>",
		Short: "Discard one analysis checkpoint",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			path := fmt.Sprintf("/api/checkpoints/%s/%s/%s", args[0], args[1], args[2])
			if err := client.Delete(cmd.Context(), path); err != nil {
				return err
			}
			cmd.Println("deleted")
			return nil
		},
	}
}
