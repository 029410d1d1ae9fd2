package endpoints

import (
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"storyteller/internal/api"
	"storyteller/internal/store"
	"storyteller/internal/svcctx"
)

// FindingsResponse carries everything the analysis passes produced for
// one book.
type FindingsResponse struct {
	Characters    []store.CharacterRecord  `json:"characters"`
	PlotPoints    []store.PlotPointRecord  `json:"plot_points"`
	Foreshadowing []store.ForeshadowRecord `json:"foreshadowing"`
	Themes        []store.ThemeRecord      `json:"themes"`
}

// FindingsEndpoint handles GET /api/books/{id}/findings.
type FindingsEndpoint struct{}

func (e *FindingsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/books/{id}/findings", e.handler
}

func (e *FindingsEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get analysis findings for a book
//	@Description	Characters with dialogs and voice profiles, plot points, foreshadowing links, and themes
//	@Tags			analysis
//	@Produce		json
//	@Param			id	path		int	true	"Book ID"
//	@Success		200	{object}	FindingsResponse
//	@Failure		400	{object}	ErrorResponse
//	@Router			/api/books/{id}/findings [get]
func (e *FindingsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
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

	var resp FindingsResponse
	if resp.Characters, err = st.ListCharacters(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if resp.PlotPoints, err = st.ListPlotPoints(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if resp.Foreshadowing, err = st.ListForeshadowing(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if resp.Themes, err = st.ListThemes(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *FindingsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "findings <book-id>",
		Short: "Get analysis findings for a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp FindingsResponse
			if err := client.Get(cmd.Context(), "/api/books/"+args[0]+"/findings", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
