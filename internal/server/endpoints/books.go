package endpoints

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/spf13/cobra"

	"storyteller/internal/api"
	"storyteller/internal/ingest"
	"storyteller/internal/store"
	"storyteller/internal/svcctx"
)

// ListBooksResponse is the response for listing books.
type ListBooksResponse struct {
	Books []store.Book `json:"books"`
}

// ListBooksEndpoint handles GET /api/books.
type ListBooksEndpoint struct{}

func (e *ListBooksEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/books", e.handler
}

func (e *ListBooksEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List books
//	@Description	List all ingested books
//	@Tags			books
//	@Produce		json
//	@Success		200	{object}	ListBooksResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/books [get]
func (e *ListBooksEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	books, err := st.ListBooks(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ListBooksResponse{Books: books})
}

func (e *ListBooksEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all books",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ListBooksResponse
			if err := client.Get(cmd.Context(), "/api/books", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// BookDetailResponse is one book with its chapters and findings counts.
type BookDetailResponse struct {
	Book       store.Book       `json:"book"`
	Chapters   []store.Chapter  `json:"chapters"`
	Characters int              `json:"characters"`
	CallStats  *store.CallStats `json:"call_stats,omitempty"`
}

// GetBookEndpoint handles GET /api/books/{id}.
type GetBookEndpoint struct{}

func (e *GetBookEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/books/{id}", e.handler
}

func (e *GetBookEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary	Get one book with chapters and analysis summary
//	@Tags		books
//	@Produce	json
//	@Param		id	path		int	true	"Book ID"
//	@Success	200	{object}	BookDetailResponse
//	@Failure	404	{object}	ErrorResponse
//	@Router		/api/books/{id} [get]
func (e *GetBookEndpoint) handler(w http.ResponseWriter, r *http.Request) {
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

	book, err := st.GetBook(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	chapters, err := st.ListChapters(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	characters, err := st.ListCharacters(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := BookDetailResponse{
		Book:       *book,
		Chapters:   chapters,
		Characters: len(characters),
	}
	if stats, err := st.LLMCallStats(r.Context(), id); err == nil {
		resp.CallStats = stats
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *GetBookEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <book-id>",
		Short: "Get one book with chapters and analysis summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp BookDetailResponse
			if err := client.Get(cmd.Context(), "/api/books/"+args[0], &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// IngestRequest is the request body for ingesting a book.
type IngestRequest struct {
	Path   string `json:"path"`
	Title  string `json:"title,omitempty"`
	Author string `json:"author,omitempty"`
}

// IngestEndpoint handles POST /api/books/ingest.
type IngestEndpoint struct{}

func (e *IngestEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/books/ingest", e.handler
}

func (e *IngestEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Ingest a book
//	@Description	Split a book file into chapters and register it
//	@Tags			books
//	@Accept			json
//	@Produce		json
//	@Param			request	body		IngestRequest	true	"Ingest request"
//	@Success		201		{object}	ingest.Result
//	@Failure		400		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/books/ingest [post]
func (e *IngestEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path is required")
		return
	}

	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	res, err := ingest.Ingest(r.Context(), st, svcctx.HomeFrom(r.Context()), ingest.Request{
		Path:   req.Path,
		Title:  req.Title,
		Author: req.Author,
		Logger: svcctx.LoggerFrom(r.Context()),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, res)
}

func (e *IngestEndpoint) Command(getServerURL func() string) *cobra.Command {
	var title, author string
	cmd := &cobra.Command{
		Use:   "ingest <path>",
		Short: "Ingest a book file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ingest.Result
			req := IngestRequest{Path: args[0], Title: title, Author: author}
			if err := client.Post(cmd.Context(), "/api/books/ingest", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Book title (derived from filename if empty)")
	cmd.Flags().StringVar(&author, "author", "", "Book author")
	return cmd
}

// DeleteBookEndpoint handles DELETE /api/books/{id}.
type DeleteBookEndpoint struct{}

func (e *DeleteBookEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/books/{id}", e.handler
}

func (e *DeleteBookEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary	Delete a book and all its analysis results
//	@Tags		books
//	@Param		id	path	int	true	"Book ID"
//	@Success	204
//	@Failure	400	{object}	ErrorResponse
//	@Router		/api/books/{id} [delete]
func (e *DeleteBookEndpoint) handler(w http.ResponseWriter, r *http.Request) {
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

	if err := st.DeleteBook(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (e *DeleteBookEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <book-id>",
		Short: "Delete a book and all its analysis results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Delete(cmd.Context(), "/api/books/"+args[0]); err != nil {
				return err
			}
			cmd.Println("deleted")
			return nil
		},
	}
}
