package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"storyteller/internal/api"
	"storyteller/internal/enginectl"
	"storyteller/internal/jobs"
	"storyteller/internal/svcctx"
)

// StatusResponse is the detailed status response. Resumable checkpoints
// are listed so an operator can see which analyses will pick up where
// they left off.
type StatusResponse struct {
	Server      string                `json:"server"`
	Engines     []string              `json:"engines"`
	Container   ContainerStatus       `json:"container"`
	Tasks       []jobs.TaskStatus     `json:"tasks,omitempty"`
	Checkpoints []jobs.CheckpointInfo `json:"checkpoints,omitempty"`
}

// ContainerStatus shows the llama-server container state.
type ContainerStatus struct {
	State string `json:"state"`
	URL   string `json:"url,omitempty"`
}

// StatusEndpoint handles GET /status.
type StatusEndpoint struct {
	// EngineManager is set by the server since it is not in Services.
	EngineManager *enginectl.Manager
}

func (e *StatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/status", e.handler
}

func (e *StatusEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Detailed server status
//	@Description	Engines, container state, running tasks, and resumable checkpoints
//	@Tags			system
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Router			/status [get]
func (e *StatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{Server: "running"}

	if registry := svcctx.RegistryFrom(r.Context()); registry != nil {
		resp.Engines = registry.List()
	}

	if e.EngineManager != nil {
		status, err := e.EngineManager.Status(r.Context())
		if err != nil {
			resp.Container.State = "error"
		} else {
			resp.Container.State = string(status)
		}
		resp.Container.URL = e.EngineManager.URL()
	} else {
		resp.Container.State = "unmanaged"
	}

	if runner := svcctx.RunnerFrom(r.Context()); runner != nil {
		resp.Tasks = runner.Statuses()
		if cps, err := runner.Checkpoints(); err == nil {
			resp.Checkpoints = cps
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *StatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get detailed server status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp StatusResponse
			if err := client.Get(cmd.Context(), "/status", &resp); err != nil {
				return err
			}
			fmt.Printf("Server: %s\n", resp.Server)
			fmt.Printf("Container: %s\n", resp.Container.State)
			fmt.Printf("Engines: %v\n", resp.Engines)
			if len(resp.Tasks) > 0 {
				fmt.Println("Tasks:")
				for _, t := range resp.Tasks {
					fmt.Printf("  book %d chapter %d %s: %s", t.BookID, t.ChapterID, t.Kind, t.State)
					if t.Resumed {
						fmt.Print(" (resumed from checkpoint)")
					}
					fmt.Println()
				}
			}
			if len(resp.Checkpoints) > 0 {
				fmt.Println("Resumable checkpoints:")
				for _, cp := range resp.Checkpoints {
					fmt.Printf("  book %d chapter %d %s: batch %d, saved %s\n",
						cp.BookID, cp.ChapterID, cp.Kind, cp.BatchCursor, cp.SavedAt.Format("2006-01-02 15:04:05"))
				}
			}
			return nil
		},
	}
}
