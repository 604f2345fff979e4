package handlers

import (
	"errors"
	"net/http"

	"veobatch/internal/domain"
	"veobatch/internal/providers/prompt"
)

type ideasRequest struct {
	Ideas         string `json:"ideas"`
	Count         int    `json:"count"`
	APIKey        string `json:"api_key"`
	AppendToInput bool   `json:"append_to_input"`
}

type ideasResponse struct {
	Results      []prompt.IdeaResult `json:"results"`
	Prompts      string              `json:"prompts"`
	PendingInput string              `json:"pending_input,omitempty"`
	Error        *errorDetail        `json:"error,omitempty"`
}

func (a *App) PromptIdeas(w http.ResponseWriter, r *http.Request) {
	if a.Ideas == nil {
		a.error(w, http.StatusNotFound, "not_found", "prompt ideas are disabled")
		return
	}
	var req ideasRequest
	if !a.decode(w, r, &req) {
		return
	}
	credential, err := a.credential(r.Context(), req.APIKey)
	if err != nil {
		a.fail(w, err)
		return
	}
	results, err := a.Ideas.Generate(r.Context(), prompt.IdeaRequest{
		Ideas:      req.Ideas,
		Count:      req.Count,
		Credential: credential,
	})
	if err != nil {
		if len(results) > 0 && errors.Is(err, domain.ErrProviderFailure) {
			// Prompts generated before the failure are still returned but
			// never appended to the input.
			a.json(w, http.StatusBadGateway, ideasResponse{
				Results: results,
				Prompts: prompt.Flatten(results),
				Error:   &errorDetail{Code: "provider_error", Message: err.Error()},
			})
			return
		}
		a.fail(w, err)
		return
	}
	resp := ideasResponse{Results: results, Prompts: prompt.Flatten(results)}
	if req.AppendToInput && resp.Prompts != "" {
		resp.PendingInput = a.Orchestrator.AppendPendingInput(resp.Prompts)
	}
	a.json(w, http.StatusOK, resp)
}
