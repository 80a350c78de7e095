package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/studioswitch/studioswitch/internal/api/models"
	"github.com/studioswitch/studioswitch/internal/effects"
)

// registerEffectRoutes registers effect chain endpoints.
func (s *Server) registerEffectRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-chain",
		Method:      http.MethodGet,
		Path:        "/api/chains/{chain}",
		Summary:     "Get Effect Chain",
		Description: "Get an output's effect chain in composition order",
		Tags:        []string{"effects"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct {
		Chain string `path:"chain" doc:"Chain name"`
	}) (*models.ChainResponse, error) {
		chain, err := s.chainByName(input.Chain)
		if err != nil {
			return nil, err
		}
		return &models.ChainResponse{Body: chainData(chain)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "update-chain",
		Method:      http.MethodPatch,
		Path:        "/api/chains/{chain}",
		Summary:     "Update Effect Chain",
		Description: "Toggle a chain or change its opacity",
		Tags:        []string{"effects"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.ChainUpdateRequest) (*models.ChainResponse, error) {
		chain, err := s.chainByName(input.Chain)
		if err != nil {
			return nil, err
		}
		if input.Body.Enabled != nil {
			chain.SetEnabled(*input.Body.Enabled)
		}
		if input.Body.Opacity != nil {
			chain.SetOpacity(*input.Body.Opacity)
		}
		return &models.ChainResponse{Body: chainData(chain)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "add-effect",
		Method:      http.MethodPost,
		Path:        "/api/chains/{chain}/effects",
		Summary:     "Add Effect",
		Description: "Append an effect of the given kind to a chain",
		Tags:        []string{"effects"},
		Errors:      []int{400, 401, 404},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.EffectCreateRequest) (*models.EffectResponse, error) {
		chain, err := s.chainByName(input.Chain)
		if err != nil {
			return nil, err
		}
		if !validKind(input.Body.Kind) {
			return nil, huma.Error400BadRequest("Unknown effect kind: " + input.Body.Kind)
		}
		effect := effects.New(effects.Kind(input.Body.Kind))
		chain.Add(effect)
		return &models.EffectResponse{Body: effectData(effect)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "update-effect",
		Method:      http.MethodPatch,
		Path:        "/api/chains/{chain}/effects/{id}",
		Summary:     "Update Effect",
		Description: "Change an effect's parameters or enabled flag",
		Tags:        []string{"effects"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.EffectUpdateRequest) (*models.EffectResponse, error) {
		chain, err := s.chainByName(input.Chain)
		if err != nil {
			return nil, err
		}
		effect := chain.Find(input.ID)
		if effect == nil {
			return nil, huma.Error404NotFound("Effect not found: " + input.ID)
		}
		for key, value := range input.Body.Params {
			effect.Params[key] = value
		}
		if input.Body.Enabled != nil {
			effect.Enabled = *input.Body.Enabled
		}
		return &models.EffectResponse{Body: effectData(effect)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "move-effect",
		Method:      http.MethodPost,
		Path:        "/api/chains/{chain}/effects/{id}/move",
		Summary:     "Move Effect",
		Description: "Reposition an effect within its chain",
		Tags:        []string{"effects"},
		Errors:      []int{400, 401, 404},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.EffectMoveRequest) (*models.ChainResponse, error) {
		chain, err := s.chainByName(input.Chain)
		if err != nil {
			return nil, err
		}
		if err := chain.Move(input.ID, input.Body.Index); err != nil {
			return nil, huma.Error400BadRequest(err.Error())
		}
		return &models.ChainResponse{Body: chainData(chain)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "duplicate-effect",
		Method:      http.MethodPost,
		Path:        "/api/chains/{chain}/effects/{id}/duplicate",
		Summary:     "Duplicate Effect",
		Description: "Insert an independent copy of an effect after the original",
		Tags:        []string{"effects"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.EffectPathRequest) (*models.EffectResponse, error) {
		chain, err := s.chainByName(input.Chain)
		if err != nil {
			return nil, err
		}
		dup, err := chain.Duplicate(input.ID)
		if err != nil {
			return nil, huma.Error404NotFound(err.Error())
		}
		return &models.EffectResponse{Body: effectData(dup)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "remove-effect",
		Method:      http.MethodDelete,
		Path:        "/api/chains/{chain}/effects/{id}",
		Summary:     "Remove Effect",
		Description: "Delete an effect from a chain",
		Tags:        []string{"effects"},
		Errors:      []int{401, 404},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.EffectPathRequest) (*models.ChainResponse, error) {
		chain, err := s.chainByName(input.Chain)
		if err != nil {
			return nil, err
		}
		if !chain.Remove(input.ID) {
			return nil, huma.Error404NotFound("Effect not found: " + input.ID)
		}
		return &models.ChainResponse{Body: chainData(chain)}, nil
	})
}

func (s *Server) chainByName(name string) (*effects.Chain, error) {
	chain := s.options.Pipeline.ChainByName(name)
	if chain == nil {
		return nil, huma.Error404NotFound("Unknown chain: " + name)
	}
	return chain, nil
}

func validKind(kind string) bool {
	for _, k := range effects.Kinds() {
		if string(k) == kind {
			return true
		}
	}
	return false
}

func effectData(e *effects.Effect) models.EffectData {
	return models.EffectData{
		ID:      e.ID,
		Kind:    string(e.Kind),
		Name:    e.Name,
		Params:  e.Params,
		Enabled: e.Enabled,
	}
}

func chainData(c *effects.Chain) models.ChainData {
	list := c.Effects()
	data := models.ChainData{
		Name:    c.Name(),
		Enabled: c.Enabled(),
		Opacity: c.Opacity(),
		Effects: make([]models.EffectData, len(list)),
	}
	for i, e := range list {
		data.Effects[i] = effectData(e)
	}
	return data
}
