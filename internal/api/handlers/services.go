package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ekobres/spook/internal/core/actions"
	"github.com/ekobres/spook/internal/core/entityfilter"
	"github.com/ekobres/spook/pkg/utils"
	"github.com/gin-gonic/gin"
)

// ListServices returns the names of the available actions
func (h *Handlers) ListServices(c *gin.Context) {
	utils.SendSuccess(c, gin.H{"actions": entityfilter.Actions})
}

// ListFilteredEntities runs list_filtered_entities with the JSON body as
// call data. An empty body means no filters.
func (h *Handlers) ListFilteredEntities(c *gin.Context) {
	data, ok := h.bindCallData(c)
	if !ok {
		return
	}
	h.call(c, entityfilter.ActionListFilteredEntities, data)
}

// ListHiddenEntities runs list_hidden_entities
func (h *Handlers) ListHiddenEntities(c *gin.Context) {
	h.call(c, entityfilter.ActionListHiddenEntities, nil)
}

// GetFields returns the list_filtered_entities field schema, as JSON or
// as a services.yaml document with ?format=yaml.
func (h *Handlers) GetFields(c *gin.Context) {
	schema, err := entityfilter.Fields(h.options, h.limits)
	if err != nil {
		utils.SendAppError(c, toAppError(err))
		return
	}

	if c.Query("format") == "yaml" {
		doc, err := entityfilter.FieldsYAML(schema)
		if err != nil {
			utils.SendAppError(c, err)
			return
		}
		c.Data(http.StatusOK, "application/yaml; charset=utf-8", doc)
		return
	}

	utils.SendSuccess(c, schema)
}

func (h *Handlers) call(c *gin.Context, action string, data map[string]interface{}) {
	result, call, err := h.runner.Call(c.Request.Context(), c.GetString(utils.RequestIDKey), actions.TransportHTTP, action, data)
	if err != nil {
		utils.SendAppError(c, toAppError(err))
		return
	}

	utils.SendSuccessWithMeta(c, result, gin.H{
		"request_id":  call.RequestID,
		"duration_ms": call.DurationMS(),
	})
}

// bindCallData decodes the body as a JSON object. Anything else is a 400.
func (h *Handlers) bindCallData(c *gin.Context) (map[string]interface{}, bool) {
	raw, err := c.GetRawData()
	if err != nil {
		utils.SendError(c, http.StatusBadRequest, "Failed to read request body")
		return nil, false
	}
	if len(raw) == 0 {
		return map[string]interface{}{}, true
	}

	var body interface{}
	if err := json.Unmarshal(raw, &body); err != nil {
		utils.SendError(c, http.StatusBadRequest, "Request body must be valid JSON")
		return nil, false
	}

	switch data := body.(type) {
	case map[string]interface{}:
		return data, true
	case nil:
		return map[string]interface{}{}, true
	default:
		utils.SendError(c, http.StatusBadRequest, "Request body must be a JSON object")
		return nil, false
	}
}
