package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"payflow-backend/application/services"
	"payflow-backend/domain/core/entities"
	"payflow-backend/domain/core/valueobjects"
	"payflow-backend/domain/versioning"
	"payflow-backend/infrastructure/monitoring"
	"payflow-backend/pkg/common"
	"payflow-backend/pkg/utils"
)

const maxBodyBytes = 1 << 20 // 1 MiB

// AnalysisHandler handles impact analysis HTTP requests
type AnalysisHandler struct {
	service *services.AnalysisService
	catalog *services.FunctionCatalog
	logger  *zap.Logger
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(service *services.AnalysisService, catalog *services.FunctionCatalog, logger *zap.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		service: service,
		catalog: catalog,
		logger:  logger,
	}
}

// CreateAnalysisRequest represents the request body for starting an analysis
type CreateAnalysisRequest struct {
	Description string `json:"description" validate:"required,min=1,max=500"`
	Convention  string `json:"convention" validate:"required,min=1,max=200"`
	UserID      string `json:"user_id,omitempty" validate:"omitempty,max=100"`
}

// CreateAnalysis handles POST /analyses
func (h *AnalysisHandler) CreateAnalysis(w http.ResponseWriter, r *http.Request) {
	var req CreateAnalysisRequest
	if err := common.ParseJSONBody(w, r, &req, maxBodyBytes); err != nil {
		common.RespondError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	sessionID := h.service.CreateAnalysis(req.Description, req.Convention, req.UserID)
	common.RespondJSON(w, r, http.StatusCreated, map[string]string{
		"session_id": sessionID,
	})
}

// CompleteAnalysisRequest represents the request body for ending an analysis
type CompleteAnalysisRequest struct {
	Status string `json:"status,omitempty" validate:"omitempty,max=50"`
}

// CompleteAnalysis handles POST /analyses/{sessionID}/complete
func (h *AnalysisHandler) CompleteAnalysis(w http.ResponseWriter, r *http.Request) {
	var req CompleteAnalysisRequest
	if err := common.ParseJSONBody(w, r, &req, maxBodyBytes); err != nil {
		common.RespondError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	if req.Status == "" {
		req.Status = monitoring.StatusCompleted
	}

	if err := h.service.CompleteAnalysis(chi.URLParam(r, "sessionID"), req.Status); err != nil {
		common.RespondDomainError(w, r, err)
		return
	}
	common.RespondJSON(w, r, http.StatusOK, map[string]string{"status": req.Status})
}

// SetImpactSourceRequest represents the request body for replacing the impact source
type SetImpactSourceRequest struct {
	Description string `json:"description" validate:"required,min=1,max=500"`
	Convention  string `json:"convention" validate:"required,min=1,max=200"`
}

// SetImpactSource handles PUT /analyses/{sessionID}/source
func (h *AnalysisHandler) SetImpactSource(w http.ResponseWriter, r *http.Request) {
	var req SetImpactSourceRequest
	if err := common.ParseJSONBody(w, r, &req, maxBodyBytes); err != nil {
		common.RespondError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	if err := h.service.SetImpactSource(chi.URLParam(r, "sessionID"), req.Description, req.Convention); err != nil {
		common.RespondDomainError(w, r, err)
		return
	}
	common.RespondJSON(w, r, http.StatusOK, map[string]string{"message": "impact source updated"})
}

// ResetAnalysis handles POST /analyses/{sessionID}/reset
func (h *AnalysisHandler) ResetAnalysis(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ResetAnalysis(chi.URLParam(r, "sessionID")); err != nil {
		common.RespondDomainError(w, r, err)
		return
	}
	common.RespondJSON(w, r, http.StatusOK, map[string]string{"message": "analysis reset"})
}

// CreateVariableRequest represents the request body for registering a variable
type CreateVariableRequest struct {
	Name               string   `json:"name" validate:"required,min=1,max=100"`
	Type               string   `json:"type" validate:"required,oneof=input intermediate"`
	Description        string   `json:"description,omitempty" validate:"omitempty,max=500"`
	DataType           string   `json:"data_type,omitempty" validate:"omitempty,oneof=float int bool string date"`
	LegalReference     string   `json:"legal_reference,omitempty" validate:"omitempty,max=300"`
	CalculationFormula string   `json:"calculation_formula,omitempty" validate:"omitempty,max=1000"`
	DependsOn          []string `json:"depends_on,omitempty" validate:"omitempty,dive,min=1,max=100"`
}

// CreateVariable handles POST /analyses/{sessionID}/variables
func (h *AnalysisHandler) CreateVariable(w http.ResponseWriter, r *http.Request) {
	var req CreateVariableRequest
	if err := common.ParseJSONBody(w, r, &req, maxBodyBytes); err != nil {
		common.RespondError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	kind, err := valueobjects.ParseVariableKind(req.Type)
	if err != nil {
		common.RespondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	dataType, err := valueobjects.ParseDataType(req.DataType)
	if err != nil {
		common.RespondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	input := services.VariableInput{
		Name:               req.Name,
		Kind:               kind,
		Description:        req.Description,
		DataType:           dataType,
		LegalReference:     req.LegalReference,
		CalculationFormula: req.CalculationFormula,
		DependsOn:          req.DependsOn,
	}
	if err := h.service.AddVariable(chi.URLParam(r, "sessionID"), input); err != nil {
		common.RespondDomainError(w, r, err)
		return
	}
	common.RespondJSON(w, r, http.StatusCreated, map[string]string{"name": req.Name})
}

// UpdateVariableRequest represents the request body for updating a variable
type UpdateVariableRequest struct {
	Description        *string   `json:"description,omitempty" validate:"omitempty,max=500"`
	DataType           *string   `json:"data_type,omitempty" validate:"omitempty,oneof=float int bool string date"`
	LegalReference     *string   `json:"legal_reference,omitempty" validate:"omitempty,max=300"`
	CalculationFormula *string   `json:"calculation_formula,omitempty" validate:"omitempty,max=1000"`
	DependsOn          *[]string `json:"depends_on,omitempty"`
}

// UpdateVariable handles PUT /analyses/{sessionID}/variables/{name}
func (h *AnalysisHandler) UpdateVariable(w http.ResponseWriter, r *http.Request) {
	var req UpdateVariableRequest
	if err := common.ParseJSONBody(w, r, &req, maxBodyBytes); err != nil {
		common.RespondError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	update := valueobjects.VariableUpdate{
		Description:        req.Description,
		LegalReference:     req.LegalReference,
		CalculationFormula: req.CalculationFormula,
		DependsOn:          req.DependsOn,
	}
	if req.DataType != nil {
		dataType, err := valueobjects.ParseDataType(*req.DataType)
		if err != nil {
			common.RespondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
			return
		}
		update.DataType = &dataType
	}

	name := chi.URLParam(r, "name")
	updated, err := h.service.UpdateVariable(chi.URLParam(r, "sessionID"), name, update)
	if err != nil {
		common.RespondDomainError(w, r, err)
		return
	}
	if !updated {
		common.RespondError(w, r, http.StatusNotFound, "NOT_FOUND", "variable '"+name+"' does not exist")
		return
	}
	common.RespondJSON(w, r, http.StatusOK, map[string]string{"name": name})
}

// DeleteVariable handles DELETE /analyses/{sessionID}/variables/{name}
func (h *AnalysisHandler) DeleteVariable(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	removed, err := h.service.RemoveVariable(chi.URLParam(r, "sessionID"), name)
	if err != nil {
		common.RespondDomainError(w, r, err)
		return
	}
	if !removed {
		common.RespondError(w, r, http.StatusNotFound, "NOT_FOUND", "variable '"+name+"' does not exist")
		return
	}
	common.RespondJSON(w, r, http.StatusOK, map[string]string{"name": name})
}

// CreateNodeRequest represents the request body for creating a calculation node
type CreateNodeRequest struct {
	ID             string   `json:"id" validate:"required,min=1,max=100"`
	Function       string   `json:"function" validate:"required,min=1,max=100"`
	Description    string   `json:"description,omitempty" validate:"omitempty,max=500"`
	InputVariables []string `json:"input_variables,omitempty" validate:"omitempty,dive,min=1,max=100"`
	OutputVariable string   `json:"output_variable,omitempty" validate:"omitempty,max=100"`
	LegalReference string   `json:"legal_reference,omitempty" validate:"omitempty,max=300"`
}

// CreateNode handles POST /analyses/{sessionID}/nodes
func (h *AnalysisHandler) CreateNode(w http.ResponseWriter, r *http.Request) {
	var req CreateNodeRequest
	if err := common.ParseJSONBody(w, r, &req, maxBodyBytes); err != nil {
		common.RespondError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	input := services.NodeInput{
		ID:             req.ID,
		Function:       req.Function,
		Description:    req.Description,
		InputVariables: req.InputVariables,
		OutputVariable: req.OutputVariable,
		LegalReference: req.LegalReference,
	}
	if err := h.service.AddCalculationNode(chi.URLParam(r, "sessionID"), input); err != nil {
		common.RespondDomainError(w, r, err)
		return
	}
	common.RespondJSON(w, r, http.StatusCreated, map[string]string{"id": req.ID})
}

// UpdateNodeRequest represents the request body for updating node metadata
type UpdateNodeRequest struct {
	Description    *string   `json:"description,omitempty" validate:"omitempty,max=500"`
	InputVariables *[]string `json:"input_variables,omitempty"`
	OutputVariable *string   `json:"output_variable,omitempty" validate:"omitempty,max=100"`
	LegalReference *string   `json:"legal_reference,omitempty" validate:"omitempty,max=300"`
}

// UpdateNode handles PUT /analyses/{sessionID}/nodes/{nodeID}
func (h *AnalysisHandler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	var req UpdateNodeRequest
	if err := common.ParseJSONBody(w, r, &req, maxBodyBytes); err != nil {
		common.RespondError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	nodeID := chi.URLParam(r, "nodeID")
	update := entities.NodeUpdate{
		Description:    req.Description,
		InputVariables: req.InputVariables,
		OutputVariable: req.OutputVariable,
		LegalReference: req.LegalReference,
	}
	updated, err := h.service.UpdateNode(chi.URLParam(r, "sessionID"), nodeID, update)
	if err != nil {
		common.RespondDomainError(w, r, err)
		return
	}
	if !updated {
		common.RespondError(w, r, http.StatusNotFound, "UNKNOWN_NODE", "calculation node '"+nodeID+"' does not exist")
		return
	}
	common.RespondJSON(w, r, http.StatusOK, map[string]string{"id": nodeID})
}

// DeleteNode handles DELETE /analyses/{sessionID}/nodes/{nodeID}
func (h *AnalysisHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	nodeID := chi.URLParam(r, "nodeID")
	removed, err := h.service.RemoveNode(chi.URLParam(r, "sessionID"), nodeID)
	if err != nil {
		common.RespondDomainError(w, r, err)
		return
	}
	if !removed {
		common.RespondError(w, r, http.StatusNotFound, "UNKNOWN_NODE", "calculation node '"+nodeID+"' does not exist")
		return
	}
	common.RespondJSON(w, r, http.StatusOK, map[string]string{"id": nodeID})
}

// ExecuteNodeRequest represents the request body for executing a node
type ExecuteNodeRequest struct {
	VariableValues map[string]interface{} `json:"variable_values"`
}

// ExecuteNode handles POST /analyses/{sessionID}/nodes/{nodeID}/execute
func (h *AnalysisHandler) ExecuteNode(w http.ResponseWriter, r *http.Request) {
	var req ExecuteNodeRequest
	if err := common.ParseJSONBody(w, r, &req, maxBodyBytes); err != nil {
		common.RespondError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body: "+err.Error())
		return
	}
	if req.VariableValues == nil {
		req.VariableValues = map[string]interface{}{}
	}

	nodeID := chi.URLParam(r, "nodeID")
	result, err := h.service.ExecuteNode(chi.URLParam(r, "sessionID"), nodeID, req.VariableValues)
	if err != nil {
		common.RespondDomainError(w, r, err)
		return
	}
	common.RespondJSON(w, r, http.StatusOK, map[string]interface{}{
		"node_id": nodeID,
		"result":  result,
	})
}

// CreateEdgeRequest represents the request body for connecting two nodes
type CreateEdgeRequest struct {
	From           string `json:"from" validate:"required,min=1,max=100"`
	To             string `json:"to" validate:"required,min=1,max=100"`
	VariablePassed string `json:"variable_passed,omitempty" validate:"omitempty,max=100"`
}

// CreateEdge handles POST /analyses/{sessionID}/edges
func (h *AnalysisHandler) CreateEdge(w http.ResponseWriter, r *http.Request) {
	var req CreateEdgeRequest
	if err := common.ParseJSONBody(w, r, &req, maxBodyBytes); err != nil {
		common.RespondError(w, r, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		common.RespondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	if err := h.service.ConnectNodes(chi.URLParam(r, "sessionID"), req.From, req.To, req.VariablePassed); err != nil {
		common.RespondDomainError(w, r, err)
		return
	}
	common.RespondJSON(w, r, http.StatusCreated, map[string]string{
		"from": req.From,
		"to":   req.To,
	})
}

// DeleteEdge handles DELETE /analyses/{sessionID}/edges?from=...&to=...
func (h *AnalysisHandler) DeleteEdge(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" || to == "" {
		common.RespondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "query parameters 'from' and 'to' are required")
		return
	}

	removed, err := h.service.DisconnectNodes(chi.URLParam(r, "sessionID"), from, to)
	if err != nil {
		common.RespondDomainError(w, r, err)
		return
	}
	if !removed {
		common.RespondError(w, r, http.StatusNotFound, "NOT_FOUND", "no edge from '"+from+"' to '"+to+"'")
		return
	}
	common.RespondJSON(w, r, http.StatusOK, map[string]string{"from": from, "to": to})
}

// GetSummary handles GET /analyses/{sessionID}/summary
func (h *AnalysisHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(chi.URLParam(r, "sessionID"))
	if err != nil {
		common.RespondDomainError(w, r, err)
		return
	}
	common.RespondJSON(w, r, http.StatusOK, summary)
}

// GetLiveStats handles GET /analyses/{sessionID}/live-stats
func (h *AnalysisHandler) GetLiveStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.LiveStats(chi.URLParam(r, "sessionID"))
	if err != nil {
		common.RespondDomainError(w, r, err)
		return
	}
	common.RespondJSON(w, r, http.StatusOK, stats)
}

// GetComponents handles GET /analyses/{sessionID}/components
func (h *AnalysisHandler) GetComponents(w http.ResponseWriter, r *http.Request) {
	components, err := h.service.Components(chi.URLParam(r, "sessionID"))
	if err != nil {
		common.RespondDomainError(w, r, err)
		return
	}
	common.RespondJSON(w, r, http.StatusOK, components)
}

// GetStructure handles GET /analyses/{sessionID}/structure
func (h *AnalysisHandler) GetStructure(w http.ResponseWriter, r *http.Request) {
	structure, err := h.service.Structure(chi.URLParam(r, "sessionID"))
	if err != nil {
		common.RespondDomainError(w, r, err)
		return
	}
	common.RespondJSON(w, r, http.StatusOK, structure)
}

// GetExecutionOrder handles GET /analyses/{sessionID}/execution-order
func (h *AnalysisHandler) GetExecutionOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.ExecutionOrder(chi.URLParam(r, "sessionID"))
	if err != nil {
		common.RespondDomainError(w, r, err)
		return
	}
	common.RespondJSON(w, r, http.StatusOK, map[string]interface{}{"order": order})
}

// GetOutputVariables handles GET /analyses/{sessionID}/outputs
func (h *AnalysisHandler) GetOutputVariables(w http.ResponseWriter, r *http.Request) {
	outputs, err := h.service.OutputVariables(chi.URLParam(r, "sessionID"))
	if err != nil {
		common.RespondDomainError(w, r, err)
		return
	}
	common.RespondJSON(w, r, http.StatusOK, map[string]interface{}{"output_variables": outputs})
}

// ExportAnalysis handles GET /analyses/{sessionID}/export
func (h *AnalysisHandler) ExportAnalysis(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	snapshot, err := h.service.Export(sessionID)
	if err != nil {
		common.RespondDomainError(w, r, err)
		return
	}

	version, err := versioning.ComputeVersion(sessionID, snapshot)
	if err != nil {
		common.RespondDomainError(w, r, err)
		return
	}
	common.RespondJSON(w, r, http.StatusOK, map[string]interface{}{
		"snapshot": snapshot,
		"version":  version,
	})
}

// ListFunctions handles GET /functions
func (h *AnalysisHandler) ListFunctions(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, r, http.StatusOK, map[string]interface{}{
		"functions": h.catalog.Names(),
	})
}
