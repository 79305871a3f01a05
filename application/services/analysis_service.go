package services

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"payflow-backend/domain/core/aggregates"
	"payflow-backend/domain/core/entities"
	"payflow-backend/domain/core/valueobjects"
	"payflow-backend/infrastructure/monitoring"
	"payflow-backend/pkg/errors"
)

// VariableInput carries the fields needed to register a payroll variable.
type VariableInput struct {
	Name               string
	Kind               valueobjects.VariableKind
	Description        string
	DataType           valueobjects.DataType
	LegalReference     string
	CalculationFormula string
	DependsOn          []string
}

// NodeInput carries the fields needed to create a calculation node.
// Function names the catalog entry bound to the node.
type NodeInput struct {
	ID             string
	Function       string
	Description    string
	InputVariables []string
	OutputVariable string
	LegalReference string
}

// AnalysisService owns the lifecycle of impact analyses: one graph per
// session, created on demand and mutated through this service so every
// change is recorded on the monitor. Graph aggregates are not
// internally synchronized, so each analysis carries its own mutex and
// all access goes through withAnalysis.
type AnalysisService struct {
	mu       sync.RWMutex
	analyses map[string]*analysis

	catalog *FunctionCatalog
	monitor *monitoring.Monitor
	logger  *zap.Logger
}

type analysis struct {
	mu    sync.Mutex
	graph *aggregates.ImpactGraph
}

// NewAnalysisService creates the service with its function catalog and monitor.
func NewAnalysisService(catalog *FunctionCatalog, monitor *monitoring.Monitor, logger *zap.Logger) *AnalysisService {
	return &AnalysisService{
		analyses: make(map[string]*analysis),
		catalog:  catalog,
		monitor:  monitor,
		logger:   logger,
	}
}

// CreateAnalysis starts a new impact analysis and its monitoring
// session, returning the session ID used by every other operation.
func (s *AnalysisService) CreateAnalysis(description, convention, userID string) string {
	sessionID := uuid.New().String()

	graph := aggregates.NewImpactGraph()
	graph.SetImpactSource(description, convention)

	s.mu.Lock()
	s.analyses[sessionID] = &analysis{graph: graph}
	s.mu.Unlock()

	s.monitor.StartSession(sessionID, description, userID)
	s.logger.Info("Analysis created",
		zap.String("sessionID", sessionID),
		zap.String("convention", convention),
	)
	return sessionID
}

// CompleteAnalysis ends the monitoring session with the given status.
// The analysis graph stays queryable afterwards.
func (s *AnalysisService) CompleteAnalysis(sessionID, status string) error {
	s.mu.RLock()
	_, ok := s.analyses[sessionID]
	s.mu.RUnlock()
	if !ok {
		return errors.NewSessionNotFoundError(sessionID)
	}

	s.monitor.EndSession(sessionID, status)
	s.logger.Info("Analysis completed",
		zap.String("sessionID", sessionID),
		zap.String("status", status),
	)
	return nil
}

// SetImpactSource replaces the impact source under study.
func (s *AnalysisService) SetImpactSource(sessionID, description, convention string) error {
	return s.withAnalysis(sessionID, func(g *aggregates.ImpactGraph) error {
		g.SetImpactSource(description, convention)
		s.monitor.LogAgentAction(sessionID, "payroll_agent", "impact_source_set",
			"impact source updated: "+description, monitoring.LevelInfo,
			map[string]interface{}{"description": description, "convention": convention})
		return nil
	})
}

// AddVariable registers a payroll variable on the analysis graph.
// Re-adding an existing name is an upsert.
func (s *AnalysisService) AddVariable(sessionID string, input VariableInput) error {
	return s.withAnalysis(sessionID, func(g *aggregates.ImpactGraph) error {
		v := valueobjects.NewVariable(input.Name, input.Kind, input.Description, input.DataType)
		v.LegalReference = input.LegalReference
		v.CalculationFormula = input.CalculationFormula
		if input.DependsOn != nil {
			v.DependsOn = input.DependsOn
		}
		g.AddVariable(v)

		s.monitor.LogVariableCreation(sessionID, input.Name, string(input.Kind), input.CalculationFormula)
		return nil
	})
}

// UpdateVariable applies whitelisted field changes to a variable.
func (s *AnalysisService) UpdateVariable(sessionID, name string, update valueobjects.VariableUpdate) (bool, error) {
	var updated bool
	err := s.withAnalysis(sessionID, func(g *aggregates.ImpactGraph) error {
		updated = g.UpdateVariable(name, update)
		if updated {
			s.monitor.LogAgentAction(sessionID, "payroll_agent", "variable_update",
				"variable updated: "+name, monitoring.LevelInfo,
				map[string]interface{}{"variable_name": name})
		}
		return nil
	})
	return updated, err
}

// RemoveVariable deletes a variable; removal never cascades to nodes.
func (s *AnalysisService) RemoveVariable(sessionID, name string) (bool, error) {
	var removed bool
	err := s.withAnalysis(sessionID, func(g *aggregates.ImpactGraph) error {
		removed = g.RemoveVariable(name)
		if removed {
			s.monitor.LogAgentAction(sessionID, "payroll_agent", "variable_removal",
				"variable removed: "+name, monitoring.LevelInfo,
				map[string]interface{}{"variable_name": name})
		}
		return nil
	})
	return removed, err
}

// AddCalculationNode resolves the node's function from the catalog and
// registers the node on the graph.
func (s *AnalysisService) AddCalculationNode(sessionID string, input NodeInput) error {
	return s.withAnalysis(sessionID, func(g *aggregates.ImpactGraph) error {
		fn, err := s.catalog.Resolve(input.Function, input.InputVariables)
		if err != nil {
			s.monitor.LogError(sessionID, "payroll_agent",
				"unknown function '"+input.Function+"' for node '"+input.ID+"'", err)
			return err
		}

		node, err := entities.NewCalculationNode(input.ID, fn, input.Description)
		if err != nil {
			return errors.NewDomainError(errors.ErrorTypeValidation, errors.CodeInvalidFunction, err.Error())
		}
		node.InputVariables = input.InputVariables
		node.OutputVariable = input.OutputVariable
		node.LegalReference = input.LegalReference

		if err := g.AddCalculationNode(node); err != nil {
			return err
		}

		s.monitor.LogAgentAction(sessionID, "payroll_agent", "node_creation",
			"calculation node created: "+input.ID, monitoring.LevelInfo,
			map[string]interface{}{"node_id": input.ID, "function": input.Function})
		s.monitor.LogGraphUpdate(sessionID, g.NodeCount(), g.EdgeCount(), "node_added")
		return nil
	})
}

// UpdateNode applies metadata changes to a node; the bound function is immutable.
func (s *AnalysisService) UpdateNode(sessionID, nodeID string, update entities.NodeUpdate) (bool, error) {
	var updated bool
	err := s.withAnalysis(sessionID, func(g *aggregates.ImpactGraph) error {
		updated = g.UpdateNode(nodeID, update)
		if updated {
			s.monitor.LogAgentAction(sessionID, "payroll_agent", "node_update",
				"node updated: "+nodeID, monitoring.LevelInfo,
				map[string]interface{}{"node_id": nodeID})
		}
		return nil
	})
	return updated, err
}

// RemoveNode deletes a node and its incident edges.
func (s *AnalysisService) RemoveNode(sessionID, nodeID string) (bool, error) {
	var removed bool
	err := s.withAnalysis(sessionID, func(g *aggregates.ImpactGraph) error {
		removed = g.RemoveNode(nodeID)
		if removed {
			s.monitor.LogGraphUpdate(sessionID, g.NodeCount(), g.EdgeCount(), "node_removed")
		}
		return nil
	})
	return removed, err
}

// ConnectNodes creates a directed edge between two existing nodes.
func (s *AnalysisService) ConnectNodes(sessionID, fromNode, toNode, variablePassed string) error {
	return s.withAnalysis(sessionID, func(g *aggregates.ImpactGraph) error {
		if err := g.Connect(fromNode, toNode, variablePassed); err != nil {
			s.monitor.LogError(sessionID, "impact_graph",
				"connection failed: "+fromNode+" -> "+toNode, err)
			return err
		}
		s.monitor.LogGraphUpdate(sessionID, g.NodeCount(), g.EdgeCount(), "edge_added")
		return nil
	})
}

// DisconnectNodes removes the edge between two nodes.
func (s *AnalysisService) DisconnectNodes(sessionID, fromNode, toNode string) (bool, error) {
	var removed bool
	err := s.withAnalysis(sessionID, func(g *aggregates.ImpactGraph) error {
		removed = g.RemoveEdge(fromNode, toNode)
		if removed {
			s.monitor.LogGraphUpdate(sessionID, g.NodeCount(), g.EdgeCount(), "edge_removed")
		}
		return nil
	})
	return removed, err
}

// ExecuteNode runs one calculation with the supplied variable values.
// The result is returned to the caller and never stored on the graph.
func (s *AnalysisService) ExecuteNode(sessionID, nodeID string, values map[string]interface{}) (interface{}, error) {
	var result interface{}
	err := s.withAnalysis(sessionID, func(g *aggregates.ImpactGraph) error {
		var execErr error
		result, execErr = g.Execute(nodeID, values)
		if execErr != nil {
			s.monitor.LogError(sessionID, "payroll_agent",
				"execution failed for node '"+nodeID+"'", execErr)
			return execErr
		}

		s.monitor.LogAgentAction(sessionID, "payroll_agent", "node_execution",
			"node executed: "+nodeID, monitoring.LevelInfo,
			map[string]interface{}{"node_id": nodeID, "result": result})
		return nil
	})
	return result, err
}

// ExecutionOrder computes a topological order over the calculation nodes.
func (s *AnalysisService) ExecutionOrder(sessionID string) ([]string, error) {
	var order []string
	err := s.withAnalysis(sessionID, func(g *aggregates.ImpactGraph) error {
		var orderErr error
		order, orderErr = g.TopologicalOrder()
		if orderErr != nil {
			s.monitor.LogError(sessionID, "impact_graph", "no execution order", orderErr)
			return orderErr
		}
		return nil
	})
	return order, err
}

// GraphStructure is the traversal-oriented view of an analysis graph.
type GraphStructure struct {
	Nodes       []string           `json:"nodes"`
	Edges       []*aggregates.Edge `json:"edges"`
	EntryPoints []string           `json:"entry_points"`
	ExitPoints  []string           `json:"exit_points"`
}

// Structure returns the node and edge listing with entry and exit points.
func (s *AnalysisService) Structure(sessionID string) (GraphStructure, error) {
	var structure GraphStructure
	err := s.withAnalysis(sessionID, func(g *aggregates.ImpactGraph) error {
		structure = GraphStructure{
			Nodes:       g.NodeIDs(),
			Edges:       g.Edges(),
			EntryPoints: g.EntryPoints(),
			ExitPoints:  g.ExitPoints(),
		}
		return nil
	})
	return structure, err
}

// Summary returns the variable counts and names plus the impact source.
func (s *AnalysisService) Summary(sessionID string) (aggregates.VariableSummary, error) {
	var summary aggregates.VariableSummary
	err := s.withAnalysis(sessionID, func(g *aggregates.ImpactGraph) error {
		summary = g.Summary()
		return nil
	})
	return summary, err
}

// LiveStats returns the lightweight polling projection.
func (s *AnalysisService) LiveStats(sessionID string) (aggregates.LiveStats, error) {
	var stats aggregates.LiveStats
	err := s.withAnalysis(sessionID, func(g *aggregates.ImpactGraph) error {
		stats = g.LiveStats()
		return nil
	})
	return stats, err
}

// Components lists every component in the analysis graph.
func (s *AnalysisService) Components(sessionID string) (aggregates.Components, error) {
	var components aggregates.Components
	err := s.withAnalysis(sessionID, func(g *aggregates.ImpactGraph) error {
		components = g.ListComponents()
		return nil
	})
	return components, err
}

// Export returns the full graph snapshot for the analysis.
func (s *AnalysisService) Export(sessionID string) (aggregates.Snapshot, error) {
	var snapshot aggregates.Snapshot
	err := s.withAnalysis(sessionID, func(g *aggregates.ImpactGraph) error {
		snapshot = g.Export()
		return nil
	})
	return snapshot, err
}

// OutputVariables returns the output names derived from the graph's nodes.
func (s *AnalysisService) OutputVariables(sessionID string) ([]string, error) {
	var outputs []string
	err := s.withAnalysis(sessionID, func(g *aggregates.ImpactGraph) error {
		outputs = g.OutputVariables()
		return nil
	})
	return outputs, err
}

// ResetAnalysis clears the analysis graph back to empty.
func (s *AnalysisService) ResetAnalysis(sessionID string) error {
	return s.withAnalysis(sessionID, func(g *aggregates.ImpactGraph) error {
		g.Reset()
		s.monitor.LogGraphUpdate(sessionID, 0, 0, "reset")
		return nil
	})
}

// withAnalysis runs fn with the session's graph under its mutex.
func (s *AnalysisService) withAnalysis(sessionID string, fn func(*aggregates.ImpactGraph) error) error {
	s.mu.RLock()
	a, ok := s.analyses[sessionID]
	s.mu.RUnlock()
	if !ok {
		return errors.NewSessionNotFoundError(sessionID)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return fn(a.graph)
}
