package ecs

import (
	"github.com/rotisserie/eris"
)

// DefaultPipeline is the pipeline every world starts with. Systems registered without InPipeline
// are appended to it.
const DefaultPipeline = "onUpdate"

// pipeline is a named, ordered list of systems.
type pipeline struct {
	name    string
	systems []*system
}

// AddPipeline appends a pipeline. Pipelines run in the order they were added.
func (w *World) AddPipeline(name string) error {
	if w.started {
		return eris.Wrapf(ErrRegistrationClosed, "pipeline %s", name)
	}
	if name == "" {
		return eris.New("pipeline name cannot be empty")
	}
	if _, exists := w.pipelineIndex[name]; exists {
		return eris.Errorf("pipeline %s already exists", name)
	}

	w.pipelineIndex[name] = len(w.pipelines)
	w.pipelines = append(w.pipelines, &pipeline{name: name, systems: make([]*system, 0)})
	return nil
}

// Pipelines returns the pipeline names in execution order.
func (w *World) Pipelines() []string {
	names := make([]string, len(w.pipelines))
	for i, p := range w.pipelines {
		names[i] = p.name
	}
	return names
}

// Systems returns the names of the systems of a pipeline in execution order.
func (w *World) Systems(pipelineName string) ([]string, error) {
	idx, ok := w.pipelineIndex[pipelineName]
	if !ok {
		return nil, eris.Wrapf(ErrPipelineNotFound, "pipeline %s", pipelineName)
	}
	systems := w.pipelines[idx].systems
	names := make([]string, len(systems))
	for i, s := range systems {
		names[i] = s.name
	}
	return names, nil
}
