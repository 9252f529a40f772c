package ecs

import (
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rotisserie/eris"
)

// SearchParam contains parameters for a search query.
// The where clause is an expr language boolean expression evaluated against each entity, see
// https://expr-lang.org/docs/getting-started. Components are available by name and the entity ID
// as _id, e.g. `transform.LocalPosition.X > 3 && _id != 1`.
type SearchParam struct {
	Find  []string    // List of component names to search for
	Match SearchMatch // A match type to use for the search
	Where string      // Optional expr language string to filter the results
}

// SearchMatch is the type of match to use for the search.
type SearchMatch string

const (
	// MatchExact matches entities that have exactly the specified components.
	MatchExact SearchMatch = "exact"
	// MatchContains matches entities that contain the specified components, but may have other
	// components as well.
	MatchContains SearchMatch = "contains"
)

// compileFilter validates the search parameters and returns the compiled where clause, or nil if
// there is none.
func (s *SearchParam) compileFilter() (*vm.Program, error) {
	if len(s.Find) == 0 {
		return nil, eris.New("component list cannot be empty")
	}

	if s.Match != MatchExact && s.Match != MatchContains {
		return nil, eris.Errorf("invalid `match` value: must be either '%s' or '%s'", MatchExact, MatchContains)
	}

	if s.Where == "" {
		return nil, nil //nolint:nilnil // no filter
	}

	filter, err := expr.Compile(s.Where, expr.AsBool())
	if err != nil {
		return nil, eris.Wrap(err, "failed to parse where clause")
	}
	return filter, nil
}

// Search returns a map of component name to value for every entity matching the search, with the
// entity ID under "_id". Results are ordered by archetype creation, then row.
func (w *World) Search(params SearchParam) ([]map[string]any, error) {
	filter, err := params.compileFilter()
	if err != nil {
		return nil, eris.Wrap(err, "invalid search params")
	}

	var required Signature
	for _, name := range params.Find {
		id, err := w.components.getID(name)
		if err != nil {
			return nil, eris.Wrap(err, "failed to get archetypes from components")
		}
		required.bits.Set(id)
	}

	var archs []*archetype
	switch params.Match {
	case MatchExact:
		if arch := w.store.exact(required); arch != nil {
			archs = []*archetype{arch}
		}
	case MatchContains:
		archs = w.store.matching(required, 0)
	}

	results := make([]map[string]any, 0)
	for _, arch := range archs {
		for row := range arch.len() {
			entity := entityToMap(arch, row)

			if filter == nil {
				results = append(results, entity)
				continue
			}

			// The entity map is the environment of the program, so the filter can read its components.
			output, err := expr.Run(filter, entity)
			if err != nil {
				return nil, eris.Wrap(err, "failed to run filter expression")
			}

			// The where clause is compiled without an environment, so expr can't check the result
			// type of field accesses until it runs.
			match, ok := output.(bool)
			if !ok {
				return nil, eris.New("invalid where clause")
			}
			if match {
				results = append(results, entity)
			}
		}
	}
	return results, nil
}

// entityToMap converts the entity in a row to a map of its components.
func entityToMap(arch *archetype, row int) map[string]any {
	data := make(map[string]any, len(arch.columns)+1)
	// expr can't compare EntityID with integer literals, so the ID is stored as an int.
	data["_id"] = int(arch.entities[row]) //nolint:gosec // IDs fit in int on 64-bit platforms
	for _, col := range arch.columns {
		data[col.name()] = col.getAbstract(row)
	}
	return data
}
