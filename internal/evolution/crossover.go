package evolution

import (
	"encoding/json"
	"errors"
	"fmt"

	"genehub/internal/models"
)

var (
	ErrNilParent        = errors.New("evolution: crossover parent is nil")
	ErrIdenticalParents = errors.New("evolution: crossover parents must be distinct")
)

// Crossover breeds a child from two distinct parents. The child conjoins both
// formulas, merges parameters with the second parent winning key conflicts,
// and sits one generation past the older parent.
func Crossover(a, b *models.Gene, childID string) (*models.Gene, error) {
	if a == nil || b == nil {
		return nil, ErrNilParent
	}
	if a.ID == b.ID {
		return nil, fmt.Errorf("%w: %s", ErrIdenticalParents, a.ID)
	}

	params, err := mergeParameters(a.Parameters, b.Parameters)
	if err != nil {
		return nil, err
	}
	parents, err := json.Marshal([]string{a.ID, b.ID})
	if err != nil {
		return nil, fmt.Errorf("evolution: encode parent ids: %w", err)
	}

	gen := a.Generation
	if b.Generation > gen {
		gen = b.Generation
	}

	return &models.Gene{
		ID:         childID,
		Name:       fmt.Sprintf("%s x %s", a.Name, b.Name),
		Formula:    fmt.Sprintf("(%s) AND (%s)", a.Formula, b.Formula),
		Parameters: params,
		Generation: gen + 1,
		ParentIDs:  parents,
		Status:     models.GeneStatusActive,
	}, nil
}

func mergeParameters(a, b []byte) ([]byte, error) {
	merged := map[string]json.RawMessage{}
	if len(a) > 0 {
		if err := json.Unmarshal(a, &merged); err != nil {
			return nil, fmt.Errorf("evolution: decode first parent parameters: %w", err)
		}
	}
	overlay := map[string]json.RawMessage{}
	if len(b) > 0 {
		if err := json.Unmarshal(b, &overlay); err != nil {
			return nil, fmt.Errorf("evolution: decode second parent parameters: %w", err)
		}
	}
	for k, v := range overlay {
		merged[k] = v
	}
	out, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("evolution: encode merged parameters: %w", err)
	}
	return out, nil
}
