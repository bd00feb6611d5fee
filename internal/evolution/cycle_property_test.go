//go:build property
// +build property

package evolution_test

import (
	"encoding/json"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"gorm.io/datatypes"

	"genehub/internal/evolution"
	"genehub/internal/models"
)

func propGene(id string, generation int, params map[string]float64) *models.Gene {
	raw, err := json.Marshal(params)
	if err != nil {
		panic(err)
	}
	return &models.Gene{
		ID:         id,
		Name:       id,
		Formula:    "RSI14 < 30",
		Parameters: datatypes.JSON(raw),
		Generation: generation,
		Status:     models.GeneStatusActive,
	}
}

func TestCrossover_GenerationInvariantProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300

	properties := gopter.NewProperties(parameters)

	properties.Property("child generation is max(parents)+1", prop.ForAll(
		func(genA, genB int) bool {
			a := propGene("a", genA, map[string]float64{"x": 1})
			b := propGene("b", genB, map[string]float64{"y": 2})
			child, err := evolution.Crossover(a, b, "c")
			if err != nil {
				return false
			}
			want := genA
			if genB > want {
				want = genB
			}
			return child.Generation == want+1
		},
		gen.IntRange(0, 1000),
		gen.IntRange(0, 1000),
	))

	properties.TestingRun(t)
}

func TestCrossover_ParameterUnionProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("child parameters are the union with the second parent winning", prop.ForAll(
		func(pa, pb map[string]float64) bool {
			a := propGene("a", 0, pa)
			b := propGene("b", 0, pb)
			child, err := evolution.Crossover(a, b, "c")
			if err != nil {
				return false
			}
			var got map[string]float64
			if err := json.Unmarshal(child.Parameters, &got); err != nil {
				return false
			}
			want := map[string]float64{}
			for k, v := range pa {
				want[k] = v
			}
			for k, v := range pb {
				want[k] = v
			}
			if len(got) != len(want) {
				return false
			}
			for k, v := range want {
				if got[k] != v {
					return false
				}
			}
			return true
		},
		gen.MapOf(gen.Identifier(), gen.Float64Range(-100, 100)),
		gen.MapOf(gen.Identifier(), gen.Float64Range(-100, 100)),
	))

	properties.TestingRun(t)
}
