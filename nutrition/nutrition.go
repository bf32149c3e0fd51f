package nutrition

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

type ServingUnit string

const (
	UnitGram       ServingUnit = "g"
	UnitMilliliter ServingUnit = "ml"
	UnitPiece      ServingUnit = "piece"
)

type UnitKind string

const (
	KindMass   UnitKind = "mass"
	KindVolume UnitKind = "volume"
	KindCount  UnitKind = "count"
)

// gram-equivalent per unit; volume is treated as mass 1:1
var unitWeights = map[ServingUnit]float64{
	UnitGram:       1,
	UnitMilliliter: 1,
}

var (
	ErrInvalidServing = errors.New("serving value must be positive")
	ErrUnknownUnit    = errors.New("unknown serving unit")
)

func (u ServingUnit) Kind() UnitKind {
	switch u {
	case UnitGram:
		return KindMass
	case UnitMilliliter:
		return KindVolume
	default:
		return KindCount
	}
}

func (u ServingUnit) Valid() bool {
	switch u {
	case UnitGram, UnitMilliliter, UnitPiece:
		return true
	}
	return false
}

type Serving struct {
	Value float64     `json:"value"`
	Unit  ServingUnit `json:"unit"`
}

// Validate is for callers that need strict input checks; the arithmetic
// below never rejects a serving.
func (s Serving) Validate() error {
	if !s.Unit.Valid() {
		return ErrUnknownUnit
	}
	if s.Value <= 0 {
		return ErrInvalidServing
	}
	return nil
}

// Nutrients holds the amount of each nutrient for one quantity of food.
// Fiber, Sugar and Salt are optional; nil means absent.
type Nutrients struct {
	Calories float64  `json:"calories"`
	Protein  float64  `json:"protein"`
	Carbs    float64  `json:"carbs"`
	Fat      float64  `json:"fat"`
	Fiber    *float64 `json:"fiber,omitempty"`
	Sugar    *float64 `json:"sugar,omitempty"`
	Salt     *float64 `json:"salt,omitempty"`
}

func Float(v float64) *float64 {
	return &v
}

func value(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// Zero returns the fully populated zero vector.
func Zero() Nutrients {
	return Nutrients{Fiber: Float(0), Sugar: Float(0), Salt: Float(0)}
}

// Fill returns n with every optional field populated, missing ones as 0.
func Fill(n Nutrients) Nutrients {
	return Nutrients{
		Calories: n.Calories,
		Protein:  n.Protein,
		Carbs:    n.Carbs,
		Fat:      n.Fat,
		Fiber:    Float(value(n.Fiber)),
		Sugar:    Float(value(n.Sugar)),
		Salt:     Float(value(n.Salt)),
	}
}

// Round rounds half away from zero at the given number of decimals.
func Round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

func round2(v float64) float64 {
	return Round(v, 2)
}

// Scale multiplies every present field by factor. Absent optional fields stay absent.
func Scale(n Nutrients, factor float64) Nutrients {
	out := Nutrients{
		Calories: round2(n.Calories * factor),
		Protein:  round2(n.Protein * factor),
		Carbs:    round2(n.Carbs * factor),
		Fat:      round2(n.Fat * factor),
	}
	if n.Fiber != nil {
		out.Fiber = Float(round2(*n.Fiber * factor))
	}
	if n.Sugar != nil {
		out.Sugar = Float(round2(*n.Sugar * factor))
	}
	if n.Salt != nil {
		out.Salt = Float(round2(*n.Salt * factor))
	}
	return out
}

// Sum adds vectors pointwise. The result always has all seven fields set.
func Sum(items ...Nutrients) Nutrients {
	acc := Zero()
	for _, it := range items {
		acc.Calories = round2(acc.Calories + it.Calories)
		acc.Protein = round2(acc.Protein + it.Protein)
		acc.Carbs = round2(acc.Carbs + it.Carbs)
		acc.Fat = round2(acc.Fat + it.Fat)
		*acc.Fiber = round2(*acc.Fiber + value(it.Fiber))
		*acc.Sugar = round2(*acc.Sugar + value(it.Sugar))
		*acc.Salt = round2(*acc.Salt + value(it.Salt))
	}
	return acc
}

// ToGrams converts a serving to its gram equivalent. The bool is false for
// count-based servings, which have no mass.
func ToGrams(s Serving) (float64, bool) {
	w, ok := unitWeights[s.Unit]
	if !ok {
		return 0, false
	}
	return round2(s.Value * w), true
}

// ComputeEntryNutrients scales perServing, given for productServing, to the
// user's portion. Same units scale by value ratio; mass and volume convert
// through grams. Anything else falls back to the raw value ratio.
func ComputeEntryNutrients(perServing Nutrients, productServing, portion Serving) Nutrients {
	return Fill(Scale(perServing, ScaleFactor(productServing, portion)))
}

func ScaleFactor(productServing, portion Serving) float64 {
	if portion.Unit != productServing.Unit {
		servingGrams, okServing := ToGrams(productServing)
		portionGrams, okPortion := ToGrams(portion)
		if okServing && okPortion && servingGrams != 0 && portionGrams != 0 {
			return portionGrams / servingGrams
		}
	}
	return portion.Value / productServing.Value
}

// Per100gToPerServing derives per-serving values from per-100g values.
// It returns false when per100g is nil or the serving has no gram equivalent.
func Per100gToPerServing(per100g *Nutrients, serving Serving) (Nutrients, bool) {
	if per100g == nil {
		return Nutrients{}, false
	}
	grams, ok := ToGrams(serving)
	if !ok || grams == 0 {
		return Nutrients{}, false
	}
	return Scale(*per100g, grams/100), true
}

// Clone returns a copy that shares no optional-field pointers with n.
func (n Nutrients) Clone() Nutrients {
	out := n
	if n.Fiber != nil {
		out.Fiber = Float(*n.Fiber)
	}
	if n.Sugar != nil {
		out.Sugar = Float(*n.Sugar)
	}
	if n.Salt != nil {
		out.Salt = Float(*n.Salt)
	}
	return out
}
