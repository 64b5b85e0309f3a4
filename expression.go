package voxport

import "fmt"

// Abbreviations of the built-in expressions.
const (
	PITD = "pitd" // pitch deviation, in cents
	DYN  = "dyn"  // dynamics
	BRE  = "bre"  // breathiness
	GEN  = "gen"  // gender
	TENC = "tenc" // tension
	VOIC = "voic" // voicing
	VEL  = "vel"  // consonant velocity
	VOL  = "vol"  // volume
)

// ExpressionDescriptor describes an expression of a project: its range and
// default value. Curve expressions are stored as Curves in the voice parts,
// keyed by Abbr.
type ExpressionDescriptor struct {
	Name    string `yaml:"name"`
	Abbr    string `yaml:"abbr"`
	Min     int    `yaml:"min"`
	Max     int    `yaml:"max"`
	Default int    `yaml:"default_value"`
	IsCurve bool   `yaml:"is_curve,omitempty"`
}

// Clamp limits value to [Min, Max] of the descriptor.
func (d ExpressionDescriptor) Clamp(value int) int {
	return min(max(value, d.Min), d.Max)
}

// DefaultExpressions returns the expressions every new project starts with.
func DefaultExpressions() []ExpressionDescriptor {
	return []ExpressionDescriptor{
		{Name: "pitch deviation", Abbr: PITD, Min: -1200, Max: 1200, Default: 0, IsCurve: true},
		{Name: "dynamics (curve)", Abbr: DYN, Min: -240, Max: 120, Default: 0, IsCurve: true},
		{Name: "breathiness (curve)", Abbr: BRE, Min: 0, Max: 100, Default: 0, IsCurve: true},
		{Name: "gender (curve)", Abbr: GEN, Min: -100, Max: 100, Default: 0, IsCurve: true},
		{Name: "tension (curve)", Abbr: TENC, Min: -100, Max: 100, Default: 0, IsCurve: true},
		{Name: "voicing (curve)", Abbr: VOIC, Min: 0, Max: 100, Default: 100, IsCurve: true},
		{Name: "velocity", Abbr: VEL, Min: 0, Max: 200, Default: 100},
		{Name: "volume", Abbr: VOL, Min: 0, Max: 200, Default: 100},
	}
}

// Expression looks up the descriptor registered for abbr.
func (p *Project) Expression(abbr string) (ExpressionDescriptor, error) {
	if d, ok := p.Expressions[abbr]; ok {
		return d, nil
	}
	return ExpressionDescriptor{}, fmt.Errorf("%w: %q", ErrMissingExpression, abbr)
}

// RegisterExpression adds or replaces an expression of the project.
func (p *Project) RegisterExpression(d ExpressionDescriptor) {
	if p.Expressions == nil {
		p.Expressions = map[string]ExpressionDescriptor{}
	}
	p.Expressions[d.Abbr] = d
}
