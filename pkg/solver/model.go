package solver

import "fmt"

// Relation between the left-hand side of a linear constraint and its bound
type Relation int

const (
	LessOrEqual Relation = iota
	GreaterOrEqual
	Equal
)

func (relation Relation) String() string {
	switch relation {
	case LessOrEqual:
		return "<="
	case GreaterOrEqual:
		return ">="
	case Equal:
		return "=="
	}
	return fmt.Sprintf("Relation(%d)", int(relation))
}

type variable struct {
	name    string
	lo, hi  int64
	boolean bool
}

// BoolVar is a literal over a boolean variable of a Model, possibly negated
type BoolVar struct {
	index   int
	negated bool
}

// Not returns the negation of the literal
func (b BoolVar) Not() BoolVar {
	return BoolVar{index: b.index, negated: !b.negated}
}

func (b BoolVar) Index() int { return b.index }

type IntVar struct {
	index int
}

func (v IntVar) Index() int { return v.index }

// Term is a coefficient applied to a (non-negated) model variable
type Term struct {
	Variable int
	Coeff    int64
}

// LinearExpr is a sum of terms plus a constant offset
type LinearExpr struct {
	Terms  []Term
	Offset int64
}

func NewLinearExpr() *LinearExpr {
	return &LinearExpr{}
}

// Sum builds the expression b_1 + ... + b_n
func Sum(literals ...BoolVar) *LinearExpr {
	expr := NewLinearExpr()
	for _, literal := range literals {
		expr.AddBool(literal, 1)
	}
	return expr
}

// AddBool adds coeff*literal, rewriting a negated literal as coeff - coeff*b
func (expr *LinearExpr) AddBool(literal BoolVar, coeff int64) *LinearExpr {
	if literal.negated {
		expr.Offset += coeff
		coeff = -coeff
	}
	expr.Terms = append(expr.Terms, Term{Variable: literal.index, Coeff: coeff})
	return expr
}

func (expr *LinearExpr) AddInt(v IntVar, coeff int64) *LinearExpr {
	expr.Terms = append(expr.Terms, Term{Variable: v.index, Coeff: coeff})
	return expr
}

func (expr *LinearExpr) AddConstant(c int64) *LinearExpr {
	expr.Offset += c
	return expr
}

// Constraint is "Expr Relation Bound", active only when every enforcement literal is true
type Constraint struct {
	Expr        LinearExpr
	Relation    Relation
	Bound       int64
	Enforcement []BoolVar
}

// Model collects variables, constraints and the objective to be maximized
type Model struct {
	variables   []variable
	constraints []Constraint
	objective   LinearExpr
}

func NewModel() *Model {
	return &Model{}
}

func (model *Model) NewBoolVar(name string) BoolVar {
	model.variables = append(model.variables, variable{name: name, lo: 0, hi: 1, boolean: true})
	return BoolVar{index: len(model.variables) - 1}
}

func (model *Model) NewIntVar(lo, hi int64, name string) IntVar {
	if lo > hi {
		panic(fmt.Sprintf("empty domain [%d, %d] for integer variable %q", lo, hi, name))
	}
	model.variables = append(model.variables, variable{name: name, lo: lo, hi: hi})
	return IntVar{index: len(model.variables) - 1}
}

func (model *Model) AddLinearConstraint(expr *LinearExpr, relation Relation, bound int64) {
	model.addConstraint(expr, relation, bound, nil)
}

// AddImplication adds "condition => expr relation bound"
func (model *Model) AddImplication(condition BoolVar, expr *LinearExpr, relation Relation, bound int64) {
	model.addConstraint(expr, relation, bound, []BoolVar{condition})
}

func (model *Model) addConstraint(expr *LinearExpr, relation Relation, bound int64, enforcement []BoolVar) {
	constraint := Constraint{
		Expr:        LinearExpr{Terms: append([]Term(nil), expr.Terms...), Offset: expr.Offset},
		Relation:    relation,
		Bound:       bound,
		Enforcement: enforcement,
	}
	model.constraints = append(model.constraints, constraint)
}

func (model *Model) Maximize(expr *LinearExpr) {
	model.objective = LinearExpr{Terms: append([]Term(nil), expr.Terms...), Offset: expr.Offset}
}

func (model *Model) NumVariables() int { return len(model.variables) }

func (model *Model) NumConstraints() int { return len(model.constraints) }

func (model *Model) Constraints() []Constraint { return model.constraints }

func (model *Model) Objective() LinearExpr { return model.objective }

// VariableName returns the name given at creation time
func (model *Model) VariableName(index int) string { return model.variables[index].name }

// Bounds returns the domain of a variable
func (model *Model) Bounds(index int) (lo, hi int64) {
	return model.variables[index].lo, model.variables[index].hi
}
