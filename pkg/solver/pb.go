package solver

import (
	"fmt"
	"math/bits"
	"strings"
)

// PBTerm is Coeff * literal, where Literal is +x or -x (negation) over 1-based variables
type PBTerm struct {
	Coeff   int64
	Literal int64
}

// PBConstraint holds "sum(terms) >= Degree" with positive coefficients
type PBConstraint struct {
	Terms  []PBTerm
	Degree int64
}

// PB is a pseudo-boolean optimization instance: minimize Objective subject to Constraints.
// Objective terms are always over positive literals and may carry any sign.
type PB struct {
	Variables   uint64
	Constraints []PBConstraint
	Objective   []PBTerm

	encodings []encoding
	branching []int64
	phases    []bool // Indexed by variable; true when the search tries "true" first
}

// A model variable's value is lo + sum(2^i * bits[i])
type encoding struct {
	lo   int64
	bits []int64
}

type rawTerm struct {
	variable int64
	coeff    int64
}

// Compile lowers a Model into a PB instance: integers are binary encoded, constraints are normalized
// into ">=" form and enforcement literals are linearized (big-M over the negated literal)
func Compile(model *Model) *PB {
	pb := &PB{
		encodings: make([]encoding, len(model.variables)),
		phases:    []bool{false}, // Variables are 1-based
	}

	var intBits []int64
	for i, v := range model.variables {
		span := uint64(v.hi - v.lo)
		width := bits.Len64(span)
		enc := encoding{lo: v.lo, bits: make([]int64, width)}
		for b := range width {
			pb.Variables++
			enc.bits[b] = int64(pb.Variables)
			pb.phases = append(pb.phases, v.boolean)
			if v.boolean {
				pb.branching = append(pb.branching, enc.bits[b])
			} else {
				intBits = append(intBits, enc.bits[b])
			}
		}
		pb.encodings[i] = enc

		// Trim the encoding when the domain size is not a power of two
		if width > 0 && span != (uint64(1)<<width)-1 {
			terms := make([]rawTerm, 0, width)
			for b, x := range enc.bits {
				terms = append(terms, rawTerm{x, int64(1) << b})
			}
			pb.addLinear(terms, LessOrEqual, int64(span), nil)
		}
	}
	pb.branching = append(pb.branching, intBits...)

	for _, constraint := range model.constraints {
		terms, offset := pb.expand(constraint.Expr)
		enforcement := make([]int64, 0, len(constraint.Enforcement))
		for _, literal := range constraint.Enforcement {
			enforcement = append(enforcement, pb.literal(literal))
		}
		pb.addLinear(terms, constraint.Relation, constraint.Bound-offset, enforcement)
	}

	// Maximize f  <=>  minimize -f
	terms, _ := pb.expand(model.objective)
	for _, term := range terms {
		pb.Objective = append(pb.Objective, PBTerm{Coeff: -term.coeff, Literal: term.variable})
		if term.coeff > 0 {
			pb.phases[term.variable] = true
		} else if term.coeff < 0 {
			pb.phases[term.variable] = false
		}
	}

	return pb
}

func (pb *PB) literal(b BoolVar) int64 {
	x := pb.encodings[b.index].bits[0]
	if b.negated {
		return -x
	}
	return x
}

// Expands a model expression over the binary encoding, merging repeated variables
func (pb *PB) expand(expr LinearExpr) ([]rawTerm, int64) {
	offset := expr.Offset
	coeffs := make(map[int64]int64)
	order := make([]int64, 0, len(expr.Terms))
	for _, term := range expr.Terms {
		enc := pb.encodings[term.Variable]
		offset += term.Coeff * enc.lo
		for b, x := range enc.bits {
			if _, ok := coeffs[x]; !ok {
				order = append(order, x)
			}
			coeffs[x] += term.Coeff << b
		}
	}

	terms := make([]rawTerm, 0, len(order))
	for _, x := range order {
		if coeffs[x] != 0 {
			terms = append(terms, rawTerm{x, coeffs[x]})
		}
	}
	return terms, offset
}

func (pb *PB) addLinear(terms []rawTerm, relation Relation, bound int64, enforcement []int64) {
	switch relation {
	case GreaterOrEqual:
		pb.addGreaterOrEqual(terms, bound, enforcement)
	case LessOrEqual:
		negated := make([]rawTerm, len(terms))
		for i, term := range terms {
			negated[i] = rawTerm{term.variable, -term.coeff}
		}
		pb.addGreaterOrEqual(negated, -bound, enforcement)
	case Equal:
		pb.addLinear(terms, GreaterOrEqual, bound, enforcement)
		pb.addLinear(terms, LessOrEqual, bound, enforcement)
	default:
		panic(fmt.Sprintf("unsupported relation %v", relation))
	}
}

func (pb *PB) addGreaterOrEqual(terms []rawTerm, degree int64, enforcement []int64) {
	constraint := PBConstraint{Terms: make([]PBTerm, 0, len(terms)+len(enforcement))}
	for _, term := range terms {
		if term.coeff > 0 {
			constraint.Terms = append(constraint.Terms, PBTerm{Coeff: term.coeff, Literal: term.variable})
		} else if term.coeff < 0 {
			// a*x = a + |a|*(not x)
			constraint.Terms = append(constraint.Terms, PBTerm{Coeff: -term.coeff, Literal: -term.variable})
			degree -= term.coeff
		}
	}

	// Trivially satisfied
	if degree <= 0 {
		return
	}

	// Any false enforcement literal satisfies the constraint on its own
	for _, literal := range enforcement {
		constraint.Terms = append(constraint.Terms, PBTerm{Coeff: degree, Literal: -literal})
	}

	for i := range constraint.Terms {
		constraint.Terms[i].Coeff = min(constraint.Terms[i].Coeff, degree)
	}
	constraint.Degree = degree
	pb.Constraints = append(pb.Constraints, constraint)
}

// decode maps a PB assignment (indexed by variable, true when set) back to model values
func (pb *PB) decode(assignment func(x int64) bool) []int64 {
	values := make([]int64, len(pb.encodings))
	for i, enc := range pb.encodings {
		value := enc.lo
		for b, x := range enc.bits {
			if assignment(x) {
				value += int64(1) << b
			}
		}
		values[i] = value
	}
	return values
}

// ToOPB renders the instance in the OPB format read by pseudo-boolean solvers. Negated literals
// are rewritten over positive variables, since not every solver accepts the "~x" notation.
func (pb *PB) ToOPB() string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "* #variable= %d #constraint= %d\n", pb.Variables, len(pb.Constraints))

	if len(pb.Objective) > 0 {
		builder.WriteString("min:")
		for _, term := range pb.Objective {
			fmt.Fprintf(&builder, " %+d x%d", term.Coeff, term.Literal)
		}
		builder.WriteString(" ;\n")
	}

	for _, constraint := range pb.Constraints {
		degree := constraint.Degree
		for _, term := range constraint.Terms {
			if term.Literal > 0 {
				fmt.Fprintf(&builder, "%+d x%d ", term.Coeff, term.Literal)
			} else {
				fmt.Fprintf(&builder, "%+d x%d ", -term.Coeff, -term.Literal)
				degree -= term.Coeff
			}
		}
		fmt.Fprintf(&builder, ">= %d ;\n", degree)
	}
	return builder.String()
}
