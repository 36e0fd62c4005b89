package hdt

import "strings"

// Order is a permutation of the (subject, predicate, object) components
// that defines the lexicographic sort order of a compact triples form.
type Order int

const (
	OrderUnknown Order = iota
	OrderSPO
	OrderSOP
	OrderPSO
	OrderPOS
	OrderOSP
	OrderOPS
)

var orderNames = map[Order]string{
	OrderUnknown: "Unknown",
	OrderSPO:     "SPO",
	OrderSOP:     "SOP",
	OrderPSO:     "PSO",
	OrderPOS:     "POS",
	OrderOSP:     "OSP",
	OrderOPS:     "OPS",
}

// orderPerm maps an order to the component indexes (0=s, 1=p, 2=o) read in
// sequence, e.g. POS reads predicate, then object, then subject.
var orderPerm = map[Order][3]int{
	OrderSPO: {0, 1, 2},
	OrderSOP: {0, 2, 1},
	OrderPSO: {1, 0, 2},
	OrderPOS: {1, 2, 0},
	OrderOSP: {2, 0, 1},
	OrderOPS: {2, 1, 0},
}

func (o Order) String() string {
	if name, ok := orderNames[o]; ok {
		return name
	}
	return "Unknown"
}

// ParseOrder parses an order name such as "SPO". Unrecognized names yield
// OrderUnknown.
func ParseOrder(s string) Order {
	s = strings.ToUpper(strings.TrimSpace(s))
	for o, name := range orderNames {
		if name == s {
			return o
		}
	}
	return OrderUnknown
}

// Permute rearranges a triple's components into the given order. For
// OrderUnknown the triple is returned unchanged.
func (o Order) Permute(t TripleID) (a, b, c uint32) {
	perm, ok := orderPerm[o]
	if !ok {
		return t.Subject, t.Predicate, t.Object
	}
	comps := [3]uint32{t.Subject, t.Predicate, t.Object}
	return comps[perm[0]], comps[perm[1]], comps[perm[2]]
}

// Unpermute is the inverse of Permute: it rebuilds a triple from components
// stored in the given order.
func (o Order) Unpermute(a, b, c uint32) TripleID {
	perm, ok := orderPerm[o]
	if !ok {
		return TripleID{Subject: a, Predicate: b, Object: c}
	}
	var comps [3]uint32
	comps[perm[0]] = a
	comps[perm[1]] = b
	comps[perm[2]] = c
	return TripleID{Subject: comps[0], Predicate: comps[1], Object: comps[2]}
}

// Compare lexicographically compares two triples under the order. It
// returns a negative value if x sorts before y, zero if equal, positive
// otherwise.
func (o Order) Compare(x, y TripleID) int {
	xa, xb, xc := o.Permute(x)
	ya, yb, yc := o.Permute(y)
	switch {
	case xa != ya:
		return int(int64(xa) - int64(ya))
	case xb != yb:
		return int(int64(xb) - int64(yb))
	default:
		return int(int64(xc) - int64(yc))
	}
}
