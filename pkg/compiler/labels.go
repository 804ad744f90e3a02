package compiler

import "fmt"

// LabelKind selects an independent label counter.
type LabelKind int

const (
	LabelIf LabelKind = iota
	LabelWhile
	LabelFor
	LabelMul
	LabelDiv
	LabelMod
	LabelAnd
	LabelOr
	LabelCmp
	LabelRet
	numLabelKinds
)

// Labels hands out construct labels. Each kind counts from zero on its
// own, and every label of one construct instance shares the same number.
type Labels struct {
	next [numLabelKinds]int
}

// Next reserves the next number for kind.
func (l *Labels) Next(kind LabelKind) int {
	n := l.next[kind]
	l.next[kind]++
	return n
}

type ifLabels struct{ then, els, end string }

func (l *Labels) newIf() ifLabels {
	n := l.Next(LabelIf)
	return ifLabels{
		then: fmt.Sprintf("L_if_then_%d", n),
		els:  fmt.Sprintf("L_if_else_%d", n),
		end:  fmt.Sprintf("L_if_end_%d", n),
	}
}

type whileLabels struct{ cond, body, end string }

func (l *Labels) newWhile() whileLabels {
	n := l.Next(LabelWhile)
	return whileLabels{
		cond: fmt.Sprintf("L_while_cond_%d", n),
		body: fmt.Sprintf("L_while_body_%d", n),
		end:  fmt.Sprintf("L_while_end_%d", n),
	}
}

type forLabels struct{ cond, body, inc, end string }

func (l *Labels) newFor() forLabels {
	n := l.Next(LabelFor)
	return forLabels{
		cond: fmt.Sprintf("L_for_cond_%d", n),
		body: fmt.Sprintf("L_for_body_%d", n),
		inc:  fmt.Sprintf("L_for_inc_%d", n),
		end:  fmt.Sprintf("L_for_end_%d", n),
	}
}

// pair returns the two labels of a two-label construct such as a multiply
// loop (begin/end) or a short-circuit (false/end).
func (l *Labels) pair(kind LabelKind, prefix, first, second string) (string, string) {
	n := l.Next(kind)
	return fmt.Sprintf("L_%s_%s_%d", prefix, first, n), fmt.Sprintf("L_%s_%s_%d", prefix, second, n)
}

type cmpLabels struct{ isTrue, isFalse, end string }

func (l *Labels) newCmp() cmpLabels {
	n := l.Next(LabelCmp)
	return cmpLabels{
		isTrue:  fmt.Sprintf("L_cmp_true_%d", n),
		isFalse: fmt.Sprintf("L_cmp_false_%d", n),
		end:     fmt.Sprintf("L_cmp_end_%d", n),
	}
}

func (l *Labels) newRet() string {
	return fmt.Sprintf("L_ret_%d", l.Next(LabelRet))
}

// loopLabels are the targets of break and continue inside the innermost
// enclosing loop. The zero value means "not in a loop".
type loopLabels struct {
	breakTo    string
	continueTo string
}

func (l loopLabels) inLoop() bool { return l.breakTo != "" }
