package autograd

import "strings"

// Kind identifies the differentiable primitive an Op computes.
// The set is closed: forward and backward dispatch with a switch over it.
type Kind int

// Operator kinds.
const (
	KindAdd Kind = iota
	KindSub
	KindMultiply
	KindMatMul
	KindPow    // x^p with a constant integer exponent
	KindPowVar // x^p with a differentiable exponent
	KindLog
	KindExp
	KindReshape
	KindReLU
	KindCrossEntropyLoss
	KindLinear
	KindConv2D
	KindMaxPool2D
)

var kindNames = [...]string{
	KindAdd:              "Add",
	KindSub:              "Sub",
	KindMultiply:         "Multiply",
	KindMatMul:           "MatMul",
	KindPow:              "Pow",
	KindPowVar:           "PowVar",
	KindLog:              "Log",
	KindExp:              "Exp",
	KindReshape:          "Reshape",
	KindReLU:             "ReLU",
	KindCrossEntropyLoss: "CrossEntropyLoss",
	KindLinear:           "Linear",
	KindConv2D:           "Conv2D",
	KindMaxPool2D:        "MaxPool2D",
}

// String returns the operator name.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Unknown"
	}
	return kindNames[k]
}

// Arity returns the number of input Variables a forward call takes.
func (k Kind) Arity() int {
	switch k {
	case KindAdd, KindSub, KindMultiply, KindMatMul, KindPowVar, KindCrossEntropyLoss:
		return 2
	default:
		return 1
	}
}

// configured reports whether the kind carries settings or parameters and so
// must be created through its dedicated constructor.
func (k Kind) configured() bool {
	switch k {
	case KindPow, KindReshape, KindLinear, KindConv2D, KindMaxPool2D:
		return true
	default:
		return false
	}
}

func lowerKind(k Kind) string {
	return strings.ToLower(k.String())
}
