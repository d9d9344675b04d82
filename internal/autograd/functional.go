package autograd

// apply creates a fresh Op of kind and runs it once.
func (g *Graph) apply(kind Kind, inputs ...Variable) (Variable, error) {
	op, err := g.NewOp(kind)
	if err != nil {
		return Variable{}, err
	}
	return op.Forward(inputs...)
}

// Add returns a + b. A bias b of shape (n) or (1, n) is broadcast over the rows of a (m, n).
func (g *Graph) Add(a, b Variable) (Variable, error) { return g.apply(KindAdd, a, b) }

// Sub returns a - b with the same broadcasting as Add.
func (g *Graph) Sub(a, b Variable) (Variable, error) { return g.apply(KindSub, a, b) }

// Mul returns the element-wise product; a single-element operand acts as a scalar.
func (g *Graph) Mul(a, b Variable) (Variable, error) { return g.apply(KindMultiply, a, b) }

// MatMul returns the matrix product a @ b.
func (g *Graph) MatMul(a, b Variable) (Variable, error) { return g.apply(KindMatMul, a, b) }

// Pow returns x^p for a constant integer exponent.
func (g *Graph) Pow(x Variable, p int) (Variable, error) { return g.NewPow(p).Forward(x) }

// PowVar returns x^p where the exponent p is itself differentiable.
func (g *Graph) PowVar(x, p Variable) (Variable, error) { return g.apply(KindPowVar, x, p) }

// Log returns the element-wise natural logarithm.
func (g *Graph) Log(x Variable) (Variable, error) { return g.apply(KindLog, x) }

// Exp returns the element-wise exponential.
func (g *Graph) Exp(x Variable) (Variable, error) { return g.apply(KindExp, x) }

// ReLU returns max(0, x).
func (g *Graph) ReLU(x Variable) (Variable, error) { return g.apply(KindReLU, x) }

// CrossEntropyLoss returns the mean cross-entropy of softmax(logits) against integer class labels.
func (g *Graph) CrossEntropyLoss(logits, labels Variable) (Variable, error) {
	return g.apply(KindCrossEntropyLoss, logits, labels)
}

// Reshape returns x with a new shape holding the same number of elements.
func (g *Graph) Reshape(x Variable, shape ...int) (Variable, error) {
	op, err := g.NewReshape(shape...)
	if err != nil {
		return Variable{}, err
	}
	return op.Forward(x)
}
