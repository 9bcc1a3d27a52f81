package inference

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// TensorInfo describes a declared model input. Dynamic axes are -1.
type TensorInfo struct {
	Name string
	Dims []int64
}

// Feed is one named input tensor; exactly one of Float or Int is set.
type Feed struct {
	Name  string
	Shape []int64
	Float []float32
	Int   []int64
}

// Model is a loaded classifier graph. Implementations must allow concurrent
// Run calls.
type Model interface {
	Inputs() []TensorInfo
	// Run feeds the inputs and returns the flattened values of the named
	// output, which must hold outputLen elements for a batch of one.
	Run(feeds []Feed, output string, outputLen int) ([]float32, error)
}

// Softmax is the numerically stable softmax: the max logit is subtracted
// before exponentiating.
func Softmax(logits []float32) []float64 {
	x := widen(logits)
	if len(x) == 0 {
		return x
	}
	floats.AddConst(-floats.Max(x), x)
	for i, v := range x {
		x[i] = math.Exp(v)
	}
	floats.Scale(1/floats.Sum(x), x)
	return x
}

// Sigmoid applies the logistic function elementwise.
func Sigmoid(logits []float32) []float64 {
	x := widen(logits)
	for i, v := range x {
		x[i] = 1 / (1 + math.Exp(-v))
	}
	return x
}

// Argmax returns the index of the largest value, -1 for an empty slice.
func Argmax(x []float64) int {
	if len(x) == 0 {
		return -1
	}
	return floats.MaxIdx(x)
}

func widen(x []float32) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = float64(v)
	}
	return out
}
