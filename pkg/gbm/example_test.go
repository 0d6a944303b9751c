package gbm_test

import (
	"fmt"

	"github.com/factorial/trendline/pkg/gbm"
)

func ExampleGenerate() {
	p := gbm.Params{Steps: 3, InitialValue: 100, Drift: 0, Volatility: 0, Dt: 1}

	s, err := gbm.Generate(p, gbm.NewSource(1))
	if err != nil {
		fmt.Println(err)
		return
	}
	for _, pt := range s {
		fmt.Println(pt.Index, pt.Value)
	}
	// Output:
	// 0 100
	// 1 100
	// 2 100
}

func ExampleGenerate_invalid() {
	p := gbm.DefaultParams()
	p.Volatility = -0.2

	_, err := gbm.Generate(p, nil)
	fmt.Println(err)
	// Output: INVALID_PARAMETER: volatility must be >= 0, got -0.2
}
