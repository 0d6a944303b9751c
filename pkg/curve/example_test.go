package curve_test

import (
	"fmt"

	"github.com/factorial/trendline/pkg/curve"
	"github.com/factorial/trendline/pkg/gbm"
)

func ExampleRender() {
	p := gbm.Params{Steps: 3, InitialValue: 100, Drift: 0, Volatility: 0, Dt: 1}
	series, _ := gbm.Generate(p, nil)

	d := curve.Render(series, curve.Scale{HorizontalScale: 10, VerticalOffset: 100, VerticalScale: 0.5})
	fmt.Println(d.Points)
	fmt.Println(d.PathData())
	// Output:
	// [{0 50} {10 50} {20 50}]
	// M 0 50 L 10 50 L 20 50
}
