// Package sink writes rendered curves to output formats.
//
// # Formats
//
//   - [RenderSVG]: an animated SVG. The chart fades in and every curve is
//     drawn from its first point to its last using a stroke-dashoffset
//     keyframe, with the duration and easing taken from [motion.Animation].
//   - [RenderJSON]: the curve coordinates, path data and animation settings
//     for front-ends that animate the path themselves.
//   - [RenderPNG]: a static raster of the underlying series.
//
// # Element IDs
//
// Each SVG carries a unique id and scopes its CSS to it, so several charts
// can be inlined on one page. Pass [WithID] for reproducible output.
//
// # Empty Curves
//
// An empty descriptor draws nothing. A chart whose curves are all empty is
// still a valid, blank document.
//
// [motion.Animation]: github.com/factorial/trendline/pkg/motion.Animation
package sink
