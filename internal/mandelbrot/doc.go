// Package mandelbrot renders the Mandelbrot set into a pixel buffer.
//
// It is a sample workload for the lockfree package: Render draws the whole
// image on the calling goroutine, RenderParallel splits the pixel buffer into
// bands of rows with lockfree.Chunks and lets a fixed set of workers claim
// bands until the image is done.
//
// # Pixel formats
//
//   - Gray: one byte per pixel, 255 minus the escape count, 0 inside the set.
//   - RGB: three bytes per pixel, smooth blue-purple-red-yellow gradient,
//     black inside the set.
package mandelbrot
